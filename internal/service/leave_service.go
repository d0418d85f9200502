package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/query"
	"github.com/slms/leave-service/internal/repository"
)

// LeaveInput carries the client editable fields of a leave.
type LeaveInput struct {
	FromDate time.Time
	ToDate   time.Time
	Reason   string
}

// days truncates both bounds to 00:00 UTC so ranges compare by day.
func (in LeaveInput) days() LeaveInput {
	in.FromDate = model.StartOfDay(in.FromDate)
	in.ToDate = model.StartOfDay(in.ToDate)
	return in
}

// LeaveService owns the leave lifecycle: Pending -> Approved | Rejected,
// no way back.  Only Pending leaves can be edited or removed.
type LeaveService struct {
	leaves LeaveStore
	now    func() time.Time
}

func NewLeaveService(leaves LeaveStore) *LeaveService {
	return &LeaveService{leaves: leaves, now: time.Now}
}

// List returns the leaves visible to actor.
func (s *LeaveService) List(ctx context.Context, actor *model.User, params url.Values) (*ListResult[*model.Leave], error) {
	f, p, err := query.Build(query.LeaveList, actor, params, nil)
	if err != nil {
		return nil, err
	}
	items, err := s.leaves.List(ctx, f, p)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	total, err := s.leaves.Count(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &ListResult[*model.Leave]{Data: items, Total: total}, nil
}

// Get returns one leave if actor could see it in the list.
func (s *LeaveService) Get(ctx context.Context, actor *model.User, id uint64) (*model.Leave, error) {
	l, err := s.leaves.First(ctx, byID(id, query.Scope(query.LeaveList, actor)...))
	return l, storeErr(err, apperr.MsgLeaveNotExist)
}

// Create files a Pending leave for actor in actor's department.
func (s *LeaveService) Create(ctx context.Context, actor *model.User, in LeaveInput) (*model.Leave, error) {
	in = in.days()
	if err := s.checkDates(in); err != nil {
		return nil, err
	}
	l := &model.Leave{
		FromDate:     in.FromDate,
		ToDate:       in.ToDate,
		Reason:       in.Reason,
		UserID:       actor.ID,
		DepartmentID: actor.DepartmentID,
	}
	if err := s.leaves.Create(ctx, l); err != nil {
		return nil, storeErr(err, apperr.MsgUserNotExist)
	}
	return s.reload(ctx, l.ID)
}

// Update changes dates and reason of a Pending leave.  Status cannot be
// changed through this path.
func (s *LeaveService) Update(ctx context.Context, actor *model.User, id uint64, in LeaveInput) (*model.Leave, error) {
	cur, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if cur.Status.Terminal() {
		return nil, locked(apperr.MsgCannotUpdateLeave, cur.Status)
	}
	in = in.days()
	if err := s.checkDates(in); err != nil {
		return nil, err
	}
	next := &model.Leave{ID: id, UserID: cur.UserID, FromDate: in.FromDate, ToDate: in.ToDate, Reason: in.Reason}
	if err := s.leaves.Update(ctx, next); err != nil {
		return nil, lockedOr(err, apperr.MsgCannotUpdateLeave)
	}
	return s.reload(ctx, id)
}

// UpdateStatus approves or rejects a Pending leave.
func (s *LeaveService) UpdateStatus(ctx context.Context, actor *model.User, id uint64, st model.LeaveStatus) (*model.Leave, error) {
	if st != model.LeaveApproved && st != model.LeaveRejected {
		return nil, apperr.Validation(`"status" must be one of [Approved, Rejected]`)
	}
	cur, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if cur.Status.Terminal() {
		return nil, locked(apperr.MsgCannotChangeStatus, cur.Status)
	}
	if err := s.leaves.SetStatus(ctx, id, st); err != nil {
		return nil, lockedOr(err, apperr.MsgCannotChangeStatus)
	}
	return s.reload(ctx, id)
}

// Delete removes a Pending leave.
func (s *LeaveService) Delete(ctx context.Context, actor *model.User, id uint64) (*Deleted, error) {
	cur, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if cur.Status.Terminal() {
		return nil, locked(apperr.MsgCannotDeleteLeave, cur.Status)
	}
	if err := s.leaves.Delete(ctx, id); err != nil {
		return nil, lockedOr(err, apperr.MsgCannotDeleteLeave)
	}
	return &Deleted{ID: id}, nil
}

// DeleteAllForUser removes every leave of userID whatever its status.  ex
// binds the removal to the caller's transaction; nil runs it on its own.
func (s *LeaveService) DeleteAllForUser(ctx context.Context, ex repository.Execer, userID uint64) (int64, error) {
	n, err := s.leaves.DeleteByUser(ctx, ex, userID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return n, nil
}

// checkDates applies the same floor on create and update: the start of
// the current UTC day.
func (s *LeaveService) checkDates(in LeaveInput) error {
	if in.FromDate.Before(model.StartOfDay(s.now())) {
		return apperr.Validation(apperr.MsgFromDateInPast)
	}
	if in.ToDate.Before(in.FromDate) {
		return apperr.Validation(apperr.MsgToDateBeforeFromDate)
	}
	return nil
}

func (s *LeaveService) reload(ctx context.Context, id uint64) (*model.Leave, error) {
	l, err := s.leaves.GetByID(ctx, id)
	return l, storeErr(err, apperr.MsgLeaveNotExist)
}

func locked(prefix string, st model.LeaveStatus) error {
	return apperr.Conflict(prefix + " " + st.Lower())
}

// lockedOr maps a status change that raced with this request to the same
// message the pre-check would have produced.
func lockedOr(err error, prefix string) error {
	var le *repository.LockedError
	if errors.As(err, &le) {
		return locked(prefix, le.Status)
	}
	return storeErr(err, apperr.MsgLeaveNotExist)
}
