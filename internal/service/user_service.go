package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/query"
	"github.com/slms/leave-service/internal/queue"
	"github.com/slms/leave-service/internal/repository"
	"github.com/slms/leave-service/internal/session"
	"github.com/slms/leave-service/internal/utils"
)

// NewUserInput is used by registration and by ADMIN/HOD account creation.
type NewUserInput struct {
	Name          string
	UserName      string
	Email         string
	ContactNumber string
	DepartmentID  uint64
	Password      string
	Role          model.Role
	ProfileImage  *string
}

// ProfileInput holds the fields a user may change on an account.  A nil
// ProfileImage keeps the current image.
type ProfileInput struct {
	Name          string
	UserName      string
	Email         string
	ContactNumber string
	ProfileImage  *string
}

type UserService struct {
	users       UserStore
	departments DepartmentStore
	leaves      *LeaveService
	sessions    session.Store
	hasher      utils.Hasher
	notifier    Notifier
	sessionTTL  time.Duration
	log         logrus.FieldLogger
}

func NewUserService(users UserStore, departments DepartmentStore, leaves *LeaveService, sessions session.Store,
	hasher utils.Hasher, notifier Notifier, sessionTTL time.Duration, log logrus.FieldLogger) *UserService {
	return &UserService{
		users:       users,
		departments: departments,
		leaves:      leaves,
		sessions:    sessions,
		hasher:      hasher,
		notifier:    notifier,
		sessionTTL:  sessionTTL,
		log:         log,
	}
}

// readScope limits single-user reads: HOD within own department, STAFF to
// self, ADMIN unrestricted.
func readScope(actor *model.User) []query.Cond {
	switch actor.Role {
	case model.RoleHOD:
		return []query.Cond{{Field: "department", Op: query.Eq, Value: actor.DepartmentID}}
	case model.RoleStaff:
		return []query.Cond{{Field: "id", Op: query.Eq, Value: actor.ID}}
	}
	return nil
}

// manageable resolves id among the accounts actor may activate, deactivate
// or delete: exactly the ones its user listing shows.
func (s *UserService) manageable(ctx context.Context, actor *model.User, id uint64) (*model.User, error) {
	u, err := s.users.First(ctx, byID(id, query.Scope(query.UserList, actor)...))
	return u, storeErr(err, apperr.MsgUserNotExist)
}

// List returns the users visible to actor: HODs for ADMIN, own department
// STAFF for HOD, only self for STAFF.
func (s *UserService) List(ctx context.Context, actor *model.User, params url.Values) (*ListResult[*model.User], error) {
	f, p, err := query.Build(query.UserList, actor, params, nil)
	if err != nil {
		return nil, err
	}
	items, err := s.users.List(ctx, f, p)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	total, err := s.users.Count(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &ListResult[*model.User]{Data: items, Total: total}, nil
}

func (s *UserService) Get(ctx context.Context, actor *model.User, id uint64) (*model.User, error) {
	u, err := s.users.First(ctx, byID(id, readScope(actor)...))
	return u, storeErr(err, apperr.MsgUserNotExist)
}

// Register creates an Inactive account that an ADMIN or HOD activates
// later.
func (s *UserService) Register(ctx context.Context, in NewUserInput) (*model.User, error) {
	u, err := s.create(ctx, in, model.UserInactive)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(queue.MailEvent{
		Type: queue.MailAccountRegistered, Email: u.Email, Name: u.Name, UserName: u.UserName,
	})
	return u, nil
}

// Create makes an Active account on behalf of actor.  A HOD may only add
// STAFF to their own department.
func (s *UserService) Create(ctx context.Context, actor *model.User, in NewUserInput) (*model.User, error) {
	if actor.Role == model.RoleHOD {
		if in.Role != model.RoleStaff {
			return nil, apperr.Forbidden(apperr.MsgUnauthorized)
		}
		in.DepartmentID = actor.DepartmentID
	}
	u, err := s.create(ctx, in, model.UserActive)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(queue.MailEvent{
		Type: queue.MailAccountCreated, Email: u.Email, Name: u.Name, UserName: u.UserName, Password: in.Password,
	})
	return u, nil
}

func (s *UserService) create(ctx context.Context, in NewUserInput, st model.UserStatus) (*model.User, error) {
	if in.Role != model.RoleHOD && in.Role != model.RoleStaff {
		return nil, apperr.Validation(`"role" must be one of [HOD, STAFF]`)
	}
	if _, err := s.departments.GetByID(ctx, in.DepartmentID); err != nil {
		return nil, asValidation(storeErr(err, apperr.MsgDepartmentNotExist))
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u := &model.User{
		Name:          strings.TrimSpace(in.Name),
		UserName:      strings.TrimSpace(in.UserName),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		DepartmentID:  in.DepartmentID,
		Role:          in.Role,
		PasswordHash:  hash,
		ProfileImage:  in.ProfileImage,
		Status:        st,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, storeErr(err, apperr.MsgUserNotExist)
	}
	return s.reload(ctx, u.ID)
}

// Update edits the profile of id.  Only an ADMIN or the account owner may
// do so.  A live session of that user gets the new snapshot.
func (s *UserService) Update(ctx context.Context, actor *model.User, id uint64, in ProfileInput) (*model.User, error) {
	if actor.Role != model.RoleAdmin && actor.ID != id {
		return nil, apperr.Forbidden(apperr.MsgUnauthorized)
	}
	cur, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, apperr.MsgUserNotExist)
	}
	cur.Name = strings.TrimSpace(in.Name)
	cur.UserName = strings.TrimSpace(in.UserName)
	cur.Email = strings.ToLower(strings.TrimSpace(in.Email))
	cur.ContactNumber = strings.TrimSpace(in.ContactNumber)
	if in.ProfileImage != nil {
		cur.ProfileImage = in.ProfileImage
	}
	if err := s.users.Update(ctx, cur); err != nil {
		return nil, storeErr(err, apperr.MsgUserNotExist)
	}
	u, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.refreshSession(ctx, u, "")
	return u, nil
}

// SetStatus activates or deactivates id.  An ADMIN reaches HODs and a HOD
// reaches the STAFF of its own department.  Deactivation ends the user's
// session at once.
func (s *UserService) SetStatus(ctx context.Context, actor *model.User, id uint64, st model.UserStatus) (*model.User, error) {
	if _, err := s.manageable(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.users.SetStatus(ctx, id, st); err != nil {
		return nil, storeErr(err, apperr.MsgUserNotExist)
	}
	u, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	switch st {
	case model.UserActive:
		s.notifier.Notify(queue.MailEvent{
			Type: queue.MailAccountActivated, Email: u.Email, Name: u.Name, UserName: u.UserName,
		})
	case model.UserInactive:
		s.dropSession(ctx, id)
	}
	return u, nil
}

// Delete removes id with all of its leaves in one transaction and ends its
// session.
func (s *UserService) Delete(ctx context.Context, actor *model.User, id uint64) (*Deleted, error) {
	if _, err := s.manageable(ctx, actor, id); err != nil {
		return nil, err
	}
	n, err := s.users.Delete(ctx, id, func(ctx context.Context, tx repository.Execer) (int64, error) {
		return s.leaves.DeleteAllForUser(ctx, tx, id)
	})
	if err != nil {
		return nil, storeErr(err, apperr.MsgUserNotExist)
	}
	s.dropSession(ctx, id)
	s.log.WithFields(logrus.Fields{"user_id": id, "leaves": n}).Info("user deleted")
	return &Deleted{ID: id}, nil
}

func (s *UserService) reload(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	return u, storeErr(err, apperr.MsgUserNotExist)
}

// refreshSession replaces the cached snapshot of u.  An empty token keeps
// the one already cached; no entry means there is nothing to refresh.
func (s *UserService) refreshSession(ctx context.Context, u *model.User, token string) {
	if token == "" {
		e, ok, err := s.sessions.Get(ctx, u.ID)
		if err != nil || !ok {
			return
		}
		token = e.Token
	}
	if err := s.sessions.Set(ctx, u.ID, session.Entry{Token: token, User: u}, s.sessionTTL); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("session refresh failed")
	}
}

func (s *UserService) dropSession(ctx context.Context, id uint64) {
	if err := s.sessions.Remove(ctx, id); err != nil {
		s.log.WithError(err).WithField("user_id", id).Warn("session remove failed")
	}
}

// asValidation turns a not-found reference into a 400, as for an invalid
// department on a new account.
func asValidation(err error) error {
	if e, ok := apperr.As(err); ok && e.Kind == apperr.KindNotFound {
		return apperr.Validation(e.Message)
	}
	return err
}
