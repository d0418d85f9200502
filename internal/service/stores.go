// Package service holds the business rules.  Handlers pass the acting user
// explicitly; services return *apperr.Error values carrying catalog
// messages and never touch the transport.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/query"
	"github.com/slms/leave-service/internal/queue"
	"github.com/slms/leave-service/internal/repository"
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	FindByLogin(ctx context.Context, login string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	First(ctx context.Context, f query.Filter) (*model.User, error)
	List(ctx context.Context, f query.Filter, p query.Page) ([]*model.User, error)
	Count(ctx context.Context, f query.Filter) (int64, error)
	CountByDepartment(ctx context.Context, departmentID uint64) (int64, error)
	Update(ctx context.Context, u *model.User) error
	SetStatus(ctx context.Context, id uint64, st model.UserStatus) error
	SetPassword(ctx context.Context, id uint64, hash string) error
	Delete(ctx context.Context, id uint64, cascade repository.Cascade) (int64, error)
}

type DepartmentStore interface {
	Create(ctx context.Context, d *model.Department) error
	GetByID(ctx context.Context, id uint64) (*model.Department, error)
	List(ctx context.Context, f query.Filter, p query.Page) ([]*model.Department, error)
	Count(ctx context.Context, f query.Filter) (int64, error)
	Rename(ctx context.Context, id uint64, name string) error
	Delete(ctx context.Context, id uint64) error
}

type LeaveStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Leave, error)
	First(ctx context.Context, f query.Filter) (*model.Leave, error)
	List(ctx context.Context, f query.Filter, p query.Page) ([]*model.Leave, error)
	Count(ctx context.Context, f query.Filter) (int64, error)
	Create(ctx context.Context, l *model.Leave) error
	Update(ctx context.Context, l *model.Leave) error
	SetStatus(ctx context.Context, id uint64, st model.LeaveStatus) error
	Delete(ctx context.Context, id uint64) error
	DeleteByUser(ctx context.Context, ex repository.Execer, userID uint64) (int64, error)
}

type TokenStore interface {
	Replace(ctx context.Context, userID uint64, hash string, exp time.Time) error
	Find(ctx context.Context, userID uint64) (*model.ResetToken, error)
	Delete(ctx context.Context, userID uint64) error
}

// Notifier queues a mail without waiting for it.
type Notifier interface {
	Notify(ev queue.MailEvent)
}

// ListResult is the envelope of every listing.
type ListResult[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
}

// Deleted is returned by delete operations.
type Deleted struct {
	ID uint64 `json:"id"`
}

// storeErr translates repository errors.  notFound is the catalog message
// used when the record is missing.
func storeErr(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	var (
		dup    *repository.DuplicateError
		locked *repository.LockedError
	)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, repository.ErrLeaveOverlap):
		return apperr.Conflict(apperr.MsgLeaveExistInRange)
	case errors.As(err, &dup):
		return apperr.Duplicate(dup.Field)
	case errors.As(err, &locked):
		return apperr.Conflict("leave is " + locked.Status.Lower())
	}
	return apperr.Internal(err)
}

func byID(id uint64, extra ...query.Cond) query.Filter {
	return query.Filter{All: append([]query.Cond{{Field: "id", Op: query.Eq, Value: id}}, extra...)}
}
