package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/config"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/query"
)

// EnsureAdmin creates the first ADMIN, and its department, when no ADMIN
// exists yet.  The API itself only creates HOD and STAFF accounts.
func (s *UserService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}
	n, err := s.users.Count(ctx, query.Filter{All: []query.Cond{{Field: "role", Op: query.Eq, Value: string(model.RoleAdmin)}}})
	if err != nil {
		return apperr.Internal(err)
	}
	if n > 0 {
		return nil
	}
	dept, err := s.ensureDepartment(ctx, cfg.Department)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(cfg.Password)
	if err != nil {
		return apperr.Internal(err)
	}
	u := &model.User{
		Name:          cfg.Name,
		UserName:      cfg.UserName,
		Email:         strings.ToLower(cfg.Email),
		ContactNumber: cfg.ContactNumber,
		DepartmentID:  dept.ID,
		Role:          model.RoleAdmin,
		PasswordHash:  hash,
		Status:        model.UserActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return storeErr(err, apperr.MsgUserNotExist)
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("admin account seeded")
	return nil
}

func (s *UserService) ensureDepartment(ctx context.Context, name string) (*model.Department, error) {
	f := query.Filter{All: []query.Cond{{Field: "name", Op: query.Eq, Value: name}}}
	found, err := s.departments.List(ctx, f, query.Page{Limit: 1, Sort: "name", Dir: query.Asc})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(found) > 0 {
		return found[0], nil
	}
	d := &model.Department{Name: name}
	if err := s.departments.Create(ctx, d); err != nil {
		return nil, storeErr(err, apperr.MsgDepartmentNotExist)
	}
	return d, nil
}
