package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/query"
	"github.com/slms/leave-service/internal/repository"
)

var departmentDefaults = &query.Defaults{Sort: "name", Dir: query.Asc}

type DepartmentService struct {
	departments DepartmentStore
	users       UserStore
}

func NewDepartmentService(departments DepartmentStore, users UserStore) *DepartmentService {
	return &DepartmentService{departments: departments, users: users}
}

// List is public; departments are ordered by name unless asked otherwise.
func (s *DepartmentService) List(ctx context.Context, params url.Values) (*ListResult[*model.Department], error) {
	f, p, err := query.Build(query.DepartmentList, nil, params, departmentDefaults)
	if err != nil {
		return nil, err
	}
	items, err := s.departments.List(ctx, f, p)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	total, err := s.departments.Count(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &ListResult[*model.Department]{Data: items, Total: total}, nil
}

func (s *DepartmentService) Get(ctx context.Context, id uint64) (*model.Department, error) {
	d, err := s.departments.GetByID(ctx, id)
	return d, storeErr(err, apperr.MsgDepartmentNotExist)
}

func (s *DepartmentService) Create(ctx context.Context, name string) (*model.Department, error) {
	d := &model.Department{Name: strings.TrimSpace(name)}
	if err := s.departments.Create(ctx, d); err != nil {
		return nil, departmentErr(err)
	}
	return d, nil
}

func (s *DepartmentService) Rename(ctx context.Context, id uint64, name string) (*model.Department, error) {
	if err := s.departments.Rename(ctx, id, strings.TrimSpace(name)); err != nil {
		return nil, departmentErr(err)
	}
	return s.Get(ctx, id)
}

// Delete refuses while any user still belongs to the department.
func (s *DepartmentService) Delete(ctx context.Context, id uint64) (*Deleted, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	n, err := s.users.CountByDepartment(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if n > 0 {
		return nil, apperr.Conflict(apperr.MsgUsersInDepartment)
	}
	if err := s.departments.Delete(ctx, id); err != nil {
		return nil, departmentErr(err)
	}
	return &Deleted{ID: id}, nil
}

func departmentErr(err error) error {
	var dup *repository.DuplicateError
	switch {
	case errors.As(err, &dup):
		return apperr.Conflict(apperr.MsgDepartmentExists)
	case errors.Is(err, repository.ErrInUse):
		return apperr.Conflict(apperr.MsgUsersInDepartment)
	}
	return storeErr(err, apperr.MsgDepartmentNotExist)
}
