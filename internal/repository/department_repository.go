package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/query"
)

var departmentCols = columns{
	"id":        "id",
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const departmentSelect = "SELECT id, name, created_at, updated_at FROM departments"

type DepartmentRepo struct{ db *sql.DB }

func NewDepartmentRepo(db *sql.DB) *DepartmentRepo { return &DepartmentRepo{db: db} }

// Create inserts d and reloads it so the timestamps are populated.
func (r *DepartmentRepo) Create(ctx context.Context, d *model.Department) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO departments (name) VALUES (?)", d.Name)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*d = *got
	return nil
}

func (r *DepartmentRepo) GetByID(ctx context.Context, id uint64) (*model.Department, error) {
	var d model.Department
	err := r.db.QueryRowContext(ctx, departmentSelect+" WHERE id = ?", id).
		Scan(&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns one page of departments matching f.
func (r *DepartmentRepo) List(ctx context.Context, f query.Filter, p query.Page) ([]*model.Department, error) {
	where, args, err := departmentCols.where(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, departmentSelect+where+departmentCols.orderLimit(p, "name"), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Department{}
	for rows.Next() {
		d := new(model.Department)
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DepartmentRepo) Count(ctx context.Context, f query.Filter) (int64, error) {
	where, args, err := departmentCols.where(f)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM departments"+where, args...).Scan(&n)
	return n, err
}

// Rename changes the department name.
func (r *DepartmentRepo) Rename(ctx context.Context, id uint64, name string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE departments SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", name, id)
	if err != nil {
		return mapWriteErr(err)
	}
	return mustAffect(res)
}

// Delete removes the department.  A department still referenced by a user
// or a leave yields ErrInUse.
func (r *DepartmentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM departments WHERE id = ?", id)
	if err != nil {
		return mapWriteErr(err)
	}
	return mustAffect(res)
}
