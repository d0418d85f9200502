package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/query"
)

var userCols = columns{
	"id":            "u.id",
	"name":          "u.name",
	"userName":      "u.user_name",
	"email":         "u.email",
	"contactNumber": "u.contact_number",
	"department":    "u.department_id",
	"role":          "u.role",
	"status":        "u.status",
	"createdAt":     "u.created_at",
	"updatedAt":     "u.updated_at",
}

const userSelect = `SELECT u.id, u.name, u.user_name, u.email, u.contact_number, u.department_id,
	u.role, u.password_hash, u.profile_image, u.status, u.created_at, u.updated_at,
	d.id, d.name, d.created_at, d.updated_at
	FROM users u
	JOIN departments d ON d.id = u.department_id`

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u   model.User
		d   model.Department
		img sql.NullString
	)
	err := s.Scan(&u.ID, &u.Name, &u.UserName, &u.Email, &u.ContactNumber, &u.DepartmentID,
		&u.Role, &u.PasswordHash, &img, &u.Status, &u.CreatedAt, &u.UpdatedAt,
		&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if img.Valid {
		u.ProfileImage = &img.String
	}
	u.Department = &d
	return &u, nil
}

// Create inserts u and sets its ID.  Unique violations come back as
// *DuplicateError.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, user_name, email, contact_number, department_id, role, password_hash, profile_image, status)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		u.Name, u.UserName, normEmail(u.Email), u.ContactNumber, u.DepartmentID,
		u.Role, u.PasswordHash, u.ProfileImage, u.Status)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByID fetches a user with its department.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.First(ctx, query.Filter{All: []query.Cond{{Field: "id", Op: query.Eq, Value: id}}})
}

// FindByLogin matches login against email, user name or contact number.
func (r *UserRepo) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	login = strings.TrimSpace(login)
	row := r.db.QueryRowContext(ctx,
		userSelect+" WHERE u.email = ? OR u.user_name = ? OR u.contact_number = ? LIMIT 1",
		normEmail(login), login, login)
	return oneUser(row)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, userSelect+" WHERE u.email = ? LIMIT 1", normEmail(email))
	return oneUser(row)
}

// First returns the first user matching f.
func (r *UserRepo) First(ctx context.Context, f query.Filter) (*model.User, error) {
	where, args, err := userCols.where(f)
	if err != nil {
		return nil, err
	}
	return oneUser(r.db.QueryRowContext(ctx, userSelect+where+" LIMIT 1", args...))
}

// List returns one page of users matching f.
func (r *UserRepo) List(ctx context.Context, f query.Filter, p query.Page) ([]*model.User, error) {
	where, args, err := userCols.where(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, userSelect+where+userCols.orderLimit(p, query.DefaultSort), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Count returns the number of users matching f.
func (r *UserRepo) Count(ctx context.Context, f query.Filter) (int64, error) {
	where, args, err := userCols.where(f)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users u"+where, args...).Scan(&n)
	return n, err
}

// CountByDepartment returns how many users reference the department.
func (r *UserRepo) CountByDepartment(ctx context.Context, departmentID uint64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE department_id = ?", departmentID).Scan(&n)
	return n, err
}

// Update writes the profile fields of u.  Status and password have their
// own methods.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, user_name = ?, email = ?, contact_number = ?,
		 department_id = ?, role = ?, profile_image = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		u.Name, u.UserName, normEmail(u.Email), u.ContactNumber,
		u.DepartmentID, u.Role, u.ProfileImage, u.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	return mustAffect(res)
}

// SetStatus activates or deactivates an account.
func (r *UserRepo) SetStatus(ctx context.Context, id uint64, st model.UserStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", st, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// SetPassword stores a new password hash.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", hash, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// Cascade removes the rows referencing a user inside the delete
// transaction and reports how many it removed.
type Cascade func(ctx context.Context, tx Execer) (int64, error)

// Delete removes the user and its reset token in one transaction, running
// cascade first in the same transaction.  It returns what cascade removed.
func (r *UserRepo) Delete(ctx context.Context, id uint64, cascade Cascade) (removed int64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if cascade != nil {
		if removed, err = cascade(ctx, tx); err != nil {
			return 0, err
		}
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM reset_tokens WHERE user_id = ?", id); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	if err = mustAffect(res); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}

func oneUser(row *sql.Row) (*model.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
