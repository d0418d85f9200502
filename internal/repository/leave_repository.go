package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/query"
)

var leaveCols = columns{
	"id":         "l.id",
	"reason":     "l.reason",
	"status":     "l.status",
	"fromDate":   "l.from_date",
	"toDate":     "l.to_date",
	"user":       "l.user_id",
	"department": "l.department_id",
	"createdAt":  "l.created_at",
	"updatedAt":  "l.updated_at",
}

const leaveSelect = `SELECT l.id, l.from_date, l.to_date, l.reason, l.status, l.user_id, l.department_id,
	l.created_at, l.updated_at, u.name, d.name, d.created_at, d.updated_at
	FROM leaves l
	JOIN users u ON u.id = l.user_id
	JOIN departments d ON d.id = l.department_id`

// overlapCount counts the user's leaves sharing a day with [from, to],
// ignoring the leave with id (0 on insert).
const overlapCount = `SELECT COUNT(*) FROM leaves
	WHERE user_id = ? AND id <> ? AND from_date <= ? AND to_date >= ?`

type LeaveRepo struct{ db *sql.DB }

func NewLeaveRepo(db *sql.DB) *LeaveRepo { return &LeaveRepo{db: db} }

func scanLeave(s rowScanner) (*model.Leave, error) {
	var (
		l model.Leave
		u model.UserRef
		d model.Department
	)
	err := s.Scan(&l.ID, &l.FromDate, &l.ToDate, &l.Reason, &l.Status, &l.UserID, &l.DepartmentID,
		&l.CreatedAt, &l.UpdatedAt, &u.Name, &d.Name, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.ID, d.ID = l.UserID, l.DepartmentID
	l.User, l.Department = &u, &d
	return &l, nil
}

// GetByID fetches a leave with its user reference and department.
func (r *LeaveRepo) GetByID(ctx context.Context, id uint64) (*model.Leave, error) {
	return r.First(ctx, query.Filter{All: []query.Cond{{Field: "id", Op: query.Eq, Value: id}}})
}

// First returns the first leave matching f.
func (r *LeaveRepo) First(ctx context.Context, f query.Filter) (*model.Leave, error) {
	where, args, err := leaveCols.where(f)
	if err != nil {
		return nil, err
	}
	l, err := scanLeave(r.db.QueryRowContext(ctx, leaveSelect+where+" LIMIT 1", args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

// List returns one page of leaves matching f.
func (r *LeaveRepo) List(ctx context.Context, f query.Filter, p query.Page) ([]*model.Leave, error) {
	where, args, err := leaveCols.where(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, leaveSelect+where+leaveCols.orderLimit(p, query.DefaultSort), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Leave{}
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LeaveRepo) Count(ctx context.Context, f query.Filter) (int64, error) {
	where, args, err := leaveCols.where(f)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leaves l"+where, args...).Scan(&n)
	return n, err
}

// Create inserts l as Pending after checking, under a lock on the owning
// user row, that no other leave of that user overlaps it.
func (r *LeaveRepo) Create(ctx context.Context, l *model.Leave) error {
	return r.withUserLock(ctx, l.UserID, func(tx *sql.Tx) error {
		if err := checkOverlap(ctx, tx, l); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO leaves (from_date, to_date, reason, status, user_id, department_id)
			 VALUES (?,?,?,?,?,?)`,
			l.FromDate, l.ToDate, l.Reason, model.LeavePending, l.UserID, l.DepartmentID)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		l.ID = uint64(id)
		l.Status = model.LeavePending
		return nil
	})
}

// Update rewrites dates and reason of a Pending leave.  The overlap check
// excludes the leave itself.  A leave that is no longer Pending yields a
// *LockedError.
func (r *LeaveRepo) Update(ctx context.Context, l *model.Leave) error {
	return r.withUserLock(ctx, l.UserID, func(tx *sql.Tx) error {
		var st model.LeaveStatus
		err := tx.QueryRowContext(ctx,
			"SELECT status FROM leaves WHERE id = ? AND user_id = ? FOR UPDATE", l.ID, l.UserID).Scan(&st)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if st != model.LeavePending {
			return &LockedError{Status: st}
		}
		if err := checkOverlap(ctx, tx, l); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE leaves SET from_date = ?, to_date = ?, reason = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			l.FromDate, l.ToDate, l.Reason, l.ID)
		return err
	})
}

// SetStatus moves a Pending leave to st.
func (r *LeaveRepo) SetStatus(ctx context.Context, id uint64, st model.LeaveStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE leaves SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?",
		st, id, model.LeavePending)
	if err != nil {
		return err
	}
	return r.pendingOnly(ctx, id, res)
}

// Delete removes a Pending leave.
func (r *LeaveRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM leaves WHERE id = ? AND status = ?", id, model.LeavePending)
	if err != nil {
		return err
	}
	return r.pendingOnly(ctx, id, res)
}

// DeleteByUser removes every leave of the user regardless of status.  ex is
// the transaction to run in; nil uses the repository's own connection.
func (r *LeaveRepo) DeleteByUser(ctx context.Context, ex Execer, userID uint64) (int64, error) {
	if ex == nil {
		ex = r.db
	}
	res, err := ex.ExecContext(ctx, "DELETE FROM leaves WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// pendingOnly explains a conditional write that touched no row: either the
// leave is gone or it has left Pending.
func (r *LeaveRepo) pendingOnly(ctx context.Context, id uint64, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var st model.LeaveStatus
	err = r.db.QueryRowContext(ctx, "SELECT status FROM leaves WHERE id = ?", id).Scan(&st)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return &LockedError{Status: st}
}

func (r *LeaveRepo) withUserLock(ctx context.Context, userID uint64, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var id uint64
	err = tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ? FOR UPDATE", userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func checkOverlap(ctx context.Context, tx *sql.Tx, l *model.Leave) error {
	var n int64
	if err := tx.QueryRowContext(ctx, overlapCount, l.UserID, l.ID, l.ToDate, l.FromDate).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrLeaveOverlap
	}
	return nil
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
}
