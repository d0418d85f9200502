package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/query"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var (
	march10 = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	march12 = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
)

func TestColumnsWhere(t *testing.T) {
	f := query.Filter{
		Any: []query.Cond{
			{Field: "name", Op: query.Match, Value: "Al_50%"},
			{Field: "email", Op: query.Match, Value: "Al_50%"},
		},
		All: []query.Cond{
			{Field: "department", Op: query.Eq, Value: uint64(3)},
			{Field: "createdAt", Op: query.Gte, Value: march10},
		},
	}
	where, args, err := userCols.where(f)
	require.NoError(t, err)
	assert.Equal(t,
		" WHERE (LOWER(u.name) LIKE ? OR LOWER(u.email) LIKE ?) AND u.department_id = ? AND u.created_at >= ?",
		where)
	assert.Equal(t, []any{`%al\_50\%%`, `%al\_50\%%`, uint64(3), march10}, args)

	where, args, err = userCols.where(query.Filter{})
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Empty(t, args)

	_, _, err = userCols.where(query.Filter{All: []query.Cond{{Field: "password", Op: query.Eq, Value: "x"}}})
	assert.Error(t, err)
}

func TestColumnsOrderLimit(t *testing.T) {
	got := leaveCols.orderLimit(query.Page{Index: 2, Limit: 5, Sort: "fromDate", Dir: query.Asc}, query.DefaultSort)
	assert.Equal(t, " ORDER BY l.from_date ASC, l.id ASC LIMIT 5 OFFSET 10", got)

	got = leaveCols.orderLimit(query.Page{Sort: "nope", Dir: query.Desc}, query.DefaultSort)
	assert.Equal(t, " ORDER BY l.created_at DESC, l.id DESC", got)
}

func TestMapWriteErr(t *testing.T) {
	err := mapWriteErr(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'users.email'"})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "email", dup.Field)

	err = mapWriteErr(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '555' for key 'contactNumber'"})
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "contactNumber", dup.Field)

	assert.ErrorIs(t, mapWriteErr(&mysql.MySQLError{Number: 1451}), ErrInUse)

	other := errors.New("boom")
	assert.Equal(t, other, mapWriteErr(other))
}

func TestLockedErrorMatchesSentinel(t *testing.T) {
	var err error = &LockedError{Status: model.LeaveApproved}
	assert.ErrorIs(t, err, ErrLeaveLocked)
	assert.Equal(t, "leave is approved", err.Error())
}

func TestLeaveRepo_CreateOverlapRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeaveRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM users WHERE id = ? FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM leaves")).
		WithArgs(int64(7), int64(0), march12, march10).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)))
	mock.ExpectRollback()

	l := &model.Leave{FromDate: march10, ToDate: march12, Reason: "trip", UserID: 7, DepartmentID: 2}
	err := repo.Create(context.Background(), l)
	assert.ErrorIs(t, err, ErrLeaveOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepo_CreateInsertsPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeaveRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM users WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM leaves")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(0)))
	mock.ExpectExec(q("INSERT INTO leaves")).
		WithArgs(march10, march12, "trip", "Pending", int64(7), int64(2)).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectCommit()

	l := &model.Leave{FromDate: march10, ToDate: march12, Reason: "trip", UserID: 7, DepartmentID: 2}
	require.NoError(t, repo.Create(context.Background(), l))
	assert.Equal(t, uint64(31), l.ID)
	assert.Equal(t, model.LeavePending, l.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepo_UpdateLocked(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeaveRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM users WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(q("SELECT status FROM leaves WHERE id = ? AND user_id = ? FOR UPDATE")).
		WithArgs(int64(31), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Rejected"))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &model.Leave{ID: 31, UserID: 7, FromDate: march10, ToDate: march12})
	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, model.LeaveRejected, locked.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepo_UpdateExcludesSelf(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeaveRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM users WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(q("SELECT status FROM leaves WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Pending"))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM leaves")).
		WithArgs(int64(7), int64(31), march12, march10).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(0)))
	mock.ExpectExec(q("UPDATE leaves SET from_date = ?")).
		WithArgs(march10, march12, "moved", int64(31)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	l := &model.Leave{ID: 31, UserID: 7, FromDate: march10, ToDate: march12, Reason: "moved"}
	require.NoError(t, repo.Update(context.Background(), l))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepo_SetStatusOnlyFromPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeaveRepo(db)

	mock.ExpectExec(q("UPDATE leaves SET status = ?")).
		WithArgs("Approved", int64(31), "Pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT status FROM leaves WHERE id = ?")).
		WithArgs(int64(31)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Approved"))

	err := repo.SetStatus(context.Background(), 31, model.LeaveApproved)
	assert.ErrorIs(t, err, ErrLeaveLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepo_DeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeaveRepo(db)

	mock.ExpectExec(q("DELETE FROM leaves WHERE id = ? AND status = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT status FROM leaves WHERE id = ?")).
		WillReturnError(sql.ErrNoRows)

	assert.ErrorIs(t, repo.Delete(context.Background(), 99), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepo_FirstPopulatesRefs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeaveRepo(db)

	cols := []string{"id", "from_date", "to_date", "reason", "status", "user_id", "department_id",
		"created_at", "updated_at", "u_name", "d_name", "d_created", "d_updated"}
	mock.ExpectQuery(q("WHERE l.id = ? AND l.department_id = ? LIMIT 1")).
		WithArgs(int64(31), int64(2)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			int64(31), march10, march12, "trip", "Pending", int64(7), int64(2),
			march10, march10, "Asha", "QA", march10, march10))

	f := query.Filter{All: []query.Cond{
		{Field: "id", Op: query.Eq, Value: uint64(31)},
		{Field: "department", Op: query.Eq, Value: uint64(2)},
	}}
	l, err := repo.First(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, &model.UserRef{ID: 7, Name: "Asha"}, l.User)
	assert.Equal(t, "QA", l.Department.Name)
	assert.Equal(t, uint64(2), l.Department.ID)
}

func leaveCascade(db *sql.DB, userID uint64) Cascade {
	leaves := NewLeaveRepo(db)
	return func(ctx context.Context, tx Execer) (int64, error) {
		return leaves.DeleteByUser(ctx, tx, userID)
	}
}

func TestUserRepo_DeleteCascadesInOneTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM leaves WHERE user_id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q("DELETE FROM reset_tokens WHERE user_id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("DELETE FROM users WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := repo.Delete(context.Background(), 7, leaveCascade(db, 7))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_DeleteMissingRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM leaves WHERE user_id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("DELETE FROM reset_tokens WHERE user_id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("DELETE FROM users WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), 7, leaveCascade(db, 7))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_DeleteCascadeErrorRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM leaves WHERE user_id = ?")).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), 7, leaveCascade(db, 7))
	assert.EqualError(t, err, "lock wait timeout")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepo_DeleteByUserWithoutTx(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(q("DELETE FROM leaves WHERE user_id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewLeaveRepo(db).DeleteByUser(context.Background(), nil, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(q("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'asha' for key 'users.userName'"})

	err := repo.Create(context.Background(), &model.User{UserName: "asha", Email: " Asha@X.io "})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "userName", dup.Field)
}

func TestDepartmentRepo_DeleteReferenced(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDepartmentRepo(db)

	mock.ExpectExec(q("DELETE FROM departments WHERE id = ?")).
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})

	assert.ErrorIs(t, repo.Delete(context.Background(), 1), ErrInUse)
}

func TestTokenRepo_ReplaceAndFind(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	exp := march10.Add(10 * time.Minute)

	mock.ExpectExec(q("INSERT INTO reset_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)")).
		WithArgs(int64(7), "hash", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Replace(context.Background(), 7, "hash", exp))

	mock.ExpectQuery(q("FROM reset_tokens WHERE user_id = ?")).
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)
	_, err := repo.Find(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
