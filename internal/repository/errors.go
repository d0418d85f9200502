// Package repository holds the MySQL data access for users, departments,
// leaves and reset tokens.  Methods return the sentinel errors below so the
// service layer can map them to user-facing messages without inspecting SQL
// errors itself.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/slms/leave-service/internal/model"
)

var (
	// ErrNotFound is returned when no row matches the id or filter.
	ErrNotFound = errors.New("not found")

	// ErrLeaveOverlap is returned when a leave would share a day with another
	// leave of the same user.
	ErrLeaveOverlap = errors.New("leave overlaps an existing leave")

	// ErrLeaveLocked matches any *LockedError.
	ErrLeaveLocked = errors.New("leave is not pending")

	// ErrInUse is returned when a delete is refused by a foreign key.
	ErrInUse = errors.New("record is still referenced")
)

// LockedError carries the status of a leave that can no longer change.
type LockedError struct{ Status model.LeaveStatus }

func (e *LockedError) Error() string        { return "leave is " + e.Status.Lower() }
func (e *LockedError) Is(target error) bool { return target == ErrLeaveLocked }

// DuplicateError reports a unique key violation.  Field is the key name,
// which the schema keeps equal to the API field name.
type DuplicateError struct{ Field string }

func (e *DuplicateError) Error() string { return "duplicate " + e.Field }

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
)

// mapWriteErr turns driver errors that callers act on into repository
// errors; anything else is returned unchanged.
func mapWriteErr(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlDuplicateEntry:
		return &DuplicateError{Field: duplicateKey(me.Message)}
	case mysqlRowIsReferenced:
		return ErrInUse
	}
	return err
}

// duplicateKey extracts the key from "Duplicate entry 'x' for key 'users.email'".
// MySQL 5.7 omits the table prefix.
func duplicateKey(msg string) string {
	i := strings.LastIndex(msg, "for key '")
	if i < 0 {
		return "value"
	}
	key := strings.TrimSuffix(msg[i+len("for key '"):], "'")
	if j := strings.LastIndex(key, "."); j >= 0 {
		key = key[j+1:]
	}
	if key == "" {
		return "value"
	}
	return key
}
