package model

import (
	"strings"
	"time"
)

// LeaveStatus is the approval state of a leave request.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "Pending"
	LeaveApproved LeaveStatus = "Approved"
	LeaveRejected LeaveStatus = "Rejected"
)

// Terminal reports whether no further mutation is allowed.
func (s LeaveStatus) Terminal() bool {
	return s == LeaveApproved || s == LeaveRejected
}

// Lower returns the status as used in user-facing messages.
func (s LeaveStatus) Lower() string { return strings.ToLower(string(s)) }

// Leave mirrors a row of the `leaves` table.  User and Department are
// filled on reads; UserID and DepartmentID are the stored references.
// DepartmentID is copied from the requester when the leave is created.
type Leave struct {
	ID           uint64      `json:"id"`
	FromDate     time.Time   `json:"fromDate"`
	ToDate       time.Time   `json:"toDate"`
	Reason       string      `json:"reason"`
	Status       LeaveStatus `json:"status"`
	UserID       uint64      `json:"-"`
	DepartmentID uint64      `json:"-"`
	User         *UserRef    `json:"user"`
	Department   *Department `json:"department"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}
