package model

import "time"

// Role is the authorization tier of an account.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleHOD   Role = "HOD"
	RoleStaff Role = "STAFF"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleHOD || r == RoleStaff
}

// UserStatus tells whether an account may log in.
type UserStatus string

const (
	UserActive   UserStatus = "Active"
	UserInactive UserStatus = "Inactive"
)

// User represents an account record as stored in the `users` table.
// Department is populated by the repository on reads; DepartmentID is
// always set.  PasswordHash never leaves the process.
//
// Fields:
//
//	ID            – primary key identifier of the user.
//	UserName      – unique login name.
//	Email         – unique email address.
//	ContactNumber – unique phone number, also accepted as login.
//	DepartmentID  – foreign key into departments.
//	Role          – ADMIN, HOD or STAFF.
//	ProfileImage  – public URL of the uploaded image, nil when absent.
//	Status        – Active or Inactive.
type User struct {
	ID            uint64      `json:"id"`
	Name          string      `json:"name"`
	UserName      string      `json:"userName"`
	Email         string      `json:"email"`
	ContactNumber string      `json:"contactNumber"`
	DepartmentID  uint64      `json:"departmentId"`
	Department    *Department `json:"department"`
	Role          Role        `json:"role"`
	PasswordHash  string      `json:"-"`
	ProfileImage  *string     `json:"profileImage"`
	Status        UserStatus  `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// IsActive reports whether the account is allowed to use the API.
func (u *User) IsActive() bool { return u.Status == UserActive }

// Ref returns the reduced projection embedded in leave responses.
func (u *User) Ref() *UserRef { return &UserRef{ID: u.ID, Name: u.Name} }

// UserRef is the name + id projection of a user.
type UserRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}
