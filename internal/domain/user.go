package domain

import (
	"strings"
	"time"
)

// User models anyone who can act on tickets: requesters, technicians,
// supervisors and administrators. The role name drives queue visibility.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	RoleID       int64
	RoleName     string
	OfficeID     *int64
	DepartmentID *int64
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Initials returns the uppercase initials used by listing views.
func (u *User) Initials() string {
	initials := ""
	if u.FirstName != "" {
		initials += strings.ToUpper(u.FirstName[:1])
	}
	if u.LastName != "" {
		initials += strings.ToUpper(u.LastName[:1])
	}
	if initials == "" {
		return "NA"
	}
	return initials
}
