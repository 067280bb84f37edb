package entity

import (
	"time"
)

// UserStatus is stored as a plain string in the users table.
type UserStatus string

const (
	StatusActive   UserStatus = "ACTIVE"
	StatusInactive UserStatus = "INACTIVE"
	StatusDeleted  UserStatus = "DELETED"
)

// User is the aggregate root for the user domain.
//
// Version is the optimistic-lock counter: the store only applies an update
// when the supplied version matches the stored one, and increments it on
// every successful write. Rows are never physically deleted; deletion flips
// Status to DELETED instead.
type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Age       int32      `json:"age"`
	Phone     string     `json:"phone"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Version   int64      `json:"version"`
}

// SoftDelete marks the user as logically removed without touching the row.
func (u *User) SoftDelete() {
	u.Status = StatusDeleted
}

// Activate restores the user to the ACTIVE status.
func (u *User) Activate() {
	u.Status = StatusActive
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

func (u *User) IsDeleted() bool {
	return u.Status == StatusDeleted
}
