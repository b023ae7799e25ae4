package model

import "time"

// Role of a helpdesk account. Team chat is restricted to staff and admins.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// CanChat reports whether accounts with this role may use team chat.
func (r Role) CanChat() bool {
	return r == RoleStaff || r == RoleAdmin
}

type Employee struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	Department string     `json:"department,omitempty"`
	IsOnline   bool       `json:"isOnline"`
	LastSeen   *time.Time `json:"lastSeen,omitempty"`
	Status     string     `json:"status,omitempty"`
}

// StatusUpdate is the partial presence patch sent to PATCH /status.
// Nil fields are left untouched by the server.
type StatusUpdate struct {
	IsOnline *bool   `json:"isOnline,omitempty"`
	Status   *string `json:"status,omitempty"`
}
