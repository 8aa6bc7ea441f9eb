package model

import "github.com/google/uuid"

type Role string

const (
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Principal is the authenticated actor of a request.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsManager() bool {
	return p.Role == RoleManager
}

func (p Principal) IsEmployee() bool {
	return p.Role == RoleEmployee
}
