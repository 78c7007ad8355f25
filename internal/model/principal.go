package model

import "github.com/google/uuid"

type Role string

const (
	RoleBuyer    Role = "BUYER"
	RoleProvider Role = "PROVIDER"
)

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsBuyer() bool    { return p.Role == RoleBuyer }
func (p Principal) IsProvider() bool { return p.Role == RoleProvider }
