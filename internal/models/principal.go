package models

type Role string

const (
	RoleClient Role = "client"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleStaff || r == RoleAdmin
}

// Principal is an already authenticated caller.
type Principal struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Privileged reports whether the caller may act on other users' reservations.
func (p Principal) Privileged() bool {
	return p.Role == RoleStaff || p.Role == RoleAdmin
}

// CanActOn reports whether the caller may modify a reservation owned by userID.
func (p Principal) CanActOn(userID string) bool {
	return p.Privileged() || p.UserID == userID
}
