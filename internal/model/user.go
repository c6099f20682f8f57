package model

type Role string

const (
	RoleIntake Role = "intake"
	RoleClient Role = "client"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleIntake || r == RoleClient
}

// Session is the signed-in actor. The role is derived from the identity at
// login time and is never verified.
type Session struct {
	Identity string `json:"email"`
	Role     Role   `json:"role"`
}

// IsIntake reports whether the session belongs to an intake representative.
func (s *Session) IsIntake() bool {
	return s != nil && s.Role == RoleIntake
}
