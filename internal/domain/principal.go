package domain

// AuthMethod identifies which credential produced a Principal
type AuthMethod string

const (
	AuthMethodBearer  AuthMethod = "bearer"
	AuthMethodSession AuthMethod = "session"
)

// Principal is the resolved identity of one request.
// It is built by the identity resolver and passed by value so handlers cannot
// alter the identity seen by later middleware.
type Principal struct {
	ID            string
	Email         string
	Name          string
	Role          Role
	AccountStatus AccountStatus

	// Method records which credential authenticated the request.
	Method AuthMethod
	// SessionID is set only when Method is AuthMethodSession.
	SessionID string
}

// IsAdmin reports whether the principal has unrestricted scope
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsSuspended reports whether the principal's account is suspended
func (p Principal) IsSuspended() bool {
	return p.AccountStatus == AccountSuspended
}

// Claims returns the claim set describing this principal, without timestamps
func (p Principal) Claims() Claims {
	return Claims{
		ID:    p.ID,
		Email: p.Email,
		Name:  p.Name,
		Role:  p.Role,
	}
}
