package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role represents a user role within the school-management product.
// The set is closed: the backend only ever issues these values.
type Role string

const (
	RoleSuperAdmin Role = "super_admin" // Manages all schools and system configuration
	RoleAdmin      Role = "admin"       // Manages a single school
	RoleTeacher    Role = "teacher"     // Teaching staff within a school
	RoleStudent    Role = "student"     // Enrolled student
	RoleParent     Role = "parent"      // Parent/guardian of one or more students
)

// Valid reports whether the role is one of the closed enumeration values.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// Principal is the authenticated user's identity as returned by the backend.
// It is owned exclusively by the Store: replaced wholesale on login or
// identity refresh, cleared on logout.
type Principal struct {
	ID         int64  `json:"id"`                    // Unique identifier for the user
	Username   string `json:"username"`              // Unique username
	Email      string `json:"email"`                 // User's email address
	FirstName  string `json:"first_name"`            // First name of the user
	LastName   string `json:"last_name"`             // Last name of the user
	Role       Role   `json:"role"`                  // Single role from the closed enumeration
	SchoolID   int64  `json:"school_id,omitempty"`   // Tenant scoping: school the user belongs to (0 for super admins)
	SchoolName string `json:"school_name,omitempty"` // Display name of the school
}

// DisplayName returns the user's full name, falling back to the username.
func (p Principal) DisplayName() string {
	if p.FirstName == "" && p.LastName == "" {
		return p.Username
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Credential is the access/refresh token pair representing an authenticated
// session. A Credential is either fully present (both tokens) or the session
// holds no Credential at all; partial pairs are never stored or persisted.
type Credential struct {
	AccessToken  string `json:"access"`  // Short-lived token attached to outbound requests
	RefreshToken string `json:"refresh"` // Long-lived token that authorizes renewal
}

// Complete reports whether both tokens are present.
func (c Credential) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// AccessTokenExpiry returns the expiry time encoded in the access token's
// "exp" claim. The token is parsed without signature verification: the client
// never validates tokens, it only uses the claim for logging and diagnostics.
// Returns the zero time when the token is opaque or carries no expiry.
func (c Credential) AccessTokenExpiry() time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(c.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// PersistedSession is the durable shape written to the persistence adapter.
type PersistedSession struct {
	Principal  Principal  `json:"user"`
	Credential Credential `json:"tokens"`
}
