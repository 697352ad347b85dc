package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Identity represents an authenticated caller.
type Identity struct {
	// Subject is the unique caller identifier (required, non-empty).
	Subject string

	// Scopes lists the authorization scopes granted.
	Scopes []string

	// Claims carries the full validated claim set for handlers that need
	// more than the extracted fields.
	Claims jwt.MapClaims
}

// HasScope reports whether the caller was granted the given scope.
func (id *Identity) HasScope(scope string) bool {
	if id == nil {
		return false
	}
	return slices.Contains(id.Scopes, scope)
}
