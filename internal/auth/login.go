package auth

import (
	"errors"
	"strings"

	"github.com/trajector/portal/internal/model"
)

// DefaultIntakeMarker selects the intake role when found in an identity.
const DefaultIntakeMarker = "intake"

// ErrMissingCredentials is returned when the identity or credential is empty.
var ErrMissingCredentials = errors.New("auth: email and password are required")

// Resolver assigns roles from identities. It performs no credential check:
// the role is a pure function of the identity string.
type Resolver struct {
	marker string
}

func NewResolver(marker string) *Resolver {
	marker = strings.ToLower(strings.TrimSpace(marker))
	if marker == "" {
		marker = DefaultIntakeMarker
	}
	return &Resolver{marker: marker}
}

// RoleFor returns RoleIntake when the lower-cased identity contains the marker.
func (r *Resolver) RoleFor(identity string) model.Role {
	if strings.Contains(strings.ToLower(identity), r.marker) {
		return model.RoleIntake
	}
	return model.RoleClient
}

// Login builds a session for the identity. Both fields must be non-empty;
// the credential is otherwise ignored.
func (r *Resolver) Login(identity, credential string) (model.Session, error) {
	if identity == "" || credential == "" {
		return model.Session{}, ErrMissingCredentials
	}
	return model.Session{Identity: identity, Role: r.RoleFor(identity)}, nil
}
