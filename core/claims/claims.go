package claims

import (
	"context"
	"errors"
)

const (
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

var ErrMissing = errors.New("claim value missing from context")

// Claims is the identity the session middleware resolved for a request.
type Claims struct {
	UserID string
	Role   string
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, ErrMissing
	}
	return v, nil
}

func IsInstructor(ctx context.Context) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.Role == RoleInstructor
}

// IsUser reports whether the caller is the user id, or an instructor.
func IsUser(ctx context.Context, id string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.UserID == id || c.Role == RoleInstructor
}

func ValidRole(role string) bool {
	return role == RoleInstructor || role == RoleStudent
}
