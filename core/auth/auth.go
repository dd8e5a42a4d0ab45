// Package auth keeps users logged in through server-side sessions and
// guards routes by role.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/core/claims"
	"github.com/irsalhamdi/learnhub/core/user"
)

const (
	userIDKey = "userID"
	roleKey   = "role"
	stateKey  = "oauthState"
)

var (
	ErrNotAuthenticated = errors.New("user not authenticated")
	ErrNotInstructor    = errors.New("only instructors can access this resource")
)

// LoadAndSave loads the session of every request and commits it once the
// handler returns.
func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			})

			sm.LoadAndSave(next).ServeHTTP(w, r.WithContext(ctx))
			return err
		}
		return h
	}
	return m
}

// Identify sets the claims of a logged in caller. Anonymous requests pass
// through untouched.
func Identify(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if id := sm.GetString(ctx, userIDKey); id != "" {
				ctx = claims.Set(ctx, claims.Claims{
					UserID: id,
					Role:   sm.GetString(ctx, roleKey),
				})
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Authenticate() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(ErrNotAuthenticated)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Instructor() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(ErrNotAuthenticated)
			}
			if !claims.IsInstructor(ctx) {
				return weberr.Forbidden(ErrNotInstructor)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func login(ctx context.Context, sm *scs.SessionManager, u user.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, userIDKey, u.ID)
	sm.Put(ctx, roleKey, u.Role)
	return nil
}
