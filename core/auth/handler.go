package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/core/claims"
	"github.com/irsalhamdi/learnhub/core/user"
	"github.com/irsalhamdi/learnhub/validate"
	"github.com/jmoiron/sqlx"
)

var ErrBadCredentials = errors.New("invalid email or password")

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func HandleSignup(db *sqlx.DB, sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var un user.UserNew
		if err := web.Decode(w, r, &un); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(un); err != nil {
			return weberr.InvalidInput(err)
		}

		if un.Role == "" {
			un.Role = claims.RoleStudent
		}

		now := time.Now().UTC()
		u := user.User{
			ID:        validate.GenerateID(),
			Name:      un.Name,
			Email:     un.Email,
			Role:      un.Role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := u.SetPassword(un.Password); err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		if err := user.Create(ctx, db, u); err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				return weberr.Conflict(err)
			}
			return err
		}

		if err := login(ctx, sm, u); err != nil {
			return fmt.Errorf("logging in user[%s]: %w", u.ID, err)
		}

		return web.Respond(ctx, w, u, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cred credentials
		if err := web.Decode(w, r, &cred); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cred); err != nil {
			return weberr.InvalidInput(err)
		}

		u, err := user.FetchByEmail(ctx, db, cred.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotAuthorized(ErrBadCredentials)
			}
			return err
		}

		if !u.CheckPassword(cred.Password) {
			return weberr.NotAuthorized(ErrBadCredentials)
		}

		if err := login(ctx, sm, u); err != nil {
			return fmt.Errorf("logging in user[%s]: %w", u.ID, err)
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleLogout(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := sm.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
