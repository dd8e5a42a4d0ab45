package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/core/claims"
	"github.com/irsalhamdi/learnhub/core/user"
	"github.com/irsalhamdi/learnhub/random"
	"github.com/irsalhamdi/learnhub/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/oauth2"
)

var (
	ErrUnknownProvider  = errors.New("unknown oauth provider")
	ErrStateMismatch    = errors.New("oauth state does not match")
	ErrEmailUnverified  = errors.New("the provider did not verify this email")
	ErrMissingIDToken   = errors.New("oauth token response carries no id_token")
	errExchangeRejected = errors.New("oauth code exchange rejected")
)

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

// Provider is an OpenID Connect identity provider users can log in with.
type Provider struct {
	oauth2.Config
	verifier *oidc.IDTokenVerifier
}

type idClaims struct {
	Email    string `json:"email"`
	Verified bool   `json:"email_verified"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
}

// MakeProviders discovers every configured provider. Entries without a
// client id are skipped.
func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	provs := make(map[string]Provider, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.Client == "" {
			continue
		}

		p, err := oidc.NewProvider(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider %s at %s: %w", cfg.Name, cfg.URL, err)
		}

		provs[cfg.Name] = Provider{
			Config: oauth2.Config{
				ClientID:     cfg.Client,
				ClientSecret: cfg.Secret,
				Endpoint:     p.Endpoint(),
				RedirectURL:  cfg.RedirectURL,
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
			verifier: p.Verifier(&oidc.Config{ClientID: cfg.Client}),
		}
	}
	return provs, nil
}

func HandleOauthLogin(sm *scs.SessionManager, provs map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		p, ok := provs[name]
		if !ok {
			return weberr.NotFound(ErrUnknownProvider, weberr.WithFields(map[string]interface{}{"provider": name}))
		}

		state, err := random.String(32)
		if err != nil {
			return fmt.Errorf("generating oauth state: %w", err)
		}
		sm.Put(ctx, stateKey, state)

		http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
		return nil
	}
}

// HandleOauthCallback logs in the user the provider vouched for, creating a
// student account on the first visit, then redirects to the front end.
func HandleOauthCallback(db *sqlx.DB, sm *scs.SessionManager, provs map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		p, ok := provs[name]
		if !ok {
			return weberr.NotFound(ErrUnknownProvider, weberr.WithFields(map[string]interface{}{"provider": name}))
		}

		state := sm.PopString(ctx, stateKey)
		if state == "" || web.Query(r, "state") != state {
			return weberr.BadRequest(ErrStateMismatch)
		}

		tok, err := p.Exchange(ctx, web.Query(r, "code"))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("%w: %v", errExchangeRejected, err))
		}

		raw, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.Upstream(ErrMissingIDToken)
		}

		idt, err := p.verifier.Verify(ctx, raw)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("verifying id token: %w", err))
		}

		var c idClaims
		if err := idt.Claims(&c); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding id token claims: %w", err))
		}
		if !c.Verified {
			return weberr.Forbidden(ErrEmailUnverified)
		}

		u, err := findOrCreate(ctx, db, c)
		if err != nil {
			return err
		}

		if err := login(ctx, sm, u); err != nil {
			return fmt.Errorf("logging in user[%s]: %w", u.ID, err)
		}

		http.Redirect(w, r, redirectURL, http.StatusFound)
		return nil
	}
}

func findOrCreate(ctx context.Context, db *sqlx.DB, c idClaims) (user.User, error) {
	u, err := user.FetchByEmail(ctx, db, c.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, err
	}

	now := time.Now().UTC()
	u = user.User{
		ID:        validate.GenerateID(),
		Name:      c.Name,
		Email:     c.Email,
		Role:      claims.RoleStudent,
		PhotoURL:  c.Picture,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if u.Name == "" {
		u.Name = c.Email
	}

	if err := user.Create(ctx, db, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.FetchByEmail(ctx, db, c.Email)
		}
		return user.User{}, err
	}
	return u, nil
}
