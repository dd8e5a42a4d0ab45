package main

import (
	"context"
	"errors"
	"time"

	"github.com/irsalhamdi/learnhub/core/user"
	"github.com/irsalhamdi/learnhub/validate"
	"github.com/jmoiron/sqlx"
)

type userStore interface {
	FetchByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) error
	UpdateAccount(ctx context.Context, u user.User) error
}

type dbUsers struct {
	db *sqlx.DB
}

func (s dbUsers) FetchByEmail(ctx context.Context, email string) (user.User, error) {
	return user.FetchByEmail(ctx, s.db, email)
}

func (s dbUsers) Create(ctx context.Context, u user.User) error {
	return user.Create(ctx, s.db, u)
}

func (s dbUsers) UpdateAccount(ctx context.Context, u user.User) error {
	return user.UpdateAccount(ctx, s.db, u)
}

// addUser creates the user, or resets the password and role of an existing
// one.
func (cli *commandLine) addUser(email, name, role, pwd string) error {
	ctx := context.Background()
	now := time.Now().UTC()

	u, err := cli.users.FetchByEmail(ctx, email)
	exists := err == nil
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return err
	}

	if !exists {
		if name == "" {
			name = email
		}
		u = user.User{
			ID:        validate.GenerateID(),
			Name:      name,
			Email:     email,
			CreatedAt: now,
		}
	}

	u.Role = role
	u.UpdatedAt = now
	if err := u.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		if err := cli.users.UpdateAccount(ctx, u); err != nil {
			return err
		}
		cli.log.WithField("user_id", u.ID).Info("user updated")
		return nil
	}

	if err := cli.users.Create(ctx, u); err != nil {
		return err
	}
	cli.log.WithField("user_id", u.ID).Info("user created")
	return nil
}
