package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/irsalhamdi/learnhub/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, u User) error {
	const q = `
	INSERT INTO users
		(user_id, name, email, role, password_hash, photo_url, created_at, updated_at)
	VALUES
		(:user_id, :name, :email, :role, :password_hash, :photo_url, :created_at, :updated_at)`

	u.Email = normalizeEmail(u.Email)
	if err := database.NamedExecContext(ctx, db, q, u); err != nil {
		if errors.Is(err, database.ErrDBDuplicate) {
			return ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, u User) error {
	const q = `
	UPDATE users SET
		name = :name,
		photo_url = :photo_url,
		updated_at = :updated_at
	WHERE user_id = :user_id`

	n, err := database.NamedExecRows(ctx, db, q, u)
	if err != nil {
		return fmt.Errorf("updating user[%s]: %w", u.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	const q = `SELECT * FROM users WHERE user_id = :user_id`

	return fetch(ctx, db, q, map[string]any{"user_id": id})
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	const q = `SELECT * FROM users WHERE email = :email`

	return fetch(ctx, db, q, map[string]any{"email": normalizeEmail(email)})
}

func fetch(ctx context.Context, db sqlx.ExtContext, q string, args map[string]any) (User, error) {
	var u User
	if err := database.NamedQueryStruct(ctx, db, q, args, &u); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user: %w", err)
	}
	return u, nil
}

// QueryEnrolledCourseIDs returns the user's side of the enrollment relation.
func QueryEnrolledCourseIDs(ctx context.Context, db sqlx.ExtContext, userID string) ([]string, error) {
	const q = `
	SELECT course_id FROM enrollments
	WHERE user_id = :user_id
	ORDER BY created_at`

	var ids []string
	if err := database.NamedQuerySlice(ctx, db, q, map[string]any{"user_id": userID}, &ids); err != nil {
		return nil, fmt.Errorf("selecting enrollments of user[%s]: %w", userID, err)
	}
	return ids, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpdateAccount rewrites the login fields of a user: role and password.
func UpdateAccount(ctx context.Context, db sqlx.ExtContext, u User) error {
	const q = `
	UPDATE users SET
		role = :role,
		password_hash = :password_hash,
		updated_at = :updated_at
	WHERE user_id = :user_id`

	n, err := database.NamedExecRows(ctx, db, q, u)
	if err != nil {
		return fmt.Errorf("updating account of user[%s]: %w", u.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
