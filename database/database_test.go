package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/irsalhamdi/learnhub/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionHonorsContext(t *testing.T) {
	// Nothing listens on the port; a cancelled context must stop Transaction
	// before a connection is attempted.
	db, err := Open(config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       "127.0.0.1:1",
		Name:       "learnhub",
		DisableTLS: true,
	})
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = Transaction(ctx, db, func(tx sqlx.ExtContext) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(fmt.Errorf("select: %w", sql.ErrNoRows)), ErrDBNotFound)
	assert.ErrorIs(t, translate(&pq.Error{Code: uniqueViolation}), ErrDBDuplicate)

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))
}
