package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type fakeDB struct {
	PgxIface
}

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert tickets: %w", &pgconn.PgError{Code: "23505", ConstraintName: "tickets_seat_held_key"})

	name, ok := UniqueViolation(err)

	assert.True(t, ok)
	assert.Equal(t, "tickets_seat_held_key", name)

	_, ok = UniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)

	_, ok = UniqueViolation(errors.New("boom"))
	assert.False(t, ok)
}

func TestConn_FallsBackToPool(t *testing.T) {
	db := &fakeDB{}

	assert.Same(t, db, Conn(context.Background(), db))
}

func TestSchema_IsEmbedded(t *testing.T) {
	assert.Contains(t, schema, "tickets_seat_held_key")
	assert.Contains(t, schema, "CONSTRAINT tickets_code_key UNIQUE (code)")
}
