package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageLog stores raw OCPP traffic in Postgres for later inspection.
type MessageLog struct {
	pool *pgxpool.Pool
}

// NewPostgresPool opens a pgx pool for the DSN.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, dsn)
}

// NewMessageLog ctor.
func NewMessageLog(pool *pgxpool.Pool) *MessageLog {
	return &MessageLog{pool: pool}
}

// Save stores one message. Failures are the caller's to ignore; logging
// traffic must never affect message handling.
func (l *MessageLog) Save(ctx context.Context, identity, direction, action string, payload []byte) error {
	const query = `
		INSERT INTO ocpp_messages (identity, direction, action, payload)
		VALUES ($1, $2, $3, $4)
	`
	_, err := l.pool.Exec(ctx, query, identity, direction, action, payload)
	return err
}
