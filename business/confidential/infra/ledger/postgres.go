package ledger

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/app"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
)

// Ensure PostgresLedger implements ReceiptLedger.
var _ app.ReceiptLedger = (*PostgresLedger)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS bridge_receipts (
    receipt_id     TEXT PRIMARY KEY,
    computation_id TEXT        NOT NULL,
    kind           TEXT        NOT NULL,
    result_hash    TEXT        NOT NULL,
    recorded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresLedger persists receipt ids so replay protection survives restarts
// and is shared between bridge replicas.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger connects to dsn and ensures the receipts table exists.
func NewPostgresLedger(ctx context.Context, dsn string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	l := &PostgresLedger{db: pool}
	if err := l.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func (l *PostgresLedger) migrate(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create bridge_receipts: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Seen(ctx context.Context, receiptID string) (bool, error) {
	var exists bool
	err := l.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bridge_receipts WHERE receipt_id = $1)`,
		receiptID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query receipt: %w", err)
	}
	return exists, nil
}

func (l *PostgresLedger) Record(ctx context.Context, r domain.Receipt) error {
	tag, err := l.db.Exec(ctx,
		`INSERT INTO bridge_receipts (receipt_id, computation_id, kind, result_hash)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (receipt_id) DO NOTHING`,
		r.ReceiptID, r.ComputationID, string(r.Kind), hex.EncodeToString(r.ResultHash),
	)
	if err != nil {
		return fmt.Errorf("failed to record receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReceiptReplayed
	}
	return nil
}

// Ping checks the database connection.
func (l *PostgresLedger) Ping(ctx context.Context) error {
	return l.db.Ping(ctx)
}

// Close releases the pool.
func (l *PostgresLedger) Close() {
	l.db.Close()
}
