// Package ledger stores accepted receipt ids for replay protection.
package ledger

import (
	"context"
	"time"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/app"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/cache"
)

// Ensure MemoryLedger implements ReceiptLedger.
var _ app.ReceiptLedger = (*MemoryLedger)(nil)

// MemoryLedger keeps receipt ids in process for ttl. Receipts older than
// the bridge's max receipt age fail freshness checks, so ttl only needs to
// cover that window.
type MemoryLedger struct {
	entries *cache.Cache[string, string]
	ttl     time.Duration
}

// NewMemoryLedger creates a ledger that forgets ids after ttl.
func NewMemoryLedger(ttl time.Duration, opts ...cache.Option) *MemoryLedger {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	return &MemoryLedger{
		entries: cache.New[string, string](interval, opts...),
		ttl:     ttl,
	}
}

func (l *MemoryLedger) Seen(ctx context.Context, receiptID string) (bool, error) {
	_, ok := l.entries.Get(ctx, receiptID)
	return ok, nil
}

func (l *MemoryLedger) Record(ctx context.Context, r domain.Receipt) error {
	if !l.entries.SetIfAbsent(ctx, r.ReceiptID, r.ComputationID, l.ttl) {
		return domain.ErrReceiptReplayed
	}
	return nil
}

// Len returns the number of live entries.
func (l *MemoryLedger) Len() int {
	return l.entries.Len()
}

// Ping always succeeds.
func (l *MemoryLedger) Ping(context.Context) error {
	return nil
}

// Close stops the background janitor.
func (l *MemoryLedger) Close() {
	l.entries.Close()
}
