package issuance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
	txcontext "github.com/sou1357/bloodbankapp/pkg/platform/tx"
)

// StoreTx runs a function atomically across the request and inventory stores.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const defaultTxTimeout = 5 * time.Second

// PostgresTx wraps fn in a database transaction. The *sql.Tx rides in the
// context so both stores' queries join it.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db, timeout: defaultTxTimeout}
}

func (p *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return translateConflict(err)
	}
	if err := tx.Commit(); err != nil {
		return translateConflict(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// translateConflict maps serialization and deadlock failures onto the
// transient-conflict sentinel so the coordinator can retry them.
func translateConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", sentinel.ErrTxConflict, pqErr.Message)
		}
	}
	return err
}

// MemoryTx serializes issuance attempts with a mutex. The in-memory stores
// have no rollback, so fn must order its writes with the fallible steps
// first.
type MemoryTx struct {
	mu sync.Mutex
}

func NewMemoryTx() *MemoryTx {
	return &MemoryTx{}
}

func (m *MemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}
