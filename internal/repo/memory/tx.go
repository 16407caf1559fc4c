package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// Tx satisfies pgx.Tx for code that commits across several stores.
// Mutations apply to the stores immediately; Rollback undoes them in
// reverse order, Commit discards the undo log. Methods other than
// Commit and Rollback are never called by our code.
type Tx struct {
	pgx.Tx

	mu   sync.Mutex
	undo []func()
	done bool
}

func NewTx() *Tx {
	return &Tx{}
}

func (t *Tx) onRollback(fn func()) {
	t.mu.Lock()
	t.undo = append(t.undo, fn)
	t.mu.Unlock()
}

func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return pgx.ErrTxClosed
	}

	t.done = true
	t.undo = nil

	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return pgx.ErrTxClosed
	}

	t.done = true

	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}

	t.undo = nil

	return nil
}
