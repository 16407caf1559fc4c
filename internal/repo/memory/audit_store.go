package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/zikenn26/CampusHub/internal/domain/audit"
)

// AuditStore is append-only, like the real table.
type AuditStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) AppendTx(ctx context.Context, tx pgx.Tx, e audit.Entry) error {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	if t, ok := tx.(*Tx); ok {
		t.onRollback(func() {
			s.mu.Lock()

			for i := len(s.entries) - 1; i >= 0; i-- {
				if s.entries[i].ID == e.ID {
					s.entries = append(s.entries[:i], s.entries[i+1:]...)
					break
				}
			}

			s.mu.Unlock()
		})
	}

	return nil
}

// Entries returns a copy so tests can assert without racing the store.
func (s *AuditStore) Entries() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]audit.Entry, len(s.entries))
	copy(out, s.entries)

	return out
}

func (s *AuditStore) ForTarget(targetType, targetID string) []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]audit.Entry, 0)

	for _, e := range s.entries {
		if e.TargetType == targetType && e.TargetID == targetID {
			out = append(out, e)
		}
	}

	return out
}

func (s *AuditStore) ListForTarget(ctx context.Context, targetType, targetID string) ([]audit.Entry, error) {
	return s.ForTarget(targetType, targetID), nil
}
