package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/zikenn26/CampusHub/internal/domain/notification"
)

type NotificationsStore struct {
	mu    sync.RWMutex
	items []notification.Notification
}

func NewNotificationsStore() *NotificationsStore {
	return &NotificationsStore{}
}

func (s *NotificationsStore) EnqueueTx(ctx context.Context, tx pgx.Tx, n notification.Notification) error {
	s.mu.Lock()
	s.items = append(s.items, n)
	s.mu.Unlock()

	if t, ok := tx.(*Tx); ok {
		t.onRollback(func() {
			s.mu.Lock()

			for i := len(s.items) - 1; i >= 0; i-- {
				if s.items[i].ID == n.ID {
					s.items = append(s.items[:i], s.items[i+1:]...)
					break
				}
			}

			s.mu.Unlock()
		})
	}

	return nil
}

func (s *NotificationsStore) All() []notification.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]notification.Notification, len(s.items))
	copy(out, s.items)

	return out
}
