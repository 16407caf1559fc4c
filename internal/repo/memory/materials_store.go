package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zikenn26/CampusHub/internal/domain/material"
)

// MaterialsStore mirrors the postgres materials repo closely enough
// for service tests: same method set, same sentinel errors, same
// first-writer-wins rule on decisions.
type MaterialsStore struct {
	mu    sync.RWMutex
	items map[string]material.Material
}

func NewMaterialsStore() *MaterialsStore {
	return &MaterialsStore{
		items: make(map[string]material.Material),
	}
}

func (s *MaterialsStore) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return NewTx(), nil
}

// Put seeds a material, overwriting any previous version.
func (s *MaterialsStore) Put(m material.Material) {
	s.mu.Lock()
	s.items[m.ID] = m
	s.mu.Unlock()
}

func (s *MaterialsStore) GetByID(ctx context.Context, id string) (material.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.items[id]

	if !ok {
		return material.Material{}, material.ErrNotFound
	}

	return m, nil
}

func (s *MaterialsStore) ListQueue(ctx context.Context, status material.ReviewStatus, departmentID *string, limit, offset int) ([]material.Material, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]material.Material, 0)

	for _, m := range s.items {
		if m.ReviewStatus != status {
			continue
		}

		if departmentID != nil && m.DepartmentID != *departmentID {
			continue
		}

		matched = append(matched, m)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UploadedAt.Equal(matched[j].UploadedAt) {
			return matched[i].UploadedAt.Before(matched[j].UploadedAt)
		}

		return matched[i].ID < matched[j].ID
	})

	total := len(matched)

	if offset >= total {
		return []material.Material{}, total, nil
	}

	end := offset + limit

	if end > total {
		end = total
	}

	return matched[offset:end], total, nil
}

func (s *MaterialsStore) DecideTx(ctx context.Context, tx pgx.Tx, id string, status material.ReviewStatus, verifierID string, note *string) (material.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.items[id]

	if !ok {
		return material.Material{}, material.ErrNotFound
	}

	if m.ReviewStatus != material.StatusPending {
		return material.Material{}, material.ErrNotPending
	}

	prev := m
	now := time.Now().UTC()

	m.ReviewStatus = status
	m.VerifierID = &verifierID
	m.Note = note
	m.DecidedAt = &now
	m.UpdatedAt = now

	s.items[id] = m
	s.registerUndo(tx, id, prev)

	return m, nil
}

func (s *MaterialsStore) ResubmitTx(ctx context.Context, tx pgx.Tx, id string) (material.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.items[id]

	if !ok {
		return material.Material{}, material.ErrNotFound
	}

	if m.ReviewStatus != material.StatusRejected {
		return material.Material{}, material.ErrNotRejected
	}

	prev := m

	m.ReviewStatus = material.StatusPending
	m.VerifierID = nil
	m.Note = nil
	m.DecidedAt = nil
	m.UpdatedAt = time.Now().UTC()

	s.items[id] = m
	s.registerUndo(tx, id, prev)

	return m, nil
}

func (s *MaterialsStore) registerUndo(tx pgx.Tx, id string, prev material.Material) {
	t, ok := tx.(*Tx)

	if !ok {
		return
	}

	t.onRollback(func() {
		s.mu.Lock()
		s.items[id] = prev
		s.mu.Unlock()
	})
}
