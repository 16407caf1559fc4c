package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zikenn26/CampusHub/internal/domain/audit"
)

func auditEntry(id string, action audit.Action, targetID string) audit.Entry {
	return audit.Entry{
		ID:         id,
		ActorID:    "ver-1",
		Action:     action,
		TargetType: audit.TargetMaterial,
		TargetID:   targetID,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestAuditStore_AppendKeepsInsertionOrder(t *testing.T) {
	store := NewAuditStore()
	ctx := context.Background()
	tx := NewTx()

	for i := 0; i < 5; i++ {
		e := auditEntry(fmt.Sprintf("ent-%d", i), audit.ActionMaterialApproved, "mat-1")
		if err := store.AppendTx(ctx, tx, e); err != nil {
			t.Fatalf("AppendTx error: %v", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit error: %v", err)
	}

	entries := store.Entries()
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if want := fmt.Sprintf("ent-%d", i); e.ID != want {
			t.Fatalf("entry %d out of order: got %s, want %s", i, e.ID, want)
		}
	}
}

func TestAuditStore_RollbackRemovesOnlyItsEntry(t *testing.T) {
	store := NewAuditStore()
	ctx := context.Background()

	kept := NewTx()
	if err := store.AppendTx(ctx, kept, auditEntry("ent-1", audit.ActionMaterialApproved, "mat-1")); err != nil {
		t.Fatalf("AppendTx error: %v", err)
	}
	if err := kept.Commit(ctx); err != nil {
		t.Fatalf("Commit error: %v", err)
	}

	dropped := NewTx()
	if err := store.AppendTx(ctx, dropped, auditEntry("ent-2", audit.ActionMaterialRejected, "mat-1")); err != nil {
		t.Fatalf("AppendTx error: %v", err)
	}
	if err := dropped.Rollback(ctx); err != nil {
		t.Fatalf("Rollback error: %v", err)
	}

	entries := store.Entries()
	if len(entries) != 1 || entries[0].ID != "ent-1" {
		t.Fatalf("expected only the committed entry, got %+v", entries)
	}
}

func TestAuditStore_ListForTargetFilters(t *testing.T) {
	store := NewAuditStore()
	ctx := context.Background()
	tx := NewTx()

	for _, e := range []audit.Entry{
		auditEntry("ent-1", audit.ActionMaterialApproved, "mat-1"),
		auditEntry("ent-2", audit.ActionMaterialRejected, "mat-2"),
		auditEntry("ent-3", audit.ActionMaterialResubmitted, "mat-1"),
	} {
		if err := store.AppendTx(ctx, tx, e); err != nil {
			t.Fatalf("AppendTx error: %v", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit error: %v", err)
	}

	got, err := store.ListForTarget(ctx, audit.TargetMaterial, "mat-1")
	if err != nil {
		t.Fatalf("ListForTarget error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries for mat-1, got %d", len(got))
	}
	if got[0].ID != "ent-1" || got[1].ID != "ent-3" {
		t.Fatalf("entries out of order: got %s, %s", got[0].ID, got[1].ID)
	}
}

func TestAuditStore_ConcurrentAppends(t *testing.T) {
	store := NewAuditStore()
	ctx := context.Background()

	const (
		workers   = 8
		perWorker = 25
	)

	var wg sync.WaitGroup

	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()

			for i := 0; i < perWorker; i++ {
				tx := NewTx()
				e := auditEntry(fmt.Sprintf("ent-%d-%d", w, i), audit.ActionMaterialApproved, fmt.Sprintf("mat-%d", w))

				if err := store.AppendTx(ctx, tx, e); err != nil {
					t.Errorf("AppendTx error: %v", err)
					return
				}

				_ = tx.Commit(ctx)
			}
		}(w)
	}

	wg.Wait()

	if n := len(store.Entries()); n != workers*perWorker {
		t.Fatalf("expected %d entries, got %d", workers*perWorker, n)
	}

	// Interleaving across targets is arbitrary, but each target's own
	// entries must still appear in the order that target appended them.
	for w := 0; w < workers; w++ {
		got := store.ForTarget(audit.TargetMaterial, fmt.Sprintf("mat-%d", w))
		if len(got) != perWorker {
			t.Fatalf("target mat-%d: expected %d entries, got %d", w, perWorker, len(got))
		}
		for i, e := range got {
			if want := fmt.Sprintf("ent-%d-%d", w, i); e.ID != want {
				t.Fatalf("target mat-%d entry %d: got %s, want %s", w, i, e.ID, want)
			}
		}
	}
}
