package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/zikenn26/CampusHub/internal/domain/audit"
	"github.com/zikenn26/CampusHub/internal/http/handlers"
)

type fakeAuditQuerier struct {
	queryFn func(ctx context.Context, f audit.Filter) ([]audit.Entry, int, error)
}

func (f *fakeAuditQuerier) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	if f.queryFn != nil {
		return f.queryFn(ctx, filter)
	}

	return []audit.Entry{}, 0, nil
}

func TestAuditQueryHandler_Filters(t *testing.T) {
	actorID := uuid.NewString()
	targetID := uuid.NewString()

	var gotFilter audit.Filter

	q := &fakeAuditQuerier{
		queryFn: func(ctx context.Context, f audit.Filter) ([]audit.Entry, int, error) {
			gotFilter = f
			return []audit.Entry{audit.New(actorID, audit.ActionMaterialApproved, audit.TargetMaterial, targetID, "")}, 1, nil
		},
	}

	h := handlers.NewAuditHandler(q)
	r := setupAuthedRouter(http.MethodGet, "/audit", testAdmin, h.Query)

	path := "/audit?actorId=" + actorID +
		"&action=material_approved" +
		"&targetType=material" +
		"&targetId=" + targetID +
		"&from=2026-01-01T00:00:00Z&to=2026-12-31T23:59:59Z&limit=10"

	w := getPath(r, path)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	if gotFilter.ActorID == nil || *gotFilter.ActorID != actorID {
		t.Fatalf("expected actor filter %s, got %v", actorID, gotFilter.ActorID)
	}

	if gotFilter.Action == nil || *gotFilter.Action != audit.ActionMaterialApproved {
		t.Fatalf("expected action filter, got %v", gotFilter.Action)
	}

	if gotFilter.TargetType == nil || *gotFilter.TargetType != audit.TargetMaterial {
		t.Fatalf("expected target type material, got %v", gotFilter.TargetType)
	}

	if gotFilter.TargetID == nil || *gotFilter.TargetID != targetID {
		t.Fatalf("expected target id %s, got %v", targetID, gotFilter.TargetID)
	}

	if gotFilter.From == nil || gotFilter.From.Year() != 2026 {
		t.Fatalf("expected from 2026, got %v", gotFilter.From)
	}

	if gotFilter.Limit != 10 {
		t.Fatalf("expected limit 10, got %d", gotFilter.Limit)
	}

	var resp struct {
		Entries []audit.Entry `json:"entries"`
		Total   int           `json:"total"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Total != 1 || len(resp.Entries) != 1 {
		t.Fatalf("unexpected payload %+v", resp)
	}
}

func TestAuditQueryHandler_BadInputs(t *testing.T) {
	h := handlers.NewAuditHandler(&fakeAuditQuerier{})
	r := setupAuthedRouter(http.MethodGet, "/audit", testAdmin, h.Query)

	tests := []struct {
		name string
		path string
	}{
		{name: "bad actor id", path: "/audit?actorId=nope"},
		{name: "bad target id", path: "/audit?targetId=123"},
		{name: "unknown target type", path: "/audit?targetType=building"},
		{name: "bad from timestamp", path: "/audit?from=yesterday"},
		{name: "bad to timestamp", path: "/audit?to=2026-13-99"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := getPath(r, tc.path)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d, body=%s", w.Code, w.Body.String())
			}
		})
	}
}

func TestAuditQueryHandler_DefaultWindowUnbounded(t *testing.T) {
	var gotFilter audit.Filter

	q := &fakeAuditQuerier{
		queryFn: func(ctx context.Context, f audit.Filter) ([]audit.Entry, int, error) {
			gotFilter = f
			return []audit.Entry{}, 0, nil
		},
	}

	h := handlers.NewAuditHandler(q)
	r := setupAuthedRouter(http.MethodGet, "/audit", testAdmin, h.Query)

	w := getPath(r, "/audit")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// unlike the timetable, the audit view has no implicit time window
	if gotFilter.From != nil || gotFilter.To != nil {
		t.Fatalf("expected no time bounds, got from=%v to=%v", gotFilter.From, gotFilter.To)
	}
}
