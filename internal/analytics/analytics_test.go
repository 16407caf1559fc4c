package analytics

import (
	"context"
	"testing"
)

func TestNormalizeQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Linear  ALGEBRA", "linear algebra"},
		{"  graph theory ", "graph theory"},
		{"PDE", "pde"},
		{"", ""},
	}

	for _, c := range cases {
		if got := NormalizeQuery(c.in); got != c.want {
			t.Fatalf("NormalizeQuery(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTracker_NilSafe(t *testing.T) {
	var tr *Tracker

	ctx := context.Background()

	// must not panic without Redis behind it
	tr.TrackSearch(ctx, "algebra")
	tr.TrackMaterialView(ctx, "mat-1")

	top, err := tr.TopSearches(ctx, 5)
	if err != nil {
		t.Fatalf("TopSearches error: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("expected empty result, got %v", top)
	}
}
