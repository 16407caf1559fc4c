package material

import (
	"testing"

	"github.com/zikenn26/CampusHub/internal/domain/user"
)

func TestVisibilityFor(t *testing.T) {
	owner := &user.User{ID: "u-1", Role: user.RoleStudent}
	other := &user.User{ID: "u-2", Role: user.RoleFaculty}
	verifier := &user.User{ID: "u-3", Role: user.RoleVerifier}
	admin := &user.User{ID: "u-4", Role: user.RoleAdmin}

	approved := Material{ID: "m-1", UploaderID: "u-1", ReviewStatus: StatusApproved}
	pending := Material{ID: "m-2", UploaderID: "u-1", ReviewStatus: StatusPending}
	rejected := Material{ID: "m-3", UploaderID: "u-1", ReviewStatus: StatusRejected}

	cases := []struct {
		name   string
		viewer *user.User
		m      Material
		want   bool
	}{
		{"anonymous sees approved", nil, approved, true},
		{"anonymous blocked from pending", nil, pending, false},
		{"anonymous blocked from rejected", nil, rejected, false},
		{"owner sees own pending", owner, pending, true},
		{"owner sees own rejected", owner, rejected, true},
		{"other user sees approved", other, approved, true},
		{"other user blocked from pending", other, pending, false},
		{"other user blocked from rejected", other, rejected, false},
		{"verifier sees pending", verifier, pending, true},
		{"verifier sees rejected", verifier, rejected, true},
		{"admin sees pending", admin, pending, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vis := VisibilityFor(tc.viewer)

			if got := vis.Allows(tc.m); got != tc.want {
				t.Fatalf("Allows(%s) = %v, want %v", tc.m.ID, got, tc.want)
			}
		})
	}
}

func TestZeroVisibilityIsApprovedOnly(t *testing.T) {
	var vis Visibility

	if vis.Allows(Material{ReviewStatus: StatusPending, UploaderID: "u-1"}) {
		t.Fatalf("zero visibility allowed a pending material")
	}

	if !vis.Allows(Material{ReviewStatus: StatusApproved}) {
		t.Fatalf("zero visibility blocked an approved material")
	}
}
