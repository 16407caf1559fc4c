package user

import "testing"

func TestRoleCapabilities(t *testing.T) {
	cases := []struct {
		role        Role
		moderate    bool
		manageUsers bool
		directory   bool
		timetable   bool
	}{
		{RoleStudent, false, false, false, false},
		{RoleFaculty, false, false, true, true},
		{RoleVerifier, true, false, false, true},
		{RoleAdmin, true, true, true, true},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			if got := tc.role.CanModerate(); got != tc.moderate {
				t.Fatalf("CanModerate() = %v, want %v", got, tc.moderate)
			}

			if got := tc.role.CanManageUsers(); got != tc.manageUsers {
				t.Fatalf("CanManageUsers() = %v, want %v", got, tc.manageUsers)
			}

			if got := tc.role.CanManageDirectory(); got != tc.directory {
				t.Fatalf("CanManageDirectory() = %v, want %v", got, tc.directory)
			}

			if got := tc.role.CanManageTimetable(); got != tc.timetable {
				t.Fatalf("CanManageTimetable() = %v, want %v", got, tc.timetable)
			}
		})
	}
}

func TestRoleIsValid(t *testing.T) {
	for _, r := range []Role{RoleStudent, RoleFaculty, RoleVerifier, RoleAdmin} {
		if !r.IsValid() {
			t.Fatalf("IsValid(%q) = false, want true", r)
		}
	}

	if Role("coordinator").IsValid() {
		t.Fatalf("IsValid(coordinator) = true, want false")
	}
}
