package user

type Role string

const (
	RoleStudent  Role = "student"
	RoleFaculty  Role = "faculty"
	RoleVerifier Role = "verifier"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleVerifier, RoleAdmin:
		return true
	}

	return false
}

// CanModerate gates the review queue and decisions.
func (r Role) CanModerate() bool {
	return r == RoleVerifier || r == RoleAdmin
}

func (r Role) CanManageUsers() bool {
	return r == RoleAdmin
}

func (r Role) CanManageDirectory() bool {
	return r == RoleFaculty || r == RoleAdmin
}

func (r Role) CanManageTimetable() bool {
	return r == RoleFaculty || r == RoleVerifier || r == RoleAdmin
}
