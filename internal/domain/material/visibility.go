package material

import "github.com/zikenn26/CampusHub/internal/domain/user"

// Visibility is the row scope applied to every material read. The zero
// value means "approved records only", which is what anonymous viewers
// get.
type Visibility struct {
	All        bool   // verifiers and admins see every state
	UploaderID string // when set, own uploads are visible in any state
}

func VisibilityFor(u *user.User) Visibility {
	if u == nil {
		return Visibility{}
	}

	if u.Role.CanModerate() {
		return Visibility{All: true}
	}

	return Visibility{UploaderID: u.ID}
}

// Allows reports whether a single material is inside the scope.
// Listing queries push the same predicate into SQL.
func (v Visibility) Allows(m Material) bool {
	if v.All {
		return true
	}

	if m.ReviewStatus == StatusApproved {
		return true
	}

	return v.UploaderID != "" && m.UploaderID == v.UploaderID
}
