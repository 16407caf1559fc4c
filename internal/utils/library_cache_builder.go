package utils

import (
	"strconv"
	"strings"
)

// BuildMaterialsListCacheKey keys the cached approved-materials listing.
// Only approved listings are cached, so status is not part of the key.
func BuildMaterialsListCacheKey(limit, offset int, departmentID, tag, query *string, semester, year *int) string {
	d := ""
	if departmentID != nil {
		d = strings.ToLower(strings.TrimSpace(*departmentID))
	}
	t := ""
	if tag != nil {
		t = strings.ToLower(strings.TrimSpace(*tag))
	}
	q := ""
	if query != nil {
		q = strings.ToLower(strings.TrimSpace(*query))
	}
	s := ""
	if semester != nil {
		s = strconv.Itoa(*semester)
	}
	y := ""
	if year != nil {
		y = strconv.Itoa(*year)
	}

	return "materials:list:v1:limit=" + strconv.Itoa(limit) +
		":offset=" + strconv.Itoa(offset) +
		":dept=" + d +
		":sem=" + s +
		":year=" + y +
		":tag=" + t +
		":q=" + q
}
