package utils

import "strconv"

// ParseLimitOffset clamps list pagination params. Bad input falls back
// to the default rather than erroring.
func ParseLimitOffset(rawLimit, rawOffset string, def, max int) (int, int) {
	limit := def

	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)

		if err == nil && n > 0 {
			limit = n
		}
	}

	if limit > max {
		limit = max
	}

	offset := 0

	if rawOffset != "" {
		n, err := strconv.Atoi(rawOffset)

		if err == nil && n > 0 {
			offset = n
		}
	}

	return limit, offset
}
