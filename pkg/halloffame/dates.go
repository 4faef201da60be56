package halloffame

import (
	"strconv"
	"strings"
	"time"
)

// Epoch is the sentinel returned for unparseable dates. Callers treat it as
// "unknown"; it is not distinguishable from a genuine 1970-01-01 entry.
var Epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseDate reads M/D/YY or M/D/YYYY dates, zero-padded forms included.
// Two-digit years pivot at 30: 00-30 land in the 2000s, 31-99 in the 1900s.
// Anything that is not a real calendar date yields Epoch.
func ParseDate(text string) time.Time {
	parts := strings.Split(strings.TrimSpace(text), "/")
	if len(parts) != 3 {
		return Epoch
	}
	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return Epoch
	}
	if month < 1 || month > 12 || day < 1 || year < 0 {
		return Epoch
	}
	if len(parts[2]) == 2 {
		if year <= 30 {
			year += 2000
		} else {
			year += 1900
		}
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components; a shifted month or day
	// means the input was not a real calendar date (e.g. 2/30).
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return Epoch
	}
	return t
}
