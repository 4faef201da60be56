// Package halloffame turns the Creole Creamery hall of fame page into
// structured entries: raw HTML rows in, canonical names plus at most one
// derived attribute (age, finishing time, or completion count) out.
package halloffame

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	completionRe = regexp.MustCompile(`^(\d+)(?:ST|ND|RD|TH)\s+TIME$`)
	ageSuffixRe  = regexp.MustCompile(`\s+(\d+\s+(?:YEARS?|YRS?)(?:\s+\d+\s+MONTHS?)?(?:\s+\d+\s+DAYS?)?(?:\s+OLD)?)$`)
	timeSuffixRe = regexp.MustCompile(`\s+(\d+\s+MINUTES?(?:\s+\d+\s+SECONDS?)?)$`)

	yearsRe   = regexp.MustCompile(`(\d+)\s+(?:YEARS?|YRS?)`)
	monthsRe  = regexp.MustCompile(`(\d+)\s+MONTHS?`)
	daysRe    = regexp.MustCompile(`(\d+)\s+DAYS?`)
	minutesRe = regexp.MustCompile(`(\d+)\s+MINUTES?`)
	secondsRe = regexp.MustCompile(`(\d+)\s+SECONDS?`)
)

// matcher inspects a normalized name and either claims it or passes.
type matcher func(clean string) (name string, note Note, ok bool)

// matchers run in priority order; the first claim wins.
var matchers = []matcher{matchComma, matchAgeSuffix, matchTimeSuffix}

// Parse splits a raw name cell into the canonical display name and at most
// one derived note. It never fails: anything unrecognized comes back as the
// whole normalized string with a nil note.
func Parse(raw string) (string, Note) {
	clean := strings.ToUpper(strings.TrimSpace(raw))
	for _, m := range matchers {
		if name, note, ok := m(clean); ok {
			return name, note
		}
	}
	return clean, nil
}

// matchComma handles comma-delimited suffixes. Only the "Nth TIME" pattern
// is recognized after a comma; any other note text is not split off and the
// comma stays inside the name. A comma always ends the matcher chain.
func matchComma(clean string) (string, Note, bool) {
	if !strings.Contains(clean, ",") {
		return "", nil, false
	}
	namePart, notePart, _ := strings.Cut(clean, ",")
	notePart = strings.TrimSpace(notePart)
	if m := completionRe.FindStringSubmatch(notePart); m != nil {
		if count, err := strconv.Atoi(m[1]); err == nil && count > 0 {
			return strings.TrimSpace(namePart), CompletionNote{Raw: notePart, Count: count}, true
		}
	}
	return clean, nil, true
}

// matchAgeSuffix strips a trailing age like "11 YEARS 5 MONTHS 21 DAYS" or
// "10 YRS OLD" and converts it to days.
func matchAgeSuffix(clean string) (string, Note, bool) {
	loc := ageSuffixRe.FindStringSubmatchIndex(clean)
	if loc == nil {
		return "", nil, false
	}
	suffix := clean[loc[2]:loc[3]]
	days := ageToDays(suffix)
	if days <= 0 {
		// A zero total ("0 YEARS") carries no signal; let later matchers look.
		return "", nil, false
	}
	return strings.TrimSpace(clean[:loc[0]]), AgeNote{Raw: suffix, Days: days}, true
}

// matchTimeSuffix strips a trailing finishing time like "7 MINUTES" or
// "6 MINUTES 40 SECONDS" and converts it to seconds.
func matchTimeSuffix(clean string) (string, Note, bool) {
	loc := timeSuffixRe.FindStringSubmatchIndex(clean)
	if loc == nil {
		return "", nil, false
	}
	suffix := clean[loc[2]:loc[3]]
	secs := timeToSeconds(suffix)
	if secs <= 0 {
		return "", nil, false
	}
	return strings.TrimSpace(clean[:loc[0]]), DurationNote{Raw: suffix, Seconds: secs}, true
}

// ageToDays converts age text to total days. Years and months are
// approximated at 365 and 30 days; the source data carries no more
// precision than that.
func ageToDays(text string) int {
	total := 0
	if m := yearsRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n * 365
	}
	if m := monthsRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n * 30
	}
	if m := daysRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n
	}
	return total
}

// timeToSeconds converts time text like "6 MINUTES 40 SECONDS" to seconds.
func timeToSeconds(text string) int {
	total := 0
	if m := minutesRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n * 60
	}
	if m := secondsRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n
	}
	return total
}
