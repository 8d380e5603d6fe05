// Package timeline implements event extraction, filtering, deduplication,
// fusion and enrichment for legal document chronologies.
package timeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ExprKind classifies a date expression by its surface form.
type ExprKind string

const (
	// ExprNumeric is DD/MM/YYYY or DD-MM-YYYY, day first, 2- or 4-digit year
	ExprNumeric ExprKind = "numeric"

	// ExprTextual is "15 mars 2024" with a French month name
	ExprTextual ExprKind = "textual"

	// ExprWeekday is a weekday-qualified textual date, "lundi 15 mars 2024"
	ExprWeekday ExprKind = "weekday"

	// ExprRelative is "il y a N jours|mois|ans"
	ExprRelative ExprKind = "relative"

	// ExprPeriod is "début|fin|mi- <month> <year>"
	ExprPeriod ExprKind = "period"
)

// frenchMonths maps French month names to month numbers.
var frenchMonths = map[string]time.Month{
	"janvier":   time.January,
	"février":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"août":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"décembre":  time.December,
}

const monthAlt = `janvier|février|mars|avril|mai|juin|juillet|août|septembre|octobre|novembre|décembre`
const weekdayAlt = `lundi|mardi|mercredi|jeudi|vendredi|samedi|dimanche`

var (
	reNumeric  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)
	reTextual  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:er)?\s+(` + monthAlt + `)\s+(\d{4})\b`)
	reWeekday  = regexp.MustCompile(`(?i)\b(` + weekdayAlt + `)\s+(\d{1,2})(?:er)?\s+(` + monthAlt + `)\s+(\d{4})\b`)
	reRelative = regexp.MustCompile(`(?i)\bil y a (\d+) (jours?|mois|ans?)\b`)
	rePeriod   = regexp.MustCompile(`(?i)\b(début|fin|mi)[\s-]+(?:de\s+)?(` + monthAlt + `)\s+(\d{4})\b`)
)

// numericFormats are tried in order for numeric expressions. Day always
// comes first; time.Parse rejects out-of-range days and months.
var numericFormats = []string{
	"2/1/2006",
	"2-1-2006",
	"2/1/06",
	"2-1-06",
}

// DateMatch is a date expression located inside free text.
type DateMatch struct {
	// Text is the matched expression
	Text string

	// Kind is the surface form
	Kind ExprKind

	// Start and End are byte offsets into the scanned text
	Start int
	End   int
}

// DateResolver resolves French date expressions to calendar dates.
// Resolution is deterministic for absolute forms; relative expressions
// anchor on the resolver's clock, which defaults to time.Now and is
// injectable for tests.
type DateResolver struct {
	now func() time.Time
}

// NewDateResolver returns a resolver anchored on the real clock.
func NewDateResolver() *DateResolver {
	return &DateResolver{now: time.Now}
}

// NewDateResolverAt returns a resolver with a fixed clock for relative
// expressions.
func NewDateResolverAt(now func() time.Time) *DateResolver {
	return &DateResolver{now: now}
}

// Resolve turns a date expression into a calendar date at midnight UTC.
// The expression kind is detected from the surface form. An error means
// the expression is not a resolvable date; callers must discard the
// candidate event, never substitute a default date.
func (r *DateResolver) Resolve(expr string) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date expression")
	}

	if m := reRelative.FindStringSubmatch(s); m != nil {
		return r.resolveRelative(m[1], m[2])
	}
	if m := rePeriod.FindStringSubmatch(s); m != nil {
		return resolvePeriod(m[1], m[2], m[3])
	}
	if m := reWeekday.FindStringSubmatch(s); m != nil {
		// The weekday qualifier is ignored; the explicit date wins even
		// when the weekday does not match it.
		return resolveTextual(m[2], m[3], m[4])
	}
	if m := reTextual.FindStringSubmatch(s); m != nil {
		return resolveTextual(m[1], m[2], m[3])
	}
	if m := reNumeric.FindStringSubmatch(s); m != nil {
		return resolveNumeric(m[0])
	}
	return time.Time{}, fmt.Errorf("unrecognized date expression %q", expr)
}

func resolveNumeric(s string) (time.Time, error) {
	for _, layout := range numericFormats {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return midnight(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid numeric date %q", s)
}

func resolveTextual(dayStr, monthStr, yearStr string) (time.Time, error) {
	month, ok := frenchMonths[strings.ToLower(monthStr)]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", monthStr)
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid day %q", dayStr)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid year %q", yearStr)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, fmt.Errorf("day %d does not exist in %s %d", day, monthStr, year)
	}
	return t, nil
}

func (r *DateResolver) resolveRelative(countStr, unit string) (time.Time, error) {
	n, err := strconv.Atoi(countStr)
	if err != nil || n < 0 {
		return time.Time{}, fmt.Errorf("invalid relative count %q", countStr)
	}
	days := n
	switch {
	case strings.HasPrefix(unit, "jour"):
		days = n
	case unit == "mois":
		days = n * 30
	case strings.HasPrefix(unit, "an"):
		days = n * 365
	default:
		return time.Time{}, fmt.Errorf("unknown relative unit %q", unit)
	}
	return midnight(r.now().UTC()).AddDate(0, 0, -days), nil
}

func resolvePeriod(prefix, monthStr, yearStr string) (time.Time, error) {
	month, ok := frenchMonths[strings.ToLower(monthStr)]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", monthStr)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid year %q", yearStr)
	}
	day := 1
	switch strings.ToLower(prefix) {
	case "début":
		day = 1
	case "fin":
		// Fixed approximation: 28 exists in every month.
		day = 28
	case "mi":
		day = 15
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Scan locates every date expression in text, most specific form first.
// Overlapping matches are suppressed, so "lundi 15 mars 2024" yields one
// weekday match rather than a weekday and a textual match.
func (r *DateResolver) Scan(text string) []DateMatch {
	var matches []DateMatch
	taken := make([][2]int, 0, 16)

	overlaps := func(start, end int) bool {
		for _, t := range taken {
			if start < t[1] && end > t[0] {
				return true
			}
		}
		return false
	}
	collect := func(re *regexp.Regexp, kind ExprKind) {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if overlaps(loc[0], loc[1]) {
				continue
			}
			taken = append(taken, [2]int{loc[0], loc[1]})
			matches = append(matches, DateMatch{
				Text:  text[loc[0]:loc[1]],
				Kind:  kind,
				Start: loc[0],
				End:   loc[1],
			})
		}
	}

	collect(reWeekday, ExprWeekday)
	collect(reRelative, ExprRelative)
	collect(rePeriod, ExprPeriod)
	collect(reTextual, ExprTextual)
	collect(reNumeric, ExprNumeric)

	// Restore document order for callers that walk the text.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Start < matches[j-1].Start; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
	return matches
}
