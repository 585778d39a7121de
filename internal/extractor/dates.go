package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

func monthFromName(name string) (time.Month, bool) {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0, false
	}
	m, ok := months[name[:3]]
	return m, ok
}

// datePattern is one accepted way a publisher writes a draw date
type datePattern struct {
	name  string
	re    *regexp.Regexp
	parse func(m []string, yearHint int) (time.Time, bool)
}

// datePatterns are tried in priority order; a year left out by the
// publisher is taken from the page's year hint.
var datePatterns = []datePattern{
	{
		name:  "Mon D",
		re:    regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sept?|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`),
		parse: parseMonthDay,
	},
	{
		name:  "Month D",
		re:    regexp.MustCompile(`(?i)\b(january|february|march|april|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`),
		parse: parseMonthDay,
	},
	{
		name: "MM/DD/YYYY",
		re:   regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
		parse: func(m []string, _ int) (time.Time, bool) {
			month, _ := strconv.Atoi(m[1])
			day, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			return makeDate(year, time.Month(month), day)
		},
	},
	{
		name: "Weekday, Month D, YYYY",
		re:   regexp.MustCompile(`(?i)\b(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s+([a-z]+)\.?\s+(\d{1,2}),?\s+(\d{4})\b`),
		parse: func(m []string, yearHint int) (time.Time, bool) {
			return parseMonthDay([]string{m[0], m[1], m[2], m[3]}, yearHint)
		},
	},
	{
		name: "ISO",
		re:   regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
		parse: func(m []string, _ int) (time.Time, bool) {
			year, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			day, _ := strconv.Atoi(m[3])
			return makeDate(year, time.Month(month), day)
		},
	},
}

func parseMonthDay(m []string, yearHint int) (time.Time, bool) {
	month, ok := monthFromName(m[1])
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[2])
	year := yearHint
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	if year == 0 {
		year = time.Now().Year()
	}
	return makeDate(year, month, day)
}

// makeDate rejects dates time.Date would silently roll over, like Feb 30
func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// FindDate locates the first date in text, trying formats in priority order.
// It returns the date and the byte span of the matched text.
func FindDate(text string, yearHint int) (time.Time, [2]int, bool) {
	for _, p := range datePatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			m := make([]string, len(loc)/2)
			for i := range m {
				if loc[2*i] >= 0 {
					m[i] = text[loc[2*i]:loc[2*i+1]]
				}
			}
			if t, ok := p.parse(m, yearHint); ok {
				return t, [2]int{loc[0], loc[1]}, true
			}
		}
	}
	return time.Time{}, [2]int{}, false
}

// anchorLayouts are the renderings of a target date searched for in page text.
// The first yearlessLayouts of them carry no year.
var anchorLayouts = []string{
	"Jan 2",
	"January 2",
	"01/02/2006",
	"Monday, January 2, 2006",
	"2006-01-02",
}

const yearlessLayouts = 2

// yearless reports whether the rendering at index i of Renderings omits the year
func yearless(i int) bool {
	return i < yearlessLayouts
}

// Renderings returns every accepted text rendering of a date
func Renderings(date time.Time) []string {
	out := make([]string, 0, len(anchorLayouts))
	for _, layout := range anchorLayouts {
		out = append(out, date.Format(layout))
	}
	return out
}

// shortDateLayouts parse the dates of fixed-format publications
var shortDateLayouts = []string{"1/2/06", "1/2/2006", "2006-01-02"}

// ParseShortDate parses "02/05/26", "2/5/2026" or ISO dates
func ParseShortDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range shortDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
