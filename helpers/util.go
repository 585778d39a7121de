package helpers

import (
	"strconv"
	"strings"
	"time"
)

// URL template placeholders
const (
	PlaceholderYear     = "{year}"
	PlaceholderDate     = "{date}"     // 2006-01-02
	PlaceholderMMDDYYYY = "{mmddyyyy}" // 01-02-2006
)

// HasPlaceholder reports whether a URL template varies by year or date
func HasPlaceholder(template string) bool {
	return strings.Contains(template, PlaceholderYear) || HasDatePlaceholder(template)
}

// HasDatePlaceholder reports whether a URL template names a single day
func HasDatePlaceholder(template string) bool {
	return strings.Contains(template, PlaceholderDate) || strings.Contains(template, PlaceholderMMDDYYYY)
}

// ExpandURL fills a URL template for the given day
func ExpandURL(template string, day time.Time) string {
	return strings.NewReplacer(
		PlaceholderYear, strconv.Itoa(day.Year()),
		PlaceholderDate, day.Format("2006-01-02"),
		PlaceholderMMDDYYYY, day.Format("01-02-2006"),
	).Replace(template)
}
