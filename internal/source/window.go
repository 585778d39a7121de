package source

import (
	"time"

	"sjsage522/lotteryworker/internal/lottery"
)

const (
	// MaxYears bounds yearly pages when the window is unlimited
	MaxYears = 10
	// MaxDays bounds per-day work when the window is unlimited
	MaxDays = 62
)

// Window is the span of draw dates a refresh collects, both ends inclusive.
// A zero From means no cutoff.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow covers the current month and the months before it; the cutoff
// is the first day of the month months back. months <= 0 means unlimited.
func NewWindow(now time.Time, months int) Window {
	to := truncateDay(now)
	if months <= 0 {
		return Window{To: to}
	}
	from := time.Date(to.Year(), to.Month()-time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	return Window{From: from, To: to}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Contains reports whether an ISO draw date lies inside the window
func (w Window) Contains(date string) bool {
	if !w.From.IsZero() && date < w.From.Format(lottery.DateLayout) {
		return false
	}
	return date <= w.To.Format(lottery.DateLayout)
}

// Years returns the years the window touches, newest first
func (w Window) Years() []int {
	first := w.To.Year() - MaxYears + 1
	if !w.From.IsZero() {
		first = w.From.Year()
	}
	var years []int
	for y := w.To.Year(); y >= first; y-- {
		years = append(years, y)
	}
	return years
}

// Days returns every day in the window, newest first
func (w Window) Days() []time.Time {
	from := w.From
	if from.IsZero() {
		from = w.To.AddDate(0, 0, -(MaxDays - 1))
	}
	var days []time.Time
	for d := w.To; !d.Before(from); d = d.AddDate(0, 0, -1) {
		days = append(days, d)
	}
	return days
}
