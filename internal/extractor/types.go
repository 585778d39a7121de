package extractor

import (
	"strings"
	"time"

	"sjsage522/lotteryworker/internal/lottery"
)

// Input is one fetched document handed to an extractor
type Input struct {
	// Content is the raw page or the plain text of a converted PDF
	Content []byte
	Format  lottery.ContentFormat
	// Source names the publisher for candidate provenance and errors
	Source string
	// Target is the draw date an anchor search looks for; zero for listing pages
	Target time.Time
	// YearHint completes dates a publisher prints without a year
	YearHint int
	// RepeatedMonthDay marks a Target whose month and day occur more than once
	// in the searched span. A year-less anchor then needs the right year after it.
	RepeatedMonthDay bool
}

// Extractor interface defines the contract for every extraction strategy.
// Extract returns an extraction-miss LotteryError when nothing usable was found;
// callers treat that as absence of data, not as a failure.
type Extractor interface {
	// Extract turns a document into unvalidated candidates for one game
	Extract(in Input, game lottery.GameDefinition) ([]lottery.Candidate, error)

	// GetName returns the strategy name for logging
	GetName() string
}

// sessionFromText picks the draw session a row or window mentions, falling
// back to the game's default when none is named or the game does not draw then.
func sessionFromText(text string, game lottery.GameDefinition) lottery.DrawTime {
	lower := strings.ToLower(text)
	var found lottery.DrawTime
	switch {
	case strings.Contains(lower, "midday"), strings.Contains(lower, "mid-day"):
		found = lottery.Midday
	case strings.Contains(lower, "evening"):
		found = lottery.Evening
	}
	if found != "" && game.OffersDrawTime(found) {
		return found
	}
	return game.DefaultDrawTime()
}

// splitNumbers takes the first NumbersCount tokens and, for games with an
// extra ball, the token right after them.
func splitNumbers(tokens []string, game lottery.GameDefinition) ([]string, string) {
	numbers := append([]string(nil), tokens[:game.NumbersCount]...)
	var extra string
	if game.HasExtraBall && len(tokens) > game.NumbersCount {
		extra = tokens[game.NumbersCount]
	}
	return numbers, extra
}
