package extractor

import (
	"fmt"
	"strings"

	"sjsage522/lotteryworker/internal/lottery"
	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

// DefaultAnchorWindow is how many characters after the anchor are searched
const DefaultAnchorWindow = 200

// AnchorProximity finds a known draw date in free page text and reads the
// numbers that follow it. It serves pages with no regular row structure.
type AnchorProximity struct {
	Window int
}

// NewAnchorProximity creates an anchor-proximity extractor
func NewAnchorProximity(window int) *AnchorProximity {
	if window <= 0 {
		window = DefaultAnchorWindow
	}
	return &AnchorProximity{Window: window}
}

// GetName returns the strategy name
func (a *AnchorProximity) GetName() string {
	return string(lottery.StrategyAnchorProximity)
}

// Extract emits at most one candidate, for in.Target
func (a *AnchorProximity) Extract(in Input, game lottery.GameDefinition) ([]lottery.Candidate, error) {
	if in.Target.IsZero() {
		return nil, pkgerrors.NewExtractionMiss(in.Source, "anchor search needs a target date")
	}

	text, err := ContentText(in.Content, in.Format)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrorTypeExtraction, in.Source, "reading page text", err)
	}

	renderings := Renderings(in.Target)
	start, end := findAnchor(text, renderings, func(rendering, end int) bool {
		if !yearless(rendering) {
			return true
		}
		if year, ok := yearAfter(text, end); ok {
			return year == in.Target.Year()
		}
		return !in.RepeatedMonthDay
	})
	if start < 0 {
		return nil, pkgerrors.NewExtractionMiss(in.Source,
			fmt.Sprintf("no rendering of %s found", in.Target.Format(lottery.DateLayout)), renderings...)
	}

	limit := end + a.Window
	if limit > len(text) {
		limit = len(text)
	}
	window := text[end:limit]
	tokens := NumberTokens(window)
	if len(tokens) < game.NumbersCount {
		return nil, pkgerrors.NewExtractionMiss(in.Source,
			fmt.Sprintf("found %d numbers near %q, want %d", len(tokens), text[start:end], game.NumbersCount), renderings...)
	}

	numbers, extra := splitNumbers(tokens, game)
	return []lottery.Candidate{{
		Date:     in.Target.Format(lottery.DateLayout),
		DrawTime: game.DefaultDrawTime(),
		Numbers:  numbers,
		Extra:    extra,
		Source:   in.Source,
	}}, nil
}

// findAnchor returns the earliest accepted occurrence of any rendering,
// preferring the longer match at equal positions. A match followed by a digit
// is rejected so "Oct 2" never anchors on "Oct 25".
func findAnchor(text string, renderings []string, accept func(rendering, end int) bool) (int, int) {
	lower := strings.ToLower(text)
	bestStart, bestEnd := -1, -1
	for i, r := range renderings {
		needle := strings.ToLower(r)
		idx := indexBounded(lower, needle, func(end int) bool { return accept(i, end) })
		if idx < 0 {
			continue
		}
		end := idx + len(needle)
		if bestStart < 0 || idx < bestStart || (idx == bestStart && end > bestEnd) {
			bestStart, bestEnd = idx, end
		}
	}
	return bestStart, bestEnd
}

func indexBounded(text, needle string, accept func(end int) bool) int {
	offset := 0
	for {
		i := strings.Index(text[offset:], needle)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(needle)
		if !isDigitAt(text, start-1) && !isDigitAt(text, end) && accept(end) {
			return start
		}
		offset = start + 1
	}
}

// yearAfter reads a four-digit year printed right after a year-less anchor,
// as in "Oct 25 2023" or "October 25, 2023".
func yearAfter(text string, end int) (int, bool) {
	i := end
	for i < len(text) && strings.ContainsRune(" ,\t\r\n", rune(text[i])) {
		i++
	}
	if i+4 > len(text) || isDigitAt(text, i+4) {
		return 0, false
	}
	year := 0
	for j := i; j < i+4; j++ {
		if !isDigitAt(text, j) {
			return 0, false
		}
		year = year*10 + int(text[j]-'0')
	}
	if year < 1900 || year > 2099 {
		return 0, false
	}
	return year, true
}

func isDigitAt(s string, i int) bool {
	return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9'
}
