package extractor

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/lotteryworker/internal/lottery"
	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

// DefaultRowSelector matches the rows of a results table
const DefaultRowSelector = "tr"

// TabularRow reads listing pages that show one draw per table row
type TabularRow struct {
	RowSelector string
}

// NewTabularRow creates a tabular-row extractor; an empty selector means "tr"
func NewTabularRow(rowSelector string) *TabularRow {
	if rowSelector == "" {
		rowSelector = DefaultRowSelector
	}
	return &TabularRow{RowSelector: rowSelector}
}

// GetName returns the strategy name
func (t *TabularRow) GetName() string {
	return string(lottery.StrategyTabularRow)
}

// Extract emits one candidate per dated row that carries enough numbers
func (t *TabularRow) Extract(in Input, game lottery.GameDefinition) ([]lottery.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(in.Content))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrorTypeExtraction, in.Source, "parsing html", err)
	}

	var candidates []lottery.Candidate
	doc.Find(t.RowSelector).Each(func(_ int, row *goquery.Selection) {
		if row.Find("th").Length() > 0 {
			return
		}
		if c, ok := t.processRow(row, in, game); ok {
			candidates = append(candidates, c)
		}
	})

	if len(candidates) == 0 {
		return nil, pkgerrors.NewExtractionMiss(in.Source, "no dated rows with enough numbers", t.RowSelector)
	}
	return candidates, nil
}

func (t *TabularRow) processRow(row *goquery.Selection, in Input, game lottery.GameDefinition) (lottery.Candidate, bool) {
	text := SelectionText(row)
	date, span, ok := FindDate(text, in.YearHint)
	if !ok {
		return lottery.Candidate{}, false
	}

	// the date's own digits must not count as balls
	rest := text[:span[0]] + " " + text[span[1]:]
	if len(NumberTokens(rest)) < game.NumbersCount {
		return lottery.Candidate{}, false
	}

	tokens := rowNumbers(row, rest, game.NumbersCount)
	if tokens == nil {
		return lottery.Candidate{}, false
	}
	numbers, extra := splitNumbers(tokens, game)

	return lottery.Candidate{
		Date:     date.Format(lottery.DateLayout),
		DrawTime: sessionFromText(text, game),
		Numbers:  numbers,
		Extra:    extra,
		Source:   in.Source,
	}, true
}

// rowNumbers reads ball numbers from the most specific markup first:
// list items, then leaf cells and spans, then the row's free text.
// The first tier holding at least n numbers wins.
func rowNumbers(row *goquery.Selection, rest string, n int) []string {
	tiers := []func() []string{
		func() []string { return leafNumbers(row.Find("li")) },
		func() []string { return leafNumbers(row.Find("td, span")) },
		func() []string { return NumberTokens(rest) },
	}
	for _, tier := range tiers {
		if tokens := tier(); len(tokens) >= n {
			return tokens
		}
	}
	return nil
}

func leafNumbers(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		text := strings.TrimSpace(s.Text())
		if IsNumberToken(text) {
			out = append(out, text)
		}
	})
	return out
}
