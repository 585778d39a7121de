package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sjsage522/lotteryworker/internal/extractor"
	"sjsage522/lotteryworker/internal/lottery"
	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

// Result is the normalized draw sequence plus every discarded candidate
type Result struct {
	Draws     []lottery.DrawRecord
	Discarded []*pkgerrors.LotteryError
}

// Normalize canonicalizes candidates for one game. Candidates are treated as
// a priority order: the first one seen for a (date, draw_time) key is kept.
// The returned draws are sorted newest first, evening before midday.
func Normalize(candidates []lottery.Candidate, game lottery.GameDefinition) Result {
	var res Result
	seen := make(map[string]bool, len(candidates))

	for _, c := range candidates {
		rec, err := canonical(c, game)
		if err != nil {
			res.Discarded = append(res.Discarded, err)
			continue
		}
		if seen[rec.Key()] {
			continue
		}
		seen[rec.Key()] = true
		res.Draws = append(res.Draws, rec)
	}

	lottery.SortDraws(res.Draws)
	return res
}

func canonical(c lottery.Candidate, game lottery.GameDefinition) (lottery.DrawRecord, *pkgerrors.LotteryError) {
	discard := func(format string, args ...interface{}) *pkgerrors.LotteryError {
		return pkgerrors.NewValidation(c.Source, fmt.Sprintf("%s %s %s: ", game.ID, c.Date, c.DrawTime)+fmt.Sprintf(format, args...))
	}

	if _, err := time.Parse(lottery.DateLayout, c.Date); err != nil {
		return lottery.DrawRecord{}, discard("invalid date")
	}

	drawTime := c.DrawTime
	if drawTime == "" {
		drawTime = game.DefaultDrawTime()
	}
	if !game.OffersDrawTime(drawTime) {
		return lottery.DrawRecord{}, discard("game has no %s draw", drawTime)
	}

	numbers := make([]string, 0, len(c.Numbers))
	for _, n := range c.Numbers {
		n = strings.TrimSpace(n)
		if !extractor.IsNumberToken(n) {
			return lottery.DrawRecord{}, discard("invalid number %q", n)
		}
		numbers = append(numbers, n)
	}
	if game.DistinctBalls {
		numbers = dedupeBalls(numbers)
	}
	if len(numbers) != game.NumbersCount {
		return lottery.DrawRecord{}, discard("%d numbers, want %d", len(numbers), game.NumbersCount)
	}

	extra := strings.TrimSpace(c.Extra)
	if !game.HasExtraBall {
		extra = ""
	}

	return lottery.DrawRecord{
		Date:     c.Date,
		DrawTime: drawTime,
		Numbers:  numbers,
		Extra:    extra,
	}, nil
}

// dedupeBalls drops repeated extraction artifacts, keeping the first
// occurrence; "05" and "5" are the same ball.
func dedupeBalls(numbers []string) []string {
	seen := make(map[int]bool, len(numbers))
	out := numbers[:0]
	for _, n := range numbers {
		v, _ := strconv.Atoi(n)
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, n)
	}
	return out
}
