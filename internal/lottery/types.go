package lottery

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// DateLayout is the canonical draw date format
const DateLayout = "2006-01-02"

// DrawTime is one of a game's daily draw sessions
type DrawTime string

const (
	Midday  DrawTime = "midday"
	Evening DrawTime = "evening"
)

// ParseDrawTime parses a draw session name, case-insensitively
func ParseDrawTime(s string) (DrawTime, error) {
	switch DrawTime(strings.ToLower(strings.TrimSpace(s))) {
	case Midday:
		return Midday, nil
	case Evening:
		return Evening, nil
	}
	return "", fmt.Errorf("invalid draw time %q: must be midday or evening", s)
}

// rank orders sessions most recent first within one day
func (d DrawTime) rank() int {
	if d == Midday {
		return 1
	}
	return 0
}

// DrawRecord represents one lottery drawing result
type DrawRecord struct {
	Date     string   `json:"date"`
	DrawTime DrawTime `json:"draw_time"`
	Numbers  []string `json:"numbers"`
	Extra    string   `json:"extra,omitempty"`
}

// Key returns the (date, draw_time) identity of a draw
func (r DrawRecord) Key() string {
	return r.Date + "|" + string(r.DrawTime)
}

// Candidate is an unvalidated draw emitted by an extractor
type Candidate struct {
	Date     string
	DrawTime DrawTime
	Numbers  []string
	Extra    string
	Source   string
}

// Record converts the candidate to a draw record without validation
func (c Candidate) Record() DrawRecord {
	return DrawRecord{
		Date:     c.Date,
		DrawTime: c.DrawTime,
		Numbers:  append([]string(nil), c.Numbers...),
		Extra:    c.Extra,
	}
}

// Before reports whether a sorts ahead of b: newer dates first, evening before midday
func Before(a, b DrawRecord) bool {
	if a.Date != b.Date {
		return a.Date > b.Date
	}
	return a.DrawTime.rank() < b.DrawTime.rank()
}

// SortDraws sorts draws descending by date, evening first on the same date
func SortDraws(draws []DrawRecord) {
	sort.SliceStable(draws, func(i, j int) bool {
		return Before(draws[i], draws[j])
	})
}

// Strategy names one of the extraction strategies
type Strategy string

const (
	StrategyTabularRow      Strategy = "tabular-row"
	StrategyAnchorProximity Strategy = "anchor-proximity"
	StrategyFixedFormat     Strategy = "fixed-format"
)

// ContentFormat describes what a source returns
type ContentFormat string

const (
	FormatHTML ContentFormat = "html"
	FormatText ContentFormat = "text"
	FormatPDF  ContentFormat = "pdf"
)

// SourceConfig describes one publisher page family for a game
type SourceConfig struct {
	Name        string        `json:"name"`
	Strategy    Strategy      `json:"strategy"`
	URL         string        `json:"url"`
	Format      ContentFormat `json:"format,omitempty"`
	Layout      string        `json:"layout,omitempty"`
	Pattern     string        `json:"pattern,omitempty"`
	RowSelector string        `json:"row_selector,omitempty"`
	LegacyTLS   bool          `json:"legacy_tls,omitempty"`
}

// GameDefinition is the static configuration of a supported game
type GameDefinition struct {
	ID            string         `json:"id"`
	DisplayName   string         `json:"display_name"`
	State         string         `json:"state"`
	NumbersCount  int            `json:"numbers_count"`
	DrawTimes     []DrawTime     `json:"draw_times"`
	HasExtraBall  bool           `json:"has_extra_ball"`
	ExtraLabel    string         `json:"extra_label,omitempty"`
	DistinctBalls bool           `json:"distinct_balls"`
	Sources       []SourceConfig `json:"sources"`
}

// DefaultDrawTime is the session assumed when a source does not name one
func (g GameDefinition) DefaultDrawTime() DrawTime {
	if len(g.DrawTimes) == 1 {
		return g.DrawTimes[0]
	}
	return Evening
}

// OffersDrawTime reports whether the game draws in the given session
func (g GameDefinition) OffersDrawTime(d DrawTime) bool {
	for _, dt := range g.DrawTimes {
		if dt == d {
			return true
		}
	}
	return false
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate checks the definition's static invariants
func (g GameDefinition) Validate() error {
	if !slugPattern.MatchString(g.ID) {
		return fmt.Errorf("game id %q is not a slug", g.ID)
	}
	if g.NumbersCount < 2 || g.NumbersCount > 6 {
		return fmt.Errorf("game %s: numbers_count must be between 2 and 6, got %d", g.ID, g.NumbersCount)
	}
	if len(g.DrawTimes) == 0 {
		return fmt.Errorf("game %s: at least one draw time is required", g.ID)
	}
	seen := make(map[DrawTime]bool)
	for _, dt := range g.DrawTimes {
		if dt != Midday && dt != Evening {
			return fmt.Errorf("game %s: invalid draw time %q", g.ID, dt)
		}
		if seen[dt] {
			return fmt.Errorf("game %s: duplicate draw time %q", g.ID, dt)
		}
		seen[dt] = true
	}
	for i, src := range g.Sources {
		switch src.Strategy {
		case StrategyTabularRow, StrategyAnchorProximity, StrategyFixedFormat:
		default:
			return fmt.Errorf("game %s: source %d has unknown strategy %q", g.ID, i, src.Strategy)
		}
		if src.URL == "" {
			return fmt.Errorf("game %s: source %d has no url", g.ID, i)
		}
		if src.Strategy == StrategyFixedFormat && src.Layout == "" && src.Pattern == "" {
			return fmt.Errorf("game %s: fixed-format source %d needs a layout or pattern", g.ID, i)
		}
	}
	return nil
}

// GameHistory is the persisted aggregate for one game
type GameHistory struct {
	Game         string       `json:"game"`
	GameName     string       `json:"game_name"`
	State        string       `json:"state"`
	NumbersCount int          `json:"numbers_count"`
	DrawTimes    []DrawTime   `json:"draw_times"`
	HasExtraBall bool         `json:"has_extra_ball,omitempty"`
	ExtraLabel   string       `json:"extra_label,omitempty"`
	LastUpdated  time.Time    `json:"last_updated"`
	TotalDraws   int          `json:"total_draws"`
	Draws        []DrawRecord `json:"draws"`
}

// NewGameHistory builds a history document from normalized draws
func NewGameHistory(game GameDefinition, draws []DrawRecord, now time.Time) *GameHistory {
	return &GameHistory{
		Game:         game.ID,
		GameName:     game.DisplayName,
		State:        game.State,
		NumbersCount: game.NumbersCount,
		DrawTimes:    append([]DrawTime(nil), game.DrawTimes...),
		HasExtraBall: game.HasExtraBall,
		ExtraLabel:   game.ExtraLabel,
		LastUpdated:  now.UTC(),
		TotalDraws:   len(draws),
		Draws:        draws,
	}
}

// Validate checks the count, uniqueness and ordering invariants of the draws
func (h *GameHistory) Validate() error {
	if h.Game == "" {
		return fmt.Errorf("history has no game id")
	}
	if h.TotalDraws != len(h.Draws) {
		return fmt.Errorf("%s: total_draws %d does not match %d draws", h.Game, h.TotalDraws, len(h.Draws))
	}
	seen := make(map[string]bool, len(h.Draws))
	for i, d := range h.Draws {
		if len(d.Numbers) != h.NumbersCount {
			return fmt.Errorf("%s: draw %s %s has %d numbers, want %d", h.Game, d.Date, d.DrawTime, len(d.Numbers), h.NumbersCount)
		}
		if seen[d.Key()] {
			return fmt.Errorf("%s: duplicate draw %s %s", h.Game, d.Date, d.DrawTime)
		}
		seen[d.Key()] = true
		if i > 0 && Before(d, h.Draws[i-1]) {
			return fmt.Errorf("%s: draws out of order at %s %s", h.Game, d.Date, d.DrawTime)
		}
	}
	return nil
}

// RecentDates returns up to n distinct draw dates, newest first
func (h *GameHistory) RecentDates(n int) []string {
	seen := make(map[string]bool)
	dates := make([]string, 0, len(h.Draws))
	for _, d := range h.Draws {
		if !seen[d.Date] {
			seen[d.Date] = true
			dates = append(dates, d.Date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > n {
		dates = dates[:n]
	}
	return dates
}
