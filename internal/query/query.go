package query

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"sjsage522/lotteryworker/internal/lottery"
	"sjsage522/lotteryworker/internal/store"
	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

const (
	// Latest is the date_requested value of a query without a date
	Latest = "latest"
	// ResultSource names where results are read from
	ResultSource = "history.json"
	// ClosestDates is how many recent dates a DateNotFound error suggests
	ClosestDates = 5
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Result is a resolved draw, shaped for the HTTP shell
type Result struct {
	State          string               `json:"state"`
	Game           string               `json:"game"`
	GameName       string               `json:"game_name"`
	DateRequested  string               `json:"date_requested"`
	DateDrawn      string               `json:"date_drawn"`
	DrawTime       lottery.DrawTime     `json:"draw_time"`
	WinningNumbers []string             `json:"winning_numbers"`
	Extra          string               `json:"extra,omitempty"`
	ExtraLabel     string               `json:"extra_label,omitempty"`
	Source         string               `json:"source"`
	AllDrawsOnDate []lottery.DrawRecord `json:"all_draws_on_date,omitempty"`
}

// Request is one lookup; empty Date means latest, empty DrawTime means any session
type Request struct {
	Game     string
	Date     string
	DrawTime lottery.DrawTime
}

// SnapshotSource supplies the snapshot a query runs against
type SnapshotSource interface {
	Snapshot() *store.Snapshot
}

// Resolver answers latest and by-date queries. It never touches the network
// or the filesystem; every call reads the snapshot current at call time.
type Resolver struct {
	source   SnapshotSource
	registry *lottery.Registry
}

// NewResolver creates a resolver. The registry may be nil, in which case
// only games with a loaded history are known.
func NewResolver(source SnapshotSource, registry *lottery.Registry) *Resolver {
	return &Resolver{source: source, registry: registry}
}

// ValidateDate accepts strict YYYY-MM-DD calendar dates only
func ValidateDate(date string) error {
	if !datePattern.MatchString(date) {
		return pkgerrors.NewInvalidInput("date", "Invalid date format. Use YYYY-MM-DD")
	}
	if _, err := time.Parse(lottery.DateLayout, date); err != nil {
		return pkgerrors.NewInvalidInput("date", "Invalid date: "+date)
	}
	return nil
}

// ValidateDrawTime parses an optional draw_time parameter
func ValidateDrawTime(s string) (lottery.DrawTime, error) {
	if s == "" {
		return "", nil
	}
	dt, err := lottery.ParseDrawTime(s)
	if err != nil {
		return "", pkgerrors.NewInvalidInput("draw_time", "Invalid draw_time. Use midday or evening")
	}
	return dt, nil
}

// KnownGames returns every game id the resolver can answer for, sorted
func (r *Resolver) KnownGames() []string {
	set := make(map[string]bool)
	if r.registry != nil {
		for _, id := range r.registry.IDs() {
			set[id] = true
		}
	}
	for _, id := range r.source.Snapshot().Games() {
		set[id] = true
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve runs one query against the current snapshot
func (r *Resolver) Resolve(req Request) (*Result, error) {
	snap := r.source.Snapshot()
	id := lottery.NormalizeID(req.Game)

	h, ok := snap.History(id)
	if !ok {
		if r.registry != nil {
			if _, known := r.registry.Lookup(id); known {
				return nil, pkgerrors.NewNoData(id)
			}
		}
		return nil, pkgerrors.NewGameNotFound(req.Game, r.KnownGames())
	}
	if len(h.Draws) == 0 {
		return nil, pkgerrors.NewNoData(id)
	}

	if req.Date == "" {
		return r.result(h, Latest, h.Draws[0], nil), nil
	}
	if err := ValidateDate(req.Date); err != nil {
		return nil, err
	}

	var matches []lottery.DrawRecord
	for _, d := range h.Draws {
		if d.Date == req.Date {
			matches = append(matches, d)
		}
	}
	if len(matches) == 0 {
		return nil, pkgerrors.NewDateNotFound(id, req.Date, h.RecentDates(ClosestDates))
	}

	if req.DrawTime != "" {
		var narrowed []lottery.DrawRecord
		for _, d := range matches {
			if d.DrawTime == req.DrawTime {
				narrowed = append(narrowed, d)
			}
		}
		// a missing session falls back to whatever was drawn that day
		if len(narrowed) > 0 {
			matches = narrowed
		}
	}

	var sameDay []lottery.DrawRecord
	if len(matches) > 1 {
		sameDay = matches
	}
	return r.result(h, req.Date, matches[0], sameDay), nil
}

func (r *Resolver) result(h *lottery.GameHistory, requested string, d lottery.DrawRecord, sameDay []lottery.DrawRecord) *Result {
	var label string
	if d.Extra != "" {
		label = h.ExtraLabel
	}
	return &Result{
		State:          strings.ToUpper(h.State),
		Game:           h.Game,
		GameName:       h.GameName,
		DateRequested:  requested,
		DateDrawn:      d.Date,
		DrawTime:       d.DrawTime,
		WinningNumbers: d.Numbers,
		Extra:          d.Extra,
		ExtraLabel:     label,
		Source:         ResultSource,
		AllDrawsOnDate: sameDay,
	}
}
