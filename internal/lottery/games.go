package lottery

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/gosimple/slug"
)

const (
	floridaFilesURL = "https://files.floridalottery.com/exptkt/"
	lotteryNetURL   = "https://www.lottery.net/"
)

// floridaGames is the built-in registry. Sources are listed in trust order:
// the published fixed-format files first, scraped pages after.
var floridaGames = []GameDefinition{
	pickGame("pick-2", "Pick 2", 2, "p2.pdf"),
	pickGame("pick-3", "Pick 3", 3, "p3.pdf"),
	pickGame("pick-4", "Pick 4", 4, "p4.pdf"),
	pickGame("pick-5", "Pick 5", 5, "p5.pdf"),
	{
		ID:            "fantasy-5",
		DisplayName:   "Fantasy 5",
		State:         "florida",
		NumbersCount:  5,
		DrawTimes:     []DrawTime{Midday, Evening},
		DistinctBalls: true,
		Sources: []SourceConfig{
			{Name: "floridalottery.com", Strategy: StrategyFixedFormat, URL: floridaFilesURL + "ff.pdf", Format: FormatPDF, Layout: "session-words", LegacyTLS: true},
			{Name: "lottery.net", Strategy: StrategyTabularRow, URL: lotteryNetURL + "florida/fantasy-5/numbers/{year}", Format: FormatHTML},
		},
	},
	{
		ID:            "florida-lotto",
		DisplayName:   "Florida Lotto",
		State:         "florida",
		NumbersCount:  6,
		DrawTimes:     []DrawTime{Evening},
		DistinctBalls: true,
		Sources: []SourceConfig{
			{Name: "floridalottery.com", Strategy: StrategyFixedFormat, URL: floridaFilesURL + "l6.pdf", Format: FormatPDF, Layout: "lotto", LegacyTLS: true},
			{Name: "lottery.net", Strategy: StrategyTabularRow, URL: lotteryNetURL + "florida/lotto/numbers/{year}", Format: FormatHTML},
		},
	},
	{
		ID:            "cash4life",
		DisplayName:   "Cash4Life",
		State:         "florida",
		NumbersCount:  5,
		DrawTimes:     []DrawTime{Evening},
		HasExtraBall:  true,
		ExtraLabel:    "cash_ball",
		DistinctBalls: true,
		Sources: []SourceConfig{
			{Name: "floridalottery.com", Strategy: StrategyFixedFormat, URL: floridaFilesURL + "c4l.pdf", Format: FormatPDF, Layout: "cash-ball", LegacyTLS: true},
		},
	},
	{
		ID:            "powerball",
		DisplayName:   "Powerball",
		State:         "florida",
		NumbersCount:  5,
		DrawTimes:     []DrawTime{Evening},
		HasExtraBall:  true,
		ExtraLabel:    "powerball",
		DistinctBalls: true,
		Sources: []SourceConfig{
			{Name: "lottery.net", Strategy: StrategyTabularRow, URL: lotteryNetURL + "powerball/numbers/{year}", Format: FormatHTML},
		},
	},
	{
		ID:            "powerball-double-play",
		DisplayName:   "Powerball Double Play",
		State:         "florida",
		NumbersCount:  5,
		DrawTimes:     []DrawTime{Evening},
		HasExtraBall:  true,
		ExtraLabel:    "powerball",
		DistinctBalls: true,
		Sources: []SourceConfig{
			{Name: "floridalottery.com", Strategy: StrategyFixedFormat, URL: floridaFilesURL + "pb.pdf", Format: FormatPDF, Layout: "powerball-double-play", LegacyTLS: true},
		},
	},
	{
		ID:            "mega-millions",
		DisplayName:   "Mega Millions",
		State:         "florida",
		NumbersCount:  5,
		DrawTimes:     []DrawTime{Evening},
		HasExtraBall:  true,
		ExtraLabel:    "mega_ball",
		DistinctBalls: true,
		Sources: []SourceConfig{
			{Name: "lottery.net", Strategy: StrategyTabularRow, URL: lotteryNetURL + "mega-millions/numbers/{year}", Format: FormatHTML},
		},
	},
	{
		ID:            "jackpot-triple-play",
		DisplayName:   "Jackpot Triple Play",
		State:         "florida",
		NumbersCount:  6,
		DrawTimes:     []DrawTime{Evening},
		DistinctBalls: true,
		Sources: []SourceConfig{
			{Name: "flalottery.com", Strategy: StrategyAnchorProximity, URL: "https://www.flalottery.com/jackpotTriplePlay", Format: FormatHTML, LegacyTLS: true},
		},
	},
}

func pickGame(id, name string, count int, file string) GameDefinition {
	return GameDefinition{
		ID:           id,
		DisplayName:  name,
		State:        "florida",
		NumbersCount: count,
		DrawTimes:    []DrawTime{Midday, Evening},
		HasExtraBall: true,
		ExtraLabel:   "fireball",
		Sources: []SourceConfig{
			{Name: "floridalottery.com", Strategy: StrategyFixedFormat, URL: floridaFilesURL + file, Format: FormatPDF, Layout: "fireball", LegacyTLS: true},
		},
	}
}

// Registry is the immutable set of supported games
type Registry struct {
	games []GameDefinition
	byID  map[string]GameDefinition
}

// NewRegistry validates the definitions and indexes them by id
func NewRegistry(defs []GameDefinition) (*Registry, error) {
	r := &Registry{byID: make(map[string]GameDefinition, len(defs))}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate game id %q", def.ID)
		}
		r.byID[def.ID] = def
		r.games = append(r.games, def)
	}
	return r, nil
}

// DefaultRegistry returns the built-in game registry
func DefaultRegistry() *Registry {
	r, err := NewRegistry(floridaGames)
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRegistry reads game definitions from a JSON file, or the built-in registry when path is empty
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading games file: %w", err)
	}
	var defs []GameDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing games file: %w", err)
	}
	for i := range defs {
		defs[i].ID = NormalizeID(defs[i].ID)
	}
	return NewRegistry(defs)
}

// NormalizeID turns user input such as "Pick 3" or "PICK-3" into a game slug
func NormalizeID(id string) string {
	return slug.Make(id)
}

// Lookup finds a game by id, case-insensitively
func (r *Registry) Lookup(id string) (GameDefinition, bool) {
	def, ok := r.byID[NormalizeID(id)]
	return def, ok
}

// Games returns the definitions in registration order
func (r *Registry) Games() []GameDefinition {
	return append([]GameDefinition(nil), r.games...)
}

// IDs returns the sorted game ids
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
