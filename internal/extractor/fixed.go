package extractor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"sjsage522/lotteryworker/internal/lottery"
	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

// Layouts are the named record patterns of the Florida Lottery's published
// winning-number files. Each pattern uses named groups:
//
//	date     draw date, MM/DD/YY
//	session  optional draw session (E, M, EVENING, MIDDAY)
//	numbers  all balls in one run, or n1..n6 one per group
//	extra    optional extra ball
//	skip     when non-empty the record is ignored
var Layouts = map[string]string{
	"fireball":              `(?P<date>\d{1,2}/\d{1,2}/\d{2})\s+(?P<session>[EM])\s+(?P<numbers>[\d\-\s]+?)\s*FB\s*(?P<extra>\d+)`,
	"cash-ball":             `(?P<date>\d{1,2}/\d{1,2}/\d{2})\s+(?P<numbers>[\d\-\s]+?)\s*CB\s*(?P<extra>\d+)`,
	"lotto":                 `(?P<date>\d{1,2}/\d{1,2}/\d{2})\s+(?P<n1>\d+)-\s*(?P<n2>\d+)-\s*(?P<n3>\d+)-\s*(?P<n4>\d+)-\s*(?P<n5>\d+)-\s*(?P<n6>\d+)\s+LOTTO(?P<skip>\s+DP)?`,
	"powerball-double-play": `(?P<date>\d{1,2}/\d{1,2}/\d{2})\s+(?P<n1>\d+)\s+(?P<n2>\d+)\s+(?P<n3>\d+)\s+(?P<n4>\d+)\s+(?P<n5>\d+)\s+PB\s+(?P<extra>\d+)\s+POWERBALL\s+DP`,
	"session-words":         `(?P<date>\d{1,2}/\d{1,2}/\d{2})\s+(?P<session>EVENING|MIDDAY)\s+(?P<n1>\d+)\s+(?P<n2>\d+)\s+(?P<n3>\d+)\s+(?P<n4>\d+)\s+(?P<n5>\d+)`,
}

var (
	digitRun        = regexp.MustCompile(`\d+`)
	numberGroupName = regexp.MustCompile(`^n(\d+)$`)
)

// FixedFormat matches whole records of a machine-generated publication
type FixedFormat struct {
	name    string
	pattern *regexp.Regexp
	// numberGroups are the submatch indexes of n1..nN in ball order
	numberGroups []int
	groups       map[string]int
}

// NewFixedFormat compiles a record pattern. The pattern must name a date
// group and either a numbers group or numbered n groups.
func NewFixedFormat(name, pattern string) (*FixedFormat, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", name, err)
	}

	f := &FixedFormat{name: name, pattern: re, groups: make(map[string]int)}
	type numbered struct{ order, index int }
	var ns []numbered
	for i, group := range re.SubexpNames() {
		if group == "" {
			continue
		}
		f.groups[group] = i
		if m := numberGroupName.FindStringSubmatch(group); m != nil {
			order, _ := strconv.Atoi(m[1])
			ns = append(ns, numbered{order, i})
		}
	}
	sort.Slice(ns, func(a, b int) bool { return ns[a].order < ns[b].order })
	for _, n := range ns {
		f.numberGroups = append(f.numberGroups, n.index)
	}

	if _, ok := f.groups["date"]; !ok {
		return nil, fmt.Errorf("layout %s: pattern has no date group", name)
	}
	if _, ok := f.groups["numbers"]; !ok && len(f.numberGroups) == 0 {
		return nil, fmt.Errorf("layout %s: pattern has no numbers or n1.. groups", name)
	}
	return f, nil
}

// NewFixedLayout compiles one of the named Layouts
func NewFixedLayout(layout string) (*FixedFormat, error) {
	pattern, ok := Layouts[layout]
	if !ok {
		return nil, fmt.Errorf("unknown fixed-format layout %q", layout)
	}
	return NewFixedFormat(layout, pattern)
}

// LayoutNames returns the named layouts, sorted
func LayoutNames() []string {
	names := make([]string, 0, len(Layouts))
	for name := range Layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetName returns the strategy and layout name
func (f *FixedFormat) GetName() string {
	return string(lottery.StrategyFixedFormat) + ":" + f.name
}

// Extract emits one candidate per record. Numbers are passed through as
// printed; records whose ball count does not fit the game are left for the
// normalizer to discard.
func (f *FixedFormat) Extract(in Input, game lottery.GameDefinition) ([]lottery.Candidate, error) {
	text, err := ContentText(in.Content, in.Format)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrorTypeExtraction, in.Source, "reading document text", err)
	}

	var candidates []lottery.Candidate
	for _, m := range f.pattern.FindAllStringSubmatch(text, -1) {
		if f.group(m, "skip") != "" {
			continue
		}
		date, ok := ParseShortDate(f.group(m, "date"))
		if !ok {
			continue
		}
		candidates = append(candidates, lottery.Candidate{
			Date:     date.Format(lottery.DateLayout),
			DrawTime: parseSession(f.group(m, "session"), game),
			Numbers:  f.numbers(m),
			Extra:    f.group(m, "extra"),
			Source:   in.Source,
		})
	}

	if len(candidates) == 0 {
		return nil, pkgerrors.NewExtractionMiss(in.Source, "no records matched layout "+f.name)
	}
	return candidates, nil
}

func (f *FixedFormat) group(m []string, name string) string {
	i, ok := f.groups[name]
	if !ok || i >= len(m) {
		return ""
	}
	return strings.TrimSpace(m[i])
}

func (f *FixedFormat) numbers(m []string) []string {
	if run := f.group(m, "numbers"); run != "" {
		return digitRun.FindAllString(run, -1)
	}
	var out []string
	for _, i := range f.numberGroups {
		if v := strings.TrimSpace(m[i]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseSession(s string, game lottery.GameDefinition) lottery.DrawTime {
	switch strings.ToUpper(s) {
	case "E", "EVE", "EVENING":
		return lottery.Evening
	case "M", "MID", "MIDDAY":
		return lottery.Midday
	}
	return game.DefaultDrawTime()
}
