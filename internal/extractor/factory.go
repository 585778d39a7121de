package extractor

import (
	"fmt"

	"sjsage522/lotteryworker/internal/lottery"
)

// New creates the extractor a source configuration asks for
func New(src lottery.SourceConfig) (Extractor, error) {
	switch src.Strategy {
	case lottery.StrategyTabularRow:
		return NewTabularRow(src.RowSelector), nil
	case lottery.StrategyAnchorProximity:
		return NewAnchorProximity(DefaultAnchorWindow), nil
	case lottery.StrategyFixedFormat:
		if src.Pattern != "" {
			name := src.Layout
			if name == "" {
				name = "custom"
			}
			return NewFixedFormat(name, src.Pattern)
		}
		return NewFixedLayout(src.Layout)
	}
	return nil, fmt.Errorf("unknown strategy %q", src.Strategy)
}

// ValidateRegistry builds every source's extractor so a bad layout or
// pattern fails at startup rather than on the first refresh.
func ValidateRegistry(reg *lottery.Registry) error {
	for _, game := range reg.Games() {
		for _, src := range game.Sources {
			if _, err := New(src); err != nil {
				return fmt.Errorf("game %s, source %s: %w", game.ID, src.Name, err)
			}
		}
	}
	return nil
}
