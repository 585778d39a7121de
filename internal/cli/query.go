package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sjsage522/lotteryworker/internal/query"
	"sjsage522/lotteryworker/internal/store"
	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

func newQueryCmd() *cobra.Command {
	var date, drawTime string

	cmd := &cobra.Command{
		Use:   "query <game>",
		Short: "Look up the latest or a historical draw",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.OutOrStdout(), args[0], date, drawTime)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Draw date, YYYY-MM-DD (default: latest)")
	cmd.Flags().StringVar(&drawTime, "draw-time", "", "Draw session: midday or evening")
	return cmd
}

// queryFailure mirrors the HTTP error body
type queryFailure struct {
	Error          string   `json:"error"`
	AvailableGames []string `json:"available_games,omitempty"`
	ClosestDates   []string `json:"closest_dates,omitempty"`
}

func runQuery(out io.Writer, game, date, drawTime string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	snap, err := store.New(cfg.DataDir).Snapshot()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	dt, err := query.ValidateDrawTime(drawTime)
	if err == nil && date != "" {
		err = query.ValidateDate(date)
	}
	var result *query.Result
	if err == nil {
		resolver := query.NewResolver(store.NewHolder(snap), registry)
		result, err = resolver.Resolve(query.Request{Game: game, Date: date, DrawTime: dt})
	}
	if err != nil {
		le, ok := pkgerrors.As(err)
		if !ok {
			return err
		}
		failure := queryFailure{Error: le.Message}
		switch le.Type {
		case pkgerrors.ErrorTypeGameNotFound:
			failure.AvailableGames = le.Hints
		case pkgerrors.ErrorTypeDateNotFound:
			failure.ClosestDates = le.Hints
		}
		if encErr := enc.Encode(failure); encErr != nil {
			return encErr
		}
		return fmt.Errorf("%s", le.Message)
	}
	return enc.Encode(result)
}
