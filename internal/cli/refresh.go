package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sjsage522/lotteryworker/internal/lottery"
	"sjsage522/lotteryworker/internal/store"
	"sjsage522/lotteryworker/services/worker"
)

func newRefreshCmd() *cobra.Command {
	var game string
	var months int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch, extract and normalize draw histories once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd.OutOrStdout(), game, months, cmd.Flags().Changed("months"), asJSON)
		},
	}
	cmd.Flags().StringVar(&game, "game", "", "Refresh a single game (default: all games)")
	cmd.Flags().IntVar(&months, "months", 0, "Months of history to collect, 0 for everything (overrides HISTORY_MONTHS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run report as JSON")
	return cmd
}

func runRefresh(out io.Writer, game string, months int, monthsSet, asJSON bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !monthsSet {
		months = cfg.HistoryMonths
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	games, err := selectGames(registry, game)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := initializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	w, err := newWorker(cfg, games, services, store.New(cfg.DataDir), months, nil)
	if err != nil {
		return err
	}
	report := w.RunOnce(ctx)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(out, report)
	}

	if report.Canceled {
		return fmt.Errorf("refresh canceled")
	}
	for _, g := range report.Games {
		if g.Error != "" {
			return fmt.Errorf("refresh failed for %s: %s", g.Game, g.Error)
		}
	}
	return nil
}

// selectGames returns every game, or the one named
func selectGames(registry *lottery.Registry, game string) ([]lottery.GameDefinition, error) {
	if game == "" {
		return registry.Games(), nil
	}
	def, ok := registry.Lookup(game)
	if !ok {
		return nil, fmt.Errorf("unknown game %q; available: %s", game, strings.Join(registry.IDs(), ", "))
	}
	return []lottery.GameDefinition{def}, nil
}

func printReport(out io.Writer, r worker.Report) {
	fmt.Fprintf(out, "Run %s finished in %s\n", r.RunID, r.Duration.Round(time.Millisecond))
	for _, g := range r.Games {
		status := "kept previous history"
		switch {
		case g.Error != "":
			status = "error: " + g.Error
		case g.Saved:
			status = "saved " + g.File
		}
		fmt.Fprintf(out, "  %-24s %4d draws (%d candidates, %d discarded)  %s\n",
			g.Game, g.Draws, g.Candidates, g.Discarded, status)
	}
}
