package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sjsage522/lotteryworker/internal/store"
)

func newGamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List configured games and their loaded histories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGames(cmd.OutOrStdout())
		},
	}
}

func runGames(out io.Writer) error {
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

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATE\tNUMBERS\tSESSIONS\tDRAWS\tLATEST\tSOURCES")
	for _, g := range registry.Games() {
		draws, latest := 0, "-"
		if h, ok := snap.History(g.ID); ok {
			draws = h.TotalDraws
			if len(h.Draws) > 0 {
				latest = h.Draws[0].Date
			}
		}
		sessions := make([]string, len(g.DrawTimes))
		for i, dt := range g.DrawTimes {
			sessions[i] = string(dt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%s\t%d\n",
			g.ID, g.DisplayName, g.State, g.NumbersCount, strings.Join(sessions, ","), draws, latest, len(g.Sources))
	}
	return tw.Flush()
}
