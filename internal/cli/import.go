package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sjsage522/lotteryworker/internal/extractor"
	"sjsage522/lotteryworker/internal/lottery"
	"sjsage522/lotteryworker/internal/source"
	"sjsage522/lotteryworker/internal/store"
)

func newImportCmd() *cobra.Command {
	var game, file, layout string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Build a game's history from a downloaded PDF or text file",
		Long: `Runs the game's fixed-format layout over a local results file and replaces
the game's history with the draws found. PDF files are converted to text first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), game, file, layout)
		},
	}
	cmd.Flags().StringVar(&game, "game", "", "Game id (required)")
	cmd.Flags().StringVar(&file, "file", "", "PDF or text file to import (required)")
	cmd.Flags().StringVar(&layout, "layout", "", "Fixed-format layout (default: the game's configured layout)")
	cmd.MarkFlagRequired("game")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(ctx context.Context, out io.Writer, game, file, layout string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	games, err := selectGames(registry, game)
	if err != nil {
		return err
	}
	def := games[0]

	srcCfg, err := importSource(def, layout)
	if err != nil {
		return err
	}
	ex, err := extractor.New(srcCfg)
	if err != nil {
		return err
	}

	content, err := readImportFile(file)
	if err != nil {
		return err
	}

	candidates, err := ex.Extract(extractor.Input{
		Content: content,
		Format:  lottery.FormatText,
		Source:  filepath.Base(file),
	}, def)
	if err != nil {
		return fmt.Errorf("no draws found in %s: %w", file, err)
	}

	services, err := initializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	w, err := newWorker(cfg, nil, services, store.New(cfg.DataDir), cfg.HistoryMonths, nil)
	if err != nil {
		return err
	}
	report := w.Persist(ctx, uuid.NewString(), def, candidates)
	if report.Error != "" {
		return fmt.Errorf("import failed: %s", report.Error)
	}
	if !report.Saved {
		return fmt.Errorf("no valid draws in %s (%d candidates discarded)", file, report.Discarded)
	}
	fmt.Fprintf(out, "Imported %d draws for %s into %s (%d discarded)\n", report.Draws, def.ID, report.File, report.Discarded)
	return nil
}

// importSource picks the fixed-format configuration to parse a local file with
func importSource(def lottery.GameDefinition, layout string) (lottery.SourceConfig, error) {
	if layout != "" {
		return lottery.SourceConfig{Name: "import", Strategy: lottery.StrategyFixedFormat, Layout: layout}, nil
	}
	for _, src := range def.Sources {
		if src.Strategy == lottery.StrategyFixedFormat {
			return src, nil
		}
	}
	return lottery.SourceConfig{}, fmt.Errorf("game %s has no fixed-format source; pass --layout (one of %s)",
		def.ID, strings.Join(extractor.LayoutNames(), ", "))
}

func readImportFile(file string) ([]byte, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	if strings.EqualFold(filepath.Ext(file), ".pdf") {
		text, err := source.PDFText(data)
		if err != nil {
			return nil, fmt.Errorf("reading pdf %s: %w", file, err)
		}
		return []byte(text), nil
	}
	return data, nil
}
