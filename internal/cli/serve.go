package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"sjsage522/lotteryworker/internal/api"
	"sjsage522/lotteryworker/internal/store"
	"sjsage522/lotteryworker/logger"
	"sjsage522/lotteryworker/services/worker"
)

func newServeCmd() *cobra.Command {
	var refresh bool
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the loaded histories over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, refresh)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Run the refresh pipeline periodically and reload histories")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides LISTEN_ADDR)")
	return cmd
}

func runServe(addr string, refresh bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.ListenAddr
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	log := logger.ForAPI()

	st := store.New(cfg.DataDir)
	snap, err := st.Snapshot()
	if err != nil {
		return err
	}
	holder := store.NewHolder(snap)
	log.Info().
		Str("environment", cfg.Environment).
		Str("data_dir", cfg.DataDir).
		Strs("games", snap.Games()).
		Msg("Histories loaded")

	// Set up context with cancellation on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerDone := make(chan error, 1)
	if refresh {
		services, err := initializeServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer services.Cleanup()

		reload := func(r worker.Report) {
			next, err := st.Snapshot()
			if err != nil {
				log.Error().Err(err).Msg("Failed to reload histories")
				return
			}
			holder.Swap(next)
			log.Info().Str("run_id", r.RunID).Int("games", next.Len()).Msg("Histories reloaded")
		}
		w, err := newWorker(cfg, registry.Games(), services, st, cfg.HistoryMonths, reload)
		if err != nil {
			return err
		}
		go func() {
			workerDone <- w.Start(ctx)
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.NewServer(holder, registry)
	if err := server.Run(ctx, addr); err != nil {
		stop()
		return err
	}

	if refresh {
		if err := <-workerDone; err != nil {
			log.Error().Err(err).Msg("Worker exited with error")
		}
	}
	log.Info().Msg("Shut down gracefully")
	return nil
}
