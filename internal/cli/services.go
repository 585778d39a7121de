package cli

import (
	"context"
	"fmt"

	"sjsage522/lotteryworker/config"
	"sjsage522/lotteryworker/internal/extractor"
	"sjsage522/lotteryworker/internal/lottery"
	"sjsage522/lotteryworker/internal/source"
	"sjsage522/lotteryworker/internal/store"
	"sjsage522/lotteryworker/logger"
	"sjsage522/lotteryworker/services/archive"
	"sjsage522/lotteryworker/services/cache"
	"sjsage522/lotteryworker/services/mirror"
	"sjsage522/lotteryworker/services/publisher"
	"sjsage522/lotteryworker/services/worker"
)

// Services holds all the initialized optional services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Mirror    mirror.Mirror
	Archive   *archive.Archive
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Archive != nil {
		s.Archive.Close()
	}
}

// Deps returns the worker outputs backed by these services
func (s *Services) Deps(st *store.Store) worker.Deps {
	deps := worker.Deps{Store: st, Publisher: s.Publisher, Mirror: s.Mirror}
	if s.Archive != nil {
		deps.Archive = s.Archive
	}
	return deps
}

// initializeServices connects every service the configuration enables.
// Services that are configured but unreachable are skipped with a warning;
// the pipeline runs without them.
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			logger.Warn("Memcache at %s unreachable, running without page cache: %v", cfg.MemcacheAddr, err)
		} else {
			services.Cache = mc
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			logger.Warn("Redis at %s unreachable, running without notifications: %v", cfg.RedisAddr, err)
			redisPublisher.Close()
		} else {
			services.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	if cfg.S3Bucket != "" {
		m, err := mirror.NewS3Mirror(ctx, mirror.Options{
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Prefix:          cfg.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		services.Mirror = m
		logger.Info("Mirroring histories to s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
	}

	if cfg.DatabaseURL != "" {
		a, err := archive.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		services.Archive = a
		logger.Info("Archiving draws to PostgreSQL")
	}

	return services, nil
}

// loadRegistry loads the game registry and checks every source's extractor
func loadRegistry(cfg *config.Config) (*lottery.Registry, error) {
	reg, err := lottery.LoadRegistry(cfg.GamesFile)
	if err != nil {
		return nil, fmt.Errorf("loading games: %w", err)
	}
	if err := extractor.ValidateRegistry(reg); err != nil {
		return nil, fmt.Errorf("invalid game sources: %w", err)
	}
	return reg, nil
}

// sourceOptions are the fetch settings shared by every source of a run
func sourceOptions(cfg *config.Config, services *Services) source.Options {
	return source.Options{
		Cache:     services.Cache,
		Throttle:  source.NewThrottle(cfg.RequestDelay),
		Timeout:   cfg.FetchTimeout,
		BlockTime: cfg.RateLimitBlock,
		PageTTL:   cfg.PageCacheTTL,
	}
}

// newWorker wires a refresh worker for the given games
func newWorker(cfg *config.Config, games []lottery.GameDefinition, services *Services, st *store.Store, months int, onRefreshed func(worker.Report)) (*worker.Worker, error) {
	sources, err := worker.BuildSources(games, sourceOptions(cfg, services))
	if err != nil {
		return nil, err
	}
	return worker.NewWorker(games, sources, services.Deps(st), worker.Options{
		Concurrency:   cfg.RefreshConcurrency,
		HistoryMonths: months,
		Interval:      cfg.RefreshInterval,
		OnRefreshed:   onRefreshed,
	}), nil
}
