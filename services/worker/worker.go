package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"sjsage522/lotteryworker/internal/lottery"
	"sjsage522/lotteryworker/internal/normalize"
	"sjsage522/lotteryworker/internal/source"
	"sjsage522/lotteryworker/logger"
	"sjsage522/lotteryworker/services/mirror"
	"sjsage522/lotteryworker/services/publisher"
)

// Collector yields draw candidates for a game over a window
type Collector interface {
	Name() string
	Collect(ctx context.Context, game lottery.GameDefinition, w source.Window) []lottery.Candidate
}

// HistoryStore persists a game's history, returning the file name and bytes written
type HistoryStore interface {
	Save(h *lottery.GameHistory) (string, []byte, error)
}

// Archiver keeps a secondary copy of a game's draws
type Archiver interface {
	Replace(ctx context.Context, h *lottery.GameHistory) error
}

// Deps are the worker's outputs. Only Store is required.
type Deps struct {
	Store     HistoryStore
	Publisher publisher.Publisher
	Mirror    mirror.Mirror
	Archive   Archiver
}

// Options tune refresh runs
type Options struct {
	// Concurrency is how many games refresh at once
	Concurrency int
	// HistoryMonths sizes the refresh window; <= 0 is unlimited
	HistoryMonths int
	// Interval is the period of scheduled runs
	Interval time.Duration
	// OnRefreshed is called after a run that saved at least one game
	OnRefreshed func(Report)
}

// GameReport is the outcome of refreshing one game
type GameReport struct {
	Game       string `json:"game"`
	Candidates int    `json:"candidates"`
	Discarded  int    `json:"discarded"`
	Draws      int    `json:"draws"`
	Saved      bool   `json:"saved"`
	File       string `json:"file,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Report is the outcome of one refresh run
type Report struct {
	RunID    string        `json:"run_id"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Games    []GameReport  `json:"games"`
	Canceled bool          `json:"canceled,omitempty"`
}

// Saved returns how many games were written
func (r Report) Saved() int {
	n := 0
	for _, g := range r.Games {
		if g.Saved {
			n++
		}
	}
	return n
}

// Worker handles the fetch, extract, normalize and persist pipeline
type Worker struct {
	games   []lottery.GameDefinition
	sources map[string][]Collector
	deps    Deps
	opts    Options
	log     *logger.Logger
	now     func() time.Time
}

// NewWorker creates a worker over prepared collectors, keyed by game id
func NewWorker(games []lottery.GameDefinition, sources map[string][]Collector, deps Deps, opts Options) *Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Worker{
		games:   games,
		sources: sources,
		deps:    deps,
		opts:    opts,
		log:     logger.ForWorker(),
		now:     time.Now,
	}
}

// BuildSources creates every game's sources in configured order
func BuildSources(games []lottery.GameDefinition, opts source.Options) (map[string][]Collector, error) {
	out := make(map[string][]Collector, len(games))
	for _, game := range games {
		for _, cfg := range game.Sources {
			src, err := source.New(cfg, opts)
			if err != nil {
				return nil, fmt.Errorf("game %s: %w", game.ID, err)
			}
			out[game.ID] = append(out[game.ID], src)
		}
	}
	return out, nil
}

// RunOnce refreshes every game once. Games run in parallel up to the
// configured concurrency; cancellation is observed between games.
func (w *Worker) RunOnce(ctx context.Context) Report {
	report := Report{RunID: uuid.NewString(), Started: w.now()}
	log := w.log.WithField("run_id", report.RunID)
	window := source.NewWindow(report.Started, w.opts.HistoryMonths)
	log.Info().Int("games", len(w.games)).Str("from", window.From.Format(lottery.DateLayout)).Msg("refresh started")

	results := make([]*GameReport, len(w.games))
	sem := make(chan struct{}, w.opts.Concurrency)
	var wg sync.WaitGroup

loop:
	for i, game := range w.games {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}
		// a game may have started just as the context was canceled
		if ctx.Err() != nil {
			<-sem
			break
		}

		wg.Add(1)
		go func(i int, game lottery.GameDefinition) {
			defer wg.Done()
			defer func() { <-sem }()
			r := w.refreshGame(ctx, report.RunID, game, window)
			results[i] = &r
		}(i, game)
	}
	wg.Wait()

	for _, r := range results {
		if r != nil {
			report.Games = append(report.Games, *r)
		}
	}
	report.Canceled = ctx.Err() != nil
	report.Duration = time.Since(report.Started)

	// Trim all streams after refreshing
	if w.deps.Publisher != nil {
		if err := w.deps.Publisher.TrimStreams(); err != nil {
			log.Error().Err(err).Msg("stream trimming failed")
		}
	}

	log.Info().Int("saved", report.Saved()).Int("games", len(report.Games)).
		Bool("canceled", report.Canceled).Dur("elapsed", report.Duration).Msg("refresh finished")

	if report.Saved() > 0 && w.opts.OnRefreshed != nil {
		w.opts.OnRefreshed(report)
	}
	return report
}

// refreshGame collects from the game's sources in trust order and persists the result
func (w *Worker) refreshGame(ctx context.Context, runID string, game lottery.GameDefinition, window source.Window) GameReport {
	var candidates []lottery.Candidate
	for _, src := range w.sources[game.ID] {
		if ctx.Err() != nil {
			break
		}
		candidates = append(candidates, src.Collect(ctx, game, window)...)
	}
	return w.Persist(ctx, runID, game, candidates)
}

// Persist normalizes candidates and replaces the game's history. A game with
// no valid draws keeps its previous document.
func (w *Worker) Persist(ctx context.Context, runID string, game lottery.GameDefinition, candidates []lottery.Candidate) GameReport {
	log := logger.ForGame(game.ID).WithField("run_id", runID)
	res := normalize.Normalize(candidates, game)
	report := GameReport{
		Game:       game.ID,
		Candidates: len(candidates),
		Discarded:  len(res.Discarded),
		Draws:      len(res.Draws),
	}
	for _, d := range res.Discarded {
		log.Debug().Str("reason", d.Message).Str("source", d.Source).Msg("candidate discarded")
	}

	if len(res.Draws) == 0 {
		log.Warn().Int("candidates", len(candidates)).Msg("no valid draws, keeping previous history")
		return report
	}

	h := lottery.NewGameHistory(game, res.Draws, w.now())
	name, data, err := w.deps.Store.Save(h)
	if err != nil {
		log.Error().Err(err).Msg("failed to save history")
		report.Error = err.Error()
		return report
	}
	report.Saved = true
	report.File = name
	log.Info().Int("draws", h.TotalDraws).Str("latest", h.Draws[0].Date).Str("file", name).Msg("history saved")

	w.publish(log, runID, h)

	if w.deps.Mirror != nil {
		if err := w.deps.Mirror.Put(ctx, name, data); err != nil {
			log.Error().Err(err).Msg("mirror upload failed")
		}
	}
	if w.deps.Archive != nil {
		if err := w.deps.Archive.Replace(ctx, h); err != nil {
			log.Error().Err(err).Msg("archive failed")
		}
	}
	return report
}

func (w *Worker) publish(log *logger.Logger, runID string, h *lottery.GameHistory) {
	if w.deps.Publisher == nil {
		return
	}
	event := publisher.HistoryEvent{
		RunID:       runID,
		Game:        h.Game,
		State:       h.State,
		TotalDraws:  h.TotalDraws,
		LatestDate:  h.Draws[0].Date,
		LastUpdated: h.LastUpdated,
	}
	payload, err := event.Encode()
	if err != nil {
		log.Error().Err(err).Msg("failed to encode event")
		return
	}
	if err := w.deps.Publisher.Publish(publisher.EventKey(h.Game), payload); err != nil {
		log.Error().Err(err).Msg("failed to publish event")
	}
}

// Start runs the pipeline immediately and then every Interval until ctx is
// done. Runs never overlap; a run still going when the next is due delays it.
func (w *Worker) Start(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(w.opts.Interval),
		gocron.NewTask(func() {
			w.RunOnce(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("scheduling refresh: %w", err)
	}

	s.Start()
	w.log.Info().Dur("interval", w.opts.Interval).Msg("refresh scheduler started")

	<-ctx.Done()
	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("stopping scheduler: %w", err)
	}
	w.log.Info().Msg("refresh scheduler stopped")
	return nil
}
