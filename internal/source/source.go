package source

import (
	"context"
	"fmt"
	"time"

	"sjsage522/lotteryworker/helpers"
	"sjsage522/lotteryworker/internal/extractor"
	"sjsage522/lotteryworker/internal/lottery"
	"sjsage522/lotteryworker/logger"
	pkgerrors "sjsage522/lotteryworker/pkg/errors"
	"sjsage522/lotteryworker/services/cache"
)

// memcache rejects items over 1MB
const maxCachedPage = 1000 * 1024

// FetchFunc retrieves one URL
type FetchFunc func(ctx context.Context, url string, opts helpers.FetchOptions) ([]byte, error)

// Options are the collaborators and limits shared by all sources of a run
type Options struct {
	// Cache holds rate-limit blocks and fetched pages; nil disables both
	Cache     cache.CacheService
	Fetch     FetchFunc
	Throttle  *Throttle
	Timeout   time.Duration
	BlockTime time.Duration
	PageTTL   time.Duration
}

// Source is one configured publisher page family for a game
type Source struct {
	config    lottery.SourceConfig
	extractor extractor.Extractor
	opts      Options
	log       *logger.Logger
}

// page is one URL to fetch and the date it stands for, if any
type page struct {
	url      string
	target   time.Time
	yearHint int
}

// New creates a source, building its extractor from the configuration
func New(cfg lottery.SourceConfig, opts Options) (*Source, error) {
	ex, err := extractor.New(cfg)
	if err != nil {
		return nil, pkgerrors.NewConfiguration(fmt.Sprintf("source %s", cfg.Name), err)
	}
	if opts.Fetch == nil {
		opts.Fetch = helpers.FetchWithRandomHeaders
	}
	name := cfg.Name
	if name == "" {
		name = cfg.URL
	}
	cfg.Name = name
	return &Source{
		config:    cfg,
		extractor: ex,
		opts:      opts,
		log:       logger.ForSource(name),
	}, nil
}

// Name returns the publisher name
func (s *Source) Name() string {
	return s.config.Name
}

// Collect gathers every candidate this source offers for the window. It
// never fails: unreachable pages and extraction misses yield no candidates
// and are logged. Only a canceled context stops it early.
func (s *Source) Collect(ctx context.Context, game lottery.GameDefinition, w Window) []lottery.Candidate {
	log := s.log.WithField("game", game.ID)
	var out []lottery.Candidate

	for _, p := range s.pages(w) {
		if ctx.Err() != nil {
			break
		}
		content, format, err := s.getPage(ctx, p.url)
		if err != nil {
			log.Warn().Err(err).Str("url", p.url).Msg("fetch failed, skipping page")
			continue
		}

		in := extractor.Input{Content: content, Format: format, Source: s.config.Name, Target: p.target, YearHint: p.yearHint}
		if s.anchored() && p.target.IsZero() {
			out = append(out, s.extractEachDay(in, game, w, log)...)
			continue
		}

		candidates, err := s.extractor.Extract(in, game)
		if err != nil {
			log.Debug().Err(err).Str("url", p.url).Msg("extraction miss")
			continue
		}
		out = append(out, candidates...)
	}

	var kept []lottery.Candidate
	for _, c := range out {
		if w.Contains(c.Date) {
			kept = append(kept, c)
		}
	}
	log.Info().Str("strategy", s.extractor.GetName()).Int("candidates", len(kept)).Msg("source collected")
	return kept
}

// extractEachDay runs an anchor search for every day of the window against
// one page, newest day first
func (s *Source) extractEachDay(in extractor.Input, game lottery.GameDefinition, w Window, log *logger.Logger) []lottery.Candidate {
	var out []lottery.Candidate
	misses := 0
	days := w.Days()
	seen := make(map[string]int, len(days))
	for _, day := range days {
		seen[day.Format("01-02")]++
	}
	for _, day := range days {
		in.Target = day
		in.YearHint = day.Year()
		in.RepeatedMonthDay = seen[day.Format("01-02")] > 1
		candidates, err := s.extractor.Extract(in, game)
		if err != nil {
			misses++
			continue
		}
		out = append(out, candidates...)
	}
	log.Debug().Int("found", len(out)).Int("misses", misses).Msg("anchor search finished")
	return out
}

func (s *Source) anchored() bool {
	return s.config.Strategy == lottery.StrategyAnchorProximity
}

// pages expands the URL template over the window
func (s *Source) pages(w Window) []page {
	tmpl := s.config.URL
	switch {
	case helpers.HasDatePlaceholder(tmpl):
		var pages []page
		for _, day := range w.Days() {
			pages = append(pages, page{url: helpers.ExpandURL(tmpl, day), target: day, yearHint: day.Year()})
		}
		return pages
	case helpers.HasPlaceholder(tmpl):
		var pages []page
		for _, year := range w.Years() {
			day := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			pages = append(pages, page{url: helpers.ExpandURL(tmpl, day), yearHint: year})
		}
		return pages
	}
	return []page{{url: tmpl, yearHint: w.To.Year()}}
}

// getPage fetches a page through the cache, honoring rate-limit blocks and
// the per-publisher delay. PDFs come back as plain text.
func (s *Source) getPage(ctx context.Context, url string) ([]byte, lottery.ContentFormat, error) {
	format := s.config.Format
	if format == "" {
		format = lottery.FormatHTML
	}
	if format == lottery.FormatPDF {
		format = lottery.FormatText
	}

	c := s.opts.Cache
	blockKey := cache.BlockKey(s.config.Name)
	pageKey := cache.PageKey(url)

	if c != nil {
		if _, err := c.Get(blockKey); err == nil {
			return nil, format, pkgerrors.NewRateLimit(s.config.Name, fmt.Sprintf("%ds", int(s.opts.BlockTime/time.Second)))
		}
		if data, err := c.Get(pageKey); err == nil {
			return data, format, nil
		}
	}

	if err := s.opts.Throttle.Wait(ctx, s.config.Name); err != nil {
		return nil, format, pkgerrors.NewFetch(url, "canceled", err)
	}

	data, err := s.opts.Fetch(ctx, url, helpers.FetchOptions{
		Timeout:   s.opts.Timeout,
		LegacyTLS: s.config.LegacyTLS,
		Binary:    s.config.Format == lottery.FormatPDF,
	})
	if err != nil {
		if c != nil && pkgerrors.Is(err, pkgerrors.ErrorTypeRateLimit) && s.opts.BlockTime > 0 {
			if serr := c.Set(blockKey, []byte(fmt.Sprintf("%d", int(s.opts.BlockTime/time.Second))), s.opts.BlockTime); serr != nil {
				s.log.Warn().Err(serr).Msg("failed to set rate limit block")
			}
		}
		return nil, format, err
	}

	if s.config.Format == lottery.FormatPDF {
		text, err := PDFText(data)
		if err != nil {
			return nil, format, pkgerrors.New(pkgerrors.ErrorTypeExtraction, url, "failed to read pdf", err)
		}
		data = []byte(text)
	}

	if c != nil && s.opts.PageTTL > 0 && len(data) <= maxCachedPage {
		if err := c.Set(pageKey, data, s.opts.PageTTL); err != nil {
			s.log.Debug().Err(err).Str("url", url).Msg("failed to cache page")
		}
	}
	return data, format, nil
}
