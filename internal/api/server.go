package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sjsage522/lotteryworker/internal/lottery"
	"sjsage522/lotteryworker/internal/query"
	"sjsage522/lotteryworker/logger"
	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

const (
	Name    = "Lottery Results API"
	Version = "2.0.0"
)

// Server is the read-only HTTP shell over the query layer
type Server struct {
	source   query.SnapshotSource
	registry *lottery.Registry
	resolver *query.Resolver
	engine   *gin.Engine
	log      *logger.Logger
}

// NewServer builds the router. The registry may be nil.
func NewServer(source query.SnapshotSource, registry *lottery.Registry) *Server {
	s := &Server{
		source:   source,
		registry: registry,
		resolver: query.NewResolver(source, registry),
		engine:   gin.New(),
		log:      logger.ForAPI(),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), cors())

	s.engine.GET("/", s.root)
	api := s.engine.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/games", s.listGames)
		api.GET("/:state/:game", s.results)
	}
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info().Msg("HTTP server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":         Name,
		"version":      Version,
		"games_loaded": s.source.Snapshot().Games(),
		"endpoints": gin.H{
			"list_games":     "GET /api/games",
			"get_results":    "GET /api/{state}/{game}",
			"get_historical": "GET /api/{state}/{game}?date=YYYY-MM-DD",
			"health":         "GET /api/health",
		},
	})
}

func (s *Server) health(c *gin.Context) {
	snap := s.source.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"games_loaded": snap.Len(),
		"games":        snap.Games(),
		"loaded_at":    snap.LoadedAt(),
		"timestamp":    time.Now().UTC(),
	})
}

// GameSummary is one entry of the games listing
type GameSummary struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	State        string             `json:"state"`
	NumbersCount int                `json:"numbers_count"`
	DrawTimes    []lottery.DrawTime `json:"draw_times"`
	TotalDraws   int                `json:"total_draws"`
	LastUpdated  time.Time          `json:"last_updated"`
}

func (s *Server) listGames(c *gin.Context) {
	snap := s.source.Snapshot()
	games := make([]GameSummary, 0, snap.Len())
	for _, id := range snap.Games() {
		h, _ := snap.History(id)
		name := h.GameName
		if name == "" {
			name = id
		}
		games = append(games, GameSummary{
			ID:           id,
			Name:         name,
			State:        h.State,
			NumbersCount: h.NumbersCount,
			DrawTimes:    h.DrawTimes,
			TotalDraws:   h.TotalDraws,
			LastUpdated:  h.LastUpdated,
		})
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

func (s *Server) results(c *gin.Context) {
	state := strings.ToLower(c.Param("state"))
	supported := s.states()
	if !contains(supported, state) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "State not supported: " + c.Param("state"),
			"supported": supported,
		})
		return
	}

	date := c.Query("date")
	if date != "" {
		if err := query.ValidateDate(date); err != nil {
			s.fail(c, err)
			return
		}
	}
	drawTime, err := query.ValidateDrawTime(c.Query("draw_time"))
	if err != nil {
		s.fail(c, err)
		return
	}

	game := c.Param("game")
	if def, ok := s.lookup(game); ok && !strings.EqualFold(def.State, state) {
		s.fail(c, pkgerrors.NewGameNotFound(game, s.resolver.KnownGames()))
		return
	}

	result, err := s.resolver.Resolve(query.Request{Game: game, Date: date, DrawTime: drawTime})
	if err != nil {
		s.fail(c, err)
		return
	}
	if !strings.EqualFold(result.State, state) {
		s.fail(c, pkgerrors.NewGameNotFound(game, s.resolver.KnownGames()))
		return
	}
	c.JSON(http.StatusOK, result)
}

// lookup finds a game definition by registry or loaded history
func (s *Server) lookup(game string) (lottery.GameDefinition, bool) {
	id := lottery.NormalizeID(game)
	if s.registry != nil {
		if def, ok := s.registry.Lookup(id); ok {
			return def, true
		}
	}
	return lottery.GameDefinition{}, false
}

// states lists every state with a configured or loaded game, lowercased
func (s *Server) states() []string {
	set := make(map[string]bool)
	if s.registry != nil {
		for _, g := range s.registry.Games() {
			set[strings.ToLower(g.State)] = true
		}
	}
	snap := s.source.Snapshot()
	for _, id := range snap.Games() {
		h, _ := snap.History(id)
		if h.State != "" {
			set[strings.ToLower(h.State)] = true
		}
	}
	states := make([]string, 0, len(set))
	for st := range set {
		states = append(states, st)
	}
	sort.Strings(states)
	return states
}

// fail maps a query error to its status and recovery hints
func (s *Server) fail(c *gin.Context, err error) {
	le, ok := pkgerrors.As(err)
	if !ok || !le.IsUserVisible() {
		s.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unexpected query error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": le.Message}
	status := http.StatusNotFound
	switch le.Type {
	case pkgerrors.ErrorTypeInvalidInput:
		status = http.StatusBadRequest
	case pkgerrors.ErrorTypeGameNotFound:
		body["available_games"] = nonNil(le.Hints)
	case pkgerrors.ErrorTypeDateNotFound:
		body["closest_dates"] = nonNil(le.Hints)
	}
	c.JSON(status, body)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// cors allows any origin to read
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
