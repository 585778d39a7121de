package worker

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/lotteryworker/internal/lottery"
	"sjsage522/lotteryworker/internal/source"
	"sjsage522/lotteryworker/internal/store"
	"sjsage522/lotteryworker/services/mirror"
	"sjsage522/lotteryworker/services/publisher"
)

// MockCollector implements Collector for testing
type MockCollector struct {
	name       string
	candidates []lottery.Candidate
	mu         sync.Mutex
	calls      int
}

var _ Collector = (*MockCollector)(nil)

func (m *MockCollector) Name() string {
	return m.name
}

func (m *MockCollector) Collect(ctx context.Context, game lottery.GameDefinition, w source.Window) []lottery.Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.candidates
}

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu       sync.Mutex
	messages map[string][]byte
	trimmed  int
}

var _ publisher.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][]byte)}
}

func (m *MockPublisher) Publish(key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy the message to ensure thread safety
	messageCopy := make([]byte, len(message))
	copy(messageCopy, message)

	m.messages[key] = messageCopy
	return nil
}

func (m *MockPublisher) TrimStreams() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimmed++
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// MockMirror records uploads
type MockMirror struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

var _ mirror.Mirror = (*MockMirror)(nil)

func (m *MockMirror) Put(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[name] = data
	return nil
}

// MockArchive counts replaced histories
type MockArchive struct {
	mu    sync.Mutex
	games []string
}

func (m *MockArchive) Replace(ctx context.Context, h *lottery.GameHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games = append(m.games, h.Game)
	return nil
}

var (
	pick3 = lottery.GameDefinition{
		ID: "pick3", DisplayName: "Pick 3", State: "florida", NumbersCount: 3,
		DrawTimes: []lottery.DrawTime{lottery.Midday, lottery.Evening}, HasExtraBall: true, ExtraLabel: "fireball",
	}
	cash4life = lottery.GameDefinition{
		ID: "cash4life", DisplayName: "Cash4Life", State: "florida", NumbersCount: 5,
		DrawTimes: []lottery.DrawTime{lottery.Evening}, HasExtraBall: true, DistinctBalls: true,
	}
)

func newTestWorker(t *testing.T, sources map[string][]Collector, deps Deps, games ...lottery.GameDefinition) (*Worker, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	deps.Store = st
	w := NewWorker(games, sources, deps, Options{Concurrency: 2, HistoryMonths: 6})
	w.now = func() time.Time { return time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC) }
	return w, st
}

func TestWorkerRunOnce(t *testing.T) {
	primary := &MockCollector{name: "primary", candidates: []lottery.Candidate{
		{Date: "2024-02-09", DrawTime: lottery.Evening, Numbers: []string{"4", "5", "6"}, Extra: "1", Source: "primary"},
		{Date: "2024-02-09", DrawTime: lottery.Midday, Numbers: []string{"1", "2", "3"}, Extra: "7", Source: "primary"},
	}}
	fallback := &MockCollector{name: "fallback", candidates: []lottery.Candidate{
		{Date: "2024-02-09", DrawTime: lottery.Evening, Numbers: []string{"9", "9", "9"}, Source: "fallback"},
		{Date: "2024-02-08", DrawTime: lottery.Evening, Numbers: []string{"0", "1"}, Source: "fallback"},
	}}
	pub := NewMockPublisher()
	mir := &MockMirror{}
	arch := &MockArchive{}

	var refreshed []Report
	w, st := newTestWorker(t, map[string][]Collector{"pick3": {primary, fallback}},
		Deps{Publisher: pub, Mirror: mir, Archive: arch}, pick3)
	w.opts.OnRefreshed = func(r Report) { refreshed = append(refreshed, r) }

	report := w.RunOnce(context.Background())
	require.Len(t, report.Games, 1)
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.Canceled)

	g := report.Games[0]
	assert.True(t, g.Saved)
	assert.Equal(t, 4, g.Candidates)
	assert.Equal(t, 1, g.Discarded, "the two-number draw is discarded")
	assert.Equal(t, 2, g.Draws)
	assert.Equal(t, "florida_pick3.json", g.File)

	h, err := store.Load(filepath.Join(st.Dir(), g.File))
	require.NoError(t, err)
	require.Len(t, h.Draws, 2)
	assert.Equal(t, []string{"4", "5", "6"}, h.Draws[0].Numbers, "the first source wins the conflict")
	assert.Equal(t, lottery.Evening, h.Draws[0].DrawTime)
	assert.Equal(t, lottery.Midday, h.Draws[1].DrawTime)

	// Verify published event
	payload, ok := pub.messages[publisher.EventKey("pick3")]
	require.True(t, ok)
	var event publisher.HistoryEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, report.RunID, event.RunID)
	assert.Equal(t, 2, event.TotalDraws)
	assert.Equal(t, "2024-02-09", event.LatestDate)
	assert.Equal(t, 1, pub.trimmed)

	assert.Contains(t, mir.objects, "florida_pick3.json")
	assert.Equal(t, []string{"pick3"}, arch.games)
	require.Len(t, refreshed, 1)
	assert.Equal(t, 1, refreshed[0].Saved())
}

func TestWorkerKeepsHistoryWhenNothingValid(t *testing.T) {
	good := &MockCollector{name: "good", candidates: []lottery.Candidate{
		{Date: "2024-02-09", DrawTime: lottery.Evening, Numbers: []string{"7", "14", "21", "33", "45"}, Extra: "2"},
	}}
	w, st := newTestWorker(t, map[string][]Collector{"cash4life": {good}}, Deps{}, cash4life)

	report := w.RunOnce(context.Background())
	require.True(t, report.Games[0].Saved)
	path := filepath.Join(st.Dir(), report.Games[0].File)

	// A later run that finds nothing usable keeps the previous document
	good.candidates = []lottery.Candidate{{Date: "2024-02-10", DrawTime: lottery.Evening, Numbers: []string{"1"}}}
	var called bool
	w.opts.OnRefreshed = func(Report) { called = true }
	report = w.RunOnce(context.Background())
	assert.False(t, report.Games[0].Saved)
	assert.Equal(t, 0, report.Games[0].Draws)
	assert.False(t, called)

	h, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, h.TotalDraws)
	assert.Equal(t, "2024-02-09", h.Draws[0].Date)
}

func TestWorkerMirrorFailureDoesNotFailRefresh(t *testing.T) {
	c := &MockCollector{name: "c", candidates: []lottery.Candidate{
		{Date: "2024-02-09", Numbers: []string{"7", "14", "21", "33", "45"}, Extra: "2"},
	}}
	mir := &MockMirror{err: errors.New("bucket unavailable")}
	w, _ := newTestWorker(t, map[string][]Collector{"cash4life": {c}}, Deps{Mirror: mir}, cash4life)

	report := w.RunOnce(context.Background())
	require.Len(t, report.Games, 1)
	assert.True(t, report.Games[0].Saved)
	assert.Empty(t, report.Games[0].Error)
}

func TestWorkerRunsAllGames(t *testing.T) {
	p3 := &MockCollector{name: "p3", candidates: []lottery.Candidate{
		{Date: "2024-02-09", DrawTime: lottery.Evening, Numbers: []string{"4", "5", "6"}},
	}}
	c4l := &MockCollector{name: "c4l", candidates: []lottery.Candidate{
		{Date: "2024-02-09", Numbers: []string{"7", "14", "21", "33", "45"}, Extra: "2"},
	}}
	w, _ := newTestWorker(t, map[string][]Collector{"pick3": {p3}, "cash4life": {c4l}}, Deps{}, pick3, cash4life)

	report := w.RunOnce(context.Background())
	require.Len(t, report.Games, 2)
	assert.Equal(t, "pick3", report.Games[0].Game)
	assert.Equal(t, "cash4life", report.Games[1].Game)
	assert.Equal(t, 2, report.Saved())
	assert.Equal(t, 1, p3.calls)
	assert.Equal(t, 1, c4l.calls)
}

func TestWorkerRunOnceCanceled(t *testing.T) {
	c := &MockCollector{name: "c"}
	pub := NewMockPublisher()
	w, _ := newTestWorker(t, map[string][]Collector{"pick3": {c}}, Deps{Publisher: pub}, pick3, cash4life)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := w.RunOnce(ctx)
	assert.True(t, report.Canceled)
	assert.Empty(t, report.Games)
	assert.Equal(t, 0, c.calls)
}

func TestWorkerStartStopsOnCancel(t *testing.T) {
	c := &MockCollector{name: "c", candidates: []lottery.Candidate{
		{Date: "2024-02-09", Numbers: []string{"7", "14", "21", "33", "45"}, Extra: "2"},
	}}
	st := store.New(t.TempDir())
	runs := make(chan Report, 4)
	w := NewWorker([]lottery.GameDefinition{cash4life}, map[string][]Collector{"cash4life": {c}}, Deps{Store: st}, Options{
		Interval:    time.Hour,
		OnRefreshed: func(r Report) { runs <- r },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	select {
	case r := <-runs:
		assert.Equal(t, 1, r.Saved())
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run did not start immediately")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestBuildSources(t *testing.T) {
	reg := lottery.DefaultRegistry()
	sources, err := BuildSources(reg.Games(), source.Options{})
	require.NoError(t, err)
	for _, game := range reg.Games() {
		assert.Len(t, sources[game.ID], len(game.Sources), game.ID)
	}

	_, err = BuildSources([]lottery.GameDefinition{{
		ID: "bad", NumbersCount: 3, DrawTimes: []lottery.DrawTime{lottery.Evening},
		Sources: []lottery.SourceConfig{{Strategy: lottery.StrategyFixedFormat, URL: "https://example.com/x.pdf", Layout: "keno"}},
	}}, source.Options{})
	assert.Error(t, err)
}
