package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sjsage522/lotteryworker/internal/lottery"
	"sjsage522/lotteryworker/logger"
	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

// Store persists one JSON document per game under a directory
type Store struct {
	dir string
	log *logger.Logger
}

// New creates a store rooted at dir
func New(dir string) *Store {
	return &Store{dir: dir, log: logger.ForStore()}
}

// Dir returns the store's directory
func (s *Store) Dir() string {
	return s.dir
}

// FileName returns the document name for a game, {state}_{game}.json
func FileName(state, game string) string {
	if state == "" {
		state = "unknown"
	}
	return strings.ToLower(state) + "_" + game + ".json"
}

// Encode validates and serializes a history document
func Encode(h *lottery.GameHistory) ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, pkgerrors.NewValidation(h.Game, "refusing to persist invalid history: "+err.Error())
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return nil, pkgerrors.NewStorage(h.Game, "failed to encode history", err)
	}
	return append(data, '\n'), nil
}

// Save atomically replaces a game's document. The document is written to a
// temporary file in the same directory and renamed over the old one, so a
// reader sees either the previous or the new document. It returns the file
// name and the bytes written.
func (s *Store) Save(h *lottery.GameHistory) (string, []byte, error) {
	data, err := Encode(h)
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", nil, pkgerrors.NewStorage(s.dir, "failed to create data directory", err)
	}

	name := FileName(h.State, h.Game)
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return "", nil, pkgerrors.NewStorage(path, "failed to create temp file", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, pkgerrors.NewStorage(path, "failed to write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, pkgerrors.NewStorage(path, "failed to sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, pkgerrors.NewStorage(path, "failed to close temp file", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", nil, pkgerrors.NewStorage(path, "failed to set permissions", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return "", nil, pkgerrors.NewStorage(path, "failed to replace document", err)
	}

	s.log.Debug().Str("game", h.Game).Int("draws", h.TotalDraws).Str("path", path).Msg("history saved")
	return name, data, nil
}

// Load reads and validates one document
func Load(path string) (*lottery.GameHistory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.NewStorage(path, "failed to read document", err)
	}
	var h lottery.GameHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, pkgerrors.NewStorage(path, "failed to decode document", err)
	}
	if err := h.Validate(); err != nil {
		return nil, pkgerrors.NewStorage(path, "document violates history invariants", err)
	}
	return &h, nil
}

// LoadAll reads every document in the directory, keyed by game id. Unreadable
// or invalid documents are skipped with a warning. A missing directory is an
// empty store.
func (s *Store) LoadAll() (map[string]*lottery.GameHistory, error) {
	histories := make(map[string]*lottery.GameHistory)

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, pkgerrors.NewStorage(s.dir, "failed to list documents", err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		h, err := Load(path)
		if err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("skipping history document")
			continue
		}
		if _, dup := histories[h.Game]; dup {
			s.log.Warn().Str("game", h.Game).Str("path", path).Msg("duplicate history document, keeping the last one")
		}
		histories[h.Game] = h
	}
	return histories, nil
}

// Snapshot loads every document into a new immutable snapshot
func (s *Store) Snapshot() (*Snapshot, error) {
	histories, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	return NewSnapshot(histories), nil
}
