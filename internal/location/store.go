package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Store holds the selected location in memory and mirrors every change to
// a Backend.
type Store struct {
	backend Backend
	log     zerolog.Logger

	mu  sync.RWMutex
	loc *Location
}

// NewStore returns an empty Store; call Load to read the persisted value.
func NewStore(backend Backend, log zerolog.Logger) *Store {
	return &Store{backend: backend, log: log}
}

// Load reads the persisted location. A missing, unreadable or corrupt value
// is logged and treated as no saved location.
func (s *Store) Load(ctx context.Context) *Location {
	var loaded *Location

	raw, err := s.backend.Get(ctx, Key)
	switch {
	case errors.Is(err, ErrKeyNotFound):
	case err != nil:
		s.log.Warn().Err(err).Msg("failed to load saved location")
	default:
		var loc Location
		if err := json.Unmarshal(raw, &loc); err != nil {
			s.log.Warn().Err(err).Msg("saved location is corrupt, ignoring it")
		} else {
			loaded = &loc
		}
	}

	s.mu.Lock()
	s.loc = loaded
	s.mu.Unlock()
	return loaded.clone()
}

// Get returns the selected location, or nil.
func (s *Store) Get() *Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loc.clone()
}

// Require returns the selected location or ErrNoLocation.
func (s *Store) Require() (*Location, error) {
	loc := s.Get()
	if loc == nil {
		return nil, ErrNoLocation
	}
	return loc, nil
}

// Set validates and selects loc, then persists it. The in-memory selection
// changes even if persisting fails; the error is returned so the caller can
// report it.
func (s *Store) Set(ctx context.Context, loc Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to encode location: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc = loc.clone()
	if err := s.backend.Set(ctx, Key, data); err != nil {
		s.log.Error().Err(err).Msg("failed to save location")
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

// Clear deselects the location and removes the persisted value.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc = nil
	if err := s.backend.Delete(ctx, Key); err != nil {
		s.log.Warn().Err(err).Msg("failed to remove saved location")
		return fmt.Errorf("failed to remove saved location: %w", err)
	}
	return nil
}
