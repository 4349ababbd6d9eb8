package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/codeGROOVE-dev/rafflecord/internal/raffle"
)

// MemoryStore provides an in-memory implementation of Store, used in tests
// and for local runs without a document store.
type MemoryStore struct {
	raffles map[string]*raffle.GuildRaffle
	history map[string][]raffle.Summary // newest first
	mu      sync.Mutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		raffles: make(map[string]*raffle.GuildRaffle),
		history: make(map[string][]raffle.Summary),
	}
}

// Raffle returns a copy of the guild's state, or inactive defaults.
func (s *MemoryStore) Raffle(_ context.Context, guildID string) (*raffle.GuildRaffle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, exists := s.raffles[guildID]
	if !exists {
		return raffle.NewGuildRaffle(), nil
	}
	return g.Clone(), nil
}

// Save stores the state if the caller's version is still current.
func (s *MemoryStore) Save(_ context.Context, guildID string, g *raffle.GuildRaffle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, exists := s.raffles[guildID]; exists && current.Version != g.Version {
		return fmt.Errorf("version %d superseded by %d: %w", g.Version, current.Version, raffle.ErrConflict)
	}

	g.Version++
	s.raffles[guildID] = g.Clone()
	return nil
}

// AppendSummary prepends a completed run to the guild's history.
func (s *MemoryStore) AppendSummary(_ context.Context, guildID string, summary raffle.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := append([]raffle.Summary{summary}, s.history[guildID]...)
	if len(log) > maxHistory {
		log = log[:maxHistory]
	}
	s.history[guildID] = log
	return nil
}

// History returns up to n summaries, most recent first.
func (s *MemoryStore) History(_ context.Context, guildID string, n int) ([]raffle.Summary, error) {
	if n <= 0 {
		n = DefaultHistoryLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.history[guildID]
	if len(log) > n {
		log = log[:n]
	}
	return append([]raffle.Summary(nil), log...), nil
}

// Close closes the store (no-op for memory store).
func (*MemoryStore) Close() error {
	return nil
}
