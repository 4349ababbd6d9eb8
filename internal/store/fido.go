package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/fido"
	"github.com/codeGROOVE-dev/fido/pkg/store/cloudrun"

	"github.com/codeGROOVE-dev/rafflecord/internal/raffle"
)

const (
	// Raffle documents never expire on their own; a guild's limits and
	// announce channel survive indefinitely between runs.
	raffleTTL  = 365 * 24 * time.Hour
	historyTTL = 365 * 24 * time.Hour

	// maxHistory bounds the history log document.
	maxHistory = 50
)

// summaryLog stores a guild's run history in a single persisted value,
// newest first.
type summaryLog struct {
	Summaries []raffle.Summary `json:"summaries"`
}

// FidoStore implements Store using fido with the CloudRun backend.
//
// Requires these Datastore databases (must be created before use):
//   - rafflecord-raffles: per-guild raffle documents
//   - rafflecord-history: per-guild run history logs
type FidoStore struct {
	raffles *fido.TieredCache[string, raffle.GuildRaffle]
	history *fido.TieredCache[string, summaryLog]

	// Serializes load-check-write cycles within this process. Cross-instance
	// races still resolve through the version check on Save.
	mu sync.Mutex
}

// FidoStoreOption configures a FidoStore.
type FidoStoreOption func(*fidoStoreOptions)

type fidoStoreOptions struct {
	raffleStore  fido.Store[string, raffle.GuildRaffle]
	historyStore fido.Store[string, summaryLog]
}

// WithRaffleStore sets a custom backing store for raffle documents.
func WithRaffleStore(s fido.Store[string, raffle.GuildRaffle]) FidoStoreOption {
	return func(o *fidoStoreOptions) { o.raffleStore = s }
}

// WithHistoryStore sets a custom backing store for history logs.
func WithHistoryStore(s fido.Store[string, summaryLog]) FidoStoreOption {
	return func(o *fidoStoreOptions) { o.historyStore = s }
}

// NewFidoStore creates a fido-backed store. The CloudRun backend auto-detects
// its environment; use the With*Store options to inject backends for testing.
func NewFidoStore(ctx context.Context, opts ...FidoStoreOption) (*FidoStore, error) {
	var o fidoStoreOptions
	for _, opt := range opts {
		opt(&o)
	}

	raffleStore := o.raffleStore
	if raffleStore == nil {
		var err error
		raffleStore, err = cloudrun.New[string, raffle.GuildRaffle](ctx, "rafflecord-raffles")
		if err != nil {
			return nil, fmt.Errorf("create raffle store: %w", err)
		}
	}

	historyStore := o.historyStore
	if historyStore == nil {
		var err error
		historyStore, err = cloudrun.New[string, summaryLog](ctx, "rafflecord-history")
		if err != nil {
			return nil, fmt.Errorf("create history store: %w", err)
		}
	}

	raffles, err := fido.NewTiered(raffleStore, fido.TTL(raffleTTL))
	if err != nil {
		return nil, fmt.Errorf("create raffle cache: %w", err)
	}

	history, err := fido.NewTiered(historyStore, fido.TTL(historyTTL))
	if err != nil {
		return nil, fmt.Errorf("create history cache: %w", err)
	}

	slog.Info("initialized fido store")
	return &FidoStore{raffles: raffles, history: history}, nil
}

// Raffle loads a guild's raffle document.
func (s *FidoStore) Raffle(ctx context.Context, guildID string) (*raffle.GuildRaffle, error) {
	g, found, err := s.raffles.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load raffle: %w", err)
	}
	if !found {
		return raffle.NewGuildRaffle(), nil
	}
	// The in-memory tier shares the cached value; clone so callers never
	// alias the cached maps.
	return g.Clone(), nil
}

// Save writes a guild's raffle document back, rejecting stale versions.
func (s *FidoStore) Save(ctx context.Context, guildID string, g *raffle.GuildRaffle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, found, err := s.raffles.Get(ctx, guildID)
	if err != nil {
		return fmt.Errorf("load raffle for save: %w", err)
	}
	if found && current.Version != g.Version {
		return fmt.Errorf("version %d superseded by %d: %w", g.Version, current.Version, raffle.ErrConflict)
	}

	g.Version++
	if err := s.raffles.Set(ctx, guildID, *g.Clone()); err != nil {
		g.Version--
		return fmt.Errorf("save raffle: %w", err)
	}
	return nil
}

// AppendSummary prepends a completed run to the guild's history log.
func (s *FidoStore) AppendSummary(ctx context.Context, guildID string, summary raffle.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, _, err := s.history.Get(ctx, guildID)
	if err != nil {
		slog.Debug("history fetch error, starting fresh", "guild_id", guildID, "error", err)
	}

	log.Summaries = append([]raffle.Summary{summary}, log.Summaries...)
	if len(log.Summaries) > maxHistory {
		log.Summaries = log.Summaries[:maxHistory]
	}

	if err := s.history.Set(ctx, guildID, log); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// History returns up to n summaries, most recent first.
func (s *FidoStore) History(ctx context.Context, guildID string, n int) ([]raffle.Summary, error) {
	if n <= 0 {
		n = DefaultHistoryLimit
	}

	log, found, err := s.history.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !found || len(log.Summaries) == 0 {
		return nil, nil
	}

	if len(log.Summaries) > n {
		return log.Summaries[:n], nil
	}
	return log.Summaries, nil
}

// Close releases resources.
func (s *FidoStore) Close() error {
	var errs []error

	if err := s.raffles.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close raffles: %w", err))
	}
	if err := s.history.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close history: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
