// Package store persists per-guild raffle state and run history to a remote
// document store.
package store

import (
	"context"

	"github.com/codeGROOVE-dev/rafflecord/internal/raffle"
)

// DefaultHistoryLimit is how many past runs the read path returns when the
// caller doesn't say.
const DefaultHistoryLimit = 5

// Store provides raffle persistence. One raffle document and one history log
// per guild; no transactional guarantees across the two.
type Store interface {
	// Raffle loads a guild's state, returning inactive defaults for guilds
	// that have never run a raffle.
	Raffle(ctx context.Context, guildID string) (*raffle.GuildRaffle, error)

	// Save writes state back using compare-and-swap on GuildRaffle.Version:
	// a save whose version no longer matches the persisted document fails
	// with raffle.ErrConflict and must be retried from a fresh load. On
	// success the version is advanced.
	Save(ctx context.Context, guildID string, g *raffle.GuildRaffle) error

	// AppendSummary records a completed run. Append-only.
	AppendSummary(ctx context.Context, guildID string, s raffle.Summary) error

	// History returns up to n summaries, most recent first.
	History(ctx context.Context, guildID string, n int) ([]raffle.Summary, error)

	// Close releases resources.
	Close() error
}
