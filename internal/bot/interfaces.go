// Package bot coordinates raffle operations between Discord interactions,
// the raffle engine, and the store.
package bot

import (
	"context"

	"github.com/codeGROOVE-dev/rafflecord/internal/raffle"
)

// DiscordClient defines the Discord operations the coordinator needs.
type DiscordClient interface {
	// PostRafflePost publishes the raffle embed with its join button and
	// returns the new message's ID.
	PostRafflePost(ctx context.Context, channelID, title, description, status string) (messageID string, err error)

	// UpdateRafflePost re-renders an existing raffle post in place.
	UpdateRafflePost(ctx context.Context, channelID, messageID, title, description, status string) error

	// AnnounceWin posts the public winner embed to a channel.
	AnnounceWin(ctx context.Context, channelID, userTag, prizeName string, ticketsLeft int) error

	// OwnerDM messages the guild owner directly, the fallback when no
	// announce channel is configured.
	OwnerDM(ctx context.Context, guildID, text string) error

	// NonBotMemberIDs lists the guild's non-bot member IDs, the eligible
	// targets for an everyone ticket grant.
	NonBotMemberIDs(ctx context.Context, guildID string) ([]string, error)
}

// RaffleStore defines the persistence operations the coordinator needs.
type RaffleStore interface {
	Raffle(ctx context.Context, guildID string) (*raffle.GuildRaffle, error)
	Save(ctx context.Context, guildID string, g *raffle.GuildRaffle) error
	AppendSummary(ctx context.Context, guildID string, s raffle.Summary) error
	History(ctx context.Context, guildID string, n int) ([]raffle.Summary, error)
}
