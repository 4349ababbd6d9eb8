package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"

	"github.com/codeGROOVE-dev/rafflecord/internal/format"
	"github.com/codeGROOVE-dev/rafflecord/internal/raffle"
)

const (
	updateAttempts = 3
	updateRetryMin = 50 * time.Millisecond
)

// Coordinator wires Discord interactions to the raffle engine for all
// guilds. The engine owns the rules; the coordinator owns persistence
// round-trips and the side effects around them (raffle posts, winner
// announcements).
type Coordinator struct {
	store       RaffleStore
	discord     DiscordClient
	redeemer    *raffle.Redeemer
	logger      *slog.Logger
	title       string
	description string
	now         func() time.Time

	mu             sync.Mutex
	rafflesStarted int64
	rafflesEnded   int64
	redemptions    int64
}

// CoordinatorConfig holds Coordinator dependencies.
type CoordinatorConfig struct {
	Store    RaffleStore
	Discord  DiscordClient
	Selector *raffle.Selector
	Logger   *slog.Logger

	// Defaults for the raffle post when start supplies none.
	DefaultTitle       string
	DefaultDescription string
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	selector := cfg.Selector
	if selector == nil {
		selector = raffle.NewSelector()
	}
	title := cfg.DefaultTitle
	if title == "" {
		title = format.DefaultTitle
	}
	description := cfg.DefaultDescription
	if description == "" {
		description = format.DefaultDescription
	}

	return &Coordinator{
		store:       cfg.Store,
		discord:     cfg.Discord,
		redeemer:    raffle.NewRedeemer(cfg.Store, selector),
		logger:      logger,
		title:       title,
		description: description,
		now:         time.Now,
	}
}

// update runs one load-mutate-save cycle, replaying from a fresh load when
// the save loses an optimistic-concurrency race. It returns the state as
// persisted.
func (c *Coordinator) update(ctx context.Context, guildID string, fn func(*raffle.GuildRaffle) error) (*raffle.GuildRaffle, error) {
	var out *raffle.GuildRaffle
	err := retry.Do(
		func() error {
			g, err := c.store.Raffle(ctx, guildID)
			if err != nil {
				return fmt.Errorf("%w: load raffle: %v", raffle.ErrPersistence, err)
			}
			if err := fn(g); err != nil {
				return err
			}
			if err := c.store.Save(ctx, guildID, g); err != nil {
				if errors.Is(err, raffle.ErrConflict) {
					return err
				}
				return fmt.Errorf("%w: save raffle: %v", raffle.ErrPersistence, err)
			}
			out = g
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(updateAttempts),
		retry.Delay(updateRetryMin),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, raffle.ErrConflict)
		}),
	)
	return out, err
}

// Start activates a new raffle run, publishes the raffle post to the channel
// the command came from, and records the post binding.
func (c *Coordinator) Start(ctx context.Context, guildID, channelID, prizeSpec, title, description string) error {
	prizes, err := raffle.ParsePrizeSpec(prizeSpec)
	if err != nil {
		return err
	}

	if title == "" {
		title = c.title
	}
	if description == "" {
		description = c.description
	}

	g, err := c.update(ctx, guildID, func(g *raffle.GuildRaffle) error {
		return g.Start(prizes, title, description)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.rafflesStarted++
	c.mu.Unlock()

	c.logger.Info("raffle started",
		"guild_id", guildID,
		"channel_id", channelID,
		"prizes", len(prizes))

	messageID, err := c.discord.PostRafflePost(ctx, channelID, title, description, format.Status(g))
	if err != nil {
		// The run is active either way; admins can still grant and redeem.
		c.logger.Error("failed to publish raffle post",
			"guild_id", guildID,
			"channel_id", channelID,
			"error", err)
		return nil
	}

	if _, err := c.update(ctx, guildID, func(g *raffle.GuildRaffle) error {
		g.BindMessage(channelID, messageID)
		return nil
	}); err != nil {
		c.logger.Warn("failed to record raffle post binding",
			"guild_id", guildID,
			"message_id", messageID,
			"error", err)
	}
	return nil
}

// End archives the current run into a summary and resets the raffle.
func (c *Coordinator) End(ctx context.Context, guildID string) (raffle.Summary, error) {
	var summary raffle.Summary
	if _, err := c.update(ctx, guildID, func(g *raffle.GuildRaffle) error {
		s, err := g.End(c.now())
		if err != nil {
			return err
		}
		summary = s
		return nil
	}); err != nil {
		return raffle.Summary{}, err
	}

	summary.ID = uuid.New().String()
	if err := c.store.AppendSummary(ctx, guildID, summary); err != nil {
		// The run is already reset; history is best-effort on top.
		c.logger.Error("failed to archive raffle summary",
			"guild_id", guildID,
			"summary_id", summary.ID,
			"error", err)
	}

	c.mu.Lock()
	c.rafflesEnded++
	c.mu.Unlock()

	c.logger.Info("raffle ended",
		"guild_id", guildID,
		"total_entries", summary.TotalEntries,
		"winners", len(summary.Winners))
	return summary, nil
}

// Entries returns the guild's current raffle state for display.
func (c *Coordinator) Entries(ctx context.Context, guildID string) (*raffle.GuildRaffle, error) {
	g, err := c.store.Raffle(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("%w: load raffle: %v", raffle.ErrPersistence, err)
	}
	return g, nil
}

// GrantTickets adds tickets to one user and returns their new balance.
func (c *Coordinator) GrantTickets(ctx context.Context, guildID, userID string, amount int) (int, error) {
	g, err := c.update(ctx, guildID, func(g *raffle.GuildRaffle) error {
		return g.GrantTickets(userID, amount)
	})
	if err != nil {
		return 0, err
	}

	c.logger.Info("tickets granted",
		"guild_id", guildID,
		"user_id", userID,
		"amount", amount,
		"balance", g.Tickets[userID])
	return g.Tickets[userID], nil
}

// GrantTicketsAll adds tickets to every non-bot member and returns how many
// members received them.
func (c *Coordinator) GrantTicketsAll(ctx context.Context, guildID string, amount int) (int, error) {
	members, err := c.discord.NonBotMemberIDs(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("%w: list members: %v", raffle.ErrPersistence, err)
	}

	if _, err := c.update(ctx, guildID, func(g *raffle.GuildRaffle) error {
		return g.GrantTicketsAll(members, amount)
	}); err != nil {
		return 0, err
	}

	c.logger.Info("tickets granted to everyone",
		"guild_id", guildID,
		"amount", amount,
		"members", len(members))
	return len(members), nil
}

// SetAnnounceChannel records where winner announcements go.
func (c *Coordinator) SetAnnounceChannel(ctx context.Context, guildID, channelID string) error {
	_, err := c.update(ctx, guildID, func(g *raffle.GuildRaffle) error {
		g.SetAnnounceChannel(channelID)
		return nil
	})
	return err
}

// SetMaxWins sets the per-user or per-prize win cap.
func (c *Coordinator) SetMaxWins(ctx context.Context, guildID string, kind raffle.LimitKind, amount int) error {
	_, err := c.update(ctx, guildID, func(g *raffle.GuildRaffle) error {
		return g.SetMaxWins(kind, amount)
	})
	return err
}

// Redeem runs one ticket redemption and, on a win, fires the announcement
// and refreshes the raffle post. Announcement and refresh are best-effort;
// the persisted win is what counts.
func (c *Coordinator) Redeem(ctx context.Context, guildID, userID, userTag string) (raffle.RedeemResult, error) {
	result, err := c.redeemer.Redeem(ctx, guildID, userID, userTag)
	if err != nil {
		return raffle.RedeemResult{}, err
	}

	c.mu.Lock()
	c.redemptions++
	c.mu.Unlock()

	c.logger.Info("ticket redeemed",
		"guild_id", guildID,
		"user_id", userID,
		"prize", result.Prize.Name,
		"tickets_left", result.RemainingTickets)

	g, err := c.store.Raffle(ctx, guildID)
	if err != nil {
		c.logger.Warn("failed to reload raffle after redemption",
			"guild_id", guildID,
			"error", err)
		return result, nil
	}

	c.announceWin(ctx, guildID, g, userTag, result)
	c.refreshRafflePost(ctx, guildID, g)
	return result, nil
}

func (c *Coordinator) announceWin(ctx context.Context, guildID string, g *raffle.GuildRaffle, userTag string, result raffle.RedeemResult) {
	if g.AnnounceChannelID != "" {
		if err := c.discord.AnnounceWin(ctx, g.AnnounceChannelID, userTag, result.Prize.Name, result.RemainingTickets); err != nil {
			c.logger.Warn("failed to announce winner",
				"guild_id", guildID,
				"channel_id", g.AnnounceChannelID,
				"error", err)
		}
		return
	}

	text := fmt.Sprintf("%s just won **%s** in the raffle! They have %d tickets left.",
		userTag, result.Prize.Name, result.RemainingTickets)
	if err := c.discord.OwnerDM(ctx, guildID, text); err != nil {
		c.logger.Warn("failed to DM guild owner about win",
			"guild_id", guildID,
			"error", err)
	}
}

func (c *Coordinator) refreshRafflePost(ctx context.Context, guildID string, g *raffle.GuildRaffle) {
	if g.ChannelID == "" || g.MessageID == "" {
		return
	}

	title := g.Title
	if title == "" {
		title = c.title
	}
	description := g.Description
	if description == "" {
		description = c.description
	}

	if err := c.discord.UpdateRafflePost(ctx, g.ChannelID, g.MessageID, title, description, format.Status(g)); err != nil {
		c.logger.Warn("failed to refresh raffle post",
			"guild_id", guildID,
			"message_id", g.MessageID,
			"error", err)
	}
}

// History returns up to n completed runs, most recent first.
func (c *Coordinator) History(ctx context.Context, guildID string, n int) ([]raffle.Summary, error) {
	summaries, err := c.store.History(ctx, guildID, n)
	if err != nil {
		return nil, fmt.Errorf("%w: load history: %v", raffle.ErrPersistence, err)
	}
	return summaries, nil
}

// Stats holds coordinator counters for the health surface.
type Stats struct {
	RafflesStarted int64
	RafflesEnded   int64
	Redemptions    int64
}

// Stats returns counters accumulated since start.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		RafflesStarted: c.rafflesStarted,
		RafflesEnded:   c.rafflesEnded,
		Redemptions:    c.redemptions,
	}
}
