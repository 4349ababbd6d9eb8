// Package discord provides Discord API client functionality.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codeGROOVE-dev/retry"

	"github.com/codeGROOVE-dev/rafflecord/internal/format"
)

// joinButtonID is the component ID on the raffle post's join button.
const joinButtonID = "raffle_join"

// memberPageSize is the Discord API maximum for one guild members page.
const memberPageSize = 1000

// Client wraps discordgo.Session with a clean interface for bot operations.
// One client serves every guild the bot is installed in.
type Client struct {
	session *discordgo.Session
}

// New creates a new Discord client.
func New(token string) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages

	session.AddHandler(func(s *discordgo.Session, _ *discordgo.Ready) {
		if err := s.UpdateWatchStatus(0, "for raffle tickets!"); err != nil {
			slog.Warn("failed to set presence", "error", err)
		}
	})

	return &Client{session: session}, nil
}

// retryableCtx wraps a function with standard retry configuration.
func retryableCtx(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
	)
}

// openTimeout is the maximum time to wait for Discord connection.
const openTimeout = 30 * time.Second

// Open opens the WebSocket connection to Discord with a timeout.
func (c *Client) Open() error {
	done := make(chan error, 1)
	go func() {
		done <- c.session.Open()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(openTimeout):
		// Try to close the session to clean up
		c.session.Close() //nolint:errcheck,gosec // best-effort close on timeout
		return errors.New("timeout waiting for Discord connection")
	}
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	return c.session.Close()
}

// Session returns the underlying discordgo session.
func (c *Client) Session() *discordgo.Session {
	return c.session
}

func raffleEmbed(title, description, status string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       format.ColorRaffle,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Raffle Status",
				Value: status,
			},
		},
	}
}

func joinButtonRow() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					CustomID: joinButtonID,
					Label:    format.JoinButtonLabel,
					Style:    discordgo.PrimaryButton,
				},
			},
		},
	}
}

// PostRafflePost publishes the raffle embed with its join button and returns
// the message ID.
func (c *Client) PostRafflePost(ctx context.Context, channelID, title, description, status string) (string, error) {
	var msg *discordgo.Message
	err := retryableCtx(ctx, func() error {
		var err error
		msg, err = c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{raffleEmbed(title, description, status)},
			Components: joinButtonRow(),
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to post raffle message: %w", err)
	}

	slog.Info("posted raffle message",
		"channel_id", channelID,
		"message_id", msg.ID,
		"title", title)

	return msg.ID, nil
}

// UpdateRafflePost re-renders an existing raffle post in place, keeping its
// join button.
func (c *Client) UpdateRafflePost(ctx context.Context, channelID, messageID, title, description, status string) error {
	embeds := []*discordgo.MessageEmbed{raffleEmbed(title, description, status)}
	components := joinButtonRow()

	err := retryableCtx(ctx, func() error {
		_, err := c.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         messageID,
			Channel:    channelID,
			Embeds:     &embeds,
			Components: &components,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update raffle message: %w", err)
	}

	slog.Debug("updated raffle message",
		"channel_id", channelID,
		"message_id", messageID)

	return nil
}

// AnnounceWin posts the public winner embed to a channel.
func (c *Client) AnnounceWin(ctx context.Context, channelID, userTag, prizeName string, ticketsLeft int) error {
	embed := &discordgo.MessageEmbed{
		Title:       "\U0001F3C6 Raffle Winner!", // 🏆
		Description: format.WinAnnouncement(userTag, prizeName),
		Color:       format.ColorWin,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Tickets left: %d", ticketsLeft),
		},
	}

	err := retryableCtx(ctx, func() error {
		_, err := c.session.ChannelMessageSendEmbed(channelID, embed)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to announce winner: %w", err)
	}

	slog.Info("announced winner",
		"channel_id", channelID,
		"user_tag", userTag,
		"prize", prizeName)

	return nil
}

// OwnerDM sends a direct message to the guild's owner.
func (c *Client) OwnerDM(ctx context.Context, guildID, text string) error {
	guild, err := c.session.Guild(guildID)
	if err != nil {
		return fmt.Errorf("failed to fetch guild: %w", err)
	}

	channel, err := c.session.UserChannelCreate(guild.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to create DM channel: %w", err)
	}

	err = retryableCtx(ctx, func() error {
		_, err := c.session.ChannelMessageSend(channel.ID, text)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to DM guild owner: %w", err)
	}

	slog.Info("sent DM to guild owner",
		"guild_id", guildID,
		"owner_id", guild.OwnerID)

	return nil
}

// NonBotMemberIDs lists every non-bot member in the guild, paging through the
// member list.
func (c *Client) NonBotMemberIDs(ctx context.Context, guildID string) ([]string, error) {
	var ids []string
	after := ""

	for {
		var page []*discordgo.Member
		err := retryableCtx(ctx, func() error {
			var err error
			page, err = c.session.GuildMembers(guildID, after, memberPageSize)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch guild members: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, member := range page {
			if member.User == nil || member.User.Bot {
				continue
			}
			ids = append(ids, member.User.ID)
		}

		after = page[len(page)-1].User.ID
		if len(page) < memberPageSize {
			break
		}
	}

	slog.Debug("fetched guild members",
		"guild_id", guildID,
		"non_bot_members", len(ids))

	return ids, nil
}
