package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/codeGROOVE-dev/rafflecord/internal/format"
	"github.com/codeGROOVE-dev/rafflecord/internal/raffle"
)

// RaffleService is the raffle surface the interaction handler drives.
type RaffleService interface {
	Start(ctx context.Context, guildID, channelID, prizeSpec, title, description string) error
	End(ctx context.Context, guildID string) (raffle.Summary, error)
	Entries(ctx context.Context, guildID string) (*raffle.GuildRaffle, error)
	GrantTickets(ctx context.Context, guildID, userID string, amount int) (int, error)
	GrantTicketsAll(ctx context.Context, guildID string, amount int) (int, error)
	SetAnnounceChannel(ctx context.Context, guildID, channelID string) error
	SetMaxWins(ctx context.Context, guildID string, kind raffle.LimitKind, amount int) error
	Redeem(ctx context.Context, guildID, userID, userTag string) (raffle.RedeemResult, error)
	History(ctx context.Context, guildID string, n int) ([]raffle.Summary, error)
}

// interactionTimeout bounds the work behind a deferred interaction reply.
const interactionTimeout = 30 * time.Second

// InteractionHandler routes slash commands and the join button to the raffle
// service.
type InteractionHandler struct {
	session      *discordgo.Session
	service      RaffleService
	logger       *slog.Logger
	historyLimit int
}

// NewInteractionHandler creates an interaction handler.
func NewInteractionHandler(session *discordgo.Session, service RaffleService, historyLimit int, logger *slog.Logger) *InteractionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if historyLimit <= 0 {
		historyLimit = 5
	}

	return &InteractionHandler{
		session:      session,
		service:      service,
		logger:       logger,
		historyLimit: historyLimit,
	}
}

// SetupHandler sets up the interaction handler.
func (h *InteractionHandler) SetupHandler() {
	h.session.AddHandler(h.handleInteraction)
}

// RegisterCommands registers the slash commands with Discord. An empty
// guildID registers them globally.
func (h *InteractionHandler) RegisterCommands(guildID string) error {
	minAmount := float64(1)
	minLimit := float64(0)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "raffle",
			Description: "Raffle commands for Daily raffle bot",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "start",
					Description: "Start a new raffle and define prizes (e.g., 'Nitro:10, Gift Card:5')",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "prizes",
							Description: "Comma-separated list of 'Prize Name:Chance', e.g., 'Nitro:10, Gift Card:5'",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "description",
							Description: "Custom description for the raffle embed",
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "title",
							Description: "Custom title for the raffle embed",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "end",
					Description: "End the current raffle and clear all data",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "entries",
					Description: "See all raffle entries and their current ticket counts",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add-tickets",
					Description: "Add raffle tickets to a user or everyone",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "The number of tickets to add",
							Required:    true,
							MinValue:    &minAmount,
						},
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "The user to give tickets to (leave empty for everyone)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set-winner-channel",
					Description: "Sets the channel where raffle winners will be announced publicly.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "The channel to send winner announcements to.",
							Required:    true,
							ChannelTypes: []discordgo.ChannelType{
								discordgo.ChannelTypeGuildText,
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set-max-wins",
					Description: "Sets maximum wins per user or per prize type (0 for no limit).",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "type",
							Description: "Set limit for 'user' or 'prize'.",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "user", Value: "user"},
								{Name: "prize", Value: "prize"},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "The maximum number of wins (0 for no limit).",
							Required:    true,
							MinValue:    &minLimit,
						},
					},
				},
			},
		},
		{
			Name:        "raffle-history",
			Description: "Shows the history of past raffles.",
		},
	}

	for _, cmd := range commands {
		_, err := h.session.ApplicationCommandCreate(h.session.State.User.ID, guildID, cmd)
		if err != nil {
			return fmt.Errorf("create command %s: %w", cmd.Name, err)
		}
		h.logger.Info("registered slash command",
			"command", cmd.Name,
			"guild_id", guildID)
	}

	return nil
}

// RemoveCommands removes all registered commands for a guild.
func (h *InteractionHandler) RemoveCommands(guildID string) error {
	commands, err := h.session.ApplicationCommands(h.session.State.User.ID, guildID)
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}

	for _, cmd := range commands {
		if err := h.session.ApplicationCommandDelete(h.session.State.User.ID, guildID, cmd.ID); err != nil {
			h.logger.Warn("failed to delete command",
				"command", cmd.Name,
				"error", err)
		}
	}

	return nil
}

func (h *InteractionHandler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		switch data.Name {
		case "raffle":
			h.handleRaffleCommand(s, i, data)
		case "raffle-history":
			h.deferThen(s, i, h.handleHistory)
		}
	case discordgo.InteractionMessageComponent:
		if i.MessageComponentData().CustomID == joinButtonID {
			h.deferThen(s, i, h.handleJoinButton)
		}
	default:
	}
}

func (h *InteractionHandler) handleRaffleCommand(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	data discordgo.ApplicationCommandInteractionData,
) {
	if len(data.Options) == 0 {
		h.respondError(s, i, "Please specify a raffle subcommand.")
		return
	}

	sub := data.Options[0]

	// Only entries is open to everyone; the rest mutate raffle state.
	if sub.Name != "entries" && !isAdmin(i) {
		h.respond(s, i, "\U0001F6AB Only administrators can use this command.", nil)
		return
	}

	switch sub.Name {
	case "start":
		h.deferThen(s, i, func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
			h.handleStart(ctx, s, i, sub)
		})
	case "end":
		h.deferThen(s, i, h.handleEnd)
	case "entries":
		h.deferThen(s, i, h.handleEntries)
	case "add-tickets":
		h.deferThen(s, i, func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
			h.handleAddTickets(ctx, s, i, sub)
		})
	case "set-winner-channel":
		h.deferThen(s, i, func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
			h.handleSetWinnerChannel(ctx, s, i, sub)
		})
	case "set-max-wins":
		h.deferThen(s, i, func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
			h.handleSetMaxWins(ctx, s, i, sub)
		})
	default:
		h.respondError(s, i, "Unknown raffle subcommand.")
	}
}

// deferThen acknowledges the interaction ephemerally, then runs the handler
// which edits the deferred reply.
func (h *InteractionHandler) deferThen(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	fn func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate),
) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.logger.Error("failed to defer response", "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()
		fn(ctx, s, i)
	}()
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func optionString(sub *discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range sub.Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

func optionInt(sub *discordgo.ApplicationCommandInteractionDataOption, name string) (int, bool) {
	for _, opt := range sub.Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionInteger {
			return int(opt.IntValue()), true
		}
	}
	return 0, false
}

func (h *InteractionHandler) handleStart(
	ctx context.Context,
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	sub *discordgo.ApplicationCommandInteractionDataOption,
) {
	prizeSpec := optionString(sub, "prizes")
	title := optionString(sub, "title")
	description := optionString(sub, "description")

	err := h.service.Start(ctx, i.GuildID, i.ChannelID, prizeSpec, title, description)
	switch {
	case err == nil:
		h.editResponse(s, i, "✅ Raffle started successfully!", nil)
	case errors.Is(err, raffle.ErrValidation):
		h.editResponse(s, i, "\U0001F6AB Prizes must be provided in 'Name:Chance' format (e.g., 'Nitro:10, Gift Card:5').", nil)
	case errors.Is(err, raffle.ErrState):
		h.editResponse(s, i, "A raffle is already active!", nil)
	default:
		h.logger.Error("failed to start raffle", "guild_id", i.GuildID, "error", err)
		h.editResponse(s, i, failureMessage, nil)
	}
}

func (h *InteractionHandler) handleEnd(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	_, err := h.service.End(ctx, i.GuildID)
	switch {
	case err == nil:
		h.editResponse(s, i, "✅ Raffle ended and all data cleared. History saved!", nil)
	case errors.Is(err, raffle.ErrState):
		h.editResponse(s, i, "⛔ No raffle is currently active.", nil)
	default:
		h.logger.Error("failed to end raffle", "guild_id", i.GuildID, "error", err)
		h.editResponse(s, i, failureMessage, nil)
	}
}

func (h *InteractionHandler) handleEntries(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	g, err := h.service.Entries(ctx, i.GuildID)
	if err != nil {
		h.logger.Error("failed to load raffle entries", "guild_id", i.GuildID, "error", err)
		h.editResponse(s, i, failureMessage, nil)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "\U0001F3AF Raffle Status & Entries", // 🎯
		Description: format.Status(g),
		Color:       format.ColorStatus,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	h.editResponse(s, i, "", embed)
}

func (h *InteractionHandler) handleAddTickets(
	ctx context.Context,
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	sub *discordgo.ApplicationCommandInteractionDataOption,
) {
	amount, _ := optionInt(sub, "amount")
	if amount <= 0 {
		h.editResponse(s, i, "Amount must be a positive number.", nil)
		return
	}

	var targetID, targetTag string
	for _, opt := range sub.Options {
		if opt.Name == "user" && opt.Type == discordgo.ApplicationCommandOptionUser {
			user := opt.UserValue(s)
			if user != nil {
				targetID = user.ID
				targetTag = user.Username
			}
		}
	}

	if targetID != "" {
		balance, err := h.service.GrantTickets(ctx, i.GuildID, targetID, amount)
		switch {
		case err == nil:
			h.editResponse(s, i, fmt.Sprintf("✅ Added %d tickets to %s. They now have %d tickets.", amount, targetTag, balance), nil)
		case errors.Is(err, raffle.ErrInactive):
			h.editResponse(s, i, "No raffle is currently active!", nil)
		default:
			h.logger.Error("failed to add tickets", "guild_id", i.GuildID, "user_id", targetID, "error", err)
			h.editResponse(s, i, failureMessage, nil)
		}
		return
	}

	_, err := h.service.GrantTicketsAll(ctx, i.GuildID, amount)
	switch {
	case err == nil:
		h.editResponse(s, i, fmt.Sprintf("✅ Added %d tickets to all non-bot members.", amount), nil)
	case errors.Is(err, raffle.ErrInactive):
		h.editResponse(s, i, "No raffle is currently active!", nil)
	default:
		h.logger.Error("failed to add tickets to everyone", "guild_id", i.GuildID, "error", err)
		h.editResponse(s, i, failureMessage, nil)
	}
}

func (h *InteractionHandler) handleSetWinnerChannel(
	ctx context.Context,
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	sub *discordgo.ApplicationCommandInteractionDataOption,
) {
	var channelID string
	for _, opt := range sub.Options {
		if opt.Name == "channel" && opt.Type == discordgo.ApplicationCommandOptionChannel {
			channel := opt.ChannelValue(s)
			if channel != nil && channel.Type == discordgo.ChannelTypeGuildText {
				channelID = channel.ID
			}
		}
	}
	if channelID == "" {
		h.editResponse(s, i, "\U0001F6AB Please select a valid text channel.", nil)
		return
	}

	if err := h.service.SetAnnounceChannel(ctx, i.GuildID, channelID); err != nil {
		h.logger.Error("failed to set winner channel", "guild_id", i.GuildID, "error", err)
		h.editResponse(s, i, failureMessage, nil)
		return
	}
	h.editResponse(s, i, fmt.Sprintf("✅ Winner announcements will now be sent to <#%s>.", channelID), nil)
}

func (h *InteractionHandler) handleSetMaxWins(
	ctx context.Context,
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	sub *discordgo.ApplicationCommandInteractionDataOption,
) {
	limitType := optionString(sub, "type")
	amount, _ := optionInt(sub, "amount")

	var kind raffle.LimitKind
	switch limitType {
	case "user":
		kind = raffle.LimitUser
	case "prize":
		kind = raffle.LimitPrize
	default:
		h.editResponse(s, i, "Limit type must be 'user' or 'prize'.", nil)
		return
	}

	if err := h.service.SetMaxWins(ctx, i.GuildID, kind, amount); err != nil {
		if errors.Is(err, raffle.ErrValidation) {
			h.editResponse(s, i, "Amount must be 0 or greater.", nil)
			return
		}
		h.logger.Error("failed to set max wins", "guild_id", i.GuildID, "type", limitType, "error", err)
		h.editResponse(s, i, failureMessage, nil)
		return
	}

	label := "no limit"
	if amount > 0 {
		label = fmt.Sprintf("%d", amount)
	}
	if kind == raffle.LimitUser {
		h.editResponse(s, i, fmt.Sprintf("✅ Maximum wins per user set to %s.", label), nil)
		return
	}
	h.editResponse(s, i, fmt.Sprintf("✅ Maximum wins per prize type set to %s.", label), nil)
}

func (h *InteractionHandler) handleHistory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	summaries, err := h.service.History(ctx, i.GuildID, h.historyLimit)
	if err != nil {
		h.logger.Error("failed to load raffle history", "guild_id", i.GuildID, "error", err)
		h.editResponse(s, i, failureMessage, nil)
		return
	}

	if len(summaries) == 0 {
		h.editResponse(s, i, "\U0001F4DC No raffle history available yet.", nil)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:     "\U0001F4DC Raffle History", // 📜
		Color:     format.ColorHistory,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	for idx, summary := range summaries {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Raffle %d - Ended: %s", len(summaries)-idx, summary.Timestamp.Format("1/2/2006, 3:04:05 PM")),
			Value: format.HistoryEntry(summary),
		})
	}
	h.editResponse(s, i, "", embed)
}

func (h *InteractionHandler) handleJoinButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, userTag := interactionUser(i)
	if userID == "" {
		h.editResponse(s, i, failureMessage, nil)
		return
	}

	result, err := h.service.Redeem(ctx, i.GuildID, userID, userTag)
	if err != nil {
		h.editResponse(s, i, h.redeemMessage(ctx, i.GuildID, err), nil)
		return
	}

	h.editResponse(s, i, fmt.Sprintf("\U0001F389 You won **%s**! You have %d tickets left.", result.Prize.Name, result.RemainingTickets), nil)
}

// failureMessage is the generic reply when an operation fails for reasons the
// user cannot act on.
const failureMessage = "There was an error while executing this command! Please try again later."

// redeemMessage maps a redemption failure to the reply the user sees.
func (h *InteractionHandler) redeemMessage(ctx context.Context, guildID string, err error) string {
	switch {
	case errors.Is(err, raffle.ErrInactive):
		return "No raffle is active!"
	case errors.Is(err, raffle.ErrNoTickets):
		return "You don't have any raffle tickets!"
	case errors.Is(err, raffle.ErrUserLimit):
		if g, lerr := h.service.Entries(ctx, guildID); lerr == nil {
			return fmt.Sprintf("You have reached the maximum of %d wins in this raffle!", g.MaxWinsPerUser)
		}
		return "You have reached the maximum number of wins in this raffle!"
	case errors.Is(err, raffle.ErrNoPrizes):
		return "No prizes configured or invalid prize data!"
	case errors.Is(err, raffle.ErrAllPrizesExhausted):
		return "All available prizes have reached their maximum win limit! No prize for you this time."
	case errors.Is(err, raffle.ErrConflict):
		return "The raffle is busy right now, please try again."
	default:
		h.logger.Error("redemption failed", "guild_id", guildID, "error", err)
		return failureMessage
	}
}

func interactionUser(i *discordgo.InteractionCreate) (userID, userTag string) {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID, i.Member.User.Username
	}
	if i.User != nil {
		return i.User.ID, i.User.Username
	}
	return "", ""
}

func (h *InteractionHandler) respond(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	content string,
	embed *discordgo.MessageEmbed,
) {
	var embeds []*discordgo.MessageEmbed
	if embed != nil {
		embeds = []*discordgo.MessageEmbed{embed}
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Embeds:  embeds,
			Flags:   discordgo.MessageFlagsEphemeral, // Only visible to the user
		},
	})
	if err != nil {
		h.logger.Error("failed to respond to interaction", "error", err)
	}
}

func (h *InteractionHandler) editResponse(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	content string,
	embed *discordgo.MessageEmbed,
) {
	var embeds []*discordgo.MessageEmbed
	if embed != nil {
		embeds = []*discordgo.MessageEmbed{embed}
	}

	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
		Embeds:  &embeds,
	})
	if err != nil {
		h.logger.Error("failed to edit response", "error", err)
	}
}

func (h *InteractionHandler) respondError(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	message string,
) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("Error: %s", message),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.logger.Error("failed to respond with error", "error", err)
	}
}
