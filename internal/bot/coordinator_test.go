package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/codeGROOVE-dev/rafflecord/internal/format"
	"github.com/codeGROOVE-dev/rafflecord/internal/raffle"
	"github.com/codeGROOVE-dev/rafflecord/internal/store"
)

func newTestCoordinator(discord *mockDiscord) (*Coordinator, *store.MemoryStore) {
	s := store.NewMemoryStore()
	c := NewCoordinator(CoordinatorConfig{
		Store:    s,
		Discord:  discord,
		Selector: raffle.NewSeededSelector(1),
	})
	return c, s
}

func TestCoordinator_Start(t *testing.T) {
	discord := &mockDiscord{}
	c, s := newTestCoordinator(discord)
	ctx := context.Background()

	if err := c.Start(ctx, "guild1", "chan1", "Nitro:10, Gift Card:5", "", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if len(discord.posts) != 1 {
		t.Fatalf("posted %d raffle messages, want 1", len(discord.posts))
	}
	if discord.posts[0].channelID != "chan1" {
		t.Errorf("posted to %q, want chan1", discord.posts[0].channelID)
	}
	if discord.posts[0].title != format.DefaultTitle {
		t.Errorf("posted title %q, want the default", discord.posts[0].title)
	}

	g, err := s.Raffle(ctx, "guild1")
	if err != nil {
		t.Fatalf("Raffle() error = %v", err)
	}
	if !g.Active {
		t.Error("raffle should be active after Start()")
	}
	if g.ChannelID != "chan1" || g.MessageID != "msg1" {
		t.Errorf("message binding = (%q, %q), want (chan1, msg1)", g.ChannelID, g.MessageID)
	}
	if len(g.Prizes) != 2 {
		t.Errorf("prize table has %d entries, want 2", len(g.Prizes))
	}
}

func TestCoordinator_StartCustomTitle(t *testing.T) {
	discord := &mockDiscord{}
	c, s := newTestCoordinator(discord)
	ctx := context.Background()

	if err := c.Start(ctx, "guild1", "chan1", "Nitro:10", "Big Giveaway", "Good luck!"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if discord.posts[0].title != "Big Giveaway" {
		t.Errorf("posted title %q, want Big Giveaway", discord.posts[0].title)
	}
	g, _ := s.Raffle(ctx, "guild1")
	if g.Title != "Big Giveaway" || g.Description != "Good luck!" {
		t.Errorf("persisted presentation = (%q, %q)", g.Title, g.Description)
	}
}

func TestCoordinator_StartInvalidPrizes(t *testing.T) {
	c, s := newTestCoordinator(&mockDiscord{})
	ctx := context.Background()

	err := c.Start(ctx, "guild1", "chan1", "Nitro:10, Bad", "", "")
	if !errors.Is(err, raffle.ErrValidation) {
		t.Fatalf("Start() error = %v, want ErrValidation", err)
	}

	g, _ := s.Raffle(ctx, "guild1")
	if g.Active {
		t.Error("raffle should not activate on invalid prize spec")
	}
}

func TestCoordinator_StartPostFailureKeepsRunActive(t *testing.T) {
	discord := &mockDiscord{postErr: errors.New("channel gone")}
	c, s := newTestCoordinator(discord)
	ctx := context.Background()

	if err := c.Start(ctx, "guild1", "chan1", "Nitro:10", "", ""); err != nil {
		t.Fatalf("Start() error = %v, the run should survive a post failure", err)
	}

	g, _ := s.Raffle(ctx, "guild1")
	if !g.Active {
		t.Error("raffle should stay active when the post fails")
	}
	if g.MessageID != "" {
		t.Errorf("MessageID = %q, want empty", g.MessageID)
	}
}

func TestCoordinator_End(t *testing.T) {
	c, s := newTestCoordinator(&mockDiscord{})
	ctx := context.Background()

	if err := c.Start(ctx, "guild1", "chan1", "Nitro:10", "", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := c.GrantTickets(ctx, "guild1", "user1", 4); err != nil {
		t.Fatalf("GrantTickets() error = %v", err)
	}

	summary, err := c.End(ctx, "guild1")
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if summary.ID == "" {
		t.Error("summary should get an ID")
	}
	if summary.TotalEntries != 4 {
		t.Errorf("summary.TotalEntries = %d, want 4", summary.TotalEntries)
	}

	history, err := s.History(ctx, "guild1", 5)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].ID != summary.ID {
		t.Errorf("history = %v, want the ended run", history)
	}

	g, _ := s.Raffle(ctx, "guild1")
	if g.Active {
		t.Error("raffle should be inactive after End()")
	}
}

func TestCoordinator_EndInactive(t *testing.T) {
	c, _ := newTestCoordinator(&mockDiscord{})

	if _, err := c.End(context.Background(), "guild1"); !errors.Is(err, raffle.ErrState) {
		t.Errorf("End() error = %v, want ErrState", err)
	}
}

func TestCoordinator_GrantTickets(t *testing.T) {
	c, _ := newTestCoordinator(&mockDiscord{})
	ctx := context.Background()

	if err := c.Start(ctx, "guild1", "chan1", "Nitro:10", "", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	balance, err := c.GrantTickets(ctx, "guild1", "user1", 3)
	if err != nil {
		t.Fatalf("GrantTickets() error = %v", err)
	}
	if balance != 3 {
		t.Errorf("balance = %d, want 3", balance)
	}

	balance, err = c.GrantTickets(ctx, "guild1", "user1", 2)
	if err != nil {
		t.Fatalf("GrantTickets() error = %v", err)
	}
	if balance != 5 {
		t.Errorf("balance = %d, want 5", balance)
	}
}

func TestCoordinator_GrantTicketsAll(t *testing.T) {
	discord := &mockDiscord{members: []string{"user1", "user2", "user3"}}
	c, s := newTestCoordinator(discord)
	ctx := context.Background()

	if err := c.Start(ctx, "guild1", "chan1", "Nitro:10", "", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	count, err := c.GrantTicketsAll(ctx, "guild1", 2)
	if err != nil {
		t.Fatalf("GrantTicketsAll() error = %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	g, _ := s.Raffle(ctx, "guild1")
	if g.TotalTickets() != 6 {
		t.Errorf("TotalTickets() = %d, want 6", g.TotalTickets())
	}
}

func TestCoordinator_RedeemAnnouncesAndRefreshes(t *testing.T) {
	discord := &mockDiscord{}
	c, _ := newTestCoordinator(discord)
	ctx := context.Background()

	if err := c.SetAnnounceChannel(ctx, "guild1", "winners"); err != nil {
		t.Fatalf("SetAnnounceChannel() error = %v", err)
	}
	if err := c.Start(ctx, "guild1", "chan1", "Nitro:10", "", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := c.GrantTickets(ctx, "guild1", "user1", 2); err != nil {
		t.Fatalf("GrantTickets() error = %v", err)
	}

	result, err := c.Redeem(ctx, "guild1", "user1", "user1#0")
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if result.Prize.Name != "Nitro" {
		t.Errorf("result.Prize = %q, want Nitro", result.Prize.Name)
	}

	if len(discord.wins) != 1 {
		t.Fatalf("announced %d wins, want 1", len(discord.wins))
	}
	win := discord.wins[0]
	if win.channelID != "winners" || win.userTag != "user1#0" || win.prizeName != "Nitro" || win.ticketsLeft != 1 {
		t.Errorf("announcement = %+v", win)
	}

	if len(discord.updates) != 1 {
		t.Fatalf("refreshed %d raffle posts, want 1", len(discord.updates))
	}
	if discord.updates[0].messageID != "msg1" {
		t.Errorf("refreshed message %q, want msg1", discord.updates[0].messageID)
	}
	if !strings.Contains(discord.updates[0].status, "Won: 1 times") {
		t.Errorf("refreshed status should include the new win:\n%s", discord.updates[0].status)
	}
}

func TestCoordinator_RedeemOwnerDMFallback(t *testing.T) {
	discord := &mockDiscord{}
	c, _ := newTestCoordinator(discord)
	ctx := context.Background()

	if err := c.Start(ctx, "guild1", "chan1", "Nitro:10", "", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := c.GrantTickets(ctx, "guild1", "user1", 1); err != nil {
		t.Fatalf("GrantTickets() error = %v", err)
	}

	if _, err := c.Redeem(ctx, "guild1", "user1", "user1#0"); err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}

	if len(discord.wins) != 0 {
		t.Errorf("announced %d wins without an announce channel", len(discord.wins))
	}
	if len(discord.ownerDMs) != 1 {
		t.Fatalf("sent %d owner DMs, want 1", len(discord.ownerDMs))
	}
	if !strings.Contains(discord.ownerDMs[0], "user1#0 just won **Nitro**") {
		t.Errorf("owner DM = %q", discord.ownerDMs[0])
	}
}

func TestCoordinator_RedeemFailuresPassThrough(t *testing.T) {
	discord := &mockDiscord{}
	c, _ := newTestCoordinator(discord)
	ctx := context.Background()

	if _, err := c.Redeem(ctx, "guild1", "user1", "user1#0"); !errors.Is(err, raffle.ErrInactive) {
		t.Errorf("Redeem() error = %v, want ErrInactive", err)
	}

	if err := c.Start(ctx, "guild1", "chan1", "Nitro:10", "", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := c.Redeem(ctx, "guild1", "user1", "user1#0"); !errors.Is(err, raffle.ErrNoTickets) {
		t.Errorf("Redeem() error = %v, want ErrNoTickets", err)
	}

	if len(discord.wins) != 0 || len(discord.ownerDMs) != 0 {
		t.Error("failed redemptions must not announce anything")
	}
}

func TestCoordinator_Stats(t *testing.T) {
	c, _ := newTestCoordinator(&mockDiscord{})
	ctx := context.Background()

	if err := c.Start(ctx, "guild1", "chan1", "Nitro:10", "", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := c.GrantTickets(ctx, "guild1", "user1", 1); err != nil {
		t.Fatalf("GrantTickets() error = %v", err)
	}
	if _, err := c.Redeem(ctx, "guild1", "user1", "user1#0"); err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if _, err := c.End(ctx, "guild1"); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	stats := c.Stats()
	if stats.RafflesStarted != 1 || stats.RafflesEnded != 1 || stats.Redemptions != 1 {
		t.Errorf("Stats() = %+v, want 1/1/1", stats)
	}
}
