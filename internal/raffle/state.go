package raffle

import (
	"fmt"
	"time"
)

// LimitKind selects which win cap SetMaxWins adjusts.
type LimitKind string

// Limit kinds.
const (
	LimitUser  LimitKind = "user"
	LimitPrize LimitKind = "prize"
)

// Winner records one awarded prize within the current run.
type Winner struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	UserTag   string    `json:"user_tag"`
	PrizeName string    `json:"prize_name"`
}

// GuildRaffle is the per-guild raffle aggregate, persisted as a single
// document. MaxWinsPerUser, MaxWinsPerPrize, and AnnounceChannelID survive
// across runs; everything else is reset by Start.
type GuildRaffle struct {
	Tickets           map[string]int `json:"tickets"`
	UserWins          map[string]int `json:"user_wins"`
	PrizeWins         map[string]int `json:"prize_wins"`
	AnnounceChannelID string         `json:"announce_channel_id,omitempty"`
	MessageID         string         `json:"message_id,omitempty"`
	ChannelID         string         `json:"channel_id,omitempty"`
	Title             string         `json:"title,omitempty"`
	Description       string         `json:"description,omitempty"`
	Prizes            []Prize        `json:"prizes"`
	Winners           []Winner       `json:"winners"`
	MaxWinsPerUser    int            `json:"max_wins_per_user"`
	MaxWinsPerPrize   int            `json:"max_wins_per_prize"`
	Version           int64          `json:"version"`
	Active            bool           `json:"active"`
}

// Summary is the immutable record of a completed run.
type Summary struct {
	Timestamp       time.Time `json:"timestamp"`
	ID              string    `json:"id"`
	Prizes          []Prize   `json:"prizes"`
	Winners         []Winner  `json:"winners"`
	TotalEntries    int       `json:"total_entries"`
	MaxWinsPerUser  int       `json:"max_wins_per_user"`
	MaxWinsPerPrize int       `json:"max_wins_per_prize"`
}

// NewGuildRaffle returns the inactive default state a guild has before its
// first raffle.
func NewGuildRaffle() *GuildRaffle {
	return &GuildRaffle{
		Tickets:   make(map[string]int),
		UserWins:  make(map[string]int),
		PrizeWins: make(map[string]int),
	}
}

// Clone returns a deep copy. Stores hand out clones so concurrent
// redemptions never alias each other's ticket and counter maps.
func (g *GuildRaffle) Clone() *GuildRaffle {
	c := *g
	c.Tickets = make(map[string]int, len(g.Tickets))
	for k, v := range g.Tickets {
		c.Tickets[k] = v
	}
	c.UserWins = make(map[string]int, len(g.UserWins))
	for k, v := range g.UserWins {
		c.UserWins[k] = v
	}
	c.PrizeWins = make(map[string]int, len(g.PrizeWins))
	for k, v := range g.PrizeWins {
		c.PrizeWins[k] = v
	}
	c.Prizes = append([]Prize(nil), g.Prizes...)
	c.Winners = append([]Winner(nil), g.Winners...)
	return &c
}

// ensure re-creates maps that may be nil after decoding an older document.
func (g *GuildRaffle) ensure() {
	if g.Tickets == nil {
		g.Tickets = make(map[string]int)
	}
	if g.UserWins == nil {
		g.UserWins = make(map[string]int)
	}
	if g.PrizeWins == nil {
		g.PrizeWins = make(map[string]int)
	}
}

// Start activates a new run with the given prize table. Tickets, win
// counters, the winner log, and the message binding are all cleared; the
// configured limits and announce channel carry over.
func (g *GuildRaffle) Start(prizes []Prize, title, description string) error {
	if len(prizes) == 0 {
		return fmt.Errorf("%w: prize table is empty", ErrValidation)
	}
	if g.Active {
		return fmt.Errorf("%w: a raffle is already active", ErrState)
	}

	g.Active = true
	g.Prizes = prizes
	g.Title = title
	g.Description = description
	g.Tickets = make(map[string]int)
	g.UserWins = make(map[string]int)
	g.PrizeWins = make(map[string]int)
	g.Winners = nil
	g.MessageID = ""
	g.ChannelID = ""
	return nil
}

// End snapshots the run into a Summary and resets to the inactive defaults.
func (g *GuildRaffle) End(now time.Time) (Summary, error) {
	if !g.Active {
		return Summary{}, fmt.Errorf("%w: no raffle is active", ErrState)
	}

	summary := Summary{
		Timestamp:       now,
		Prizes:          g.Prizes,
		TotalEntries:    g.TotalTickets(),
		Winners:         g.Winners,
		MaxWinsPerUser:  g.MaxWinsPerUser,
		MaxWinsPerPrize: g.MaxWinsPerPrize,
	}

	g.Active = false
	g.Prizes = nil
	g.Title = ""
	g.Description = ""
	g.Tickets = make(map[string]int)
	g.UserWins = make(map[string]int)
	g.PrizeWins = make(map[string]int)
	g.Winners = nil
	g.MessageID = ""
	g.ChannelID = ""
	return summary, nil
}

// GrantTickets adds amount tickets to one user's balance.
func (g *GuildRaffle) GrantTickets(userID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: ticket amount must be positive", ErrValidation)
	}
	if !g.Active {
		return fmt.Errorf("%w: cannot grant tickets", ErrInactive)
	}

	g.ensure()
	g.Tickets[userID] += amount
	return nil
}

// GrantTicketsAll adds amount tickets to every listed user. The caller
// supplies the eligible (non-bot) member IDs.
func (g *GuildRaffle) GrantTicketsAll(userIDs []string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: ticket amount must be positive", ErrValidation)
	}
	if !g.Active {
		return fmt.Errorf("%w: cannot grant tickets", ErrInactive)
	}

	g.ensure()
	for _, id := range userIDs {
		g.Tickets[id] += amount
	}
	return nil
}

// SetAnnounceChannel records where winner announcements go. Allowed at any
// time, active or not.
func (g *GuildRaffle) SetAnnounceChannel(channelID string) {
	g.AnnounceChannelID = channelID
}

// SetMaxWins sets the per-user or per-prize win cap. 0 removes the limit.
func (g *GuildRaffle) SetMaxWins(kind LimitKind, amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: win limit cannot be negative", ErrValidation)
	}

	switch kind {
	case LimitUser:
		g.MaxWinsPerUser = amount
	case LimitPrize:
		g.MaxWinsPerPrize = amount
	default:
		return fmt.Errorf("%w: unknown limit kind %q", ErrValidation, kind)
	}
	return nil
}

// BindMessage records the currently displayed raffle post.
func (g *GuildRaffle) BindMessage(channelID, messageID string) {
	g.ChannelID = channelID
	g.MessageID = messageID
}

// TotalTickets returns the sum of all outstanding ticket balances.
func (g *GuildRaffle) TotalTickets() int {
	total := 0
	for _, n := range g.Tickets {
		total += n
	}
	return total
}

// recordWin applies a successful draw: counters up, winner logged.
func (g *GuildRaffle) recordWin(userID, userTag, prizeName string, now time.Time) {
	g.ensure()
	g.UserWins[userID]++
	g.PrizeWins[prizeName]++
	g.Winners = append(g.Winners, Winner{
		Timestamp: now,
		UserID:    userID,
		UserTag:   userTag,
		PrizeName: prizeName,
	})
}
