package raffle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// RaffleStore is the slice of the persistence boundary the redemption
// workflow needs.
type RaffleStore interface {
	// Raffle loads the guild's current state, returning defaults when the
	// guild has never run a raffle.
	Raffle(ctx context.Context, guildID string) (*GuildRaffle, error)
	// Save writes the state back. It must reject stale writes with an error
	// matching ErrConflict when the persisted version moved underneath.
	Save(ctx context.Context, guildID string, g *GuildRaffle) error
}

// RedeemResult reports a successful redemption back to the caller.
type RedeemResult struct {
	Prize            Prize
	RemainingTickets int
}

const (
	redeemAttempts = 3
	redeemRetryMin = 50 * time.Millisecond
)

// Redeemer runs one ticket redemption end to end: load, validate, draw,
// apply the prize-limit fallback, mutate counters, persist. Lost
// optimistic-concurrency races are replayed from a fresh load, so two
// concurrent redemptions never overwrite each other's ticket decrement.
type Redeemer struct {
	store    RaffleStore
	selector *Selector
	now      func() time.Time
}

// NewRedeemer creates a redemption workflow over the given store and
// selector.
func NewRedeemer(store RaffleStore, selector *Selector) *Redeemer {
	return &Redeemer{store: store, selector: selector, now: time.Now}
}

// Redeem attempts one draw for the user. Conflicting saves are retried a
// bounded number of times; every other failure is returned as-is.
func (r *Redeemer) Redeem(ctx context.Context, guildID, userID, userTag string) (RedeemResult, error) {
	var result RedeemResult
	err := retry.Do(
		func() error {
			res, err := r.redeemOnce(ctx, guildID, userID, userTag)
			if err != nil {
				return err
			}
			result = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(redeemAttempts),
		retry.Delay(redeemRetryMin),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrConflict)
		}),
	)
	return result, err
}

func (r *Redeemer) redeemOnce(ctx context.Context, guildID, userID, userTag string) (RedeemResult, error) {
	g, err := r.store.Raffle(ctx, guildID)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("%w: load raffle: %v", ErrPersistence, err)
	}

	if !g.Active {
		return RedeemResult{}, ErrInactive
	}
	if g.Tickets[userID] <= 0 {
		return RedeemResult{}, ErrNoTickets
	}
	if UserExhausted(g.UserWins[userID], g.MaxWinsPerUser) {
		return RedeemResult{}, ErrUserLimit
	}

	// A ticket buys one draw, not one prize. It is consumed here and never
	// refunded, even when no prize can be awarded below.
	g.ensure()
	g.Tickets[userID]--

	prize, ok := r.selector.Select(g.Prizes)
	if !ok {
		return RedeemResult{}, r.failConsumed(ctx, guildID, g, ErrNoPrizes)
	}

	// Single fallback re-draw over the non-exhausted subset. EligiblePrizes
	// guarantees the re-draw cannot land on an exhausted prize again.
	if PrizeExhausted(g.PrizeWins[prize.Name], g.MaxWinsPerPrize) {
		eligible := EligiblePrizes(g.Prizes, g.PrizeWins, g.MaxWinsPerPrize)
		prize, ok = r.selector.Select(eligible)
		if !ok {
			return RedeemResult{}, r.failConsumed(ctx, guildID, g, ErrAllPrizesExhausted)
		}
	}

	g.recordWin(userID, userTag, prize.Name, r.now())

	if err := r.save(ctx, guildID, g); err != nil {
		return RedeemResult{}, err
	}

	return RedeemResult{Prize: prize, RemainingTickets: g.Tickets[userID]}, nil
}

// failConsumed persists the consumed ticket, then reports why no prize was
// awarded. A failed save outranks the draw outcome: the caller must not tell
// the user anything the store didn't record.
func (r *Redeemer) failConsumed(ctx context.Context, guildID string, g *GuildRaffle, cause error) error {
	if err := r.save(ctx, guildID, g); err != nil {
		return err
	}
	return cause
}

func (r *Redeemer) save(ctx context.Context, guildID string, g *GuildRaffle) error {
	err := r.store.Save(ctx, guildID, g)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConflict):
		return err
	default:
		return fmt.Errorf("%w: save raffle: %v", ErrPersistence, err)
	}
}
