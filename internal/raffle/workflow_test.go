package raffle

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeStore is an in-memory RaffleStore with programmable save failures.
type fakeStore struct {
	state     *GuildRaffle
	loadErr   error
	saveErr   error
	conflicts int // remaining saves to reject with ErrConflict
	saves     int
}

func (f *fakeStore) Raffle(_ context.Context, _ string) (*GuildRaffle, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.state == nil {
		return NewGuildRaffle(), nil
	}
	return f.state.Clone(), nil
}

func (f *fakeStore) Save(_ context.Context, _ string, g *GuildRaffle) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.conflicts > 0 {
		f.conflicts--
		return fmt.Errorf("stale write: %w", ErrConflict)
	}
	f.state = g.Clone()
	return nil
}

func activeRaffle(t *testing.T, prizes []Prize) *GuildRaffle {
	t.Helper()
	g := NewGuildRaffle()
	if err := g.Start(prizes, "", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return g
}

func TestRedeemer_Win(t *testing.T) {
	g := activeRaffle(t, []Prize{{Name: "Nitro", Weight: 10}})
	g.Tickets["user1"] = 2
	store := &fakeStore{state: g}

	r := NewRedeemer(store, NewSeededSelector(1))
	result, err := r.Redeem(context.Background(), "guild1", "user1", "user1#0")
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}

	if result.Prize.Name != "Nitro" {
		t.Errorf("result.Prize = %q, want Nitro", result.Prize.Name)
	}
	if result.RemainingTickets != 1 {
		t.Errorf("result.RemainingTickets = %d, want 1", result.RemainingTickets)
	}

	saved := store.state
	if saved.Tickets["user1"] != 1 {
		t.Errorf("persisted tickets = %d, want 1", saved.Tickets["user1"])
	}
	if saved.UserWins["user1"] != 1 {
		t.Errorf("persisted user wins = %d, want 1", saved.UserWins["user1"])
	}
	if saved.PrizeWins["Nitro"] != 1 {
		t.Errorf("persisted prize wins = %d, want 1", saved.PrizeWins["Nitro"])
	}
	if len(saved.Winners) != 1 || saved.Winners[0].UserTag != "user1#0" {
		t.Errorf("persisted winners = %v, want one entry for user1#0", saved.Winners)
	}
}

func TestRedeemer_Inactive(t *testing.T) {
	store := &fakeStore{}

	r := NewRedeemer(store, NewSeededSelector(1))
	_, err := r.Redeem(context.Background(), "guild1", "user1", "user1#0")
	if !errors.Is(err, ErrInactive) {
		t.Fatalf("Redeem() error = %v, want ErrInactive", err)
	}
	if store.saves != 0 {
		t.Errorf("store saved %d times, want 0", store.saves)
	}
}

func TestRedeemer_NoTickets(t *testing.T) {
	g := activeRaffle(t, []Prize{{Name: "Nitro", Weight: 10}})
	store := &fakeStore{state: g}

	r := NewRedeemer(store, NewSeededSelector(1))
	_, err := r.Redeem(context.Background(), "guild1", "user1", "user1#0")
	if !errors.Is(err, ErrNoTickets) {
		t.Fatalf("Redeem() error = %v, want ErrNoTickets", err)
	}
	if store.saves != 0 {
		t.Errorf("store saved %d times, want 0", store.saves)
	}
}

func TestRedeemer_UserLimit(t *testing.T) {
	g := activeRaffle(t, []Prize{{Name: "Nitro", Weight: 10}})
	g.Tickets["user1"] = 5
	g.UserWins["user1"] = 2
	g.MaxWinsPerUser = 2
	store := &fakeStore{state: g}

	r := NewRedeemer(store, NewSeededSelector(1))
	_, err := r.Redeem(context.Background(), "guild1", "user1", "user1#0")
	if !errors.Is(err, ErrUserLimit) {
		t.Fatalf("Redeem() error = %v, want ErrUserLimit", err)
	}

	// The limit check happens before the ticket is consumed.
	if store.state.Tickets["user1"] != 5 {
		t.Errorf("tickets = %d, want 5", store.state.Tickets["user1"])
	}
}

func TestRedeemer_ZeroWeightTableConsumesTicket(t *testing.T) {
	g := activeRaffle(t, []Prize{{Name: "Nitro", Weight: 0}})
	g.Tickets["user1"] = 2
	store := &fakeStore{state: g}

	r := NewRedeemer(store, NewSeededSelector(1))
	_, err := r.Redeem(context.Background(), "guild1", "user1", "user1#0")
	if !errors.Is(err, ErrNoPrizes) {
		t.Fatalf("Redeem() error = %v, want ErrNoPrizes", err)
	}

	// A ticket buys a draw, not a prize; the decrement is persisted.
	if store.state.Tickets["user1"] != 1 {
		t.Errorf("persisted tickets = %d, want 1", store.state.Tickets["user1"])
	}
	if len(store.state.Winners) != 0 {
		t.Errorf("winners = %v, want none", store.state.Winners)
	}
}

func TestRedeemer_FallbackRedraw(t *testing.T) {
	g := activeRaffle(t, []Prize{
		{Name: "A", Weight: 1000000},
		{Name: "B", Weight: 1},
	})
	g.Tickets["user1"] = 1
	g.PrizeWins["A"] = 1
	g.MaxWinsPerPrize = 1
	store := &fakeStore{state: g}

	// The primary draw lands on A almost surely; A is exhausted, so the
	// fallback must redraw over {B} alone.
	r := NewRedeemer(store, NewSeededSelector(7))
	result, err := r.Redeem(context.Background(), "guild1", "user1", "user1#0")
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if result.Prize.Name != "B" {
		t.Errorf("result.Prize = %q, want B", result.Prize.Name)
	}
	if store.state.PrizeWins["B"] != 1 {
		t.Errorf("persisted prize wins for B = %d, want 1", store.state.PrizeWins["B"])
	}
}

func TestRedeemer_AllExhaustedConsumesTicket(t *testing.T) {
	g := activeRaffle(t, []Prize{{Name: "A", Weight: 10}})
	g.Tickets["user1"] = 3
	g.PrizeWins["A"] = 1
	g.MaxWinsPerPrize = 1
	store := &fakeStore{state: g}

	r := NewRedeemer(store, NewSeededSelector(1))
	_, err := r.Redeem(context.Background(), "guild1", "user1", "user1#0")
	if !errors.Is(err, ErrAllPrizesExhausted) {
		t.Fatalf("Redeem() error = %v, want ErrAllPrizesExhausted", err)
	}
	if store.state.Tickets["user1"] != 2 {
		t.Errorf("persisted tickets = %d, want 2", store.state.Tickets["user1"])
	}
}

func TestRedeemer_RetriesConflict(t *testing.T) {
	g := activeRaffle(t, []Prize{{Name: "Nitro", Weight: 10}})
	g.Tickets["user1"] = 1
	store := &fakeStore{state: g, conflicts: 1}

	r := NewRedeemer(store, NewSeededSelector(1))
	result, err := r.Redeem(context.Background(), "guild1", "user1", "user1#0")
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if result.Prize.Name != "Nitro" {
		t.Errorf("result.Prize = %q, want Nitro", result.Prize.Name)
	}
	if store.saves != 2 {
		t.Errorf("store saved %d times, want 2 (conflict then success)", store.saves)
	}

	// The replayed attempt must not double-spend the ticket.
	if store.state.Tickets["user1"] != 0 {
		t.Errorf("persisted tickets = %d, want 0", store.state.Tickets["user1"])
	}
	if store.state.UserWins["user1"] != 1 {
		t.Errorf("persisted user wins = %d, want 1", store.state.UserWins["user1"])
	}
}

func TestRedeemer_ConflictExhaustsRetries(t *testing.T) {
	g := activeRaffle(t, []Prize{{Name: "Nitro", Weight: 10}})
	g.Tickets["user1"] = 1
	store := &fakeStore{state: g, conflicts: 100}

	r := NewRedeemer(store, NewSeededSelector(1))
	_, err := r.Redeem(context.Background(), "guild1", "user1", "user1#0")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Redeem() error = %v, want ErrConflict", err)
	}
	if store.saves != redeemAttempts {
		t.Errorf("store saved %d times, want %d", store.saves, redeemAttempts)
	}
}

func TestRedeemer_SaveFailure(t *testing.T) {
	g := activeRaffle(t, []Prize{{Name: "Nitro", Weight: 10}})
	g.Tickets["user1"] = 1
	store := &fakeStore{state: g, saveErr: errors.New("backend down")}

	r := NewRedeemer(store, NewSeededSelector(1))
	_, err := r.Redeem(context.Background(), "guild1", "user1", "user1#0")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Redeem() error = %v, want ErrPersistence", err)
	}
}

func TestRedeemer_LoadFailure(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("backend down")}

	r := NewRedeemer(store, NewSeededSelector(1))
	_, err := r.Redeem(context.Background(), "guild1", "user1", "user1#0")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Redeem() error = %v, want ErrPersistence", err)
	}
}
