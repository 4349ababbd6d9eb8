package raffle

import "errors"

// Sentinel errors returned by the engine. Callers match with errors.Is and
// translate to user-facing text; the engine itself never talks to users.
var (
	// ErrValidation indicates malformed input (bad prize spec, non-positive
	// ticket amount, negative limit).
	ErrValidation = errors.New("invalid input")

	// ErrState indicates an operation that is not valid for the current
	// activation state, such as starting an already-active raffle.
	ErrState = errors.New("invalid raffle state")

	// ErrInactive indicates a redemption or grant against an inactive raffle.
	ErrInactive = errors.New("raffle not active")

	// ErrNoTickets indicates the user has no tickets left to redeem.
	ErrNoTickets = errors.New("no tickets")

	// ErrUserLimit indicates the user already hit the per-user win cap.
	ErrUserLimit = errors.New("user win limit reached")

	// ErrNoPrizes indicates the prize table is empty or carries zero total
	// weight, so no draw is possible.
	ErrNoPrizes = errors.New("no prizes configured")

	// ErrAllPrizesExhausted indicates every prize hit the per-prize win cap.
	// The redeemed ticket stays consumed; a ticket buys a draw, not a prize.
	ErrAllPrizesExhausted = errors.New("all prizes exhausted")

	// ErrPersistence indicates the store write failed; the in-memory
	// mutation must be treated as unobserved by the system of record.
	ErrPersistence = errors.New("persistence failure")

	// ErrConflict indicates a save lost an optimistic-concurrency race.
	// Unlike ErrPersistence it is retryable: reload and reapply.
	ErrConflict = errors.New("concurrent modification")
)
