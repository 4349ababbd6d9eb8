// Package raffle implements the raffle engine: prize tables, weighted
// selection, win limits, per-guild raffle state, and the redemption workflow.
package raffle

import (
	"fmt"
	"strconv"
	"strings"
)

// Prize is one entry in a raffle's prize table. Weight is relative, not a
// percentage; a weight of 0 keeps the prize visible in status displays but
// makes it unwinnable.
type Prize struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// ParsePrizeSpec parses the admin-supplied prize list, a comma-separated
// sequence of "Name:Weight" entries (e.g. "Nitro:10, Gift Card:5"). Any
// malformed entry rejects the whole submission; there is no partial
// acceptance.
func ParsePrizeSpec(spec string) ([]Prize, error) {
	var prizes []Prize
	seen := make(map[string]bool)

	for entry := range strings.SplitSeq(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, weightText, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("%w: entry %q must be Name:Weight", ErrValidation, entry)
		}

		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: entry %q has an empty prize name", ErrValidation, entry)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: prize %q listed more than once", ErrValidation, name)
		}

		weight, err := strconv.Atoi(strings.TrimSpace(weightText))
		if err != nil || weight < 0 {
			return nil, fmt.Errorf("%w: entry %q needs a non-negative integer weight", ErrValidation, entry)
		}

		seen[name] = true
		prizes = append(prizes, Prize{Name: name, Weight: weight})
	}

	if len(prizes) == 0 {
		return nil, fmt.Errorf("%w: no prizes provided", ErrValidation)
	}

	return prizes, nil
}

// TotalWeight sums prize weights.
func TotalWeight(prizes []Prize) int {
	total := 0
	for _, p := range prizes {
		total += p.Weight
	}
	return total
}
