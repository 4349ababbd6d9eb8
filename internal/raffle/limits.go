package raffle

// Win-limit policy. A limit of 0 means unlimited and never exhausts.

// UserExhausted reports whether a user has used up their win allowance.
func UserExhausted(count, maxWins int) bool {
	return maxWins > 0 && count >= maxWins
}

// PrizeExhausted reports whether a prize has been won its maximum number of
// times.
func PrizeExhausted(count, maxWins int) bool {
	return maxWins > 0 && count >= maxWins
}

// EligiblePrizes returns the prizes not yet exhausted under maxWinsPerPrize,
// preserving input order and weights.
func EligiblePrizes(prizes []Prize, prizeWins map[string]int, maxWinsPerPrize int) []Prize {
	if maxWinsPerPrize <= 0 {
		return prizes
	}

	eligible := make([]Prize, 0, len(prizes))
	for _, p := range prizes {
		if !PrizeExhausted(prizeWins[p.Name], maxWinsPerPrize) {
			eligible = append(eligible, p)
		}
	}
	return eligible
}
