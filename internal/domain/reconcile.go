package domain

import "github.com/shopspring/decimal"

// MatchResult reports which items of each amount list were paired by a
// reconciliation pass.
type MatchResult struct {
	SystemMatched []bool `json:"systemMatched"`
	AppMatched    []bool `json:"appMatched"`
	TotalMatches  int    `json:"totalMatches"`
}

// Match pairs amounts from an external system list against the ledger-derived
// app list. For each distinct amount present in both lists it marks
// min(countSystem, countApp) items matched, first-unmatched-first in original
// list order. Matching is exact-count and stable, never fuzzy, so a
// "delete all matched" follow-up removes exactly the paired items.
func Match(systemAmounts, appAmounts []decimal.Decimal) MatchResult {
	return MatchNext(systemAmounts, appAmounts, nil, nil)
}

// MatchNext runs a pass that excludes items already matched previously.
// Prior flag slices may be nil or shorter than the amount lists; missing
// flags are treated as unmatched. The returned flags include the prior
// matches, so passes compose.
func MatchNext(systemAmounts, appAmounts []decimal.Decimal, priorSystem, priorApp []bool) MatchResult {
	systemMatched := extendFlags(priorSystem, len(systemAmounts))
	appMatched := extendFlags(priorApp, len(appAmounts))

	systemCounts := countUnmatched(systemAmounts, systemMatched)
	appCounts := countUnmatched(appAmounts, appMatched)

	total := 0
	for amount, sysCount := range systemCounts {
		appCount, ok := appCounts[amount]
		if !ok {
			continue
		}

		n := sysCount
		if appCount < n {
			n = appCount
		}

		markFirstUnmatched(systemAmounts, systemMatched, amount, n)
		markFirstUnmatched(appAmounts, appMatched, amount, n)
		total += n
	}

	return MatchResult{
		SystemMatched: systemMatched,
		AppMatched:    appMatched,
		TotalMatches:  total,
	}
}

func extendFlags(prior []bool, n int) []bool {
	flags := make([]bool, n)
	copy(flags, prior)
	return flags
}

// countUnmatched builds a frequency multiset of the not-yet-matched items.
// Amounts key on their canonical string so 500 and 500.00 collide.
func countUnmatched(amounts []decimal.Decimal, matched []bool) map[string]int {
	counts := make(map[string]int)
	for i, a := range amounts {
		if matched[i] {
			continue
		}
		counts[a.String()]++
	}

	return counts
}

func markFirstUnmatched(amounts []decimal.Decimal, matched []bool, amount string, n int) {
	for i := 0; i < len(amounts) && n > 0; i++ {
		if matched[i] || amounts[i].String() != amount {
			continue
		}
		matched[i] = true
		n--
	}
}
