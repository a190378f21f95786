package pto

import "github.com/shopspring/decimal"

// =============================================================================
// BALANCE - Sum of signed ledger deltas
// =============================================================================

// SumChangeHours folds ledger entries into a balance. An empty slice sums
// to zero; exact decimal arithmetic throughout.
func SumChangeHours(entries []LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.ChangeHours)
	}
	return total
}
