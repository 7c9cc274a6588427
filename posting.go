package ecoseed

import "math"

// ApplyPosting returns the primary and secondary balances after adding
// amount and secondaryDelta. Stores call it under their lock so every
// backend rejects the same postings: ErrInsufficientBalance when a balance
// would go negative, ErrBalanceOverflow when one would pass math.MaxInt64.
func ApplyPosting(balance, secondary, amount, secondaryDelta int64) (int64, int64, error) {
	if balance > BalanceCeiling(amount) || secondary > BalanceCeiling(secondaryDelta) {
		return 0, 0, ErrBalanceOverflow
	}
	b, s := balance+amount, secondary+secondaryDelta
	if b < 0 || s < 0 {
		return 0, 0, ErrInsufficientBalance
	}
	return b, s, nil
}

// BalanceCeiling is the largest balance that can take delta without
// overflowing int64.
func BalanceCeiling(delta int64) int64 {
	if delta > 0 {
		return math.MaxInt64 - delta
	}
	return math.MaxInt64
}
