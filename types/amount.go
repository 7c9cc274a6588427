package types

import (
	"encoding/json"
	"fmt"
)

// Unit names the currency an Amount is denominated in.
type Unit string

const (
	// UnitSeed is the primary points currency.
	UnitSeed Unit = "seed"
	// UnitHanaMoney is the secondary currency produced by conversion.
	UnitHanaMoney Unit = "hana"
)

// SeedToHanaRate is the fixed number of Hana Money units produced per seed.
const SeedToHanaRate int64 = 1

// Amount is an integer quantity of a single ledger currency.
// All arithmetic is integer-only.
type Amount struct {
	Value int64 `json:"value"`
	Unit  Unit  `json:"unit"`
}

// Seeds creates an Amount of Eco-Seeds.
func Seeds(n int64) Amount { return Amount{Value: n, Unit: UnitSeed} }

// HanaMoney creates an Amount of Hana Money.
func HanaMoney(n int64) Amount { return Amount{Value: n, Unit: UnitHanaMoney} }

// Add adds two amounts. Panics if units don't match.
func (a Amount) Add(other Amount) Amount {
	a.assertSameUnit(other)
	return Amount{Value: a.Value + other.Value, Unit: a.Unit}
}

// Subtract subtracts another amount. Panics if units don't match.
func (a Amount) Subtract(other Amount) Amount {
	a.assertSameUnit(other)
	return Amount{Value: a.Value - other.Value, Unit: a.Unit}
}

// Negate returns the negative of the amount.
func (a Amount) Negate() Amount {
	return Amount{Value: -a.Value, Unit: a.Unit}
}

// Abs returns the absolute value.
func (a Amount) Abs() Amount {
	if a.Value < 0 {
		return a.Negate()
	}
	return a
}

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.Value > 0 }

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool { return a.Value < 0 }

// ToHanaMoney converts a seed amount at the fixed rate.
// Panics if a is not denominated in seeds.
func (a Amount) ToHanaMoney() Amount {
	a.assertSameUnit(Seeds(0))
	return HanaMoney(a.Value * SeedToHanaRate)
}

// String returns a human-readable form such as "120 seeds" or "30 HM".
func (a Amount) String() string {
	switch a.Unit {
	case UnitSeed:
		if a.Value == 1 || a.Value == -1 {
			return fmt.Sprintf("%d seed", a.Value)
		}
		return fmt.Sprintf("%d seeds", a.Value)
	case UnitHanaMoney:
		return fmt.Sprintf("%d HM", a.Value)
	default:
		return fmt.Sprintf("%d %s", a.Value, a.Unit)
	}
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value   int64  `json:"value"`
		Unit    Unit   `json:"unit"`
		Display string `json:"display"`
	}{
		Value:   a.Value,
		Unit:    a.Unit,
		Display: a.String(),
	})
}

func (a Amount) assertSameUnit(other Amount) {
	if a.Unit != other.Unit {
		panic(fmt.Sprintf("amount: unit mismatch: %s != %s", a.Unit, other.Unit))
	}
}
