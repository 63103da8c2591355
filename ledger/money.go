package ledger

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Integer minor units (cents)
// =============================================================================

// MinorUnitScale is the number of decimal places carried by Money.
const MinorUnitScale = 2

// MaxAmount bounds a single split or priced figure: 10 trillion major
// units. Sums of a few thousand such amounts still fit in int64.
const MaxAmount Money = 1_000_000_000_000_000

var (
	hundred      = decimal.NewFromInt(100)
	maxAmountInt = big.NewInt(int64(MaxAmount))
)

// Money is an amount in minor units. Signed: positive is a debit, negative a credit.
type Money int64

// MoneyFromDecimal rounds d half-up to cents and converts it to minor units.
// This is the only rounding step between the decimal domain and Money.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(MinorUnitScale).Mul(hundred).IntPart())
}

// MoneyFromRat rounds an exact fraction half-up (away from zero) to cents.
// ok is false when the result is beyond MaxAmount.
func MoneyFromRat(r *big.Rat) (Money, bool) {
	cents := new(big.Rat).Mul(r, big.NewRat(100, 1))
	num := new(big.Int).Abs(cents.Num())
	den := cents.Denom()

	// floor((2*num + den) / (2*den))
	q := new(big.Int).Lsh(num, 1)
	q.Add(q, den)
	q.Quo(q, new(big.Int).Lsh(den, 1))
	if q.CmpAbs(maxAmountInt) > 0 {
		return 0, false
	}
	if cents.Sign() < 0 {
		q.Neg(q)
	}
	return Money(q.Int64()), true
}

// InRange reports whether |m| <= MaxAmount.
func (m Money) InRange() bool { return m >= -MaxAmount && m <= MaxAmount }

// MoneyFromMajor converts whole currency units to Money.
func MoneyFromMajor(units int64) Money { return Money(units * 100) }

// ParseMoney parses a decimal string such as "1000.00" or "-12.5".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	return MoneyFromDecimal(d), nil
}

func (m Money) Add(o Money) Money { return m + o }
func (m Money) Sub(o Money) Money { return m - o }
func (m Money) Neg() Money { return -m }
func (m Money) IsZero() bool { return m == 0 }
func (m Money) IsPositive() bool { return m > 0 }
func (m Money) IsNegative() bool { return m < 0 }
func (m Money) Int64() int64 { return int64(m) }
func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -MinorUnitScale) }

func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// String formats major units with two decimals, e.g. "1000.00".
func (m Money) String() string { return m.Decimal().StringFixed(MinorUnitScale) }

// Sum adds amounts exactly.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// =============================================================================
// RATIONAL - Exact (numerator, denominator) inputs
// =============================================================================

// Rational is a stored fraction. Quantities, prices, discounts and tax rates
// never pass through floating point.
type Rational struct {
	Num   int64 `json:"num" yaml:"num"`
	Denom int64 `json:"denom" yaml:"denom"`
}

// NewRational builds num/denom.
func NewRational(num, denom int64) Rational { return Rational{Num: num, Denom: denom} }

// Whole builds n/1.
func Whole(n int64) Rational { return Rational{Num: n, Denom: 1} }

// Cents builds an amount expressed in minor units, e.g. Cents(5000) == 50.00.
func Cents(minor int64) Rational { return Rational{Num: minor, Denom: 100} }

// Rat returns the exact fraction. A zero denominator is read as 1.
func (r Rational) Rat() *big.Rat {
	denom := r.Denom
	if denom == 0 {
		denom = 1
	}
	return new(big.Rat).SetFrac(big.NewInt(r.Num), big.NewInt(denom))
}

// Decimal evaluates the fraction for display. A zero denominator is read as 1 and a
// negative denominator moves its sign to the numerator.
func (r Rational) Decimal() decimal.Decimal {
	num, denom := r.Num, r.Denom
	if denom == 0 {
		denom = 1
	}
	if denom < 0 {
		num, denom = -num, -denom
	}
	if denom == 1 {
		return decimal.NewFromInt(num)
	}
	return decimal.NewFromInt(num).Div(decimal.NewFromInt(denom))
}

// ParseRational reads "num/denom" or a plain decimal such as "113.00",
// which becomes 11300/100.
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if num, denom, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(denom), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
		}
		if d == 0 {
			return Rational{}, fmt.Errorf("parse rational %q: zero denominator", s)
		}
		return Rational{Num: n, Denom: d}, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
	}
	exp := d.Exponent()
	if exp >= 0 {
		return Whole(d.IntPart()), nil
	}
	if exp < -18 || !d.Coefficient().IsInt64() {
		return Rational{}, fmt.Errorf("parse rational %q: too precise", s)
	}
	denom := int64(1)
	for i := int32(0); i < -exp; i++ {
		denom *= 10
	}
	return Rational{Num: d.Coefficient().Int64(), Denom: denom}, nil
}

func (r Rational) IsZero() bool     { return r.Num == 0 }
func (r Rational) IsPositive() bool { return r.Rat().Sign() > 0 }

func (r Rational) String() string {
	if r.Denom == 0 || r.Denom == 1 {
		return fmt.Sprintf("%d", r.Num)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Denom)
}
