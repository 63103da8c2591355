/*
lineitem.go - Line items to per-account base and tax amounts

ALGORITHM (per line):
  1. gross = quantity x unit_price           (no rounding)
  2. net   = gross - discount                (< 0 is rejected)
  3. no tax rule, or rate <= 0               base = net, tax = 0
  4. taxable, tax included                   base = round(net / (1 + rate)), tax = round(net) - base
     taxable, tax excluded                   base = round(net), tax = round(net x rate)
  5. base accumulates by the line's account, tax by the rule's payable
     account (zero tax is skipped)

  Quantities, prices, discounts and rates stay exact fractions (big.Rat)
  until round(), which is half-up to two decimals and applied once per
  figure. Everything after conversion to Money is exact integer addition.
*/
package ledger

import (
	"errors"
	"math/big"
	"sort"
	"strconv"
)

// Calculation is the result of pricing a document's lines.
type Calculation struct {
	BaseByAccount map[AccountID]Money
	TaxByAccount  map[AccountID]Money
	Total         Money
}

// BaseTotal sums the base buckets.
func (c Calculation) BaseTotal() Money {
	var total Money
	for _, m := range c.BaseByAccount {
		total += m
	}
	return total
}

// TaxTotal sums the tax buckets.
func (c Calculation) TaxTotal() Money {
	var total Money
	for _, m := range c.TaxByAccount {
		total += m
	}
	return total
}

// LineResult is the priced form of a single line. Net is exact.
type LineResult struct {
	Net  *big.Rat
	Base Money
	Tax  Money
}

// Calculator prices line items. It holds no state.
type Calculator struct{}

// Calculate prices lines for a sales (OUTPUT tax) or purchase (INPUT tax) document.
func (Calculator) Calculate(lines []LineItem, sales bool) (Calculation, error) {
	if len(lines) == 0 {
		return Calculation{}, invalid(ErrNoLineItems, "lines", "a document with no lines cannot be posted")
	}

	calc := Calculation{
		BaseByAccount: make(map[AccountID]Money),
		TaxByAccount:  make(map[AccountID]Money),
	}
	for i, line := range lines {
		res, err := PriceLine(line, sales)
		if err != nil {
			var v *ValidationError
			if errors.As(err, &v) && v.Field == "" {
				v.Field = lineField(i)
			}
			return Calculation{}, err
		}
		calc.BaseByAccount[line.AccountID] += res.Base
		if res.Tax != 0 {
			calc.TaxByAccount[line.Tax.PayableAccountID] += res.Tax
		}
		calc.Total += res.Base + res.Tax
		if !calc.Total.InRange() {
			return Calculation{}, invalid(ErrAmountOutOfRange, "lines", "document total "+calc.Total.String())
		}
	}
	return calc, nil
}

// PriceLine applies steps 1-4 to one line.
func PriceLine(line LineItem, sales bool) (LineResult, error) {
	gross := new(big.Rat).Mul(line.Quantity.Rat(), line.UnitPrice.Rat())
	net := gross.Sub(gross, line.Discount.Rat())
	if net.Sign() < 0 {
		return LineResult{}, &ValidationError{Err: ErrNegativeLineAmount, Reason: "net " + net.FloatString(4)}
	}
	rounded, err := lineMoney(net)
	if err != nil {
		return LineResult{}, err
	}

	rule := line.Tax
	if rule == nil || !rule.Rate.IsPositive() {
		return LineResult{Net: net, Base: rounded}, nil
	}

	want := TaxInput
	if sales {
		want = TaxOutput
	}
	if rule.Direction != want {
		return LineResult{}, &ValidationError{Err: ErrTaxDirectionMismatch,
			Reason: "got " + string(rule.Direction) + ", want " + string(want)}
	}
	if rule.PayableAccountID == "" {
		return LineResult{}, &ValidationError{Err: ErrMissingTaxAccount}
	}

	rate := rule.Rate.Rat()
	if rule.Included {
		divisor := new(big.Rat).Add(big.NewRat(1, 1), rate)
		base, err := lineMoney(new(big.Rat).Quo(net, divisor))
		if err != nil {
			return LineResult{}, err
		}
		return LineResult{Net: net, Base: base, Tax: rounded - base}, nil
	}
	tax, err := lineMoney(new(big.Rat).Mul(net, rate))
	if err != nil {
		return LineResult{}, err
	}
	return LineResult{Net: net, Base: rounded, Tax: tax}, nil
}

func lineMoney(r *big.Rat) (Money, error) {
	m, ok := MoneyFromRat(r)
	if !ok {
		return 0, &ValidationError{Err: ErrAmountOutOfRange, Reason: r.FloatString(2)}
	}
	return m, nil
}

func lineField(i int) string {
	return "lines[" + strconv.Itoa(i) + "]"
}

// Splits turns the calculation into the split set of an invoice posting.
// Sales: counter +total, base and tax buckets negative.
// Purchase: base and tax buckets positive, counter -total.
func (c Calculation) Splits(counter AccountID, sales bool) []Split {
	sign := Money(1)
	if sales {
		sign = -1
	}
	splits := make([]Split, 0, len(c.BaseByAccount)+len(c.TaxByAccount)+1)
	if sales {
		splits = append(splits, Split{AccountID: counter, Amount: c.Total})
	}
	for _, id := range sortedKeys(c.BaseByAccount) {
		if c.BaseByAccount[id] != 0 {
			splits = append(splits, Split{AccountID: id, Amount: sign * c.BaseByAccount[id]})
		}
	}
	for _, id := range sortedKeys(c.TaxByAccount) {
		splits = append(splits, Split{AccountID: id, Amount: sign * c.TaxByAccount[id], Memo: "tax"})
	}
	if !sales {
		splits = append(splits, Split{AccountID: counter, Amount: -c.Total})
	}
	return splits
}

func sortedKeys(m map[AccountID]Money) []AccountID {
	keys := make([]AccountID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
