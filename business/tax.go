package business

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moon/ledger-engine/ledger"
)

var hundred = decimal.NewFromInt(100)

// CalculateTax returns base x ratePercent / 100, rounded half-up to cents.
func CalculateTax(base ledger.Money, ratePercent decimal.Decimal) (ledger.Money, error) {
	if ratePercent.IsNegative() || ratePercent.GreaterThan(hundred) {
		return 0, &ledger.ValidationError{Err: ErrInvalidTaxRate, Field: "rate", Reason: ratePercent.String()}
	}
	return ledger.MoneyFromDecimal(base.Decimal().Mul(ratePercent).Div(hundred)), nil
}

// ManualTax is a tax entry booked outside any invoice.
type ManualTax struct {
	BookID    ledger.BookID
	Direction ledger.TaxDirection
	// BaseAccountID takes the net amount: an expense for INPUT, income for OUTPUT.
	BaseAccountID ledger.AccountID
	Base          ledger.Money
	RatePercent   decimal.Decimal
	// TaxAccountID defaults to the input or output tax role.
	TaxAccountID ledger.AccountID
	// CashAccountID defaults to the cash role.
	CashAccountID ledger.AccountID
	Date          time.Time
	Description   string
}

// PostManualTax books a three-split entry:
//
//	INPUT:  +base, +tax, -cash(base+tax)
//	OUTPUT: +cash(base+tax), -base, -tax
//
// A zero tax drops the tax split.
func (s *Service) PostManualTax(ctx context.Context, m ManualTax) (ledger.TransactionID, error) {
	if m.Base <= 0 {
		return "", &ledger.ValidationError{Err: ledger.ErrNonPositiveAmount, Field: "base", Reason: m.Base.String()}
	}
	tax, err := CalculateTax(m.Base, m.RatePercent)
	if err != nil {
		return "", err
	}
	roles, err := s.roles.Roles(ctx, m.BookID)
	if err != nil {
		return "", err
	}
	cash, err := pick(m.CashAccountID, "cash", roles.Cash)
	if err != nil {
		return "", err
	}

	var sign ledger.Money
	var taxRole ledger.AccountID
	switch m.Direction {
	case ledger.TaxInput:
		sign, taxRole = 1, roles.InputTax
	case ledger.TaxOutput:
		sign, taxRole = -1, roles.OutputTax
	default:
		return "", &ledger.ValidationError{Err: ledger.ErrInvalidInput, Field: "direction", Reason: string(m.Direction)}
	}
	taxAccount, err := pick(m.TaxAccountID, "tax", taxRole)
	if err != nil {
		return "", err
	}

	splits := []ledger.Split{{AccountID: m.BaseAccountID, Amount: sign * m.Base}}
	if tax != 0 {
		splits = append(splits, ledger.Split{AccountID: taxAccount, Amount: sign * tax})
	}
	splits = append(splits, ledger.Split{AccountID: cash, Amount: -sign * (m.Base + tax)})

	description := m.Description
	if description == "" {
		description = fmt.Sprintf("%s tax %s%%", m.Direction, m.RatePercent.String())
	}
	return s.engine.Post(ctx, ledger.Header{
		BookID:      m.BookID,
		PostDate:    s.dateOr(m.Date),
		Description: description,
		SourceType:  ledger.SourceTaxManual,
	}, splits)
}
