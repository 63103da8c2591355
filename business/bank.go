package business

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/moon/ledger-engine/ledger"
)

// StatementLine is one row of a bank statement. A positive amount is money
// in, a negative one money out.
type StatementLine struct {
	BookID      ledger.BookID
	Date        time.Time
	Amount      ledger.Money
	Description string
	Reference   string
	// BankAccountID defaults to the bank role.
	BankAccountID ledger.AccountID
	// CounterAccountID defaults to the suspense role.
	CounterAccountID ledger.AccountID
}

// ImportStatementLine posts a line as a BANK_STATEMENT transaction, which
// puts its bank split on the bank side of reconciliation.
func (s *Service) ImportStatementLine(ctx context.Context, line StatementLine) (ledger.TransactionID, error) {
	if line.Amount == 0 {
		return "", &ledger.ValidationError{Err: ErrZeroStatementLine, Field: "amount"}
	}
	roles, err := s.roles.Roles(ctx, line.BookID)
	if err != nil {
		return "", err
	}
	bank, err := pick(line.BankAccountID, "bank", roles.Bank)
	if err != nil {
		return "", err
	}
	counter, err := pick(line.CounterAccountID, "suspense", roles.Suspense)
	if err != nil {
		return "", err
	}
	return s.engine.Post(ctx, ledger.Header{
		BookID:      line.BookID,
		PostDate:    s.dateOr(line.Date),
		Number:      line.Reference,
		Description: line.Description,
		SourceType:  ledger.SourceBankStatement,
		SourceID:    line.Reference,
	}, []ledger.Split{
		{AccountID: bank, Amount: line.Amount, Memo: line.Description},
		{AccountID: counter, Amount: -line.Amount, Memo: line.Description},
	})
}

// ImportStatement posts lines in order and stops at the first failure. The
// ids of lines already posted are returned with the error.
func (s *Service) ImportStatement(ctx context.Context, lines []StatementLine) ([]ledger.TransactionID, error) {
	ids := make([]ledger.TransactionID, 0, len(lines))
	for i, line := range lines {
		id, err := s.ImportStatementLine(ctx, line)
		if err != nil {
			return ids, fmt.Errorf("statement line %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	s.logger.Info("statement imported", zap.Int("lines", len(ids)))
	return ids, nil
}
