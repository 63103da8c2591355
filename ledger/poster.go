/*
poster.go - Balanced transaction construction and commit

POSTING MODES:
  Simple:     (debit, credit, amount) -> +amount / -amount
  Invoice:    Calculation + counter account
                sales:    counter +total, revenue -base, tax -tax
                purchase: expense +base, tax +tax, counter -total
  General:    caller-built split set (manual tax, bank statement lines)

SAFETY NET:
  Prepare re-sums every proposed split set exactly (no int64 wrap) and
  refuses anything that is not zero with an InvariantViolation, no matter
  which mode built it. Each split is then held to |amount| <= MaxAmount.
  This runs before the store is touched, so an unbalanced set is never
  persisted, not even partially.

ATOMICITY:
  Commit hands the header and all splits to Store.AppendTransaction in
  one call. The store writes all of them or none.
*/
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimplePosting moves Amount from Credit to Debit.
type SimplePosting struct {
	Header
	Debit  AccountID
	Credit AccountID
	Amount Money
	Memo   string
}

// PreparedTransaction is a validated header and split set ready to commit.
type PreparedTransaction struct {
	Transaction Transaction
	Splits      []Split
}

// Poster builds and commits balanced transactions.
type Poster struct {
	chart  ChartProvider
	store  Store
	newID  func() string
	now    func() time.Time
	logger *zap.Logger
}

// NewPoster creates a poster over a chart and a store.
func NewPoster(chart ChartProvider, store Store, logger *zap.Logger) *Poster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poster{
		chart:  chart,
		store:  store,
		newID:  uuid.NewString,
		now:    time.Now,
		logger: logger,
	}
}

// =============================================================================
// POSTING MODES
// =============================================================================

// PostSimple posts a two-split transaction.
func (p *Poster) PostSimple(ctx context.Context, sp SimplePosting) (TransactionID, error) {
	prepared, err := p.PrepareSimple(ctx, sp)
	if err != nil {
		return "", err
	}
	return p.Commit(ctx, p.store, prepared)
}

// PrepareSimple validates a simple posting without writing it.
func (p *Poster) PrepareSimple(ctx context.Context, sp SimplePosting) (PreparedTransaction, error) {
	if sp.Amount <= 0 {
		return PreparedTransaction{}, invalid(ErrNonPositiveAmount, "amount", sp.Amount.String())
	}
	if sp.Debit == sp.Credit {
		return PreparedTransaction{}, invalid(ErrSameAccount, "credit", string(sp.Credit))
	}
	splits := []Split{
		{AccountID: sp.Debit, Amount: sp.Amount, Memo: sp.Memo},
		{AccountID: sp.Credit, Amount: -sp.Amount, Memo: sp.Memo},
	}
	return p.Prepare(ctx, sp.Header, splits, nil)
}

// PostCalculation posts a priced calculation against counter.
func (p *Poster) PostCalculation(ctx context.Context, h Header, calc Calculation, counter AccountID, sales bool) (TransactionID, error) {
	prepared, err := p.PrepareCalculation(ctx, h, calc, counter, sales)
	if err != nil {
		return "", err
	}
	return p.Commit(ctx, p.store, prepared)
}

// PrepareCalculation validates an invoice posting without writing it.
func (p *Poster) PrepareCalculation(ctx context.Context, h Header, calc Calculation, counter AccountID, sales bool) (PreparedTransaction, error) {
	if calc.Total <= 0 {
		return PreparedTransaction{}, invalid(ErrNonPositiveAmount, "total", calc.Total.String())
	}
	want := AccountLiability
	if sales {
		want = AccountAsset
	}
	checkCounter := func(tree *AccountTree) error {
		n, ok := tree.Node(counter)
		if !ok {
			return stateErr(ErrAccountNotFound, "counter account %s", counter)
		}
		if n.Account.Type != want {
			return stateErr(ErrCounterAccountType, "%s is %s, want %s", counter, n.Account.Type, want)
		}
		return nil
	}
	return p.Prepare(ctx, h, calc.Splits(counter, sales), checkCounter)
}

// Post validates and commits a caller-built split set.
func (p *Poster) Post(ctx context.Context, h Header, splits []Split) (TransactionID, error) {
	prepared, err := p.Prepare(ctx, h, splits, nil)
	if err != nil {
		return "", err
	}
	return p.Commit(ctx, p.store, prepared)
}

// =============================================================================
// PREPARE / COMMIT
// =============================================================================

// Prepare runs the zero-sum safety net and account checks, then assigns ids.
// check, when set, runs against the book's account tree after the built-in checks.
func (p *Poster) Prepare(ctx context.Context, h Header, splits []Split, check func(*AccountTree) error) (PreparedTransaction, error) {
	if len(splits) < 2 {
		return PreparedTransaction{}, invalid(ErrTooFewSplits, "splits", fmt.Sprintf("got %d", len(splits)))
	}
	if err := p.checkBalanced(splits); err != nil {
		return PreparedTransaction{}, err
	}
	for i, s := range splits {
		if !s.Amount.InRange() {
			return PreparedTransaction{}, invalid(ErrAmountOutOfRange, fmt.Sprintf("splits[%d].amount", i), s.Amount.String())
		}
	}

	accounts, err := p.chart.ListAccounts(ctx, h.BookID)
	if err != nil {
		return PreparedTransaction{}, fmt.Errorf("list accounts: %w", err)
	}
	tree := BuildTree(accounts, nil)
	for _, s := range splits {
		n, ok := tree.Node(s.AccountID)
		if !ok {
			return PreparedTransaction{}, stateErr(ErrAccountNotFound, "%s in book %s", s.AccountID, h.BookID)
		}
		if n.Account.Placeholder {
			p.logger.Warn("posting to placeholder account",
				zap.String("account_id", string(s.AccountID)),
				zap.String("account", n.Account.Name))
		}
	}
	if check != nil {
		if err := check(tree); err != nil {
			return PreparedTransaction{}, err
		}
	}

	now := p.now().UTC()
	postDate := h.PostDate
	if postDate.IsZero() {
		postDate = now
	}
	tx := Transaction{
		ID:          TransactionID(p.newID()),
		BookID:      h.BookID,
		Number:      h.Number,
		PostDate:    postDate,
		EnteredAt:   now,
		Description: h.Description,
		Status:      TxPosted,
		SourceType:  h.SourceType,
		SourceID:    h.SourceID,
	}
	if tx.SourceType == "" {
		tx.SourceType = SourceManual
	}

	out := make([]Split, len(splits))
	for i, s := range splits {
		s.ID = SplitID(p.newID())
		s.TxID = tx.ID
		s.ReconcileState = Unreconciled
		s.ReconcileDate = nil
		out[i] = s
	}
	return PreparedTransaction{Transaction: tx, Splits: out}, nil
}

// Commit re-checks the split set and appends it through s.
func (p *Poster) Commit(ctx context.Context, s Store, prepared PreparedTransaction) (TransactionID, error) {
	if err := p.checkBalanced(prepared.Splits); err != nil {
		return "", err
	}
	id, err := s.AppendTransaction(ctx, prepared.Transaction, prepared.Splits)
	if err != nil {
		return "", fmt.Errorf("append transaction: %w", err)
	}
	p.logger.Debug("transaction posted",
		zap.String("tx_id", string(id)),
		zap.String("book_id", string(prepared.Transaction.BookID)),
		zap.String("source_type", string(prepared.Transaction.SourceType)),
		zap.String("source_id", prepared.Transaction.SourceID),
		zap.Int("splits", len(prepared.Splits)))
	return id, nil
}

func (p *Poster) checkBalanced(splits []Split) error {
	sum, ok := splitSum(splits)
	if ok && sum == 0 {
		return nil
	}
	err := &InvariantViolation{Sum: sum, Splits: append([]Split(nil), splits...), Overflow: !ok}
	p.logger.Error("unbalanced transaction rejected",
		zap.Int64("sum", sum.Int64()),
		zap.Bool("overflow", !ok),
		zap.Int("splits", len(splits)))
	return err
}

// Balanced reports whether splits sum to exactly zero.
func Balanced(splits []Split) bool {
	sum, ok := splitSum(splits)
	return ok && sum == 0
}

// splitSum adds amounts without wrapping. ok is false when the exact sum
// does not fit in Money.
func splitSum(splits []Split) (Money, bool) {
	total := new(big.Int)
	for _, s := range splits {
		total.Add(total, big.NewInt(int64(s.Amount)))
	}
	if !total.IsInt64() {
		return 0, false
	}
	return Money(total.Int64()), true
}
