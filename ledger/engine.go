/*
engine.go - Entry point tying the posting components together

OPERATIONS:
  PostInvoice             price a document's lines and post them against a counter account
  PostSimple / Post       two-split and caller-built postings
  RecomputeSettlement     re-derive a document's status from the ledger
  AccountTreeWithBalances chart of accounts with rolled-up balances
  TrialBalance, ProfitAndLoss, BalanceSheet, CashFlow
  ReconciliationCandidates / MarkReconciled
  AccountRegister         splits of an account (optionally with descendants) and running balance

CONFIGURATION:
  Functional options: logger, keyword classifier, explicit cash and bank
  accounts, id generator and clock (tests).
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithClassifier(c Classifier) Option { return func(e *Engine) { e.classifier = c } }

// WithCashAccounts pins the cash-flow report to these accounts and their descendants.
func WithCashAccounts(ids ...AccountID) Option { return func(e *Engine) { e.cashAccounts = ids } }

// WithBankAccounts designates accounts whose splits are bank-side in reconciliation.
func WithBankAccounts(ids ...AccountID) Option { return func(e *Engine) { e.bankAccounts = ids } }

func WithIDGenerator(fn func() string) Option { return func(e *Engine) { e.newID = fn } }

func WithClock(fn func() time.Time) Option { return func(e *Engine) { e.now = fn } }

// Engine is the posting and settlement engine for all books in a store.
type Engine struct {
	chart ChartProvider
	store Store
	docs  DocumentProvider

	calc    Calculator
	poster  *Poster
	tracker *SettlementTracker
	reports *ReportAggregator
	matcher *ReconciliationMatcher

	logger       *zap.Logger
	classifier   Classifier
	cashAccounts []AccountID
	bankAccounts []AccountID
	newID        func() string
	now          func() time.Time
}

// NewEngine creates an engine over a chart, a ledger store and a document provider.
// A single store implementation commonly serves all three.
func NewEngine(chart ChartProvider, store Store, docs DocumentProvider, opts ...Option) *Engine {
	e := &Engine{
		chart:      chart,
		store:      store,
		docs:       docs,
		logger:     zap.NewNop(),
		classifier: DefaultClassifier(),
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.poster = NewPoster(chart, store, e.logger)
	e.poster.newID = e.newID
	e.poster.now = e.now
	e.tracker = NewSettlementTracker(store, docs, e.logger)
	e.reports = NewReportAggregator(chart, store, e.classifier, e.cashAccounts)
	e.matcher = NewReconciliationMatcher(store, e.bankAccounts)
	return e
}

func (e *Engine) Calculator() Calculator { return e.calc }
func (e *Engine) Poster() *Poster { return e.poster }
func (e *Engine) Settlements() *SettlementTracker { return e.tracker }
func (e *Engine) Reports() *ReportAggregator { return e.reports }
func (e *Engine) Reconciliation() *ReconciliationMatcher { return e.matcher }

// =============================================================================
// POSTING
// =============================================================================

// PostInvoice posts a DRAFT document against counter (receivable for sales,
// payable for purchases) and moves it to POSTED in the same unit of work.
func (e *Engine) PostInvoice(ctx context.Context, doc SourceDocument, counter AccountID, sales bool) (TransactionID, error) {
	if sales != doc.Kind.Sales() {
		return "", invalid(ErrInvalidInput, "sales", fmt.Sprintf("%s is not a %s document", doc.Kind, sideName(sales)))
	}
	unlock := e.tracker.locks.Lock(string(doc.ID))
	defer unlock()

	current, err := e.docs.GetDocument(ctx, doc.ID)
	if err != nil {
		return "", err
	}
	if current.Status != StatusDraft {
		return "", stateErr(ErrInvalidTransition, "document %s is already %s", current.ID, current.Status)
	}

	calc, err := e.calc.Calculate(current.Lines, sales)
	if err != nil {
		return "", err
	}
	description := current.Description
	if description == "" {
		description = fmt.Sprintf("%s %s", current.Kind, current.Number)
	}
	header := Header{
		BookID:      current.BookID,
		PostDate:    current.Date,
		Number:      current.Number,
		Description: description,
		SourceType:  current.Kind.PostingSource(),
		SourceID:    string(current.ID),
	}
	prepared, err := e.poster.PrepareCalculation(ctx, header, calc, counter, sales)
	if err != nil {
		return "", err
	}

	var txID TransactionID
	err = inTx(ctx, e.store, e.docs, func(s Store, docs DocumentProvider) error {
		id, err := e.poster.Commit(ctx, s, prepared)
		if err != nil {
			return err
		}
		txID = id
		return e.tracker.MarkPosted(ctx, docs, current, DocumentPosting{TxID: id, Total: calc.Total, CounterAccountID: counter})
	})
	if err != nil {
		return "", err
	}
	return txID, nil
}

func sideName(sales bool) string {
	if sales {
		return "sales"
	}
	return "purchase"
}

// PostSimple posts +amount on the debit account and -amount on the credit account.
func (e *Engine) PostSimple(ctx context.Context, sp SimplePosting) (TransactionID, error) {
	return e.poster.PostSimple(ctx, sp)
}

// Post commits a caller-built split set after the zero-sum check.
func (e *Engine) Post(ctx context.Context, h Header, splits []Split) (TransactionID, error) {
	return e.poster.Post(ctx, h, splits)
}

// RecomputeSettlement re-derives a document's status from its splits.
func (e *Engine) RecomputeSettlement(ctx context.Context, id DocumentID) (DocumentStatus, error) {
	return e.tracker.Recompute(ctx, id)
}

// Settlement returns a document's settled and outstanding amounts.
func (e *Engine) Settlement(ctx context.Context, id DocumentID) (SettlementSummary, error) {
	return e.tracker.Settlement(ctx, id)
}

// =============================================================================
// REPORTING
// =============================================================================

// AccountTreeWithBalances returns the chart with balances through asOf
// (zero asOf means everything posted).
func (e *Engine) AccountTreeWithBalances(ctx context.Context, bookID BookID, asOf time.Time) (*AccountTree, error) {
	return e.reports.Tree(ctx, bookID, Through(asOf))
}

func (e *Engine) TrialBalance(ctx context.Context, bookID BookID, asOf time.Time) (TrialBalance, error) {
	return e.reports.TrialBalance(ctx, bookID, asOf)
}

func (e *Engine) ProfitAndLoss(ctx context.Context, bookID BookID, period Period) (ProfitAndLoss, error) {
	if !period.Valid() {
		return ProfitAndLoss{}, invalid(ErrInvalidInput, "period", "end before start")
	}
	return e.reports.ProfitAndLoss(ctx, bookID, period)
}

func (e *Engine) BalanceSheet(ctx context.Context, bookID BookID, asOf time.Time) (BalanceSheet, error) {
	return e.reports.BalanceSheet(ctx, bookID, asOf)
}

func (e *Engine) CashFlow(ctx context.Context, bookID BookID, period Period) (CashFlow, error) {
	return e.reports.CashFlow(ctx, bookID, period)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func (e *Engine) ReconciliationCandidates(ctx context.Context, bookID BookID) (ReconciliationCandidates, error) {
	return e.matcher.Candidates(ctx, bookID)
}

func (e *Engine) MarkReconciled(ctx context.Context, ids []SplitID, asOf time.Time) error {
	return e.matcher.MarkReconciled(ctx, ids, asOf)
}

// =============================================================================
// ACCOUNT REGISTER
// =============================================================================

// RegisterLine is a split with the running balance after it.
type RegisterLine struct {
	SplitDetail
	Running Money
}

// AccountRegister lists the activity of one account (or a subtree).
type AccountRegister struct {
	AccountID AccountID
	Accounts  []AccountID
	Opening   Money
	Closing   Money
	Lines     []RegisterLine
}

// AccountRegister returns the splits of accountID inside period with a
// running balance that starts from everything posted before the period.
func (e *Engine) AccountRegister(ctx context.Context, bookID BookID, accountID AccountID, includeChildren bool, period Period) (AccountRegister, error) {
	accounts, err := e.chart.ListAccounts(ctx, bookID)
	if err != nil {
		return AccountRegister{}, fmt.Errorf("list accounts: %w", err)
	}
	tree := BuildTree(accounts, nil)
	if _, ok := tree.Node(accountID); !ok {
		return AccountRegister{}, stateErr(ErrAccountNotFound, "%s in book %s", accountID, bookID)
	}
	ids := []AccountID{accountID}
	if includeChildren {
		ids = tree.Descendants(accountID)
	}
	in := make(map[AccountID]bool, len(ids))
	for _, id := range ids {
		in[id] = true
	}

	reg := AccountRegister{AccountID: accountID, Accounts: ids}
	if before, ok := period.Before(); ok {
		rows, err := e.store.QueryBalances(ctx, bookID, before)
		if err != nil {
			return AccountRegister{}, fmt.Errorf("query balances: %w", err)
		}
		for _, r := range rows {
			if in[r.AccountID] {
				reg.Opening += r.Amount
			}
		}
	}

	splits, err := e.store.QuerySplitsByAccount(ctx, bookID, ids, period)
	if err != nil {
		return AccountRegister{}, fmt.Errorf("query splits: %w", err)
	}
	running := reg.Opening
	for _, s := range splits {
		running += s.Amount
		reg.Lines = append(reg.Lines, RegisterLine{SplitDetail: s, Running: running})
	}
	reg.Closing = running
	return reg, nil
}
