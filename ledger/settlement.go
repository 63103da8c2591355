/*
settlement.go - Source document status machine

STATES:
  DRAFT -> POSTED -> APPROVED   (monotonic, APPROVED is terminal)

  DRAFT -> POSTED     when the document's own transaction is committed
  POSTED -> APPROVED  when settled >= total

SETTLED AMOUNT:
  Sum of |amount| over splits that
    - belong to a transaction whose source id is the document id,
    - are not part of the document's own posting transaction,
    - sit on an account of the settlement type
      (ASSET for sales invoices, LIABILITY for purchase invoices/orders),
    - move in the settling direction
      (credit on ASSET: money collected, debit on LIABILITY: money paid).

  Recomputing is a pure function of the ledger, so running it twice with
  no new postings yields the same status. Reversals are not modelled: an
  APPROVED document stays APPROVED.

CONSISTENCY:
  Recompute reads through TxStore.WithTx when the store offers it, so a
  half-written transaction is never visible. Recomputes of one document
  are serialised in-process.
*/
package ledger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// SettlementSummary is the settlement position of one document.
type SettlementSummary struct {
	DocumentID  DocumentID
	Kind        DocumentKind
	Status      DocumentStatus
	Total       Money
	Settled     Money
	Outstanding Money
}

// SettlementTracker derives document status from the ledger.
type SettlementTracker struct {
	store  Store
	docs   DocumentProvider
	calc   Calculator
	locks  *keyedMutex
	logger *zap.Logger
}

// NewSettlementTracker creates a tracker.
func NewSettlementTracker(store Store, docs DocumentProvider, logger *zap.Logger) *SettlementTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementTracker{store: store, docs: docs, locks: newKeyedMutex(), logger: logger}
}

// MarkPosted moves a DRAFT document to POSTED and records its posting.
func (st *SettlementTracker) MarkPosted(ctx context.Context, docs DocumentProvider, doc SourceDocument, posting DocumentPosting) error {
	if doc.Status != StatusDraft {
		return stateErr(ErrInvalidTransition, "document %s is %s, want %s", doc.ID, doc.Status, StatusDraft)
	}
	if err := docs.RecordPosting(ctx, doc.ID, posting); err != nil {
		return fmt.Errorf("record posting: %w", err)
	}
	if err := docs.SetStatus(ctx, doc.ID, StatusPosted); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	st.logger.Info("document posted",
		zap.String("document_id", string(doc.ID)),
		zap.String("tx_id", string(posting.TxID)),
		zap.Int64("total", posting.Total.Int64()))
	return nil
}

// Recompute re-derives the document's status from its splits.
func (st *SettlementTracker) Recompute(ctx context.Context, id DocumentID) (DocumentStatus, error) {
	unlock := st.locks.Lock(string(id))
	defer unlock()

	var status DocumentStatus
	err := inTx(ctx, st.store, st.docs, func(s Store, docs DocumentProvider) error {
		summary, err := st.summarize(ctx, s, docs, id)
		if err != nil {
			return err
		}
		status = summary.Status
		return nil
	})
	return status, err
}

// Settlement returns the settlement position without changing anything.
func (st *SettlementTracker) Settlement(ctx context.Context, id DocumentID) (SettlementSummary, error) {
	doc, err := st.docs.GetDocument(ctx, id)
	if err != nil {
		return SettlementSummary{}, err
	}
	total, err := st.DocumentTotal(doc)
	if err != nil {
		return SettlementSummary{}, err
	}
	summary := SettlementSummary{DocumentID: doc.ID, Kind: doc.Kind, Status: doc.Status, Total: total}
	if doc.Status == StatusDraft {
		summary.Outstanding = total
		return summary, nil
	}
	splits, err := st.store.QuerySplitsBySource(ctx, string(doc.ID))
	if err != nil {
		return SettlementSummary{}, fmt.Errorf("query splits: %w", err)
	}
	summary.Settled = SettledAmount(doc, splits)
	summary.Outstanding = outstanding(total, summary.Settled)
	return summary, nil
}

func (st *SettlementTracker) summarize(ctx context.Context, s Store, docs DocumentProvider, id DocumentID) (SettlementSummary, error) {
	doc, err := docs.GetDocument(ctx, id)
	if err != nil {
		return SettlementSummary{}, err
	}
	switch doc.Status {
	case StatusDraft:
		return SettlementSummary{}, stateErr(ErrNotPosted, "document %s", doc.ID)
	case StatusApproved:
		return SettlementSummary{DocumentID: doc.ID, Kind: doc.Kind, Status: StatusApproved, Total: doc.Total, Settled: doc.Total}, nil
	}

	total, err := st.DocumentTotal(doc)
	if err != nil {
		return SettlementSummary{}, err
	}
	splits, err := s.QuerySplitsBySource(ctx, string(doc.ID))
	if err != nil {
		return SettlementSummary{}, fmt.Errorf("query splits: %w", err)
	}
	settled := SettledAmount(doc, splits)
	next := NextStatus(doc.Status, settled, total)
	if next != doc.Status {
		if err := docs.SetStatus(ctx, doc.ID, next); err != nil {
			return SettlementSummary{}, fmt.Errorf("set status: %w", err)
		}
		st.logger.Info("document settled",
			zap.String("document_id", string(doc.ID)),
			zap.Int64("settled", settled.Int64()),
			zap.Int64("total", total.Int64()))
	}
	return SettlementSummary{
		DocumentID:  doc.ID,
		Kind:        doc.Kind,
		Status:      next,
		Total:       total,
		Settled:     settled,
		Outstanding: outstanding(total, settled),
	}, nil
}

// DocumentTotal returns the total cached at posting time, or re-derives it
// from the lines when nothing is cached.
func (st *SettlementTracker) DocumentTotal(doc SourceDocument) (Money, error) {
	if doc.PostTxID != "" && doc.Total > 0 {
		return doc.Total, nil
	}
	calc, err := st.calc.Calculate(doc.Lines, doc.Kind.Sales())
	if err != nil {
		return 0, err
	}
	return calc.Total, nil
}

// SettledAmount sums the settling splits of doc.
func SettledAmount(doc SourceDocument, splits []SplitDetail) Money {
	typ := doc.Kind.SettlementAccountType()
	var settled Money
	for _, s := range splits {
		if s.SourceID != string(doc.ID) || s.AccountType != typ {
			continue
		}
		if s.TxID == doc.PostTxID || s.SourceType == doc.Kind.PostingSource() {
			continue
		}
		if (typ == AccountAsset && s.Amount < 0) || (typ == AccountLiability && s.Amount > 0) {
			settled += s.Amount.Abs()
		}
	}
	return settled
}

// NextStatus applies the settlement rule without ever moving backwards.
func NextStatus(current DocumentStatus, settled, total Money) DocumentStatus {
	next := StatusPosted
	if settled >= total {
		next = StatusApproved
	}
	if current.rank() > next.rank() {
		return current
	}
	return next
}

func outstanding(total, settled Money) Money {
	if settled >= total {
		return 0
	}
	return total - settled
}

// inTx runs fn against a consistent view: the TxStore's transaction when
// available (sharing it with documents if the view provides them).
func inTx(ctx context.Context, store Store, docs DocumentProvider, fn func(Store, DocumentProvider) error) error {
	ts, ok := store.(TxStore)
	if !ok {
		return fn(store, docs)
	}
	return ts.WithTx(ctx, func(s Store) error {
		d := docs
		if td, ok := s.(DocumentProvider); ok {
			d = td
		}
		return fn(s, d)
	})
}

// =============================================================================
// PER-DOCUMENT LOCKS
// =============================================================================

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock acquires the mutex for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
