/*
store.go - Persistence contracts consumed by the engine

KEY INTERFACES:
  ChartProvider:    Chart of accounts for a book
  Store:            Ledger persistence (append + aggregate queries)
  TxStore:          Store with a transactional, consistent-snapshot view
  DocumentProvider: Source documents and their status

APPEND-ONLY CONTRACT:
  Transactions and splits are never updated or deleted. The one mutable
  field is a split's reconcile mark, which only moves N -> Y.

ATOMIC APPENDS:
  AppendTransaction writes the header and every split or nothing at all.
  The engine validates the split set before calling it, so a store never
  sees an unbalanced transaction.

OPTIONAL CAPABILITIES:
  The engine type-asserts for TxStore. When the view handed to WithTx also
  implements DocumentProvider, document updates join the same transaction.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: SQLite
*/
package ledger

import (
	"context"
	"time"
)

// ChartProvider lists a book's accounts.
type ChartProvider interface {
	ListAccounts(ctx context.Context, bookID BookID) ([]Account, error)
}

// Store handles ledger persistence.
type Store interface {
	// AppendTransaction persists the header and its splits atomically.
	// Split ids and tx ids are already assigned by the caller.
	AppendTransaction(ctx context.Context, tx Transaction, splits []Split) (TransactionID, error)

	// QueryBalances returns the net amount per account for splits whose
	// transaction post date lies in period. Accounts without splits are omitted.
	QueryBalances(ctx context.Context, bookID BookID, period Period) ([]AccountBalance, error)

	// QuerySplitsBySource returns every split of every transaction whose
	// source id matches, ordered by post date then transaction id.
	QuerySplitsBySource(ctx context.Context, sourceID string) ([]SplitDetail, error)

	// QuerySplitsByAccount returns splits of the given accounts in period,
	// ordered by post date then transaction id.
	QuerySplitsByAccount(ctx context.Context, bookID BookID, accounts []AccountID, period Period) ([]SplitDetail, error)

	// ListUnreconciled returns splits of the book whose state is N.
	ListUnreconciled(ctx context.Context, bookID BookID) ([]SplitDetail, error)

	// MarkReconciled sets state Y and the date on splits still in state N.
	// Already reconciled or unknown ids are skipped.
	MarkReconciled(ctx context.Context, ids []SplitID, date time.Time) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. Reads through the view see a
	// consistent snapshot; an error from fn rolls every write back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// DocumentProvider reads and updates source documents.
type DocumentProvider interface {
	GetDocument(ctx context.Context, id DocumentID) (SourceDocument, error)
	SetStatus(ctx context.Context, id DocumentID, status DocumentStatus) error
	RecordPosting(ctx context.Context, id DocumentID, posting DocumentPosting) error
}

// DocumentFilter narrows document listings. Zero fields match everything.
type DocumentFilter struct {
	Kind    DocumentKind
	Status  DocumentStatus
	OwnerID OwnerID
}

// Match reports whether doc passes the filter.
func (f DocumentFilter) Match(doc SourceDocument) bool {
	return (f.Kind == "" || doc.Kind == f.Kind) &&
		(f.Status == "" || doc.Status == f.Status) &&
		(f.OwnerID == "" || doc.OwnerID == f.OwnerID)
}
