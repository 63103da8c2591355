// Package store provides in-memory implementations of the ledger contracts.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moon/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.ChartProvider, ledger.Store and ledger.DocumentProvider.
type Memory struct {
	mu        sync.RWMutex
	accounts  map[ledger.AccountID]ledger.Account
	txs       map[ledger.TransactionID]ledger.Transaction
	order     []ledger.TransactionID // by post date, then id
	splits    map[ledger.TransactionID][]ledger.Split
	documents map[ledger.DocumentID]ledger.SourceDocument
	owners    map[ledger.OwnerID]ledger.Owner
}

func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[ledger.AccountID]ledger.Account),
		txs:       make(map[ledger.TransactionID]ledger.Transaction),
		splits:    make(map[ledger.TransactionID][]ledger.Split),
		documents: make(map[ledger.DocumentID]ledger.SourceDocument),
		owners:    make(map[ledger.OwnerID]ledger.Owner),
	}
}

// =============================================================================
// CHART
// =============================================================================

// SaveAccount inserts or replaces an account.
func (m *Memory) SaveAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) ListAccounts(_ context.Context, bookID ledger.BookID) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAccountsLocked(bookID), nil
}

func (m *Memory) listAccountsLocked(bookID ledger.BookID) []ledger.Account {
	var out []ledger.Account
	for _, a := range m.accounts {
		if a.BookID == bookID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// =============================================================================
// LEDGER
// =============================================================================

// AppendTransaction adds a transaction and its splits. Append-only.
func (m *Memory) AppendTransaction(_ context.Context, tx ledger.Transaction, splits []ledger.Split) (ledger.TransactionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(tx, splits)
}

func (m *Memory) appendLocked(tx ledger.Transaction, splits []ledger.Split) (ledger.TransactionID, error) {
	if _, exists := m.txs[tx.ID]; exists {
		return "", ledger.ErrDuplicateTransaction
	}

	// Binary search for insertion point keeps order sorted without a re-sort.
	i := sort.Search(len(m.order), func(i int) bool {
		other := m.txs[m.order[i]]
		if !other.PostDate.Equal(tx.PostDate) {
			return other.PostDate.After(tx.PostDate)
		}
		return other.ID > tx.ID
	})
	m.order = append(m.order, "")
	copy(m.order[i+1:], m.order[i:])
	m.order[i] = tx.ID

	m.txs[tx.ID] = tx
	stored := make([]ledger.Split, len(splits))
	copy(stored, splits)
	for k := range stored {
		stored[k].TxID = tx.ID
	}
	m.splits[tx.ID] = stored
	return tx.ID, nil
}

func (m *Memory) QueryBalances(_ context.Context, bookID ledger.BookID, period ledger.Period) ([]ledger.AccountBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryBalancesLocked(bookID, period), nil
}

func (m *Memory) queryBalancesLocked(bookID ledger.BookID, period ledger.Period) []ledger.AccountBalance {
	sums := make(map[ledger.AccountID]ledger.Money)
	for _, id := range m.order {
		tx := m.txs[id]
		if tx.BookID != bookID || !period.Contains(tx.PostDate) {
			continue
		}
		for _, s := range m.splits[id] {
			sums[s.AccountID] += s.Amount
		}
	}
	out := make([]ledger.AccountBalance, 0, len(sums))
	for id, amount := range sums {
		out = append(out, ledger.AccountBalance{AccountID: id, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

func (m *Memory) QuerySplitsBySource(_ context.Context, sourceID string) ([]ledger.SplitDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectLocked(func(tx ledger.Transaction, _ ledger.Split) bool {
		return tx.SourceID == sourceID
	}), nil
}

func (m *Memory) QuerySplitsByAccount(_ context.Context, bookID ledger.BookID, accounts []ledger.AccountID, period ledger.Period) ([]ledger.SplitDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.splitsByAccountLocked(bookID, accounts, period), nil
}

func (m *Memory) splitsByAccountLocked(bookID ledger.BookID, accounts []ledger.AccountID, period ledger.Period) []ledger.SplitDetail {
	want := make(map[ledger.AccountID]bool, len(accounts))
	for _, id := range accounts {
		want[id] = true
	}
	return m.collectLocked(func(tx ledger.Transaction, s ledger.Split) bool {
		return tx.BookID == bookID && want[s.AccountID] && period.Contains(tx.PostDate)
	})
}

func (m *Memory) ListUnreconciled(_ context.Context, bookID ledger.BookID) ([]ledger.SplitDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unreconciledLocked(bookID), nil
}

func (m *Memory) unreconciledLocked(bookID ledger.BookID) []ledger.SplitDetail {
	return m.collectLocked(func(tx ledger.Transaction, s ledger.Split) bool {
		return tx.BookID == bookID && s.ReconcileState != ledger.Reconciled
	})
}

func (m *Memory) MarkReconciled(_ context.Context, ids []ledger.SplitID, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markLocked(ids, date)
	return nil
}

func (m *Memory) markLocked(ids []ledger.SplitID, date time.Time) {
	want := make(map[ledger.SplitID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for txID, splits := range m.splits {
		for k, s := range splits {
			if !want[s.ID] || s.ReconcileState == ledger.Reconciled {
				continue
			}
			d := date
			splits[k].ReconcileState = ledger.Reconciled
			splits[k].ReconcileDate = &d
		}
		m.splits[txID] = splits
	}
}

// GetTransaction returns a header and its splits.
func (m *Memory) GetTransaction(_ context.Context, id ledger.TransactionID) (ledger.Transaction, []ledger.Split, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[id]
	if !ok {
		return ledger.Transaction{}, nil, ledger.ErrTransactionNotFound
	}
	return tx, append([]ledger.Split(nil), m.splits[id]...), nil
}

// collectLocked joins matching splits with their header and account, in ledger order.
func (m *Memory) collectLocked(match func(ledger.Transaction, ledger.Split) bool) []ledger.SplitDetail {
	var out []ledger.SplitDetail
	for _, id := range m.order {
		tx := m.txs[id]
		for _, s := range m.splits[id] {
			if !match(tx, s) {
				continue
			}
			a := m.accounts[s.AccountID]
			out = append(out, ledger.SplitDetail{
				Split:       s,
				BookID:      tx.BookID,
				PostDate:    tx.PostDate,
				Description: tx.Description,
				SourceType:  tx.SourceType,
				SourceID:    tx.SourceID,
				AccountName: a.Name,
				AccountType: a.Type,
			})
		}
	}
	return out
}

// =============================================================================
// DOCUMENTS & OWNERS
// =============================================================================

// SaveDocument inserts or replaces a document.
func (m *Memory) SaveDocument(_ context.Context, doc ledger.SourceDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = copyDocument(doc)
	return nil
}

func (m *Memory) GetDocument(_ context.Context, id ledger.DocumentID) (ledger.SourceDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getDocumentLocked(id)
}

func (m *Memory) getDocumentLocked(id ledger.DocumentID) (ledger.SourceDocument, error) {
	doc, ok := m.documents[id]
	if !ok {
		return ledger.SourceDocument{}, &ledger.StateError{Err: ledger.ErrDocumentNotFound, Reason: string(id)}
	}
	return copyDocument(doc), nil
}

// ListDocuments returns documents of a book (all books when bookID is empty)
// ordered by date then number.
func (m *Memory) ListDocuments(_ context.Context, bookID ledger.BookID, filter ledger.DocumentFilter) ([]ledger.SourceDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.SourceDocument
	for _, doc := range m.documents {
		if (bookID == "" || doc.BookID == bookID) && filter.Match(doc) {
			out = append(out, copyDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) SetStatus(_ context.Context, id ledger.DocumentID, status ledger.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setStatusLocked(id, status)
}

func (m *Memory) setStatusLocked(id ledger.DocumentID, status ledger.DocumentStatus) error {
	doc, ok := m.documents[id]
	if !ok {
		return &ledger.StateError{Err: ledger.ErrDocumentNotFound, Reason: string(id)}
	}
	doc.Status = status
	m.documents[id] = doc
	return nil
}

func (m *Memory) RecordPosting(_ context.Context, id ledger.DocumentID, p ledger.DocumentPosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordPostingLocked(id, p)
}

func (m *Memory) recordPostingLocked(id ledger.DocumentID, p ledger.DocumentPosting) error {
	doc, ok := m.documents[id]
	if !ok {
		return &ledger.StateError{Err: ledger.ErrDocumentNotFound, Reason: string(id)}
	}
	doc.PostTxID = p.TxID
	doc.Total = p.Total
	doc.CounterAccountID = p.CounterAccountID
	m.documents[id] = doc
	return nil
}

// SaveOwner inserts or replaces a customer, vendor or employee.
func (m *Memory) SaveOwner(_ context.Context, o ledger.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[o.ID] = o
	return nil
}

func (m *Memory) GetOwner(_ context.Context, id ledger.OwnerID) (ledger.Owner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.owners[id]
	if !ok {
		return ledger.Owner{}, &ledger.StateError{Err: ledger.ErrOwnerNotFound, Reason: string(id)}
	}
	return o, nil
}

// ListOwners returns owners of a kind (all kinds when empty) ordered by name.
func (m *Memory) ListOwners(_ context.Context, bookID ledger.BookID, kind ledger.OwnerKind) ([]ledger.Owner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Owner
	for _, o := range m.owners {
		if o.BookID == bookID && (kind == "" || o.Kind == kind) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func copyDocument(doc ledger.SourceDocument) ledger.SourceDocument {
	doc.Lines = append([]ledger.LineItem(nil), doc.Lines...)
	return doc
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The write lock is held for the whole call, so fn sees a consistent state.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}
	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	txs       map[ledger.TransactionID]ledger.Transaction
	order     []ledger.TransactionID
	splits    map[ledger.TransactionID][]ledger.Split
	documents map[ledger.DocumentID]ledger.SourceDocument
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		txs:       make(map[ledger.TransactionID]ledger.Transaction, len(tm.txs)),
		order:     append([]ledger.TransactionID(nil), tm.order...),
		splits:    make(map[ledger.TransactionID][]ledger.Split, len(tm.splits)),
		documents: make(map[ledger.DocumentID]ledger.SourceDocument, len(tm.documents)),
	}
	for k, v := range tm.txs {
		s.txs[k] = v
	}
	for k, v := range tm.splits {
		s.splits[k] = append([]ledger.Split(nil), v...)
	}
	for k, v := range tm.documents {
		s.documents[k] = copyDocument(v)
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.txs = s.txs
	tm.order = s.order
	tm.splits = s.splits
	tm.documents = s.documents
}

// txMemoryView runs against the parent while WithTx holds its lock.
// It also serves documents so status changes join the same unit of work.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) AppendTransaction(_ context.Context, tx ledger.Transaction, splits []ledger.Split) (ledger.TransactionID, error) {
	return tv.parent.appendLocked(tx, splits)
}

func (tv *txMemoryView) QueryBalances(_ context.Context, bookID ledger.BookID, period ledger.Period) ([]ledger.AccountBalance, error) {
	return tv.parent.queryBalancesLocked(bookID, period), nil
}

func (tv *txMemoryView) QuerySplitsBySource(_ context.Context, sourceID string) ([]ledger.SplitDetail, error) {
	return tv.parent.collectLocked(func(tx ledger.Transaction, _ ledger.Split) bool {
		return tx.SourceID == sourceID
	}), nil
}

func (tv *txMemoryView) QuerySplitsByAccount(_ context.Context, bookID ledger.BookID, accounts []ledger.AccountID, period ledger.Period) ([]ledger.SplitDetail, error) {
	return tv.parent.splitsByAccountLocked(bookID, accounts, period), nil
}

func (tv *txMemoryView) ListUnreconciled(_ context.Context, bookID ledger.BookID) ([]ledger.SplitDetail, error) {
	return tv.parent.unreconciledLocked(bookID), nil
}

func (tv *txMemoryView) MarkReconciled(_ context.Context, ids []ledger.SplitID, date time.Time) error {
	tv.parent.markLocked(ids, date)
	return nil
}

func (tv *txMemoryView) GetDocument(_ context.Context, id ledger.DocumentID) (ledger.SourceDocument, error) {
	return tv.parent.getDocumentLocked(id)
}

func (tv *txMemoryView) SetStatus(_ context.Context, id ledger.DocumentID, status ledger.DocumentStatus) error {
	return tv.parent.setStatusLocked(id, status)
}

func (tv *txMemoryView) RecordPosting(_ context.Context, id ledger.DocumentID, p ledger.DocumentPosting) error {
	return tv.parent.recordPostingLocked(id, p)
}
