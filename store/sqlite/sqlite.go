/*
Package sqlite provides a SQLite-backed implementation of the ledger contracts.

INTERFACES IMPLEMENTED:
  ledger.ChartProvider:    accounts per book
  ledger.Store:            transactions and splits
  ledger.TxStore:          WithTx over a database transaction
  ledger.DocumentProvider: source documents and their status

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE on transactions
  - The only UPDATE on splits moves reconcile_state from 'N' to 'Y'
  - AppendTransaction writes the header and every split in one database
    transaction; a failed split insert rolls the header back

KEY TABLES:
  accounts:     chart of accounts (forest per book, parent_id may be NULL)
  transactions: immutable headers, post_day drives period filters
  splits:       signed amounts in minor units, seq keeps insertion order
  documents:    invoices and orders, lines stored as JSON
  owners:       customers, vendors, employees

CONNECTIONS:
  The pool is limited to one connection. ":memory:" databases live per
  connection, and SQLite allows a single writer anyway. Everything inside
  WithTx therefore runs on the sql.Tx, never on the pool.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store, store, store)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/moon/ledger-engine/ledger"
)

const dayLayout = "2006-01-02"

// Store implements the ledger storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema. It is idempotent and runs on New.
func (s *Store) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schema = `
	-- Chart of accounts
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		parent_id TEXT,
		code TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		placeholder BOOLEAN NOT NULL DEFAULT FALSE,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_book
		ON accounts(book_id, code);

	-- Transaction headers (append-only)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		number TEXT NOT NULL DEFAULT '',
		post_date TEXT NOT NULL,
		post_day TEXT NOT NULL,
		entered_at TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_id TEXT
	);

	-- Period-based balance queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_book_day
		ON transactions(book_id, post_day);

	-- Settlement lookups
	CREATE INDEX IF NOT EXISTS idx_transactions_source
		ON transactions(source_id) WHERE source_id IS NOT NULL;

	-- Splits (append-only except the reconcile mark)
	CREATE TABLE IF NOT EXISTS splits (
		id TEXT PRIMARY KEY,
		tx_id TEXT NOT NULL REFERENCES transactions(id),
		seq INTEGER NOT NULL,
		account_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		memo TEXT NOT NULL DEFAULT '',
		reconcile_state TEXT NOT NULL DEFAULT 'N',
		reconcile_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_splits_tx
		ON splits(tx_id, seq);
	CREATE INDEX IF NOT EXISTS idx_splits_account
		ON splits(account_id);
	CREATE INDEX IF NOT EXISTS idx_splits_unreconciled
		ON splits(reconcile_state) WHERE reconcile_state = 'N';

	-- Source documents
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		number TEXT NOT NULL DEFAULT '',
		doc_date TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'DRAFT',
		lines_json TEXT NOT NULL,
		post_tx_id TEXT,
		total INTEGER NOT NULL DEFAULT 0,
		counter_account_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_book_kind
		ON documents(book_id, kind, status);
	CREATE INDEX IF NOT EXISTS idx_documents_status
		ON documents(status);

	-- Customers, vendors, employees
	CREATE TABLE IF NOT EXISTS owners (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_owners_book_kind
		ON owners(book_id, kind);
`

// conn is satisfied by both *sql.DB and *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// CHART (ledger.ChartProvider)
// =============================================================================

// SaveAccount inserts or replaces an account.
func (s *Store) SaveAccount(ctx context.Context, a ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, book_id, parent_id, code, name, type, placeholder, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			code = excluded.code,
			name = excluded.name,
			type = excluded.type,
			placeholder = excluded.placeholder,
			description = excluded.description
	`, a.ID, a.BookID, nullString(string(a.ParentID)), a.Code, a.Name, a.Type, a.Placeholder, a.Description)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, bookID ledger.BookID) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listAccounts(ctx, s.db, bookID)
}

func listAccounts(ctx context.Context, c conn, bookID ledger.BookID) ([]ledger.Account, error) {
	rows, err := c.QueryContext(ctx, `
		SELECT id, book_id, parent_id, code, name, type, placeholder, description
		FROM accounts WHERE book_id = ? ORDER BY code, id
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var (
			a      ledger.Account
			parent sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.BookID, &parent, &a.Code, &a.Name, &a.Type, &a.Placeholder, &a.Description); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.ParentID = ledger.AccountID(parent.String)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// =============================================================================
// LEDGER (ledger.Store)
// =============================================================================

// AppendTransaction writes the header and all splits in one database transaction.
func (s *Store) AppendTransaction(ctx context.Context, tx ledger.Transaction, splits []ledger.Split) (ledger.TransactionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := appendTx(ctx, sqlTx, tx, splits); err != nil {
		return "", err
	}
	if err := sqlTx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tx.ID, nil
}

func appendTx(ctx context.Context, c conn, tx ledger.Transaction, splits []ledger.Split) error {
	_, err := c.ExecContext(ctx, `
		INSERT INTO transactions
		(id, book_id, number, post_date, post_day, entered_at, description, status, source_type, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.ID,
		tx.BookID,
		tx.Number,
		tx.PostDate.UTC().Format(time.RFC3339),
		ledger.Day(tx.PostDate).Format(dayLayout),
		tx.EnteredAt.UTC().Format(time.RFC3339),
		tx.Description,
		tx.Status,
		tx.SourceType,
		nullString(tx.SourceID),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	for i, sp := range splits {
		state := sp.ReconcileState
		if state == "" {
			state = ledger.Unreconciled
		}
		_, err := c.ExecContext(ctx, `
			INSERT INTO splits (id, tx_id, seq, account_id, amount, memo, reconcile_state, reconcile_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, sp.ID, tx.ID, i, sp.AccountID, int64(sp.Amount), sp.Memo, state, formatDatePtr(sp.ReconcileDate))
		if err != nil {
			return fmt.Errorf("failed to append split %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) QueryBalances(ctx context.Context, bookID ledger.BookID, period ledger.Period) ([]ledger.AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryBalances(ctx, s.db, bookID, period)
}

func queryBalances(ctx context.Context, c conn, bookID ledger.BookID, period ledger.Period) ([]ledger.AccountBalance, error) {
	where, args := periodClause(period)
	rows, err := c.QueryContext(ctx, `
		SELECT s.account_id, SUM(s.amount)
		FROM splits s JOIN transactions t ON t.id = s.tx_id
		WHERE t.book_id = ?`+where+`
		GROUP BY s.account_id
		ORDER BY s.account_id
	`, append([]any{bookID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var out []ledger.AccountBalance
	for rows.Next() {
		var (
			b      ledger.AccountBalance
			amount int64
		)
		if err := rows.Scan(&b.AccountID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		b.Amount = ledger.Money(amount)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) QuerySplitsBySource(ctx context.Context, sourceID string) ([]ledger.SplitDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return querySplits(ctx, s.db, "t.source_id = ?", sourceID)
}

func (s *Store) QuerySplitsByAccount(ctx context.Context, bookID ledger.BookID, accounts []ledger.AccountID, period ledger.Period) ([]ledger.SplitDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return splitsByAccount(ctx, s.db, bookID, accounts, period)
}

func splitsByAccount(ctx context.Context, c conn, bookID ledger.BookID, accounts []ledger.AccountID, period ledger.Period) ([]ledger.SplitDetail, error) {
	if len(accounts) == 0 {
		return nil, nil
	}
	args := []any{bookID}
	for _, id := range accounts {
		args = append(args, id)
	}
	where, periodArgs := periodClause(period)
	cond := "t.book_id = ? AND s.account_id IN (" + placeholders(len(accounts)) + ")" + where
	return querySplits(ctx, c, cond, append(args, periodArgs...)...)
}

func (s *Store) ListUnreconciled(ctx context.Context, bookID ledger.BookID) ([]ledger.SplitDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return querySplits(ctx, s.db, "t.book_id = ? AND s.reconcile_state = 'N'", bookID)
}

// MarkReconciled only touches splits still in state N.
func (s *Store) MarkReconciled(ctx context.Context, ids []ledger.SplitID, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return markReconciled(ctx, s.db, ids, date)
}

func markReconciled(ctx context.Context, c conn, ids []ledger.SplitID, date time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{ledger.Reconciled, date.UTC().Format(time.RFC3339)}
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := c.ExecContext(ctx, `
		UPDATE splits SET reconcile_state = ?, reconcile_date = ?
		WHERE reconcile_state = 'N' AND id IN (`+placeholders(len(ids))+`)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to mark reconciled: %w", err)
	}
	return nil
}

// GetTransaction returns a header and its splits in insertion order.
func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (ledger.Transaction, []ledger.Split, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		tx                ledger.Transaction
		postDate, entered string
		sourceID          sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, book_id, number, post_date, entered_at, description, status, source_type, source_id
		FROM transactions WHERE id = ?
	`, id).Scan(&tx.ID, &tx.BookID, &tx.Number, &postDate, &entered, &tx.Description, &tx.Status, &tx.SourceType, &sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Transaction{}, nil, ledger.ErrTransactionNotFound
	}
	if err != nil {
		return ledger.Transaction{}, nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	tx.PostDate, _ = time.Parse(time.RFC3339, postDate)
	tx.EnteredAt, _ = time.Parse(time.RFC3339, entered)
	tx.SourceID = sourceID.String

	details, err := querySplits(ctx, s.db, "t.id = ?", id)
	if err != nil {
		return ledger.Transaction{}, nil, err
	}
	splits := make([]ledger.Split, len(details))
	for i, d := range details {
		splits[i] = d.Split
	}
	return tx, splits, nil
}

// querySplits joins splits with their header and account, in ledger order.
func querySplits(ctx context.Context, c conn, cond string, args ...any) ([]ledger.SplitDetail, error) {
	rows, err := c.QueryContext(ctx, `
		SELECT s.id, s.tx_id, s.account_id, s.amount, s.memo, s.reconcile_state, s.reconcile_date,
		       t.book_id, t.post_date, t.description, t.source_type, t.source_id,
		       COALESCE(a.name, ''), COALESCE(a.type, '')
		FROM splits s
		JOIN transactions t ON t.id = s.tx_id
		LEFT JOIN accounts a ON a.id = s.account_id
		WHERE `+cond+`
		ORDER BY t.post_date, t.id, s.seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query splits: %w", err)
	}
	defer rows.Close()

	var out []ledger.SplitDetail
	for rows.Next() {
		d, err := scanSplit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanSplit(rows *sql.Rows) (ledger.SplitDetail, error) {
	var (
		d             ledger.SplitDetail
		amount        int64
		reconcileDate sql.NullString
		postDate      string
		sourceID      sql.NullString
	)
	err := rows.Scan(
		&d.ID, &d.TxID, &d.AccountID, &amount, &d.Memo, &d.ReconcileState, &reconcileDate,
		&d.BookID, &postDate, &d.Description, &d.SourceType, &sourceID,
		&d.AccountName, &d.AccountType,
	)
	if err != nil {
		return d, fmt.Errorf("failed to scan split: %w", err)
	}
	d.Amount = ledger.Money(amount)
	d.PostDate, _ = time.Parse(time.RFC3339, postDate)
	d.SourceID = sourceID.String
	if reconcileDate.Valid {
		t, _ := time.Parse(time.RFC3339, reconcileDate.String)
		d.ReconcileDate = &t
	}
	return d, nil
}

// =============================================================================
// DOCUMENTS (ledger.DocumentProvider)
// =============================================================================

// SaveDocument inserts or replaces a document.
func (s *Store) SaveDocument(ctx context.Context, doc ledger.SourceDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	linesJSON, err := json.Marshal(doc.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode lines: %w", err)
	}
	if doc.Status == "" {
		doc.Status = ledger.StatusDraft
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents
		(id, book_id, kind, owner_id, number, doc_date, description, status, lines_json,
		 post_tx_id, total, counter_account_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			owner_id = excluded.owner_id,
			number = excluded.number,
			doc_date = excluded.doc_date,
			description = excluded.description,
			status = excluded.status,
			lines_json = excluded.lines_json,
			post_tx_id = excluded.post_tx_id,
			total = excluded.total,
			counter_account_id = excluded.counter_account_id,
			updated_at = excluded.updated_at
	`,
		doc.ID, doc.BookID, doc.Kind, string(doc.OwnerID), doc.Number,
		ledger.Day(doc.Date).Format(dayLayout), doc.Description, doc.Status, string(linesJSON),
		nullString(string(doc.PostTxID)), int64(doc.Total), nullString(string(doc.CounterAccountID)),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id ledger.DocumentID) (ledger.SourceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getDocument(ctx, s.db, id)
}

const documentColumns = `id, book_id, kind, owner_id, number, doc_date, description, status, lines_json,
	post_tx_id, total, counter_account_id`

func getDocument(ctx context.Context, c conn, id ledger.DocumentID) (ledger.SourceDocument, error) {
	rows, err := c.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	if err != nil {
		return ledger.SourceDocument{}, fmt.Errorf("failed to get document: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return ledger.SourceDocument{}, err
		}
		return ledger.SourceDocument{}, &ledger.StateError{Err: ledger.ErrDocumentNotFound, Reason: string(id)}
	}
	return scanDocument(rows)
}

func scanDocument(rows *sql.Rows) (ledger.SourceDocument, error) {
	var (
		doc                 ledger.SourceDocument
		owner, docDate      string
		linesJSON           string
		postTxID, counterID sql.NullString
		total               int64
	)
	err := rows.Scan(&doc.ID, &doc.BookID, &doc.Kind, &owner, &doc.Number, &docDate, &doc.Description,
		&doc.Status, &linesJSON, &postTxID, &total, &counterID)
	if err != nil {
		return doc, fmt.Errorf("failed to scan document: %w", err)
	}
	doc.OwnerID = ledger.OwnerID(owner)
	doc.Date, _ = time.Parse(dayLayout, docDate)
	doc.PostTxID = ledger.TransactionID(postTxID.String)
	doc.CounterAccountID = ledger.AccountID(counterID.String)
	doc.Total = ledger.Money(total)
	if err := json.Unmarshal([]byte(linesJSON), &doc.Lines); err != nil {
		return doc, fmt.Errorf("failed to decode lines of %s: %w", doc.ID, err)
	}
	return doc, nil
}

// ListDocuments returns documents of a book (all books when bookID is empty)
// ordered by date then number.
func (s *Store) ListDocuments(ctx context.Context, bookID ledger.BookID, filter ledger.DocumentFilter) ([]ledger.SourceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		conds []string
		args  []any
	)
	if bookID != "" {
		conds, args = append(conds, "book_id = ?"), append(args, bookID)
	}
	if filter.Kind != "" {
		conds, args = append(conds, "kind = ?"), append(args, filter.Kind)
	}
	if filter.Status != "" {
		conds, args = append(conds, "status = ?"), append(args, filter.Status)
	}
	if filter.OwnerID != "" {
		conds, args = append(conds, "owner_id = ?"), append(args, filter.OwnerID)
	}
	query := "SELECT " + documentColumns + " FROM documents"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY doc_date, number, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []ledger.SourceDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, id ledger.DocumentID, status ledger.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return setStatus(ctx, s.db, id, status)
}

func setStatus(ctx context.Context, c conn, id ledger.DocumentID, status ledger.DocumentStatus) error {
	res, err := c.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC().Format(time.RFC3339), id,
	)
	return checkUpdated(res, err, id)
}

func (s *Store) RecordPosting(ctx context.Context, id ledger.DocumentID, p ledger.DocumentPosting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return recordPosting(ctx, s.db, id, p)
}

func recordPosting(ctx context.Context, c conn, id ledger.DocumentID, p ledger.DocumentPosting) error {
	res, err := c.ExecContext(ctx, `
		UPDATE documents SET post_tx_id = ?, total = ?, counter_account_id = ?, updated_at = ?
		WHERE id = ?
	`, p.TxID, int64(p.Total), nullString(string(p.CounterAccountID)), time.Now().UTC().Format(time.RFC3339), id)
	return checkUpdated(res, err, id)
}

func checkUpdated(res sql.Result, err error, id ledger.DocumentID) error {
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if n == 0 {
		return &ledger.StateError{Err: ledger.ErrDocumentNotFound, Reason: string(id)}
	}
	return nil
}

// =============================================================================
// OWNERS
// =============================================================================

// SaveOwner inserts or replaces a customer, vendor or employee.
func (s *Store) SaveOwner(ctx context.Context, o ledger.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO owners (id, book_id, kind, name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name
	`, o.ID, o.BookID, o.Kind, o.Name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save owner: %w", err)
	}
	return nil
}

func (s *Store) GetOwner(ctx context.Context, id ledger.OwnerID) (ledger.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var o ledger.Owner
	err := s.db.QueryRowContext(ctx,
		"SELECT id, book_id, kind, name FROM owners WHERE id = ?", id,
	).Scan(&o.ID, &o.BookID, &o.Kind, &o.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Owner{}, &ledger.StateError{Err: ledger.ErrOwnerNotFound, Reason: string(id)}
	}
	if err != nil {
		return ledger.Owner{}, fmt.Errorf("failed to get owner: %w", err)
	}
	return o, nil
}

// ListOwners returns owners of a kind (all kinds when empty) ordered by name.
func (s *Store) ListOwners(ctx context.Context, bookID ledger.BookID, kind ledger.OwnerKind) ([]ledger.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, book_id, kind, name FROM owners WHERE book_id = ?"
	args := []any{bookID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY name, id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	var owners []ledger.Owner
	for rows.Next() {
		var o ledger.Owner
		if err := rows.Scan(&o.ID, &o.BookID, &o.Kind, &o.Name); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
// The view passed to fn also implements ledger.DocumentProvider.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore reads and writes through the open sql.Tx only.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) AppendTransaction(ctx context.Context, tx ledger.Transaction, splits []ledger.Split) (ledger.TransactionID, error) {
	if err := appendTx(ctx, ts.tx, tx, splits); err != nil {
		return "", err
	}
	return tx.ID, nil
}

func (ts *txStore) QueryBalances(ctx context.Context, bookID ledger.BookID, period ledger.Period) ([]ledger.AccountBalance, error) {
	return queryBalances(ctx, ts.tx, bookID, period)
}

func (ts *txStore) QuerySplitsBySource(ctx context.Context, sourceID string) ([]ledger.SplitDetail, error) {
	return querySplits(ctx, ts.tx, "t.source_id = ?", sourceID)
}

func (ts *txStore) QuerySplitsByAccount(ctx context.Context, bookID ledger.BookID, accounts []ledger.AccountID, period ledger.Period) ([]ledger.SplitDetail, error) {
	return splitsByAccount(ctx, ts.tx, bookID, accounts, period)
}

func (ts *txStore) ListUnreconciled(ctx context.Context, bookID ledger.BookID) ([]ledger.SplitDetail, error) {
	return querySplits(ctx, ts.tx, "t.book_id = ? AND s.reconcile_state = 'N'", bookID)
}

func (ts *txStore) MarkReconciled(ctx context.Context, ids []ledger.SplitID, date time.Time) error {
	return markReconciled(ctx, ts.tx, ids, date)
}

func (ts *txStore) ListAccounts(ctx context.Context, bookID ledger.BookID) ([]ledger.Account, error) {
	return listAccounts(ctx, ts.tx, bookID)
}

func (ts *txStore) GetDocument(ctx context.Context, id ledger.DocumentID) (ledger.SourceDocument, error) {
	return getDocument(ctx, ts.tx, id)
}

func (ts *txStore) SetStatus(ctx context.Context, id ledger.DocumentID, status ledger.DocumentStatus) error {
	return setStatus(ctx, ts.tx, id, status)
}

func (ts *txStore) RecordPosting(ctx context.Context, id ledger.DocumentID, p ledger.DocumentPosting) error {
	return recordPosting(ctx, ts.tx, id, p)
}

// =============================================================================
// HELPERS
// =============================================================================

// periodClause filters on post_day; both bounds are inclusive.
func periodClause(p ledger.Period) (string, []any) {
	var (
		clause string
		args   []any
	)
	if !p.Start.IsZero() {
		clause += " AND t.post_day >= ?"
		args = append(args, ledger.Day(p.Start).Format(dayLayout))
	}
	if !p.End.IsZero() {
		clause += " AND t.post_day <= ?"
		args = append(args, ledger.Day(p.End).Format(dayLayout))
	}
	return clause, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatDatePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
