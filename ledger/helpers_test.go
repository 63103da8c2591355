package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/moon/ledger-engine/ledger"
	"github.com/moon/ledger-engine/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const book ledger.BookID = "book-1"

// testChart is a small trading-company chart: one placeholder root per type.
func testChart() []ledger.Account {
	acct := func(id, parent, code, name string, typ ledger.AccountType) ledger.Account {
		return ledger.Account{
			ID:       ledger.AccountID(id),
			BookID:   book,
			ParentID: ledger.AccountID(parent),
			Code:     code,
			Name:     name,
			Type:     typ,
		}
	}
	root := func(id, code, name string, typ ledger.AccountType) ledger.Account {
		a := acct(id, "", code, name, typ)
		a.Placeholder = true
		return a
	}
	return []ledger.Account{
		root("assets", "1000", "Assets", ledger.AccountAsset),
		acct("cash", "assets", "1001", "Cash on Hand", ledger.AccountAsset),
		acct("bank", "assets", "1002", "Bank Deposit", ledger.AccountAsset),
		acct("ar", "assets", "1122", "Accounts Receivable", ledger.AccountAsset),

		root("liabilities", "2000", "Liabilities", ledger.AccountLiability),
		acct("ap", "liabilities", "2202", "Accounts Payable", ledger.AccountLiability),
		acct("emp-payable", "liabilities", "2211", "Employee Payable", ledger.AccountLiability),
		acct("vat-out", "liabilities", "2221", "VAT Output Tax", ledger.AccountLiability),
		acct("vat-in", "liabilities", "2222", "VAT Input Tax", ledger.AccountLiability),

		root("equity", "3000", "Equity", ledger.AccountEquity),
		acct("capital", "equity", "3001", "Paid-in Capital", ledger.AccountEquity),

		root("income", "4000", "Income", ledger.AccountIncome),
		acct("revenue", "income", "4001", "Main Sales Revenue", ledger.AccountIncome),
		acct("other-income", "income", "4051", "Other Income", ledger.AccountIncome),

		root("expenses", "5000", "Expenses", ledger.AccountExpense),
		acct("cogs", "expenses", "5001", "Cost of Goods Sold", ledger.AccountExpense),
		acct("admin", "expenses", "5601", "Admin Expenses", ledger.AccountExpense),
		acct("interest", "expenses", "5603", "Interest Expense", ledger.AccountExpense),
	}
}

func newMemoryBook(t *testing.T) *store.TxMemory {
	t.Helper()
	mem := store.NewTxMemory()
	for _, a := range testChart() {
		require.NoError(t, mem.SaveAccount(context.Background(), a))
	}
	return mem
}

func newTestEngine(t *testing.T, opts ...ledger.Option) (*ledger.Engine, *store.TxMemory) {
	t.Helper()
	mem := newMemoryBook(t)
	opts = append([]ledger.Option{ledger.WithClock(fixedClock)}, opts...)
	return ledger.NewEngine(mem, mem, mem, opts...), mem
}

func fixedClock() time.Time { return time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC) }

func day(month time.Month, d int) time.Time { return ledger.Date(2025, month, d) }

// move posts amount from credit to debit on date.
func move(t *testing.T, engine *ledger.Engine, date time.Time, debit, credit string, amount ledger.Money) ledger.TransactionID {
	t.Helper()
	id, err := engine.PostSimple(context.Background(), ledger.SimplePosting{
		Header: ledger.Header{BookID: book, PostDate: date, Description: debit + " <- " + credit},
		Debit:  ledger.AccountID(debit),
		Credit: ledger.AccountID(credit),
		Amount: amount,
	})
	require.NoError(t, err)
	return id
}

func plainLine(account string, qty int64, priceCents int64) ledger.LineItem {
	return ledger.LineItem{
		AccountID: ledger.AccountID(account),
		Quantity:  ledger.Whole(qty),
		UnitPrice: ledger.Cents(priceCents),
	}
}

func salesInvoice(id string, lines ...ledger.LineItem) ledger.SourceDocument {
	return ledger.SourceDocument{
		ID:      ledger.DocumentID(id),
		BookID:  book,
		Kind:    ledger.SalesInvoice,
		OwnerID: "cust-1",
		Number:  "SI-" + id,
		Date:    day(time.January, 10),
		Status:  ledger.StatusDraft,
		Lines:   lines,
	}
}

func purchaseInvoice(id string, lines ...ledger.LineItem) ledger.SourceDocument {
	doc := salesInvoice(id, lines...)
	doc.Kind = ledger.PurchaseInvoice
	doc.OwnerID = "vendor-1"
	doc.Number = "PI-" + id
	return doc
}

// recordingStore counts appends that reach the underlying store.
type recordingStore struct {
	ledger.Store
	appends int
}

func (r *recordingStore) AppendTransaction(ctx context.Context, tx ledger.Transaction, splits []ledger.Split) (ledger.TransactionID, error) {
	r.appends++
	return r.Store.AppendTransaction(ctx, tx, splits)
}
