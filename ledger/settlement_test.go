package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moon/ledger-engine/ledger"
)

// receive posts a customer receipt against a sales invoice.
func receive(t *testing.T, engine *ledger.Engine, doc ledger.DocumentID, amount ledger.Money) {
	t.Helper()
	_, err := engine.PostSimple(context.Background(), ledger.SimplePosting{
		Header: ledger.Header{
			BookID:     book,
			PostDate:   day(time.February, 1),
			SourceType: ledger.SourceSalesReceipt,
			SourceID:   string(doc),
		},
		Debit:  "cash",
		Credit: "ar",
		Amount: amount,
	})
	require.NoError(t, err)
}

// =============================================================================
// SALES INVOICE LIFECYCLE
// =============================================================================

func TestSettlement_PartialThenFullReceipt(t *testing.T) {
	// GIVEN: A posted sales invoice of 1000.00
	// WHEN: 400.00 is received, then the remaining 600.00
	// THEN: POSTED after the first receipt, APPROVED after the second

	ctx := context.Background()
	engine, mem := newTestEngine(t)
	doc := salesInvoice("inv-1", plainLine("revenue", 1, 100000))
	require.NoError(t, mem.SaveDocument(ctx, doc))

	txID, err := engine.PostInvoice(ctx, doc, "ar", true)
	require.NoError(t, err)

	posted, err := mem.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, posted.Status)
	assert.Equal(t, txID, posted.PostTxID)
	assert.Equal(t, ledger.Money(100000), posted.Total)
	assert.Equal(t, ledger.AccountID("ar"), posted.CounterAccountID)

	// The invoice posting alone settles nothing.
	status, err := engine.RecomputeSettlement(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, status)

	receive(t, engine, doc.ID, 40000)
	status, err = engine.RecomputeSettlement(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, status)

	summary, err := engine.Settlement(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(40000), summary.Settled)
	assert.Equal(t, ledger.Money(60000), summary.Outstanding)

	receive(t, engine, doc.ID, 60000)
	status, err = engine.RecomputeSettlement(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, status)

	stored, err := mem.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, stored.Status)
}

func TestSettlement_RecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, mem := newTestEngine(t)
	doc := salesInvoice("inv-2", plainLine("revenue", 1, 50000))
	require.NoError(t, mem.SaveDocument(ctx, doc))
	_, err := engine.PostInvoice(ctx, doc, "ar", true)
	require.NoError(t, err)
	receive(t, engine, doc.ID, 10000)

	first, err := engine.RecomputeSettlement(ctx, doc.ID)
	require.NoError(t, err)
	second, err := engine.RecomputeSettlement(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSettlement_OverpaymentApproves(t *testing.T) {
	ctx := context.Background()
	engine, mem := newTestEngine(t)
	doc := salesInvoice("inv-3", plainLine("revenue", 1, 20000))
	require.NoError(t, mem.SaveDocument(ctx, doc))
	_, err := engine.PostInvoice(ctx, doc, "ar", true)
	require.NoError(t, err)

	receive(t, engine, doc.ID, 25000)
	status, err := engine.RecomputeSettlement(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, status)

	summary, err := engine.Settlement(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(0), summary.Outstanding)
}

// =============================================================================
// STATE ERRORS
// =============================================================================

func TestSettlement_DraftCannotBeRecomputed(t *testing.T) {
	ctx := context.Background()
	engine, mem := newTestEngine(t)
	doc := salesInvoice("inv-4", plainLine("revenue", 1, 1000))
	require.NoError(t, mem.SaveDocument(ctx, doc))

	_, err := engine.RecomputeSettlement(ctx, doc.ID)
	assert.ErrorIs(t, err, ledger.ErrNotPosted)
	assert.True(t, ledger.IsState(err))

	_, err = engine.RecomputeSettlement(ctx, "missing")
	assert.True(t, ledger.IsNotFound(err))
}

func TestPostInvoice_OnlyFromDraft(t *testing.T) {
	// GIVEN: An invoice that is already posted
	// WHEN: Posting it again
	// THEN: ErrInvalidTransition and no second transaction

	ctx := context.Background()
	engine, mem := newTestEngine(t)
	doc := salesInvoice("inv-5", plainLine("revenue", 1, 1000))
	require.NoError(t, mem.SaveDocument(ctx, doc))
	_, err := engine.PostInvoice(ctx, doc, "ar", true)
	require.NoError(t, err)

	_, err = engine.PostInvoice(ctx, doc, "ar", true)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	splits, err := mem.QuerySplitsBySource(ctx, string(doc.ID))
	require.NoError(t, err)
	assert.Len(t, splits, 2)
}

func TestPostInvoice_FailureLeavesDraft(t *testing.T) {
	// GIVEN: A sales invoice and a counter account of the wrong type
	// THEN: Nothing is written and the document stays DRAFT

	ctx := context.Background()
	engine, mem := newTestEngine(t)
	doc := salesInvoice("inv-6", plainLine("revenue", 1, 1000))
	require.NoError(t, mem.SaveDocument(ctx, doc))

	_, err := engine.PostInvoice(ctx, doc, "ap", true)
	assert.ErrorIs(t, err, ledger.ErrCounterAccountType)

	stored, err := mem.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDraft, stored.Status)
	splits, err := mem.QuerySplitsBySource(ctx, string(doc.ID))
	require.NoError(t, err)
	assert.Empty(t, splits)
}

func TestPostInvoice_SideMismatch(t *testing.T) {
	ctx := context.Background()
	engine, mem := newTestEngine(t)
	doc := purchaseInvoice("pi-0", plainLine("cogs", 1, 1000))
	require.NoError(t, mem.SaveDocument(ctx, doc))

	_, err := engine.PostInvoice(ctx, doc, "ar", true)
	assert.True(t, ledger.IsValidation(err))
}

// =============================================================================
// PURCHASES
// =============================================================================

func TestSettlement_PurchasePaidInFull(t *testing.T) {
	// GIVEN: A purchase invoice of 113.00 including input tax
	// WHEN: The vendor is paid 113.00
	// THEN: Debits on the payable settle it

	ctx := context.Background()
	engine, mem := newTestEngine(t)
	line := plainLine("cogs", 1, 11300)
	line.Tax = &ledger.TaxRule{Rate: ledger.NewRational(13, 100), Direction: ledger.TaxInput, PayableAccountID: "vat-in", Included: true}
	doc := purchaseInvoice("pi-1", line)
	require.NoError(t, mem.SaveDocument(ctx, doc))

	_, err := engine.PostInvoice(ctx, doc, "ap", false)
	require.NoError(t, err)

	_, err = engine.PostSimple(ctx, ledger.SimplePosting{
		Header: ledger.Header{BookID: book, SourceType: ledger.SourcePurchasePayment, SourceID: string(doc.ID)},
		Debit:  "ap",
		Credit: "cash",
		Amount: 11300,
	})
	require.NoError(t, err)

	status, err := engine.RecomputeSettlement(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, status)
}

// =============================================================================
// PURE RULES
// =============================================================================

func TestSettledAmount_IgnoresOwnPostingAndWrongDirection(t *testing.T) {
	doc := ledger.SourceDocument{ID: "inv-9", Kind: ledger.SalesInvoice, PostTxID: "tx-post", Total: 1000}
	detail := func(tx string, src ledger.SourceType, typ ledger.AccountType, amount ledger.Money) ledger.SplitDetail {
		return ledger.SplitDetail{
			Split:       ledger.Split{TxID: ledger.TransactionID(tx), Amount: amount},
			SourceType:  src,
			SourceID:    "inv-9",
			AccountType: typ,
		}
	}
	splits := []ledger.SplitDetail{
		detail("tx-post", ledger.SourceSalesInvoice, ledger.AccountAsset, 1000),   // own posting
		detail("tx-post", ledger.SourceSalesInvoice, ledger.AccountIncome, -1000), // own posting
		detail("tx-r1", ledger.SourceSalesReceipt, ledger.AccountAsset, 300),      // cash debit
		detail("tx-r1", ledger.SourceSalesReceipt, ledger.AccountAsset, -300),     // receivable credit
	}

	assert.Equal(t, ledger.Money(300), ledger.SettledAmount(doc, splits))
}

func TestNextStatus_NeverRegresses(t *testing.T) {
	assert.Equal(t, ledger.StatusPosted, ledger.NextStatus(ledger.StatusPosted, 10, 100))
	assert.Equal(t, ledger.StatusApproved, ledger.NextStatus(ledger.StatusPosted, 100, 100))
	assert.Equal(t, ledger.StatusApproved, ledger.NextStatus(ledger.StatusApproved, 0, 100))
}
