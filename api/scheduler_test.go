package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moon/ledger-engine/ledger"
)

// postedInvoicePaidOutOfBand returns a POSTED invoice whose full receipt was
// posted straight to the ledger, without a recompute.
func postedInvoicePaidOutOfBand(t *testing.T, env testEnv) ledger.DocumentID {
	t.Helper()
	env.seed(t, "acme")
	customer := env.owner(t, "acme", "CUSTOMER", "Northwind")
	doc := env.salesInvoice(t, "acme", customer.ID)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/documents/"+doc.ID+"/post", nil).Code)

	_, err := env.handler.engine.PostSimple(context.Background(), ledger.SimplePosting{
		Header: ledger.Header{
			BookID:     "acme",
			PostDate:   ledger.Date(2025, time.February, 15),
			SourceType: ledger.SourceSalesReceipt,
			SourceID:   doc.ID,
		},
		Debit:  "acme:1002",
		Credit: "acme:1122",
		Amount: 11300,
	})
	require.NoError(t, err)

	stored, err := env.store.GetDocument(context.Background(), ledger.DocumentID(doc.ID))
	require.NoError(t, err)
	require.Equal(t, ledger.StatusPosted, stored.Status)
	return stored.ID
}

func TestSettlementSweeper_Sweep(t *testing.T) {
	// GIVEN: A paid invoice the ledger has not yet caught up with
	env := setupTestHandler(t)
	id := postedInvoicePaidOutOfBand(t, env)
	sweeper := NewSettlementSweeper(env.store, env.handler.engine, time.Minute, nil)

	// WHEN: A sweep runs
	res := sweeper.Sweep(context.Background())

	// THEN: The invoice is approved
	assert.Equal(t, SweepResult{Checked: 1, Approved: 1}, res)
	doc, err := env.store.GetDocument(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, doc.Status)

	// AND: The next sweep has nothing left to check
	assert.Equal(t, SweepResult{}, sweeper.Sweep(context.Background()))
}

func TestSettlementSweeper_StartStop(t *testing.T) {
	env := setupTestHandler(t)
	id := postedInvoicePaidOutOfBand(t, env)

	sweeper := NewSettlementSweeper(env.store, env.handler.engine, 20*time.Millisecond, nil)
	sweeper.Start()
	sweeper.Start()

	require.Eventually(t, func() bool {
		doc, err := env.store.GetDocument(context.Background(), id)
		return err == nil && doc.Status == ledger.StatusApproved
	}, 2*time.Second, 10*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop()
}

func TestSettlementSweeper_Disabled(t *testing.T) {
	env := setupTestHandler(t)
	sweeper := NewSettlementSweeper(env.store, env.handler.engine, 0, nil)
	sweeper.Start()
	sweeper.Stop()
	assert.Nil(t, sweeper.ticker)
}
