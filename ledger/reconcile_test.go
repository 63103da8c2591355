package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moon/ledger-engine/ledger"
)

func statementLine(t *testing.T, engine *ledger.Engine, date time.Time, amount ledger.Money) ledger.TransactionID {
	t.Helper()
	id, err := engine.Post(context.Background(), ledger.Header{
		BookID:      book,
		PostDate:    date,
		Description: "bank statement",
		SourceType:  ledger.SourceBankStatement,
	}, []ledger.Split{
		{AccountID: "bank", Amount: amount},
		{AccountID: "other-income", Amount: -amount},
	})
	require.NoError(t, err)
	return id
}

func TestCandidates_PartitionAndOrder(t *testing.T) {
	// GIVEN: Two statement lines and two business postings on different days
	// WHEN: Listing candidates
	// THEN: Statement splits are bank-side, the rest business-side, newest first

	ctx := context.Background()
	engine, _ := newTestEngine(t)
	older := statementLine(t, engine, day(time.January, 3), 1500)
	newer := statementLine(t, engine, day(time.January, 20), 2500)
	move(t, engine, day(time.January, 5), "cash", "capital", 100000)
	move(t, engine, day(time.January, 25), "cogs", "cash", 4000)

	c, err := engine.ReconciliationCandidates(ctx, book)
	require.NoError(t, err)

	require.Len(t, c.Bank, 4)
	assert.Equal(t, newer, c.Bank[0].TxID)
	assert.Equal(t, newer, c.Bank[1].TxID)
	assert.Equal(t, older, c.Bank[3].TxID)
	for _, s := range c.Bank {
		assert.Equal(t, ledger.SourceBankStatement, s.SourceType)
	}

	require.Len(t, c.Business, 4)
	assert.True(t, c.Business[0].PostDate.Equal(day(time.January, 25)))
	assert.True(t, c.Business[3].PostDate.Equal(day(time.January, 5)))
}

func TestCandidates_DesignatedBankAccount(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, ledger.WithBankAccounts("bank"))
	move(t, engine, day(time.January, 5), "bank", "capital", 100000)

	c, err := engine.ReconciliationCandidates(ctx, book)
	require.NoError(t, err)

	require.Len(t, c.Bank, 1)
	assert.Equal(t, ledger.AccountID("bank"), c.Bank[0].AccountID)
	require.Len(t, c.Business, 1)
	assert.Equal(t, ledger.AccountID("capital"), c.Business[0].AccountID)
}

func TestMarkReconciled_KeepsFirstDate(t *testing.T) {
	// GIVEN: A bank split reconciled on Jan 31
	// WHEN: Marking it again on Feb 28
	// THEN: No error, and the Jan 31 date stands

	ctx := context.Background()
	engine, mem := newTestEngine(t)
	txID := statementLine(t, engine, day(time.January, 3), 1500)

	c, err := engine.ReconciliationCandidates(ctx, book)
	require.NoError(t, err)
	bankSplit := c.Bank[0].ID
	for _, s := range c.Bank {
		if s.AccountID == "bank" {
			bankSplit = s.ID
		}
	}

	require.NoError(t, engine.MarkReconciled(ctx, []ledger.SplitID{bankSplit}, day(time.January, 31)))
	require.NoError(t, engine.MarkReconciled(ctx, []ledger.SplitID{bankSplit}, day(time.February, 28)))

	_, splits, err := mem.GetTransaction(ctx, txID)
	require.NoError(t, err)
	for _, s := range splits {
		if s.ID != bankSplit {
			assert.Equal(t, ledger.Unreconciled, s.ReconcileState)
			continue
		}
		assert.Equal(t, ledger.Reconciled, s.ReconcileState)
		require.NotNil(t, s.ReconcileDate)
		assert.True(t, s.ReconcileDate.Equal(day(time.January, 31)))
	}

	c, err = engine.ReconciliationCandidates(ctx, book)
	require.NoError(t, err)
	assert.Len(t, c.Bank, 1)
}

func TestMarkReconciled_Inputs(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	assert.NoError(t, engine.MarkReconciled(ctx, nil, time.Time{}))

	err := engine.MarkReconciled(ctx, []ledger.SplitID{"s-1"}, time.Time{})
	assert.True(t, ledger.IsValidation(err))

	// Unknown ids are skipped.
	assert.NoError(t, engine.MarkReconciled(ctx, []ledger.SplitID{"s-unknown"}, day(time.March, 1)))
}
