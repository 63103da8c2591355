package ledger_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/moon/ledger-engine/ledger"
)

func newRecordingPoster(t *testing.T) (*ledger.Poster, *recordingStore, *observer.ObservedLogs) {
	t.Helper()
	mem := newMemoryBook(t)
	rec := &recordingStore{Store: mem}
	core, logs := observer.New(zapcore.DebugLevel)
	return ledger.NewPoster(mem, rec, zap.New(core)), rec, logs
}

// =============================================================================
// SIMPLE POSTINGS
// =============================================================================

func TestPostSimple_WritesBalancedPair(t *testing.T) {
	// GIVEN: A capital injection of 1000.00
	// WHEN: Posting debit cash / credit capital
	// THEN: Cash is +100000, capital -100000, splits sum to zero

	ctx := context.Background()
	engine, mem := newTestEngine(t)

	txID := move(t, engine, day(1, 5), "cash", "capital", 100000)

	tx, splits, err := mem.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TxPosted, tx.Status)
	assert.Equal(t, ledger.SourceManual, tx.SourceType)
	require.Len(t, splits, 2)
	assert.Equal(t, ledger.AccountID("cash"), splits[0].AccountID)
	assert.Equal(t, ledger.Money(100000), splits[0].Amount)
	assert.Equal(t, ledger.Money(-100000), splits[1].Amount)
	assert.True(t, ledger.Balanced(splits))
	for _, s := range splits {
		assert.Equal(t, ledger.Unreconciled, s.ReconcileState)
		assert.NotEmpty(t, s.ID)
	}
}

func TestPostSimple_Rejections(t *testing.T) {
	ctx := context.Background()
	poster, rec, _ := newRecordingPoster(t)

	tests := []struct {
		name string
		sp   ledger.SimplePosting
		want error
	}{
		{"zero amount", ledger.SimplePosting{Header: ledger.Header{BookID: book}, Debit: "cash", Credit: "capital"}, ledger.ErrNonPositiveAmount},
		{"negative amount", ledger.SimplePosting{Header: ledger.Header{BookID: book}, Debit: "cash", Credit: "capital", Amount: -5}, ledger.ErrNonPositiveAmount},
		{"same account", ledger.SimplePosting{Header: ledger.Header{BookID: book}, Debit: "cash", Credit: "cash", Amount: 5}, ledger.ErrSameAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := poster.PostSimple(ctx, tt.sp)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, ledger.IsValidation(err))
		})
	}
	assert.Equal(t, 0, rec.appends)
}

// =============================================================================
// SAFETY NET
// =============================================================================

func TestPost_UnbalancedRejectedBeforeStore(t *testing.T) {
	// GIVEN: A hand-built split set that sums to +1
	// WHEN: Posting it
	// THEN: InvariantViolation, logged at error level, and no append call

	ctx := context.Background()
	poster, rec, logs := newRecordingPoster(t)

	_, err := poster.Post(ctx, ledger.Header{BookID: book}, []ledger.Split{
		{AccountID: "cash", Amount: 1001},
		{AccountID: "capital", Amount: -1000},
	})

	require.Error(t, err)
	assert.True(t, ledger.IsInvariant(err))
	var iv *ledger.InvariantViolation
	require.True(t, errors.As(err, &iv))
	assert.Equal(t, ledger.Money(1), iv.Sum)
	assert.Len(t, iv.Splits, 2)
	assert.Equal(t, 0, rec.appends)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestPost_WrappingSumRejected(t *testing.T) {
	// GIVEN: Splits whose exact sum is 2^64, which wraps to zero in int64
	// WHEN: Checking and posting them
	// THEN: Not balanced, an overflow InvariantViolation, nothing appended

	ctx := context.Background()
	poster, rec, logs := newRecordingPoster(t)
	splits := []ledger.Split{
		{AccountID: "cash", Amount: math.MaxInt64},
		{AccountID: "bank", Amount: math.MaxInt64},
		{AccountID: "capital", Amount: 2},
	}

	assert.False(t, ledger.Balanced(splits))

	_, err := poster.Post(ctx, ledger.Header{BookID: book}, splits)
	require.Error(t, err)
	assert.True(t, ledger.IsInvariant(err))
	var iv *ledger.InvariantViolation
	require.True(t, errors.As(err, &iv))
	assert.True(t, iv.Overflow)
	assert.Equal(t, 0, rec.appends)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestPost_SplitBeyondMaxAmount(t *testing.T) {
	// GIVEN: A balanced pair just past the per-split limit
	ctx := context.Background()
	poster, rec, _ := newRecordingPoster(t)

	_, err := poster.Post(ctx, ledger.Header{BookID: book}, []ledger.Split{
		{AccountID: "cash", Amount: ledger.MaxAmount + 1},
		{AccountID: "capital", Amount: -(ledger.MaxAmount + 1)},
	})
	assert.ErrorIs(t, err, ledger.ErrAmountOutOfRange)
	assert.True(t, ledger.IsValidation(err))

	// AND: The limit itself is accepted
	_, err = poster.Post(ctx, ledger.Header{BookID: book}, []ledger.Split{
		{AccountID: "cash", Amount: ledger.MaxAmount},
		{AccountID: "capital", Amount: -ledger.MaxAmount},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.appends)
}

func TestCommit_TamperedSetIsRejected(t *testing.T) {
	// GIVEN: A prepared transaction whose splits were altered after Prepare
	// WHEN: Committing
	// THEN: The re-check refuses it and the store is never called

	ctx := context.Background()
	poster, rec, _ := newRecordingPoster(t)

	prepared, err := poster.PrepareSimple(ctx, ledger.SimplePosting{
		Header: ledger.Header{BookID: book}, Debit: "cash", Credit: "capital", Amount: 500,
	})
	require.NoError(t, err)
	prepared.Splits[0].Amount += 1

	_, err = poster.Commit(ctx, rec, prepared)
	assert.ErrorIs(t, err, ledger.ErrUnbalancedTransaction)
	assert.Equal(t, 0, rec.appends)
}

func TestPost_StructuralChecks(t *testing.T) {
	ctx := context.Background()
	poster, rec, _ := newRecordingPoster(t)

	_, err := poster.Post(ctx, ledger.Header{BookID: book}, []ledger.Split{{AccountID: "cash", Amount: 0}})
	assert.ErrorIs(t, err, ledger.ErrTooFewSplits)

	_, err = poster.Post(ctx, ledger.Header{BookID: book}, []ledger.Split{
		{AccountID: "cash", Amount: 10},
		{AccountID: "nowhere", Amount: -10},
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	assert.True(t, ledger.IsState(err))
	assert.True(t, ledger.IsNotFound(err))

	// Accounts of another book do not count.
	_, err = poster.Post(ctx, ledger.Header{BookID: "book-2"}, []ledger.Split{
		{AccountID: "cash", Amount: 10},
		{AccountID: "capital", Amount: -10},
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	assert.Equal(t, 0, rec.appends)
}

func TestPost_PlaceholderLogsWarning(t *testing.T) {
	ctx := context.Background()
	poster, rec, logs := newRecordingPoster(t)

	_, err := poster.Post(ctx, ledger.Header{BookID: book}, []ledger.Split{
		{AccountID: "assets", Amount: 10},
		{AccountID: "capital", Amount: -10},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.appends)
	assert.Equal(t, 1, logs.FilterMessage("posting to placeholder account").Len())
}

// =============================================================================
// INVOICE POSTINGS
// =============================================================================

func TestPostCalculation_CounterAccountType(t *testing.T) {
	// GIVEN: A sales calculation
	// WHEN: Posting it against a liability counter
	// THEN: StateError, receivables must be assets

	ctx := context.Background()
	poster, rec, _ := newRecordingPoster(t)
	calc, err := ledger.Calculator{}.Calculate([]ledger.LineItem{plainLine("revenue", 1, 1000)}, true)
	require.NoError(t, err)

	_, err = poster.PostCalculation(ctx, ledger.Header{BookID: book}, calc, "ap", true)
	assert.ErrorIs(t, err, ledger.ErrCounterAccountType)

	_, err = poster.PostCalculation(ctx, ledger.Header{BookID: book}, calc, "missing", true)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	assert.Equal(t, 0, rec.appends)

	_, err = poster.PostCalculation(ctx, ledger.Header{BookID: book}, calc, "ar", true)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.appends)
}

func TestPostCalculation_ZeroTotal(t *testing.T) {
	ctx := context.Background()
	poster, _, _ := newRecordingPoster(t)
	calc, err := ledger.Calculator{}.Calculate([]ledger.LineItem{plainLine("revenue", 0, 1000)}, true)
	require.NoError(t, err)

	_, err = poster.PostCalculation(ctx, ledger.Header{BookID: book}, calc, "ar", true)
	assert.ErrorIs(t, err, ledger.ErrNonPositiveAmount)
}
