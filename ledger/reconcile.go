package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// RECONCILIATION - Bank side vs business side
// =============================================================================

// ReconciliationCandidates are the unreconciled splits of a book, split by side.
type ReconciliationCandidates struct {
	Bank     []SplitDetail
	Business []SplitDetail
}

// ReconciliationMatcher partitions unreconciled splits and records marks.
// Pairing bank lines with business lines is the caller's decision.
type ReconciliationMatcher struct {
	store        Store
	bankAccounts map[AccountID]bool
}

// NewReconciliationMatcher creates a matcher. A split is bank-side when its
// transaction came from a bank statement or it sits on one of bankAccounts.
func NewReconciliationMatcher(store Store, bankAccounts []AccountID) *ReconciliationMatcher {
	set := make(map[AccountID]bool, len(bankAccounts))
	for _, id := range bankAccounts {
		set[id] = true
	}
	return &ReconciliationMatcher{store: store, bankAccounts: set}
}

// BankSide is the single discriminator between the two candidate sets.
func (m *ReconciliationMatcher) BankSide(s SplitDetail) bool {
	return s.SourceType == SourceBankStatement || m.bankAccounts[s.AccountID]
}

// Candidates returns both sets, newest post date first.
func (m *ReconciliationMatcher) Candidates(ctx context.Context, bookID BookID) (ReconciliationCandidates, error) {
	splits, err := m.store.ListUnreconciled(ctx, bookID)
	if err != nil {
		return ReconciliationCandidates{}, fmt.Errorf("list unreconciled: %w", err)
	}
	var out ReconciliationCandidates
	for _, s := range splits {
		if s.ReconcileState == Reconciled {
			continue
		}
		if m.BankSide(s) {
			out.Bank = append(out.Bank, s)
		} else {
			out.Business = append(out.Business, s)
		}
	}
	sortNewestFirst(out.Bank)
	sortNewestFirst(out.Business)
	return out, nil
}

// MarkReconciled flags splits as reconciled on asOf. Already reconciled
// splits keep their original date.
func (m *ReconciliationMatcher) MarkReconciled(ctx context.Context, ids []SplitID, asOf time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if asOf.IsZero() {
		return invalid(ErrInvalidInput, "date", "reconcile date is required")
	}
	if err := m.store.MarkReconciled(ctx, ids, Day(asOf)); err != nil {
		return fmt.Errorf("mark reconciled: %w", err)
	}
	return nil
}

func sortNewestFirst(splits []SplitDetail) {
	sort.SliceStable(splits, func(i, j int) bool {
		a, b := splits[i], splits[j]
		if !a.PostDate.Equal(b.PostDate) {
			return a.PostDate.After(b.PostDate)
		}
		if a.TxID != b.TxID {
			return a.TxID < b.TxID
		}
		return a.ID < b.ID
	})
}
