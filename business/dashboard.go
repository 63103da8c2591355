package business

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moon/ledger-engine/ledger"
)

// Dashboard is the one-screen summary of a book.
type Dashboard struct {
	BookID ledger.BookID
	AsOf   time.Time

	Cash ledger.Money // cash and bank roles, descendants included

	SalesTotal       ledger.Money
	Received         ledger.Money
	Receivable       ledger.Money // outstanding on posted sales invoices
	ReceivedProgress decimal.Decimal

	PurchaseTotal ledger.Money
	Paid          ledger.Money
	Payable       ledger.Money
	PaidProgress  decimal.Decimal

	PendingSales     int // POSTED, not yet settled
	PendingPurchases int
	Drafts           int
}

// Dashboard summarises cash and document settlement for bookID. Document
// figures reflect current settlement; asOf bounds the cash balance.
func (s *Service) Dashboard(ctx context.Context, bookID ledger.BookID, asOf time.Time) (Dashboard, error) {
	asOf = s.dateOr(asOf)
	d := Dashboard{BookID: bookID, AsOf: asOf}

	roles, err := s.roles.Roles(ctx, bookID)
	if err != nil {
		return Dashboard{}, err
	}
	tree, err := s.engine.AccountTreeWithBalances(ctx, bookID, asOf)
	if err != nil {
		return Dashboard{}, err
	}
	for _, id := range []ledger.AccountID{roles.Cash, roles.Bank} {
		if n, ok := tree.Node(id); ok {
			d.Cash += n.Balance
		}
	}

	docs, err := s.repo.ListDocuments(ctx, bookID, ledger.DocumentFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list documents: %w", err)
	}
	for _, doc := range docs {
		if doc.Status == ledger.StatusDraft {
			d.Drafts++
			continue
		}
		summary, err := s.engine.Settlement(ctx, doc.ID)
		if err != nil {
			return Dashboard{}, err
		}
		if doc.Kind.Sales() {
			d.SalesTotal += summary.Total
			d.Received += summary.Settled
			d.Receivable += summary.Outstanding
			if doc.Status == ledger.StatusPosted {
				d.PendingSales++
			}
			continue
		}
		d.PurchaseTotal += summary.Total
		d.Paid += summary.Settled
		d.Payable += summary.Outstanding
		if doc.Status == ledger.StatusPosted {
			d.PendingPurchases++
		}
	}
	d.ReceivedProgress = progress(d.Received, d.SalesTotal)
	d.PaidProgress = progress(d.Paid, d.PurchaseTotal)
	return d, nil
}

// progress is part/total as a percentage with two decimals, capped at 100.
func progress(part, total ledger.Money) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	pct := part.Decimal().Mul(hundred).DivRound(total.Decimal(), 2)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
