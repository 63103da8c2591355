package business_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/moon/ledger-engine/business"
	"github.com/moon/ledger-engine/chart"
	"github.com/moon/ledger-engine/ledger"
	"github.com/moon/ledger-engine/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const acme ledger.BookID = "acme"

func acct(code string) ledger.AccountID { return chart.AccountID(acme, code) }

func fixedClock() time.Time { return time.Date(2025, time.March, 1, 15, 30, 0, 0, time.UTC) }

func day(month time.Month, d int) time.Time { return ledger.Date(2025, month, d) }

// newService seeds the default chart into acme and wires a service with the
// default role codes.
func newService(t *testing.T) (*business.Service, *store.TxMemory) {
	t.Helper()
	mem := store.NewTxMemory()
	_, err := chart.Seed(context.Background(), mem, acme, chart.Default())
	require.NoError(t, err)
	return serviceWithRoles(mem, business.NewCodeRoles(mem, business.DefaultRoleCodes())), mem
}

func serviceWithRoles(mem *store.TxMemory, roles business.RoleProvider) *business.Service {
	engine := ledger.NewEngine(mem, mem, mem, ledger.WithClock(fixedClock))
	return business.NewService(mem, engine, roles, business.WithClock(fixedClock))
}

func owner(t *testing.T, svc *business.Service, kind ledger.OwnerKind, name string) ledger.Owner {
	t.Helper()
	o, err := svc.CreateOwner(context.Background(), business.NewOwner{BookID: acme, Kind: kind, Name: name})
	require.NoError(t, err)
	return o
}

func line(code string, qty, priceCents int64) ledger.LineItem {
	return ledger.LineItem{
		AccountID: acct(code),
		Quantity:  ledger.Whole(qty),
		UnitPrice: ledger.Cents(priceCents),
	}
}

// vatLine is a 13% tax-included sales line.
func vatLine(code string, qty, priceCents int64) ledger.LineItem {
	l := line(code, qty, priceCents)
	l.Tax = &ledger.TaxRule{
		Rate:             ledger.NewRational(13, 100),
		Direction:        ledger.TaxOutput,
		PayableAccountID: acct("222102"),
		Included:         true,
	}
	return l
}

func document(t *testing.T, svc *business.Service, kind ledger.DocumentKind, o ledger.Owner, date time.Time, lines ...ledger.LineItem) ledger.SourceDocument {
	t.Helper()
	doc, err := svc.CreateDocument(context.Background(), business.NewDocument{
		BookID:  acme,
		Kind:    kind,
		OwnerID: o.ID,
		Date:    date,
		Lines:   lines,
	})
	require.NoError(t, err)
	return doc
}
