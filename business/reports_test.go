package business_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moon/ledger-engine/business"
	"github.com/moon/ledger-engine/ledger"
)

// =============================================================================
// AGING
// =============================================================================

func TestAging_CustomerBuckets(t *testing.T) {
	// GIVEN: A customer with a 113.00 invoice from Jan 10 (40.00 received)
	//        and a 50.00 invoice from Feb 20, plus one draft
	// WHEN: Receivable aging is taken on Mar 1
	// THEN: 73.00 sits in 31-60 days, 50.00 in 0-30, closing 123.00

	ctx := context.Background()
	svc, _ := newService(t)
	customer := owner(t, svc, ledger.OwnerCustomer, "Globex")
	vendor := owner(t, svc, ledger.OwnerVendor, "Initech")

	first := document(t, svc, ledger.SalesInvoice, customer, day(time.January, 10), vatLine("4001", 1, 11300))
	second := document(t, svc, ledger.SalesInvoice, customer, day(time.February, 20), line("4001", 1, 5000))
	document(t, svc, ledger.SalesInvoice, customer, day(time.February, 25), line("4001", 1, 999))
	bill := document(t, svc, ledger.PurchaseInvoice, vendor, day(time.January, 5), line("1405", 1, 7000))

	for _, id := range []ledger.DocumentID{first.ID, second.ID} {
		_, err := svc.PostSalesInvoice(ctx, id)
		require.NoError(t, err)
	}
	_, err := svc.PostPurchase(ctx, bill.ID)
	require.NoError(t, err)
	_, err = svc.ReceivePayment(ctx, business.Payment{DocumentID: first.ID, Amount: 4000, Date: day(time.February, 1)})
	require.NoError(t, err)

	report, err := svc.Aging(ctx, acme, ledger.OwnerCustomer, day(time.March, 1))
	require.NoError(t, err)
	require.Len(t, report.Owners, 1)

	row := report.Owners[0]
	assert.Equal(t, customer.ID, row.Owner.ID)
	assert.Equal(t, ledger.Money(16300), row.Debits)
	assert.Equal(t, ledger.Money(4000), row.Credits)
	assert.Equal(t, ledger.Money(12300), row.Closing)
	assert.Equal(t, ledger.Money(7300), row.Buckets[business.Bucket60])
	assert.Equal(t, ledger.Money(5000), row.Buckets[business.BucketCurrent])
	assert.Equal(t, ledger.Money(12300), report.Total)

	require.Len(t, row.Documents, 2)
	assert.Equal(t, first.ID, row.Documents[0].DocumentID)
	assert.Equal(t, 50, row.Documents[0].AgeDays)
	assert.Equal(t, ledger.Money(4000), row.Documents[0].Settled)
	assert.Equal(t, 9, row.Documents[1].AgeDays)
}

func TestAging_AsOfIgnoresLaterActivity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	vendor := owner(t, svc, ledger.OwnerVendor, "Initech")
	bill := document(t, svc, ledger.PurchaseInvoice, vendor, day(time.January, 5), line("1405", 1, 7000))
	_, err := svc.PostPurchase(ctx, bill.ID)
	require.NoError(t, err)
	_, err = svc.PayPurchase(ctx, business.Payment{DocumentID: bill.ID, Amount: 7000, Date: day(time.February, 15)})
	require.NoError(t, err)

	before, err := svc.Aging(ctx, acme, ledger.OwnerVendor, day(time.January, 31))
	require.NoError(t, err)
	require.Len(t, before.Owners, 1)
	assert.Equal(t, ledger.Money(7000), before.Owners[0].Closing)
	assert.Equal(t, ledger.Money(7000), before.Owners[0].Buckets[business.BucketCurrent])

	after, err := svc.Aging(ctx, acme, ledger.OwnerVendor, day(time.March, 1))
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(0), after.Owners[0].Closing)
	assert.Empty(t, after.Owners[0].Documents[0].Bucket)
}

func TestAging_RejectsEmployees(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Aging(context.Background(), acme, ledger.OwnerEmployee, time.Time{})
	assert.True(t, ledger.IsValidation(err))
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestDashboard_Summary(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	customer := owner(t, svc, ledger.OwnerCustomer, "Globex")
	vendor := owner(t, svc, ledger.OwnerVendor, "Initech")

	_, err := svc.Engine().PostSimple(ctx, ledger.SimplePosting{
		Header: ledger.Header{BookID: acme, PostDate: day(time.January, 2)},
		Debit:  acct("1001"),
		Credit: acct("3001"),
		Amount: 100000,
	})
	require.NoError(t, err)

	sale := document(t, svc, ledger.SalesInvoice, customer, day(time.January, 10), vatLine("4001", 1, 11300))
	bill := document(t, svc, ledger.PurchaseInvoice, vendor, day(time.January, 12), line("1405", 1, 5000))
	document(t, svc, ledger.SalesInvoice, customer, day(time.January, 15), line("4001", 1, 100))

	_, err = svc.PostSalesInvoice(ctx, sale.ID)
	require.NoError(t, err)
	_, err = svc.PostPurchase(ctx, bill.ID)
	require.NoError(t, err)
	_, err = svc.ReceivePayment(ctx, business.Payment{DocumentID: sale.ID, Amount: 4000, Date: day(time.February, 1)})
	require.NoError(t, err)
	_, err = svc.PayPurchase(ctx, business.Payment{DocumentID: bill.ID, Amount: 2000, Date: day(time.February, 2)})
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, acme, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, day(time.March, 1), d.AsOf)
	assert.Equal(t, ledger.Money(102000), d.Cash)
	assert.Equal(t, ledger.Money(11300), d.SalesTotal)
	assert.Equal(t, ledger.Money(4000), d.Received)
	assert.Equal(t, ledger.Money(7300), d.Receivable)
	assert.Equal(t, "35.40", d.ReceivedProgress.StringFixed(2))
	assert.Equal(t, ledger.Money(5000), d.PurchaseTotal)
	assert.Equal(t, ledger.Money(2000), d.Paid)
	assert.Equal(t, ledger.Money(3000), d.Payable)
	assert.Equal(t, "40.00", d.PaidProgress.StringFixed(2))
	assert.Equal(t, 1, d.PendingSales)
	assert.Equal(t, 1, d.PendingPurchases)
	assert.Equal(t, 1, d.Drafts)
}
