/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Populates a fresh book with realistic data so the reports and the
  settlement views have something to show.

AVAILABLE SCENARIOS:
  trading-company: Seeded chart, capital injection, two customers, a
                   vendor and an employee; a part-paid sales invoice, an
                   open one, a fully paid purchase, a draft order, an
                   expense claim with a partial reimbursement, a manual
                   tax entry and two bank statement lines
  empty-book:      Seeded chart only

HOW SCENARIOS WORK:
  1. Refuse the book if it already has accounts (409)
  2. Seed the built-in chart
  3. Post everything through the business service, exactly as the API
     would, with dates relative to today

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "trading-company", "book_id": "demo"}

  book_id defaults to the scenario id.

ADDING NEW SCENARIOS:
  1. Add to 'scenarios' slice with ID, name, description
  2. Create loader function: loadXxxScenario(ctx, book)
  3. Add case to LoadScenario handler

SEE ALSO:
  - handlers.go: Handler
  - chart/default.yaml: Account codes used below
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moon/ledger-engine/business"
	"github.com/moon/ledger-engine/chart"
	"github.com/moon/ledger-engine/ledger"
)

// ErrBookExists is returned when a scenario targets a book that has accounts.
var ErrBookExists = errors.New("book already has accounts")

// ErrUnknownScenario is returned for scenario ids not in the list.
var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "trading-company",
		Name:        "Trading Company",
		Description: "Two months of sales, purchases, expense claims, tax and bank activity",
	},
	{
		ID:          "empty-book",
		Name:        "Empty Book",
		Description: "The built-in chart of accounts with no activity",
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last scenario loaded by this process.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	dto := LoadScenarioDTO{ScenarioID: h.currentScenario, BookID: string(h.currentBook)}
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	book := ledger.BookID(req.BookID)
	if book == "" {
		book = ledger.BookID(req.ScenarioID)
	}

	ctx := r.Context()
	if err := h.loadScenario(ctx, req.ScenarioID, book); err != nil {
		h.fail(w, r, "Failed to load scenario", err)
		return
	}
	h.invalidate(book)

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.currentBook = book
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, LoadScenarioDTO{ScenarioID: req.ScenarioID, BookID: string(book)})
}

func (h *Handler) loadScenario(ctx context.Context, id string, book ledger.BookID) error {
	var load func(context.Context, ledger.BookID) error
	switch id {
	case "trading-company":
		load = h.loadTradingCompanyScenario
	case "empty-book":
		load = h.loadEmptyBookScenario
	default:
		return &ledger.ValidationError{Err: ErrUnknownScenario, Field: "scenario_id", Reason: id}
	}

	existing, err := h.store.ListAccounts(ctx, book)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	if len(existing) > 0 {
		return &ledger.StateError{Err: ErrBookExists, Reason: string(book)}
	}
	if _, err := chart.Seed(ctx, h.store, book, chart.Default()); err != nil {
		return fmt.Errorf("seed chart: %w", err)
	}
	return load(ctx, book)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadEmptyBookScenario(context.Context, ledger.BookID) error {
	return nil
}

func (h *Handler) loadTradingCompanyScenario(ctx context.Context, book ledger.BookID) error {
	acct := func(code string) ledger.AccountID { return chart.AccountID(book, code) }
	today := ledger.Day(h.now())
	ago := func(days int) time.Time { return today.AddDate(0, 0, -days) }
	svc := h.service

	// Capital: 500,000.00 into the bank
	if _, err := h.engine.PostSimple(ctx, ledger.SimplePosting{
		Header: ledger.Header{
			BookID:      book,
			PostDate:    ago(60),
			Description: "Paid-in capital",
			SourceType:  ledger.SourceManual,
		},
		Debit:  acct("1002"),
		Credit: acct("3001"),
		Amount: ledger.MoneyFromMajor(500000),
	}); err != nil {
		return fmt.Errorf("capital: %w", err)
	}

	owners := map[string]ledger.Owner{}
	for _, o := range []business.NewOwner{
		{BookID: book, Kind: ledger.OwnerCustomer, Name: "Northwind Traders"},
		{BookID: book, Kind: ledger.OwnerCustomer, Name: "Contoso Retail"},
		{BookID: book, Kind: ledger.OwnerVendor, Name: "Fabrikam Supplies"},
		{BookID: book, Kind: ledger.OwnerEmployee, Name: "Dana Lee"},
	} {
		created, err := svc.CreateOwner(ctx, o)
		if err != nil {
			return fmt.Errorf("owner %s: %w", o.Name, err)
		}
		owners[o.Name] = created
	}

	outputVAT := func(included bool) *ledger.TaxRule {
		return &ledger.TaxRule{Rate: ledger.NewRational(13, 100), Direction: ledger.TaxOutput, PayableAccountID: acct("222102"), Included: included}
	}
	inputVAT := &ledger.TaxRule{Rate: ledger.NewRational(13, 100), Direction: ledger.TaxInput, PayableAccountID: acct("222101")}

	// Sales invoice, VAT included, part paid
	northwind, err := svc.CreateDocument(ctx, business.NewDocument{
		BookID:      book,
		Kind:        ledger.SalesInvoice,
		OwnerID:     owners["Northwind Traders"].ID,
		Number:      "SI-0001",
		Date:        ago(45),
		Description: "Office chairs",
		Lines: []ledger.LineItem{{
			AccountID: acct("4001"), Description: "Office chair",
			Quantity: ledger.Whole(10), UnitPrice: ledger.Cents(11300), Tax: outputVAT(true),
		}},
	})
	if err != nil {
		return fmt.Errorf("northwind invoice: %w", err)
	}
	if _, err := svc.PostSalesInvoice(ctx, northwind.ID); err != nil {
		return fmt.Errorf("post northwind invoice: %w", err)
	}
	if _, err := svc.ReceivePayment(ctx, business.Payment{
		DocumentID: northwind.ID, Amount: ledger.MoneyFromMajor(500), Date: ago(20), AccountID: acct("1002"),
	}); err != nil {
		return fmt.Errorf("northwind receipt: %w", err)
	}

	// Sales invoice, VAT on top, open
	contoso, err := svc.CreateDocument(ctx, business.NewDocument{
		BookID:  book,
		Kind:    ledger.SalesInvoice,
		OwnerID: owners["Contoso Retail"].ID,
		Number:  "SI-0002",
		Date:    ago(10),
		Lines: []ledger.LineItem{{
			AccountID: acct("4001"), Description: "Standing desk",
			Quantity: ledger.Whole(2), UnitPrice: ledger.Cents(25000), Tax: outputVAT(false),
		}},
	})
	if err != nil {
		return fmt.Errorf("contoso invoice: %w", err)
	}
	if _, err := svc.PostSalesInvoice(ctx, contoso.ID); err != nil {
		return fmt.Errorf("post contoso invoice: %w", err)
	}

	// Purchase invoice, paid in full from the bank
	stock, err := svc.CreateDocument(ctx, business.NewDocument{
		BookID:  book,
		Kind:    ledger.PurchaseInvoice,
		OwnerID: owners["Fabrikam Supplies"].ID,
		Number:  "PI-0001",
		Date:    ago(30),
		Lines: []ledger.LineItem{{
			AccountID: acct("1405"), Description: "Chair frames",
			Quantity: ledger.Whole(100), UnitPrice: ledger.Cents(1200), Tax: inputVAT,
		}},
	})
	if err != nil {
		return fmt.Errorf("purchase invoice: %w", err)
	}
	if _, err := svc.PostPurchase(ctx, stock.ID); err != nil {
		return fmt.Errorf("post purchase invoice: %w", err)
	}
	posted, err := svc.GetDocument(ctx, stock.ID)
	if err != nil {
		return err
	}
	if _, err := svc.PayPurchase(ctx, business.Payment{
		DocumentID: stock.ID, Amount: posted.Total, Date: ago(5), AccountID: acct("1002"),
	}); err != nil {
		return fmt.Errorf("pay purchase invoice: %w", err)
	}

	// Purchase order left in draft
	if _, err := svc.CreateDocument(ctx, business.NewDocument{
		BookID:  book,
		Kind:    ledger.PurchaseOrder,
		OwnerID: owners["Fabrikam Supplies"].ID,
		Number:  "PO-0001",
		Date:    ago(2),
		Lines: []ledger.LineItem{{
			AccountID: acct("1601"), Description: "Delivery van deposit",
			Quantity: ledger.Whole(1), UnitPrice: ledger.Cents(300000),
		}},
	}); err != nil {
		return fmt.Errorf("purchase order: %w", err)
	}

	// Expense claim, part reimbursed
	dana := owners["Dana Lee"].ID
	claim, err := svc.PostEmployeeExpense(ctx, business.ExpenseClaim{
		EmployeeID: dana, ExpenseAccountID: acct("5602"), Amount: ledger.MoneyFromMajor(320),
		Date: ago(15), Description: "Client visit travel",
	})
	if err != nil {
		return fmt.Errorf("expense claim: %w", err)
	}
	if _, err := svc.PayEmployee(ctx, business.EmployeePayment{
		EmployeeID: dana, Amount: ledger.MoneyFromMajor(200), Date: ago(7), ExpenseTxID: claim,
	}); err != nil {
		return fmt.Errorf("reimbursement: %w", err)
	}

	// Manual output tax on other income
	if _, err := svc.PostManualTax(ctx, business.ManualTax{
		BookID: book, Direction: ledger.TaxOutput, BaseAccountID: acct("4051"),
		Base: ledger.MoneyFromMajor(1000), RatePercent: decimal.NewFromInt(6),
		Date: ago(3), Description: "Consulting fee",
	}); err != nil {
		return fmt.Errorf("manual tax: %w", err)
	}

	// Bank statement
	if _, err := svc.ImportStatement(ctx, []business.StatementLine{
		{BookID: book, Date: ago(2), Amount: ledger.MoneyFromMajor(500), Description: "Incoming transfer", Reference: "ST-1001"},
		{BookID: book, Date: ago(1), Amount: -ledger.Money(4500), Description: "Bank charges", Reference: "ST-1002", CounterAccountID: acct("5603")},
	}); err != nil {
		return fmt.Errorf("bank statement: %w", err)
	}
	return nil
}
