package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/moon/ledger-engine/business"
	"github.com/moon/ledger-engine/ledger"
)

// =============================================================================
// REPORT HANDLERS
// =============================================================================

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDay(r, "as_of")
	if err != nil {
		h.fail(w, r, "Invalid as_of", err)
		return
	}
	tb, err := h.engine.TrialBalance(r.Context(), bookParam(r), asOf)
	if err != nil {
		h.fail(w, r, "Failed to build trial balance", err)
		return
	}
	writeJSON(w, http.StatusOK, tb)
}

func (h *Handler) ProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	period, err := queryPeriod(r)
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	pl, err := h.engine.ProfitAndLoss(r.Context(), bookParam(r), period)
	if err != nil {
		h.fail(w, r, "Failed to build profit and loss", err)
		return
	}
	writeJSON(w, http.StatusOK, ProfitAndLossDTO{PeriodDTO: toPeriodDTO(period), ProfitAndLoss: pl})
}

func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDay(r, "as_of")
	if err != nil {
		h.fail(w, r, "Invalid as_of", err)
		return
	}
	bs, err := h.engine.BalanceSheet(r.Context(), bookParam(r), asOf)
	if err != nil {
		h.fail(w, r, "Failed to build balance sheet", err)
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

func (h *Handler) CashFlow(w http.ResponseWriter, r *http.Request) {
	period, err := queryPeriod(r)
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	cf, err := h.engine.CashFlow(r.Context(), bookParam(r), period)
	if err != nil {
		h.fail(w, r, "Failed to build cash flow", err)
		return
	}
	writeJSON(w, http.StatusOK, CashFlowDTO{PeriodDTO: toPeriodDTO(period), CashFlow: cf})
}

// Aging returns the receivable (?kind=CUSTOMER, default) or payable (?kind=VENDOR) aging.
func (h *Handler) Aging(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDay(r, "as_of")
	if err != nil {
		h.fail(w, r, "Invalid as_of", err)
		return
	}
	kind := ledger.OwnerKind(strings.ToUpper(r.URL.Query().Get("kind")))
	if kind == "" {
		kind = ledger.OwnerCustomer
	}

	report, err := h.service.Aging(r.Context(), bookParam(r), kind, asOf)
	if err != nil {
		h.fail(w, r, "Failed to build aging", err)
		return
	}

	dto := AgingDTO{
		BookID:  string(report.BookID),
		Kind:    string(report.Kind),
		AsOf:    formatDay(report.AsOf),
		Owners:  make([]AgingOwnerDTO, 0, len(report.Owners)),
		Buckets: report.Buckets,
		Total:   report.Total,
	}
	for _, o := range report.Owners {
		od := AgingOwnerDTO{
			Owner:     toOwnerDTO(o.Owner),
			Debits:    o.Debits,
			Credits:   o.Credits,
			Closing:   o.Closing,
			Buckets:   o.Buckets,
			Documents: make([]AgingDocumentDTO, len(o.Documents)),
		}
		for i, d := range o.Documents {
			od.Documents[i] = AgingDocumentDTO{
				DocumentID:  string(d.DocumentID),
				Number:      d.Number,
				Date:        formatDay(d.Date),
				Status:      string(d.Status),
				Total:       d.Total,
				Settled:     d.Settled,
				Outstanding: d.Outstanding,
				AgeDays:     d.AgeDays,
				Bucket:      d.Bucket,
			}
		}
		dto.Owners = append(dto.Owners, od)
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDay(r, "as_of")
	if err != nil {
		h.fail(w, r, "Invalid as_of", err)
		return
	}
	d, err := h.service.Dashboard(r.Context(), bookParam(r), asOf)
	if err != nil {
		h.fail(w, r, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, DashboardDTO{
		BookID:           string(d.BookID),
		AsOf:             formatDay(d.AsOf),
		Cash:             d.Cash,
		SalesTotal:       d.SalesTotal,
		Received:         d.Received,
		Receivable:       d.Receivable,
		ReceivedProgress: d.ReceivedProgress.StringFixed(2),
		PurchaseTotal:    d.PurchaseTotal,
		Paid:             d.Paid,
		Payable:          d.Payable,
		PaidProgress:     d.PaidProgress.StringFixed(2),
		PendingSales:     d.PendingSales,
		PendingPurchases: d.PendingPurchases,
		Drafts:           d.Drafts,
	})
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

func (h *Handler) ReconciliationCandidates(w http.ResponseWriter, r *http.Request) {
	c, err := h.engine.ReconciliationCandidates(r.Context(), bookParam(r))
	if err != nil {
		h.fail(w, r, "Failed to list candidates", err)
		return
	}
	writeJSON(w, http.StatusOK, CandidatesDTO{Bank: toCandidates(c.Bank), Business: toCandidates(c.Business)})
}

// MarkReconciled flags splits as reconciled. Splits already reconciled keep
// their first date.
func (h *Handler) MarkReconciled(w http.ResponseWriter, r *http.Request) {
	var req MarkReconciledRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	date, err := parseDay(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}
	ids := make([]ledger.SplitID, len(req.SplitIDs))
	for i, id := range req.SplitIDs {
		ids[i] = ledger.SplitID(id)
	}
	if err := h.engine.MarkReconciled(r.Context(), ids, date); err != nil {
		h.fail(w, r, "Failed to mark reconciled", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toCandidates(splits []ledger.SplitDetail) []CandidateDTO {
	out := make([]CandidateDTO, len(splits))
	for i, s := range splits {
		out[i] = CandidateDTO{
			SplitID:     string(s.ID),
			TxID:        string(s.TxID),
			AccountID:   string(s.AccountID),
			AccountName: s.AccountName,
			PostDate:    formatDay(s.PostDate),
			Description: s.Description,
			SourceType:  string(s.SourceType),
			Amount:      s.Amount,
		}
	}
	return out
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) PostExpenseClaim(w http.ResponseWriter, r *http.Request) {
	var req ExpenseClaimRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	date, err := parseDay(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}
	txID, err := h.service.PostEmployeeExpense(r.Context(), business.ExpenseClaim{
		EmployeeID:       ledger.OwnerID(chi.URLParam(r, "id")),
		ExpenseAccountID: ledger.AccountID(req.ExpenseAccountID),
		Amount:           req.Amount,
		Date:             date,
		Description:      req.Description,
	})
	if err != nil {
		h.fail(w, r, "Failed to post expense claim", err)
		return
	}
	h.invalidateTx(r.Context(), txID)
	writeJSON(w, http.StatusCreated, PostedDTO{TxID: string(txID)})
}

func (h *Handler) PayEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeePaymentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	date, err := parseDay(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}
	txID, err := h.service.PayEmployee(r.Context(), business.EmployeePayment{
		EmployeeID:  ledger.OwnerID(chi.URLParam(r, "id")),
		Amount:      req.Amount,
		Date:        date,
		AccountID:   ledger.AccountID(req.AccountID),
		ExpenseTxID: ledger.TransactionID(req.ExpenseTxID),
	})
	if err != nil {
		h.fail(w, r, "Failed to pay employee", err)
		return
	}
	h.invalidateTx(r.Context(), txID)
	writeJSON(w, http.StatusCreated, PostedDTO{TxID: string(txID)})
}

func (h *Handler) EmployeeBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.EmployeeBalance(r.Context(), ledger.OwnerID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to load employee balance", err)
		return
	}
	writeJSON(w, http.StatusOK, EmployeeBalanceDTO{
		EmployeeID:  string(b.Employee.ID),
		Name:        b.Employee.Name,
		Claimed:     b.Claimed,
		Paid:        b.Paid,
		Outstanding: b.Outstanding,
	})
}

// =============================================================================
// TAX HANDLERS
// =============================================================================

func (h *Handler) CalculateTax(w http.ResponseWriter, r *http.Request) {
	var req TaxCalculateRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	rate, err := parseRate(req.RatePercent)
	if err != nil {
		h.fail(w, r, "Invalid rate", err)
		return
	}
	tax, err := business.CalculateTax(req.Base, rate)
	if err != nil {
		h.fail(w, r, "Invalid rate", err)
		return
	}
	writeJSON(w, http.StatusOK, TaxCalculateDTO{Base: req.Base, Tax: tax, Total: req.Base + tax})
}

func (h *Handler) PostManualTax(w http.ResponseWriter, r *http.Request) {
	var req ManualTaxRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	rate, err := parseRate(req.RatePercent)
	if err != nil {
		h.fail(w, r, "Invalid rate", err)
		return
	}
	date, err := parseDay(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}
	book := bookParam(r)
	txID, err := h.service.PostManualTax(r.Context(), business.ManualTax{
		BookID:        book,
		Direction:     ledger.TaxDirection(req.Direction),
		BaseAccountID: ledger.AccountID(req.BaseAccountID),
		Base:          req.Base,
		RatePercent:   rate,
		TaxAccountID:  ledger.AccountID(req.TaxAccountID),
		CashAccountID: ledger.AccountID(req.CashAccountID),
		Date:          date,
		Description:   req.Description,
	})
	if err != nil {
		h.fail(w, r, "Failed to post tax entry", err)
		return
	}
	h.invalidate(book)
	writeJSON(w, http.StatusCreated, PostedDTO{TxID: string(txID)})
}

func parseRate(s string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ledger.ValidationError{Err: ledger.ErrInvalidInput, Field: "rate_percent", Reason: s}
	}
	return rate, nil
}

// =============================================================================
// BANK STATEMENT HANDLERS
// =============================================================================

// ImportStatement posts statement lines in order. On failure the ids of
// lines already posted are logged and the error is returned; those lines stay posted.
func (h *Handler) ImportStatement(w http.ResponseWriter, r *http.Request) {
	var req StatementRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	book := bookParam(r)
	lines := make([]business.StatementLine, len(req.Lines))
	for i, l := range req.Lines {
		date, err := parseDay(l.Date)
		if err != nil {
			h.fail(w, r, "Invalid date", err)
			return
		}
		lines[i] = business.StatementLine{
			BookID:           book,
			Date:             date,
			Amount:           l.Amount,
			Description:      l.Description,
			Reference:        l.Reference,
			BankAccountID:    ledger.AccountID(l.BankAccountID),
			CounterAccountID: ledger.AccountID(l.CounterAccountID),
		}
	}

	ids, err := h.service.ImportStatement(r.Context(), lines)
	if len(ids) > 0 {
		h.invalidate(book)
	}
	if err != nil {
		h.logger.Warn("statement import stopped", zap.Int("posted", len(ids)), zap.Error(err))
		h.fail(w, r, "Failed to import statement", err)
		return
	}

	dto := StatementDTO{TxIDs: make([]string, len(ids))}
	for i, id := range ids {
		dto.TxIDs[i] = string(id)
	}
	writeJSON(w, http.StatusCreated, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

// invalidateTx drops cached trees of the book a transaction was posted to.
func (h *Handler) invalidateTx(ctx context.Context, id ledger.TransactionID) {
	if h.trees == nil {
		return
	}
	tx, _, err := h.store.GetTransaction(ctx, id)
	if err != nil {
		h.trees.Flush()
		return
	}
	h.invalidate(tx.BookID)
}

func toPeriodDTO(p ledger.Period) PeriodDTO {
	return PeriodDTO{From: formatDay(p.Start), To: formatDay(p.End)}
}
