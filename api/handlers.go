/*
handlers.go - HTTP API handlers for the ledger engine

PURPOSE:
  Exposes the posting engine and the business flows via REST. Handles
  HTTP request/response, JSON serialization and validation, and
  delegates to the business service or the engine.

ENDPOINTS:
  Accounts (per book):
    GET    /api/books/{book}/accounts                      Account tree with balances (?as_of)
    POST   /api/books/{book}/accounts/seed                 Seed the built-in chart
    GET    /api/books/{book}/accounts/{account}/register   Register (?from, ?to, ?children)

  Transactions:
    POST   /api/books/{book}/transactions                  Post a caller-built split set
    POST   /api/books/{book}/transactions/transfer         Two-split posting
    GET    /api/transactions/{id}                          Header and splits

  Owners & documents:
    GET    /api/books/{book}/owners                        List (?kind)
    POST   /api/books/{book}/owners                        Create
    GET    /api/books/{book}/documents                     List (?kind, ?status, ?owner_id)
    POST   /api/books/{book}/documents                     Create a DRAFT document
    GET    /api/documents/{id}                             Document
    POST   /api/documents/{id}/post                        Post to the ledger
    POST   /api/documents/{id}/payments                    Receive or pay
    GET    /api/documents/{id}/settlement                  Settlement position
    POST   /api/documents/{id}/settlement/recompute        Re-derive status

  Employees, tax, bank (see reports.go):
    POST   /api/employees/{id}/expenses                    Expense claim
    POST   /api/employees/{id}/payments                    Reimbursement
    GET    /api/employees/{id}/balance                     Claimed, paid, outstanding
    POST   /api/tax/calculate                              Tax on a base
    POST   /api/books/{book}/tax                           Manual tax entry
    POST   /api/books/{book}/statements                    Import statement lines
    GET    /api/books/{book}/reconciliation                Candidates
    POST   /api/books/{book}/reconciliation/mark           Mark reconciled

  Reports (see reports.go):
    GET    /api/books/{book}/reports/{trial-balance|profit-and-loss|balance-sheet|cash-flow|aging|dashboard}

  Scenarios (see scenarios.go):
    GET    /api/scenarios, GET /api/scenarios/current, POST /api/scenarios/load

ERROR HANDLING:
  Errors are returned as JSON with a status derived from the ledger error
  taxonomy:
  - 400: ValidationError, malformed JSON, failed validator tags
  - 404: account, document, owner or transaction not found
  - 409: any other StateError (wrong status, role not configured, ...)
  - 500: everything else, including InvariantViolation

CACHING:
  Account trees are cached per (book, as_of) with go-cache. Any handler
  that posts to a book drops that book's entries.

SECURITY NOTE:
  There is no authentication. Put the server behind a gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - reports.go: Reports, reconciliation, employee, tax and bank handlers
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/moon/ledger-engine/business"
	"github.com/moon/ledger-engine/chart"
	"github.com/moon/ledger-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs on top of the business repository.
type Store interface {
	business.Repository
	chart.AccountSaver
	GetTransaction(ctx context.Context, id ledger.TransactionID) (ledger.Transaction, []ledger.Split, error)
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

func WithHandlerLogger(l *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithTreeTTL sets how long account trees stay cached. Zero disables the cache.
func WithTreeTTL(ttl time.Duration) HandlerOption {
	return func(h *Handler) { h.treeTTL = ttl }
}

func WithHandlerClock(fn func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = fn }
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	store    Store
	service  *business.Service
	engine   *ledger.Engine
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time

	treeTTL time.Duration
	trees   *cache.Cache

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
	currentBook     ledger.BookID
}

// NewHandler creates a handler. service must run on the same store.
func NewHandler(store Store, service *business.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:    store,
		service:  service,
		engine:   service.Engine(),
		validate: newValidator(),
		logger:   zap.NewNop(),
		now:      time.Now,
		treeTTL:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.treeTTL > 0 {
		h.trees = cache.New(h.treeTTL, 2*h.treeTTL)
	}
	return h
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// GetAccountTree returns the book's chart with rolled-up balances.
func (h *Handler) GetAccountTree(w http.ResponseWriter, r *http.Request) {
	book := bookParam(r)
	asOf, err := queryDay(r, "as_of")
	if err != nil {
		h.fail(w, r, "Invalid as_of", err)
		return
	}

	key := treeKey(book, asOf)
	if h.trees != nil {
		if cached, ok := h.trees.Get(key); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	tree, err := h.engine.AccountTreeWithBalances(r.Context(), book, asOf)
	if err != nil {
		h.fail(w, r, "Failed to build account tree", err)
		return
	}
	dtos := toTreeDTO(tree)
	if h.trees != nil {
		h.trees.SetDefault(key, dtos)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SeedAccounts loads the built-in chart into the book. Seeding twice is a no-op.
func (h *Handler) SeedAccounts(w http.ResponseWriter, r *http.Request) {
	book := bookParam(r)
	accounts, err := chart.Seed(r.Context(), h.store, book, chart.Default())
	if err != nil {
		h.fail(w, r, "Failed to seed chart", err)
		return
	}
	h.invalidate(book)

	tree := ledger.BuildTree(accounts, nil)
	writeJSON(w, http.StatusCreated, toTreeDTO(tree))
}

// GetRegister lists the splits of one account with a running balance.
func (h *Handler) GetRegister(w http.ResponseWriter, r *http.Request) {
	book := bookParam(r)
	period, err := queryPeriod(r)
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	children := r.URL.Query().Get("children") == "true"
	account := ledger.AccountID(chi.URLParam(r, "account"))

	reg, err := h.engine.AccountRegister(r.Context(), book, account, children, period)
	if err != nil {
		h.fail(w, r, "Failed to load register", err)
		return
	}

	dto := RegisterDTO{
		AccountID: string(reg.AccountID),
		Opening:   reg.Opening,
		Closing:   reg.Closing,
		Lines:     make([]RegisterLineDTO, 0, len(reg.Lines)),
	}
	for _, l := range reg.Lines {
		dto.Lines = append(dto.Lines, RegisterLineDTO{
			SplitID:     string(l.ID),
			TxID:        string(l.TxID),
			AccountID:   string(l.AccountID),
			PostDate:    formatDay(l.PostDate),
			Description: l.Description,
			SourceType:  string(l.SourceType),
			SourceID:    l.SourceID,
			Amount:      l.Amount,
			Running:     l.Running,
			Reconciled:  l.ReconcileState == ledger.Reconciled,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// PostTransaction posts a caller-built split set as a MANUAL transaction.
func (h *Handler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	var req PostTransactionRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	book := bookParam(r)

	splits := make([]ledger.Split, len(req.Splits))
	for i, s := range req.Splits {
		splits[i] = ledger.Split{AccountID: ledger.AccountID(s.AccountID), Amount: s.Amount, Memo: s.Memo}
	}
	// Caught here so a client mistake is a 400, not an invariant violation.
	if !ledger.Balanced(splits) {
		h.fail(w, r, "Unbalanced transaction", &ledger.ValidationError{
			Err: ledger.ErrUnbalancedTransaction, Field: "splits", Reason: "amounts must sum to zero"})
		return
	}
	header := ledger.Header{
		BookID:      book,
		PostDate:    h.dayOr(req.Date),
		Number:      req.Number,
		Description: req.Description,
		SourceType:  ledger.SourceManual,
	}

	txID, err := h.engine.Post(r.Context(), header, splits)
	if err != nil {
		h.fail(w, r, "Failed to post transaction", err)
		return
	}
	h.invalidate(book)
	writeJSON(w, http.StatusCreated, PostedDTO{TxID: string(txID)})
}

// PostTransfer posts amount from the credit account to the debit account.
func (h *Handler) PostTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	book := bookParam(r)

	txID, err := h.engine.PostSimple(r.Context(), ledger.SimplePosting{
		Header: ledger.Header{
			BookID:      book,
			PostDate:    h.dayOr(req.Date),
			Description: req.Description,
			SourceType:  ledger.SourceManual,
		},
		Debit:  ledger.AccountID(req.Debit),
		Credit: ledger.AccountID(req.Credit),
		Amount: req.Amount,
	})
	if err != nil {
		h.fail(w, r, "Failed to post transfer", err)
		return
	}
	h.invalidate(book)
	writeJSON(w, http.StatusCreated, PostedDTO{TxID: string(txID)})
}

// GetTransaction returns a transaction header and its splits.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	tx, splits, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Transaction not found", err)
		return
	}

	dto := TransactionDTO{
		ID:          string(tx.ID),
		BookID:      string(tx.BookID),
		Number:      tx.Number,
		PostDate:    formatDay(tx.PostDate),
		EnteredAt:   tx.EnteredAt.UTC().Format(time.RFC3339),
		Description: tx.Description,
		SourceType:  string(tx.SourceType),
		SourceID:    tx.SourceID,
		Splits:      make([]SplitDTO, len(splits)),
	}
	for i, s := range splits {
		dto.Splits[i] = SplitDTO{
			ID:             string(s.ID),
			AccountID:      string(s.AccountID),
			Amount:         s.Amount,
			Memo:           s.Memo,
			ReconcileState: string(s.ReconcileState),
		}
		if s.ReconcileDate != nil {
			dto.Splits[i].ReconcileDate = formatDay(*s.ReconcileDate)
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// OWNER HANDLERS
// =============================================================================

func (h *Handler) ListOwners(w http.ResponseWriter, r *http.Request) {
	kind := ledger.OwnerKind(strings.ToUpper(r.URL.Query().Get("kind")))
	owners, err := h.service.ListOwners(r.Context(), bookParam(r), kind)
	if err != nil {
		h.fail(w, r, "Failed to list owners", err)
		return
	}
	dtos := make([]OwnerDTO, len(owners))
	for i, o := range owners {
		dtos[i] = toOwnerDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateOwner(w http.ResponseWriter, r *http.Request) {
	var req CreateOwnerRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	owner, err := h.service.CreateOwner(r.Context(), business.NewOwner{
		BookID: bookParam(r),
		Kind:   ledger.OwnerKind(req.Kind),
		Name:   req.Name,
	})
	if err != nil {
		h.fail(w, r, "Failed to create owner", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOwnerDTO(owner))
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.DocumentFilter{
		Kind:    ledger.DocumentKind(strings.ToUpper(q.Get("kind"))),
		Status:  ledger.DocumentStatus(strings.ToUpper(q.Get("status"))),
		OwnerID: ledger.OwnerID(q.Get("owner_id")),
	}
	docs, err := h.service.ListDocuments(r.Context(), bookParam(r), filter)
	if err != nil {
		h.fail(w, r, "Failed to list documents", err)
		return
	}
	dtos := make([]DocumentDTO, len(docs))
	for i, d := range docs {
		dtos[i] = toDocumentDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDocument stores a DRAFT document after pricing its lines once.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	lines, err := toLineItems(req.Lines)
	if err != nil {
		h.fail(w, r, "Invalid line items", err)
		return
	}
	date, err := parseDay(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}

	doc, err := h.service.CreateDocument(r.Context(), business.NewDocument{
		BookID:      bookParam(r),
		Kind:        ledger.DocumentKind(req.Kind),
		OwnerID:     ledger.OwnerID(req.OwnerID),
		Number:      req.Number,
		Date:        date,
		Description: req.Description,
		Lines:       lines,
	})
	if err != nil {
		h.fail(w, r, "Failed to create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentDTO(doc))
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.GetDocument(r.Context(), documentParam(r))
	if err != nil {
		h.fail(w, r, "Document not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

// PostDocument posts a DRAFT document against its receivable or payable role.
func (h *Handler) PostDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := h.service.GetDocument(ctx, documentParam(r))
	if err != nil {
		h.fail(w, r, "Document not found", err)
		return
	}

	if doc.Kind.Sales() {
		_, err = h.service.PostSalesInvoice(ctx, doc.ID)
	} else {
		_, err = h.service.PostPurchase(ctx, doc.ID)
	}
	if err != nil {
		h.fail(w, r, "Failed to post document", err)
		return
	}
	h.invalidate(doc.BookID)

	posted, err := h.service.GetDocument(ctx, doc.ID)
	if err != nil {
		h.fail(w, r, "Failed to reload document", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(posted))
}

// AddPayment receives money for a sales invoice or pays a purchase.
func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	date, err := parseDay(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}

	ctx := r.Context()
	doc, err := h.service.GetDocument(ctx, documentParam(r))
	if err != nil {
		h.fail(w, r, "Document not found", err)
		return
	}
	p := business.Payment{
		DocumentID: doc.ID,
		Amount:     req.Amount,
		Date:       date,
		AccountID:  ledger.AccountID(req.AccountID),
		Memo:       req.Memo,
	}

	var res business.PaymentResult
	if doc.Kind.Sales() {
		res, err = h.service.ReceivePayment(ctx, p)
	} else {
		res, err = h.service.PayPurchase(ctx, p)
	}
	// A failed recompute still leaves the payment committed.
	if res.TxID != "" {
		h.invalidate(doc.BookID)
	}
	if err != nil {
		h.fail(w, r, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, PaymentDTO{TxID: string(res.TxID), Settlement: toSettlementDTO(res.Settlement)})
}

func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	sum, err := h.engine.Settlement(r.Context(), documentParam(r))
	if err != nil {
		h.fail(w, r, "Failed to load settlement", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementDTO(sum))
}

// RecomputeSettlement re-derives the status from the ledger and returns the position.
func (h *Handler) RecomputeSettlement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := documentParam(r)
	if _, err := h.engine.RecomputeSettlement(ctx, id); err != nil {
		h.fail(w, r, "Failed to recompute settlement", err)
		return
	}
	sum, err := h.engine.Settlement(ctx, id)
	if err != nil {
		h.fail(w, r, "Failed to load settlement", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementDTO(sum))
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst and runs the validator tags.
func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ledger.ValidationError{Err: ledger.ErrInvalidInput, Field: "body", Reason: err.Error()}
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ledger.ValidationError{Err: ledger.ErrInvalidInput, Field: fe.Namespace(), Reason: "failed " + fe.Tag()}
		}
		return &ledger.ValidationError{Err: ledger.ErrInvalidInput, Reason: err.Error()}
	}
	return nil
}

// statusFor maps the ledger error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case ledger.IsValidation(err):
		return http.StatusBadRequest
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case ledger.IsState(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server-side failures are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(message,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// invalidate drops cached trees of a book.
func (h *Handler) invalidate(book ledger.BookID) {
	if h.trees == nil {
		return
	}
	prefix := string(book) + "|"
	for key := range h.trees.Items() {
		if strings.HasPrefix(key, prefix) {
			h.trees.Delete(key)
		}
	}
}

func treeKey(book ledger.BookID, asOf time.Time) string {
	if asOf.IsZero() {
		return string(book) + "|all"
	}
	return string(book) + "|" + formatDay(asOf)
}

func bookParam(r *http.Request) ledger.BookID {
	return ledger.BookID(chi.URLParam(r, "book"))
}

func documentParam(r *http.Request) ledger.DocumentID {
	return ledger.DocumentID(chi.URLParam(r, "id"))
}

// parseDay reads YYYY-MM-DD. Empty input is the zero time.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, &ledger.ValidationError{Err: ledger.ErrInvalidInput, Field: "date", Reason: s}
	}
	return t, nil
}

func queryDay(r *http.Request, name string) (time.Time, error) {
	t, err := parseDay(r.URL.Query().Get(name))
	if err != nil {
		return time.Time{}, &ledger.ValidationError{Err: ledger.ErrInvalidInput, Field: name, Reason: r.URL.Query().Get(name)}
	}
	return t, nil
}

// queryPeriod reads ?from and ?to, both optional and inclusive.
func queryPeriod(r *http.Request) (ledger.Period, error) {
	from, err := queryDay(r, "from")
	if err != nil {
		return ledger.Period{}, err
	}
	to, err := queryDay(r, "to")
	if err != nil {
		return ledger.Period{}, err
	}
	p := ledger.Between(from, to)
	if !p.Valid() {
		return ledger.Period{}, &ledger.ValidationError{Err: ledger.ErrInvalidInput, Field: "from", Reason: "after to"}
	}
	return p, nil
}

// dayOr parses a request date, falling back to today. Dates are validated
// by the "day" tag before this runs.
func (h *Handler) dayOr(s string) time.Time {
	if t, err := parseDay(s); err == nil && !t.IsZero() {
		return t
	}
	return ledger.Day(h.now())
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dayLayout)
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTreeDTO(tree *ledger.AccountTree) []AccountNodeDTO {
	roots := tree.Roots()
	out := make([]AccountNodeDTO, 0, len(roots))
	for _, n := range roots {
		out = append(out, toNodeDTO(tree, n))
	}
	return out
}

func toNodeDTO(tree *ledger.AccountTree, n *ledger.Node) AccountNodeDTO {
	dto := AccountNodeDTO{
		ID:          string(n.Account.ID),
		Code:        n.Account.Code,
		Name:        n.Account.Name,
		Type:        string(n.Account.Type),
		Placeholder: n.Account.Placeholder,
		Own:         n.Own,
		Balance:     n.Balance,
		Natural:     n.Account.Type.Natural(n.Balance),
	}
	for _, c := range tree.Children(n) {
		dto.Children = append(dto.Children, toNodeDTO(tree, c))
	}
	return dto
}

func toOwnerDTO(o ledger.Owner) OwnerDTO {
	return OwnerDTO{ID: string(o.ID), BookID: string(o.BookID), Kind: string(o.Kind), Name: o.Name}
}

func toDocumentDTO(d ledger.SourceDocument) DocumentDTO {
	dto := DocumentDTO{
		ID:               string(d.ID),
		BookID:           string(d.BookID),
		Kind:             string(d.Kind),
		OwnerID:          string(d.OwnerID),
		Number:           d.Number,
		Date:             formatDay(d.Date),
		Description:      d.Description,
		Status:           string(d.Status),
		Total:            d.Total,
		PostTxID:         string(d.PostTxID),
		CounterAccountID: string(d.CounterAccountID),
		Lines:            make([]LineItemDTO, len(d.Lines)),
	}
	for i, l := range d.Lines {
		line := LineItemDTO{
			AccountID:   string(l.AccountID),
			Description: l.Description,
			Quantity:    l.Quantity.String(),
			UnitPrice:   l.UnitPrice.String(),
		}
		if !l.Discount.IsZero() {
			line.Discount = l.Discount.String()
		}
		if l.Tax != nil {
			line.TaxRate = l.Tax.Rate.String()
			line.TaxIncluded = l.Tax.Included
		}
		dto.Lines[i] = line
	}
	return dto
}

func toSettlementDTO(s ledger.SettlementSummary) SettlementDTO {
	return SettlementDTO{
		DocumentID:  string(s.DocumentID),
		Kind:        string(s.Kind),
		Status:      string(s.Status),
		Total:       s.Total,
		Settled:     s.Settled,
		Outstanding: s.Outstanding,
	}
}

// toLineItems parses the exact string fields of request lines.
func toLineItems(reqs []LineItemRequest) ([]ledger.LineItem, error) {
	lines := make([]ledger.LineItem, len(reqs))
	for i, req := range reqs {
		qty, err := ledger.ParseRational(req.Quantity)
		if err != nil {
			return nil, lineError(i, "quantity", err)
		}
		price, err := ledger.ParseRational(req.UnitPrice)
		if err != nil {
			return nil, lineError(i, "unit_price", err)
		}
		var discount ledger.Rational
		if req.Discount != "" {
			if discount, err = ledger.ParseRational(req.Discount); err != nil {
				return nil, lineError(i, "discount", err)
			}
		}
		line := ledger.LineItem{
			AccountID:   ledger.AccountID(req.AccountID),
			Description: req.Description,
			Quantity:    qty,
			UnitPrice:   price,
			Discount:    discount,
		}
		if req.Tax != nil {
			rate, err := ledger.ParseRational(req.Tax.Rate)
			if err != nil {
				return nil, lineError(i, "tax.rate", err)
			}
			line.Tax = &ledger.TaxRule{
				Rate:             rate,
				Direction:        ledger.TaxDirection(req.Tax.Direction),
				PayableAccountID: ledger.AccountID(req.Tax.PayableAccountID),
				Included:         req.Tax.Included,
			}
		}
		lines[i] = line
	}
	return lines, nil
}

func lineError(i int, field string, err error) error {
	return &ledger.ValidationError{Err: ledger.ErrInvalidInput, Field: "lines[" + strconv.Itoa(i) + "]." + field, Reason: err.Error()}
}
