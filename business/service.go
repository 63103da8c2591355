/*
Package business implements the bookkeeping flows built on the ledger engine.

PURPOSE:
  The ledger package only knows accounts, splits and documents. This
  package adds the day-to-day flows of a small company on top of it:
  customers, vendors and employees, invoices and their payments, expense
  claims, manual tax entries, bank statement imports and the receivable
  and payable views (aging, dashboard).

ACCOUNT ROLES:
  Flows never search the chart by name. Default accounts (receivable,
  payable, cash, ...) come from a RoleProvider, normally CodeRoles built
  from configuration. Any flow accepts an explicit account instead.

SETTLEMENT:
  Payments are ordinary transactions whose source id is the document id.
  After posting one, the flow asks the engine to recompute the document's
  status, so a payment and the status it causes are observed together.

FLOWS:
  sales.go      PostSalesInvoice, ReceivePayment
  purchase.go   PostPurchase, PayPurchase
  employee.go   PostEmployeeExpense, PayEmployee, EmployeeBalance
  tax.go        CalculateTax, PostManualTax
  bank.go       ImportStatementLine, ImportStatement
  aging.go      Aging
  dashboard.go  Dashboard
*/
package business

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moon/ledger-engine/ledger"
)

// Repository is the persistence the flows need. Both the memory store and
// the SQLite store satisfy it.
type Repository interface {
	ledger.ChartProvider
	ledger.Store
	ledger.DocumentProvider

	SaveDocument(ctx context.Context, doc ledger.SourceDocument) error
	ListDocuments(ctx context.Context, bookID ledger.BookID, filter ledger.DocumentFilter) ([]ledger.SourceDocument, error)
	SaveOwner(ctx context.Context, o ledger.Owner) error
	GetOwner(ctx context.Context, id ledger.OwnerID) (ledger.Owner, error)
	ListOwners(ctx context.Context, bookID ledger.BookID, kind ledger.OwnerKind) ([]ledger.Owner, error)
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithIDGenerator(fn func() string) Option { return func(s *Service) { s.newID = fn } }

func WithClock(fn func() time.Time) Option { return func(s *Service) { s.now = fn } }

// Service runs business flows against one repository and engine.
type Service struct {
	repo   Repository
	engine *ledger.Engine
	roles  RoleProvider
	newID  func() string
	now    func() time.Time
	logger *zap.Logger
}

// NewService wires the flows. engine must be built over the same repository.
func NewService(repo Repository, engine *ledger.Engine, roles RoleProvider, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		engine: engine,
		roles:  roles,
		newID:  uuid.NewString,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Engine() *ledger.Engine { return s.engine }

// Roles returns the resolved account roles of a book.
func (s *Service) Roles(ctx context.Context, bookID ledger.BookID) (Roles, error) {
	return s.roles.Roles(ctx, bookID)
}

// today is the default posting date of flows called without one.
func (s *Service) today() time.Time { return ledger.Day(s.now()) }

func (s *Service) dateOr(t time.Time) time.Time {
	if t.IsZero() {
		return s.today()
	}
	return ledger.Day(t)
}
