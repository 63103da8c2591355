package business

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moon/ledger-engine/ledger"
)

// =============================================================================
// OWNERS
// =============================================================================

// NewOwner is the input of CreateOwner.
type NewOwner struct {
	BookID ledger.BookID
	Kind   ledger.OwnerKind
	Name   string
}

// CreateOwner registers a customer, vendor or employee.
func (s *Service) CreateOwner(ctx context.Context, in NewOwner) (ledger.Owner, error) {
	switch in.Kind {
	case ledger.OwnerCustomer, ledger.OwnerVendor, ledger.OwnerEmployee:
	default:
		return ledger.Owner{}, &ledger.ValidationError{Err: ErrWrongOwnerKind, Field: "kind", Reason: string(in.Kind)}
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ledger.Owner{}, &ledger.ValidationError{Err: ErrMissingName, Field: "name"}
	}
	owner := ledger.Owner{
		ID:     ledger.OwnerID(s.newID()),
		BookID: in.BookID,
		Kind:   in.Kind,
		Name:   name,
	}
	if err := s.repo.SaveOwner(ctx, owner); err != nil {
		return ledger.Owner{}, fmt.Errorf("save owner: %w", err)
	}
	return owner, nil
}

func (s *Service) ListOwners(ctx context.Context, bookID ledger.BookID, kind ledger.OwnerKind) ([]ledger.Owner, error) {
	return s.repo.ListOwners(ctx, bookID, kind)
}

// ownerOfKind loads an owner and checks its kind.
func (s *Service) ownerOfKind(ctx context.Context, id ledger.OwnerID, kind ledger.OwnerKind) (ledger.Owner, error) {
	owner, err := s.repo.GetOwner(ctx, id)
	if err != nil {
		return ledger.Owner{}, err
	}
	if owner.Kind != kind {
		return ledger.Owner{}, &ledger.StateError{Err: ErrWrongOwnerKind,
			Reason: fmt.Sprintf("%s is a %s, want %s", id, owner.Kind, kind)}
	}
	return owner, nil
}

// ownerKindFor is the owner kind a document of kind k belongs to.
func ownerKindFor(k ledger.DocumentKind) ledger.OwnerKind {
	if k.Sales() {
		return ledger.OwnerCustomer
	}
	return ledger.OwnerVendor
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// NewDocument is the input of CreateDocument.
type NewDocument struct {
	BookID      ledger.BookID
	Kind        ledger.DocumentKind
	OwnerID     ledger.OwnerID
	Number      string
	Date        time.Time
	Description string
	Lines       []ledger.LineItem
}

var numberPrefix = map[ledger.DocumentKind]string{
	ledger.SalesInvoice:    "SI",
	ledger.PurchaseInvoice: "PI",
	ledger.PurchaseOrder:   "PO",
}

// CreateDocument stores a DRAFT document after pricing its lines once, so a
// document that could never post is rejected up front.
func (s *Service) CreateDocument(ctx context.Context, in NewDocument) (ledger.SourceDocument, error) {
	if !in.Kind.Valid() {
		return ledger.SourceDocument{}, &ledger.ValidationError{Err: ErrWrongDocumentKind, Field: "kind", Reason: string(in.Kind)}
	}
	owner, err := s.ownerOfKind(ctx, in.OwnerID, ownerKindFor(in.Kind))
	if err != nil {
		return ledger.SourceDocument{}, err
	}
	if owner.BookID != in.BookID {
		return ledger.SourceDocument{}, &ledger.StateError{Err: ledger.ErrOwnerNotFound,
			Reason: fmt.Sprintf("%s in book %s", in.OwnerID, in.BookID)}
	}
	if _, err := s.engine.Calculator().Calculate(in.Lines, in.Kind.Sales()); err != nil {
		return ledger.SourceDocument{}, err
	}

	id := s.newID()
	number := strings.TrimSpace(in.Number)
	if number == "" {
		short := id
		if len(short) > 8 {
			short = short[:8]
		}
		number = numberPrefix[in.Kind] + "-" + strings.ToUpper(short)
	}
	doc := ledger.SourceDocument{
		ID:          ledger.DocumentID(id),
		BookID:      in.BookID,
		Kind:        in.Kind,
		OwnerID:     in.OwnerID,
		Number:      number,
		Date:        s.dateOr(in.Date),
		Description: in.Description,
		Status:      ledger.StatusDraft,
		Lines:       in.Lines,
	}
	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return ledger.SourceDocument{}, fmt.Errorf("save document: %w", err)
	}
	s.logger.Debug("document created",
		zap.String("document_id", id),
		zap.String("kind", string(doc.Kind)),
		zap.String("number", number))
	return doc, nil
}

func (s *Service) GetDocument(ctx context.Context, id ledger.DocumentID) (ledger.SourceDocument, error) {
	return s.repo.GetDocument(ctx, id)
}

func (s *Service) ListDocuments(ctx context.Context, bookID ledger.BookID, filter ledger.DocumentFilter) ([]ledger.SourceDocument, error) {
	return s.repo.ListDocuments(ctx, bookID, filter)
}

// documentOfKind loads a document and checks it is one of kinds.
func (s *Service) documentOfKind(ctx context.Context, id ledger.DocumentID, kinds ...ledger.DocumentKind) (ledger.SourceDocument, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return ledger.SourceDocument{}, err
	}
	for _, k := range kinds {
		if doc.Kind == k {
			return doc, nil
		}
	}
	return ledger.SourceDocument{}, &ledger.StateError{Err: ErrWrongDocumentKind,
		Reason: fmt.Sprintf("%s is a %s", id, doc.Kind)}
}

// payable checks a document can take a payment: posted and not yet settled.
func payable(doc ledger.SourceDocument) error {
	switch doc.Status {
	case ledger.StatusPosted:
		return nil
	case ledger.StatusApproved:
		return &ledger.StateError{Err: ErrAlreadySettled, Reason: string(doc.ID)}
	default:
		return &ledger.StateError{Err: ledger.ErrNotPosted, Reason: fmt.Sprintf("%s is %s", doc.ID, doc.Status)}
	}
}
