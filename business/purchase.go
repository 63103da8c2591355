package business

import (
	"context"

	"github.com/moon/ledger-engine/ledger"
)

// PostPurchase posts a DRAFT purchase invoice or purchase order against the
// payable role.
func (s *Service) PostPurchase(ctx context.Context, id ledger.DocumentID) (ledger.TransactionID, error) {
	doc, err := s.documentOfKind(ctx, id, ledger.PurchaseInvoice, ledger.PurchaseOrder)
	if err != nil {
		return "", err
	}
	roles, err := s.roles.Roles(ctx, doc.BookID)
	if err != nil {
		return "", err
	}
	counter, err := requireRole("payable", roles.Payable)
	if err != nil {
		return "", err
	}
	return s.engine.PostInvoice(ctx, doc, counter, false)
}

// PayPurchase records money paid against a posted purchase document:
// +payable / -cash, then recomputes the document status.
func (s *Service) PayPurchase(ctx context.Context, p Payment) (PaymentResult, error) {
	doc, err := s.documentOfKind(ctx, p.DocumentID, ledger.PurchaseInvoice, ledger.PurchaseOrder)
	if err != nil {
		return PaymentResult{}, err
	}
	return s.settle(ctx, doc, p, ledger.SourcePurchasePayment)
}
