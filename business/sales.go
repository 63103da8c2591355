package business

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/moon/ledger-engine/ledger"
)

// Payment settles part or all of a posted document.
type Payment struct {
	DocumentID ledger.DocumentID
	Amount     ledger.Money
	Date       time.Time
	// AccountID is the cash or bank account the money moves through.
	// Empty means the book's cash role.
	AccountID ledger.AccountID
	Memo      string
}

// PaymentResult is the posted payment and the document position after it.
type PaymentResult struct {
	TxID       ledger.TransactionID
	Settlement ledger.SettlementSummary
}

// PostSalesInvoice posts a DRAFT sales invoice against the receivable role.
func (s *Service) PostSalesInvoice(ctx context.Context, id ledger.DocumentID) (ledger.TransactionID, error) {
	doc, err := s.documentOfKind(ctx, id, ledger.SalesInvoice)
	if err != nil {
		return "", err
	}
	roles, err := s.roles.Roles(ctx, doc.BookID)
	if err != nil {
		return "", err
	}
	counter, err := requireRole("receivable", roles.Receivable)
	if err != nil {
		return "", err
	}
	return s.engine.PostInvoice(ctx, doc, counter, true)
}

// ReceivePayment records money received against a posted sales invoice:
// +cash / -receivable, then recomputes the invoice status.
func (s *Service) ReceivePayment(ctx context.Context, p Payment) (PaymentResult, error) {
	doc, err := s.documentOfKind(ctx, p.DocumentID, ledger.SalesInvoice)
	if err != nil {
		return PaymentResult{}, err
	}
	return s.settle(ctx, doc, p, ledger.SourceSalesReceipt)
}

// settle posts a payment for doc and recomputes its status. Sales documents
// debit the cash side; purchase documents credit it.
func (s *Service) settle(ctx context.Context, doc ledger.SourceDocument, p Payment, source ledger.SourceType) (PaymentResult, error) {
	if err := payable(doc); err != nil {
		return PaymentResult{}, err
	}
	roles, err := s.roles.Roles(ctx, doc.BookID)
	if err != nil {
		return PaymentResult{}, err
	}
	cash, err := pick(p.AccountID, "cash", roles.Cash)
	if err != nil {
		return PaymentResult{}, err
	}
	fallback := roles.Payable
	if doc.Kind.Sales() {
		fallback = roles.Receivable
	}
	counter, err := pick(doc.CounterAccountID, "counter", fallback)
	if err != nil {
		return PaymentResult{}, err
	}

	sp := ledger.SimplePosting{
		Header: ledger.Header{
			BookID:      doc.BookID,
			PostDate:    s.dateOr(p.Date),
			Number:      doc.Number,
			Description: fmt.Sprintf("%s for %s", source, doc.Number),
			SourceType:  source,
			SourceID:    string(doc.ID),
		},
		Amount: p.Amount,
		Memo:   p.Memo,
	}
	if doc.Kind.Sales() {
		sp.Debit, sp.Credit = cash, counter
	} else {
		sp.Debit, sp.Credit = counter, cash
	}
	txID, err := s.engine.PostSimple(ctx, sp)
	if err != nil {
		return PaymentResult{}, err
	}

	result := PaymentResult{TxID: txID}
	if _, err := s.engine.RecomputeSettlement(ctx, doc.ID); err != nil {
		s.logger.Warn("payment posted but settlement recompute failed",
			zap.String("document_id", string(doc.ID)),
			zap.String("tx_id", string(txID)),
			zap.Error(err))
		return result, fmt.Errorf("recompute settlement: %w", err)
	}
	summary, err := s.engine.Settlement(ctx, doc.ID)
	if err != nil {
		return result, fmt.Errorf("settlement: %w", err)
	}
	result.Settlement = summary
	s.logger.Info("payment posted",
		zap.String("document_id", string(doc.ID)),
		zap.String("tx_id", string(txID)),
		zap.Int64("amount", p.Amount.Int64()),
		zap.String("status", string(summary.Status)))
	return result, nil
}
