/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the HTTP contract, kept apart from the ledger types so
  the wire format can evolve on its own.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Money is always an integer number of minor units ("amount": 11300 is
  113.00). Quantities, prices, discounts and rates are strings parsed
  exactly: "113.00", "2", "13/100". An amount's absolute value is capped
  at ledger.MaxAmount (10^15 minor units).

VALIDATION:
  Request structs carry go-playground/validator tags. The custom
  "rational" tag accepts anything ledger.ParseRational accepts; "day"
  accepts YYYY-MM-DD.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/money.go: ParseRational
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/moon/ledger-engine/ledger"
)

const dayLayout = "2006-01-02"

// newValidator registers the custom tags used below.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("rational", func(fl validator.FieldLevel) bool {
		_, err := ledger.ParseRational(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("day", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dayLayout, fl.Field().String())
		return err == nil
	})
	return v
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// AccountNodeDTO is one node of the account tree. Balance is rolled up and
// debit-positive; Natural is the same figure on the account type's side.
type AccountNodeDTO struct {
	ID          string           `json:"id"`
	Code        string           `json:"code,omitempty"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	Placeholder bool             `json:"placeholder,omitempty"`
	Own         ledger.Money     `json:"own"`
	Balance     ledger.Money     `json:"balance"`
	Natural     ledger.Money     `json:"natural"`
	Children    []AccountNodeDTO `json:"children,omitempty"`
}

type RegisterLineDTO struct {
	SplitID     string       `json:"split_id"`
	TxID        string       `json:"tx_id"`
	AccountID   string       `json:"account_id"`
	PostDate    string       `json:"post_date"`
	Description string       `json:"description,omitempty"`
	SourceType  string       `json:"source_type"`
	SourceID    string       `json:"source_id,omitempty"`
	Amount      ledger.Money `json:"amount"`
	Running     ledger.Money `json:"running"`
	Reconciled  bool         `json:"reconciled"`
}

type RegisterDTO struct {
	AccountID string            `json:"account_id"`
	Opening   ledger.Money      `json:"opening"`
	Closing   ledger.Money      `json:"closing"`
	Lines     []RegisterLineDTO `json:"lines"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type SplitRequest struct {
	AccountID string       `json:"account_id" validate:"required"`
	Amount    ledger.Money `json:"amount" validate:"ne=0,min=-1000000000000000,max=1000000000000000"`
	Memo      string       `json:"memo"`
}

// PostTransactionRequest posts a caller-built split set.
type PostTransactionRequest struct {
	Date        string         `json:"date" validate:"omitempty,day"`
	Number      string         `json:"number"`
	Description string         `json:"description" validate:"max=500"`
	Splits      []SplitRequest `json:"splits" validate:"required,min=2,dive"`
}

// TransferRequest posts +amount on debit and -amount on credit.
type TransferRequest struct {
	Date        string       `json:"date" validate:"omitempty,day"`
	Description string       `json:"description" validate:"max=500"`
	Debit       string       `json:"debit_account_id" validate:"required"`
	Credit      string       `json:"credit_account_id" validate:"required,nefield=Debit"`
	Amount      ledger.Money `json:"amount" validate:"gt=0,max=1000000000000000"`
}

type SplitDTO struct {
	ID             string       `json:"id"`
	AccountID      string       `json:"account_id"`
	Amount         ledger.Money `json:"amount"`
	Memo           string       `json:"memo,omitempty"`
	ReconcileState string       `json:"reconcile_state"`
	ReconcileDate  string       `json:"reconcile_date,omitempty"`
}

type TransactionDTO struct {
	ID          string     `json:"id"`
	BookID      string     `json:"book_id"`
	Number      string     `json:"number,omitempty"`
	PostDate    string     `json:"post_date"`
	EnteredAt   string     `json:"entered_at"`
	Description string     `json:"description,omitempty"`
	SourceType  string     `json:"source_type"`
	SourceID    string     `json:"source_id,omitempty"`
	Splits      []SplitDTO `json:"splits"`
}

type PostedDTO struct {
	TxID string `json:"tx_id"`
}

// =============================================================================
// OWNERS & DOCUMENTS
// =============================================================================

type CreateOwnerRequest struct {
	Kind string `json:"kind" validate:"required,oneof=CUSTOMER VENDOR EMPLOYEE"`
	Name string `json:"name" validate:"required,max=200"`
}

type OwnerDTO struct {
	ID     string `json:"id"`
	BookID string `json:"book_id"`
	Kind   string `json:"kind"`
	Name   string `json:"name"`
}

type TaxRuleRequest struct {
	Rate             string `json:"rate" validate:"required,rational"`
	Direction        string `json:"direction" validate:"required,oneof=INPUT OUTPUT"`
	PayableAccountID string `json:"payable_account_id" validate:"required"`
	Included         bool   `json:"included"`
}

type LineItemRequest struct {
	AccountID   string          `json:"account_id" validate:"required"`
	Description string          `json:"description"`
	Quantity    string          `json:"quantity" validate:"required,rational"`
	UnitPrice   string          `json:"unit_price" validate:"required,rational"`
	Discount    string          `json:"discount" validate:"omitempty,rational"`
	Tax         *TaxRuleRequest `json:"tax" validate:"omitempty"`
}

type CreateDocumentRequest struct {
	Kind        string            `json:"kind" validate:"required,oneof=SALES_INVOICE PURCHASE_INVOICE PURCHASE_ORDER"`
	OwnerID     string            `json:"owner_id" validate:"required"`
	Number      string            `json:"number" validate:"max=64"`
	Date        string            `json:"date" validate:"omitempty,day"`
	Description string            `json:"description" validate:"max=500"`
	Lines       []LineItemRequest `json:"lines" validate:"required,min=1,dive"`
}

type LineItemDTO struct {
	AccountID   string `json:"account_id"`
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Discount    string `json:"discount,omitempty"`
	TaxRate     string `json:"tax_rate,omitempty"`
	TaxIncluded bool   `json:"tax_included,omitempty"`
}

type DocumentDTO struct {
	ID               string        `json:"id"`
	BookID           string        `json:"book_id"`
	Kind             string        `json:"kind"`
	OwnerID          string        `json:"owner_id"`
	Number           string        `json:"number"`
	Date             string        `json:"date"`
	Description      string        `json:"description,omitempty"`
	Status           string        `json:"status"`
	Total            ledger.Money  `json:"total"`
	PostTxID         string        `json:"post_tx_id,omitempty"`
	CounterAccountID string        `json:"counter_account_id,omitempty"`
	Lines            []LineItemDTO `json:"lines"`
}

type PaymentRequest struct {
	Amount    ledger.Money `json:"amount" validate:"gt=0,max=1000000000000000"`
	Date      string       `json:"date" validate:"omitempty,day"`
	AccountID string       `json:"account_id"`
	Memo      string       `json:"memo" validate:"max=500"`
}

type SettlementDTO struct {
	DocumentID  string       `json:"document_id"`
	Kind        string       `json:"kind"`
	Status      string       `json:"status"`
	Total       ledger.Money `json:"total"`
	Settled     ledger.Money `json:"settled"`
	Outstanding ledger.Money `json:"outstanding"`
}

type PaymentDTO struct {
	TxID       string        `json:"tx_id"`
	Settlement SettlementDTO `json:"settlement"`
}

// =============================================================================
// EMPLOYEES, TAX, BANK
// =============================================================================

type ExpenseClaimRequest struct {
	ExpenseAccountID string       `json:"expense_account_id" validate:"required"`
	Amount           ledger.Money `json:"amount" validate:"gt=0,max=1000000000000000"`
	Date             string       `json:"date" validate:"omitempty,day"`
	Description      string       `json:"description" validate:"max=500"`
}

type EmployeePaymentRequest struct {
	Amount      ledger.Money `json:"amount" validate:"gt=0,max=1000000000000000"`
	Date        string       `json:"date" validate:"omitempty,day"`
	AccountID   string       `json:"account_id"`
	ExpenseTxID string       `json:"expense_tx_id"`
}

type EmployeeBalanceDTO struct {
	EmployeeID  string       `json:"employee_id"`
	Name        string       `json:"name"`
	Claimed     ledger.Money `json:"claimed"`
	Paid        ledger.Money `json:"paid"`
	Outstanding ledger.Money `json:"outstanding"`
}

type TaxCalculateRequest struct {
	Base        ledger.Money `json:"base" validate:"gte=0"`
	RatePercent string       `json:"rate_percent" validate:"required,numeric"`
}

type TaxCalculateDTO struct {
	Base  ledger.Money `json:"base"`
	Tax   ledger.Money `json:"tax"`
	Total ledger.Money `json:"total"`
}

type ManualTaxRequest struct {
	Direction     string       `json:"direction" validate:"required,oneof=INPUT OUTPUT"`
	BaseAccountID string       `json:"base_account_id" validate:"required"`
	Base          ledger.Money `json:"base" validate:"gt=0,max=1000000000000000"`
	RatePercent   string       `json:"rate_percent" validate:"required,numeric"`
	TaxAccountID  string       `json:"tax_account_id"`
	CashAccountID string       `json:"cash_account_id"`
	Date          string       `json:"date" validate:"omitempty,day"`
	Description   string       `json:"description" validate:"max=500"`
}

type StatementLineRequest struct {
	Date             string       `json:"date" validate:"omitempty,day"`
	Amount           ledger.Money `json:"amount" validate:"ne=0,min=-1000000000000000,max=1000000000000000"`
	Description      string       `json:"description" validate:"max=500"`
	Reference        string       `json:"reference" validate:"max=128"`
	BankAccountID    string       `json:"bank_account_id"`
	CounterAccountID string       `json:"counter_account_id"`
}

type StatementRequest struct {
	Lines []StatementLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type StatementDTO struct {
	TxIDs []string `json:"tx_ids"`
}

// =============================================================================
// RECONCILIATION
// =============================================================================

type CandidateDTO struct {
	SplitID     string       `json:"split_id"`
	TxID        string       `json:"tx_id"`
	AccountID   string       `json:"account_id"`
	AccountName string       `json:"account_name"`
	PostDate    string       `json:"post_date"`
	Description string       `json:"description,omitempty"`
	SourceType  string       `json:"source_type"`
	Amount      ledger.Money `json:"amount"`
}

type CandidatesDTO struct {
	Bank     []CandidateDTO `json:"bank"`
	Business []CandidateDTO `json:"business"`
}

type MarkReconciledRequest struct {
	SplitIDs []string `json:"split_ids" validate:"required,min=1,dive,required"`
	Date     string   `json:"date" validate:"required,day"`
}

// =============================================================================
// REPORTS
// =============================================================================

// PeriodDTO is the inclusive day range of a period report. Open sides are empty.
type PeriodDTO struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type ProfitAndLossDTO struct {
	PeriodDTO
	ledger.ProfitAndLoss
}

type CashFlowDTO struct {
	PeriodDTO
	ledger.CashFlow
}

type AgingDocumentDTO struct {
	DocumentID  string       `json:"document_id"`
	Number      string       `json:"number"`
	Date        string       `json:"date"`
	Status      string       `json:"status"`
	Total       ledger.Money `json:"total"`
	Settled     ledger.Money `json:"settled"`
	Outstanding ledger.Money `json:"outstanding"`
	AgeDays     int          `json:"age_days"`
	Bucket      string       `json:"bucket,omitempty"`
}

type AgingOwnerDTO struct {
	Owner     OwnerDTO                `json:"owner"`
	Debits    ledger.Money            `json:"debits"`
	Credits   ledger.Money            `json:"credits"`
	Closing   ledger.Money            `json:"closing"`
	Buckets   map[string]ledger.Money `json:"buckets"`
	Documents []AgingDocumentDTO      `json:"documents"`
}

type AgingDTO struct {
	BookID  string                  `json:"book_id"`
	Kind    string                  `json:"kind"`
	AsOf    string                  `json:"as_of"`
	Owners  []AgingOwnerDTO         `json:"owners"`
	Buckets map[string]ledger.Money `json:"buckets"`
	Total   ledger.Money            `json:"total"`
}

// DashboardDTO carries progress figures as percentages with two decimals.
type DashboardDTO struct {
	BookID           string       `json:"book_id"`
	AsOf             string       `json:"as_of"`
	Cash             ledger.Money `json:"cash"`
	SalesTotal       ledger.Money `json:"sales_total"`
	Received         ledger.Money `json:"received"`
	Receivable       ledger.Money `json:"receivable"`
	ReceivedProgress string       `json:"received_progress"`
	PurchaseTotal    ledger.Money `json:"purchase_total"`
	Paid             ledger.Money `json:"paid"`
	Payable          ledger.Money `json:"payable"`
	PaidProgress     string       `json:"paid_progress"`
	PendingSales     int          `json:"pending_sales"`
	PendingPurchases int          `json:"pending_purchases"`
	Drafts           int          `json:"drafts"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
	BookID     string `json:"book_id" validate:"omitempty,max=64"`
}

type LoadScenarioDTO struct {
	ScenarioID string `json:"scenario_id"`
	BookID     string `json:"book_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
