/*
Package ledger provides the double-entry posting and settlement engine.

PURPOSE:
  Turns business events (invoice lines, payments, reimbursements, tax
  entries) into balanced ledger transactions, tracks how far each source
  document has been settled, and aggregates the chart of accounts into
  rolled-up balances for reporting.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: node of a book's chart of accounts (forest per book)
  - Transaction: header of an atomic, zero-sum group of splits
  - Split: one signed entry against one account
  - SourceDocument: invoice or order that posts into the ledger
  - LineItem / TaxRule: inputs of the line-item calculator

SIGN CONVENTION:
  One convention for every account type: a positive split amount is a
  debit, a negative one is a credit. Sums never special-case the type.
  Reports convert to the natural side only when presenting figures.

USAGE:
  engine := ledger.NewEngine(store, store, store, ledger.WithLogger(logger))
  txID, err := engine.PostInvoice(ctx, doc, receivableID, true)

SEE ALSO:
  - money.go: Money and Rational
  - poster.go: Building and committing balanced transactions
  - settlement.go: Document status machine
  - store.go: Persistence contracts
*/
package ledger

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type BookID string
type AccountID string
type TransactionID string
type SplitID string
type DocumentID string
type OwnerID string

// =============================================================================
// ACCOUNT
// =============================================================================

type AccountType string

const (
	AccountAsset     AccountType = "ASSET"
	AccountLiability AccountType = "LIABILITY"
	AccountEquity    AccountType = "EQUITY"
	AccountIncome    AccountType = "INCOME"
	AccountExpense   AccountType = "EXPENSE"
)

// AccountTypes lists the types in reporting order.
var AccountTypes = []AccountType{AccountAsset, AccountLiability, AccountEquity, AccountIncome, AccountExpense}

func (t AccountType) Valid() bool {
	switch t {
	case AccountAsset, AccountLiability, AccountEquity, AccountIncome, AccountExpense:
		return true
	}
	return false
}

// CreditNormal reports whether the type's natural balance is a credit.
func (t AccountType) CreditNormal() bool {
	return t == AccountLiability || t == AccountEquity || t == AccountIncome
}

// Natural converts a ledger (debit-positive) amount to the type's natural side.
func (t AccountType) Natural(m Money) Money {
	if t.CreditNormal() {
		return -m
	}
	return m
}

type Account struct {
	ID          AccountID
	BookID      BookID
	ParentID    AccountID // empty for top-level accounts
	Name        string
	Code        string
	Type        AccountType
	Placeholder bool
	Description string
}

// =============================================================================
// TRANSACTION & SPLIT
// =============================================================================

type TransactionStatus string

const TxPosted TransactionStatus = "POSTED"

// SourceType tags what produced a transaction.
type SourceType string

const (
	SourceSalesInvoice    SourceType = "SALES_INVOICE"
	SourceSalesReceipt    SourceType = "SALES_RECEIPT"
	SourcePurchaseInvoice SourceType = "PURCHASE_INVOICE"
	SourcePurchaseOrder   SourceType = "PURCHASE_ORDER"
	SourcePurchasePayment SourceType = "PURCHASE_PAYMENT"
	SourceEmployeeExpense SourceType = "EMP_EXPENSE"
	SourceEmployeePay     SourceType = "EMP_PAY"
	SourceTaxManual       SourceType = "TAX_MANUAL"
	SourceBankStatement   SourceType = "BANK_STATEMENT"
	SourceManual          SourceType = "MANUAL"
)

type Transaction struct {
	ID          TransactionID
	BookID      BookID
	Number      string
	PostDate    time.Time
	EnteredAt   time.Time
	Description string
	Status      TransactionStatus
	SourceType  SourceType
	SourceID    string
}

type ReconcileState string

const (
	Unreconciled ReconcileState = "N"
	Reconciled   ReconcileState = "Y"
)

type Split struct {
	ID             SplitID
	TxID           TransactionID
	AccountID      AccountID
	Amount         Money
	Memo           string
	ReconcileState ReconcileState
	ReconcileDate  *time.Time
}

// SplitDetail is a split joined with its transaction header and account.
type SplitDetail struct {
	Split
	BookID      BookID
	PostDate    time.Time
	Description string
	SourceType  SourceType
	SourceID    string
	AccountName string
	AccountType AccountType
}

// AccountBalance is the net ledger amount of one account over a period.
type AccountBalance struct {
	AccountID AccountID
	Amount    Money
}

// Header carries the non-split fields of a transaction about to be posted.
type Header struct {
	BookID      BookID
	PostDate    time.Time
	Number      string
	Description string
	SourceType  SourceType
	SourceID    string
}

// =============================================================================
// SOURCE DOCUMENTS
// =============================================================================

type DocumentKind string

const (
	SalesInvoice    DocumentKind = "SALES_INVOICE"
	PurchaseInvoice DocumentKind = "PURCHASE_INVOICE"
	PurchaseOrder   DocumentKind = "PURCHASE_ORDER"
)

func (k DocumentKind) Valid() bool {
	return k == SalesInvoice || k == PurchaseInvoice || k == PurchaseOrder
}

// Sales reports whether the document collects money (receivable side).
func (k DocumentKind) Sales() bool { return k == SalesInvoice }

// SettlementAccountType is the account type whose splits settle the document.
func (k DocumentKind) SettlementAccountType() AccountType {
	if k.Sales() {
		return AccountAsset
	}
	return AccountLiability
}

// PostingSource is the source type of the document's own posting transaction.
func (k DocumentKind) PostingSource() SourceType { return SourceType(k) }

type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "DRAFT"
	StatusPosted   DocumentStatus = "POSTED"
	StatusApproved DocumentStatus = "APPROVED"
)

func (s DocumentStatus) rank() int {
	switch s {
	case StatusPosted:
		return 1
	case StatusApproved:
		return 2
	default:
		return 0
	}
}

type SourceDocument struct {
	ID               DocumentID
	BookID           BookID
	Kind             DocumentKind
	OwnerID          OwnerID
	Number           string
	Date             time.Time
	Description      string
	Status           DocumentStatus
	Lines            []LineItem
	PostTxID         TransactionID
	Total            Money // cached at posting
	CounterAccountID AccountID
}

// DocumentPosting is what gets recorded on a document when it posts.
type DocumentPosting struct {
	TxID             TransactionID
	Total            Money
	CounterAccountID AccountID
}

type TaxDirection string

const (
	TaxInput  TaxDirection = "INPUT"
	TaxOutput TaxDirection = "OUTPUT"
)

type TaxRule struct {
	Rate             Rational     `json:"rate"`
	Direction        TaxDirection `json:"direction"`
	PayableAccountID AccountID    `json:"payable_account_id"`
	Included         bool         `json:"included"`
}

type LineItem struct {
	AccountID   AccountID `json:"account_id"`
	Description string    `json:"description,omitempty"`
	Quantity    Rational  `json:"quantity"`
	UnitPrice   Rational  `json:"unit_price"`
	Discount    Rational  `json:"discount"`
	Tax         *TaxRule  `json:"tax,omitempty"`
}

// =============================================================================
// OWNERS
// =============================================================================

type OwnerKind string

const (
	OwnerCustomer OwnerKind = "CUSTOMER"
	OwnerVendor   OwnerKind = "VENDOR"
	OwnerEmployee OwnerKind = "EMPLOYEE"
)

type Owner struct {
	ID     OwnerID
	BookID BookID
	Kind   OwnerKind
	Name   string
}
