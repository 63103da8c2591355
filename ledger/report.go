/*
report.go - Trial balance, P&L, balance sheet and cash flow

PURPOSE:
  Buckets account balances into report lines and checks the accounting
  identity. Figures are returned even when the identity does not hold;
  the imbalance is a diagnostic, never an error.

IDENTITY (natural-side totals):
  static:  Assets - (Liabilities + Equity)                      == 0
  dynamic: Assets + Expenses - (Liabilities + Equity + Income)  == 0

BUCKETING:
  A fixed keyword table on account names (see DefaultClassifier). The
  first matching rule of the account's type wins; each type ends with a
  catch-all bucket. Matching is per account, so the input order of
  accounts never changes the result.

CASH FLOW:
  begin = cash-like balance through the day before the period
  end   = begin + sum of cash-like deltas inside the period
  inflow / outflow split by the sign of each cash-like account's delta
*/
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// IDENTITY CHECK
// =============================================================================

// TypeTotals holds natural-side totals per account type.
type TypeTotals map[AccountType]Money

// IdentityCheck is the outcome of the static and dynamic identity tests.
type IdentityCheck struct {
	StaticDiff  Money `json:"static_diff"`
	DynamicDiff Money `json:"dynamic_diff"`
	Balanced    bool  `json:"balanced"`
}

// CheckIdentity evaluates both identities on natural-side totals.
func CheckIdentity(t TypeTotals) IdentityCheck {
	a, l, e := t[AccountAsset], t[AccountLiability], t[AccountEquity]
	i, x := t[AccountIncome], t[AccountExpense]
	check := IdentityCheck{
		StaticDiff:  a - (l + e),
		DynamicDiff: a + x - (l + e + i),
	}
	check.Balanced = check.StaticDiff == 0 && check.DynamicDiff == 0
	return check
}

// =============================================================================
// CLASSIFIER - Keyword table
// =============================================================================

// BucketRule maps account names containing any keyword to a bucket.
// A rule without keywords matches everything (catch-all).
type BucketRule struct {
	Type     AccountType
	Bucket   string
	Keywords []string
}

// Classifier assigns accounts to report buckets.
type Classifier struct {
	Rules        []BucketRule
	CashKeywords []string
}

// DefaultClassifier returns the standard mapping table.
func DefaultClassifier() Classifier {
	return Classifier{
		Rules: []BucketRule{
			{AccountIncome, "Operating Revenue", []string{"主营", "销售", "main", "sales", "operating"}},
			{AccountIncome, "Other Revenue", nil},
			{AccountExpense, "Cost of Sales", []string{"成本", "cost"}},
			{AccountExpense, "Selling Expenses", []string{"销售费用", "selling"}},
			{AccountExpense, "Administrative Expenses", []string{"管理费用", "admin"}},
			{AccountExpense, "Financial Expenses", []string{"财务费用", "financ", "interest"}},
			{AccountExpense, "Other Expenses", nil},
			{AccountAsset, "Cash and Equivalents", []string{"现金", "银行", "cash", "bank"}},
			{AccountAsset, "Receivables", []string{"应收", "receivable"}},
			{AccountAsset, "Inventory", []string{"存货", "库存", "inventory"}},
			{AccountAsset, "Fixed Assets", []string{"固定资产", "fixed"}},
			{AccountAsset, "Other Assets", nil},
			{AccountLiability, "Taxes Payable", []string{"税", "tax"}},
			{AccountLiability, "Payables", []string{"应付", "payable"}},
			{AccountLiability, "Borrowings", []string{"借款", "loan"}},
			{AccountLiability, "Other Liabilities", nil},
			{AccountEquity, "Paid-in Capital", []string{"实收资本", "股本", "capital"}},
			{AccountEquity, "Retained Earnings", []string{"未分配利润", "盈余", "retained"}},
			{AccountEquity, "Other Equity", nil},
		},
		CashKeywords: []string{"现金", "银行存款", "cash", "bank"},
	}
}

// Bucket returns the bucket for an account, or "" if its type has no rules.
func (c Classifier) Bucket(a Account) string {
	name := strings.ToLower(a.Name)
	for _, r := range c.Rules {
		if r.Type != a.Type {
			continue
		}
		if len(r.Keywords) == 0 || containsAny(name, r.Keywords) {
			return r.Bucket
		}
	}
	return ""
}

// Buckets lists the bucket names of a type in table order.
func (c Classifier) Buckets(t AccountType) []string {
	var out []string
	for _, r := range c.Rules {
		if r.Type == t {
			out = append(out, r.Bucket)
		}
	}
	return out
}

// CashLike reports whether an asset account counts as cash by name.
func (c Classifier) CashLike(a Account) bool {
	return a.Type == AccountAsset && containsAny(strings.ToLower(a.Name), c.CashKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// =============================================================================
// REPORT SHAPES
// =============================================================================

type AccountLine struct {
	AccountID AccountID `json:"account_id"`
	Code      string    `json:"code,omitempty"`
	Name      string    `json:"name"`
	Amount    Money     `json:"amount"`
}

type ReportLine struct {
	Bucket   string        `json:"bucket"`
	Amount   Money         `json:"amount"`
	Accounts []AccountLine `json:"accounts,omitempty"`
}

type ProfitAndLoss struct {
	Period       Period       `json:"-"`
	Income       []ReportLine `json:"income"`
	Expenses     []ReportLine `json:"expenses"`
	TotalIncome  Money        `json:"total_income"`
	TotalExpense Money        `json:"total_expense"`
	NetProfit    Money        `json:"net_profit"`
}

// CrossCheck compares a section's bucket total with its type root rollup.
type CrossCheck struct {
	Type        AccountType `json:"type"`
	BucketTotal Money       `json:"bucket_total"`
	RootBalance Money       `json:"root_balance"`
	Diff        Money       `json:"diff"`
}

type BalanceSheet struct {
	AsOf             time.Time     `json:"as_of"`
	Assets           []ReportLine  `json:"assets"`
	Liabilities      []ReportLine  `json:"liabilities"`
	Equity           []ReportLine  `json:"equity"`
	TotalAssets      Money         `json:"total_assets"`
	TotalLiabilities Money         `json:"total_liabilities"`
	TotalEquity      Money         `json:"total_equity"`
	UnclosedEarnings Money         `json:"unclosed_earnings"`
	CrossChecks      []CrossCheck  `json:"cross_checks"`
	Identity         IdentityCheck `json:"identity"`
}

type CashFlow struct {
	Period   Period        `json:"-"`
	Begin    Money         `json:"begin"`
	End      Money         `json:"end"`
	Inflow   Money         `json:"inflow"`
	Outflow  Money         `json:"outflow"`
	Net      Money         `json:"net"`
	Accounts []AccountLine `json:"accounts"`
}

type TrialBalanceRow struct {
	AccountID AccountID   `json:"account_id"`
	Code      string      `json:"code,omitempty"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	Debit     Money       `json:"debit"`
	Credit    Money       `json:"credit"`
}

type TrialBalance struct {
	AsOf        time.Time         `json:"as_of"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  Money             `json:"total_debit"`
	TotalCredit Money             `json:"total_credit"`
	Totals      TypeTotals        `json:"totals"`
	Identity    IdentityCheck     `json:"identity"`
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// ReportAggregator builds reports from the chart and the ledger.
type ReportAggregator struct {
	chart        ChartProvider
	store        Store
	classifier   Classifier
	cashAccounts []AccountID
}

// NewReportAggregator creates an aggregator. cashAccounts, when non-empty,
// replaces name matching for cash-flow purposes (descendants included).
func NewReportAggregator(chart ChartProvider, store Store, classifier Classifier, cashAccounts []AccountID) *ReportAggregator {
	return &ReportAggregator{chart: chart, store: store, classifier: classifier, cashAccounts: cashAccounts}
}

// Tree builds the account tree with balances over period.
func (ra *ReportAggregator) Tree(ctx context.Context, bookID BookID, period Period) (*AccountTree, error) {
	accounts, err := ra.chart.ListAccounts(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	leaf, err := ra.balances(ctx, bookID, period)
	if err != nil {
		return nil, err
	}
	tree := BuildTree(accounts, leaf)
	tree.Rollup()
	return tree, nil
}

func (ra *ReportAggregator) balances(ctx context.Context, bookID BookID, period Period) (map[AccountID]Money, error) {
	rows, err := ra.store.QueryBalances(ctx, bookID, period)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	out := make(map[AccountID]Money, len(rows))
	for _, r := range rows {
		out[r.AccountID] += r.Amount
	}
	return out, nil
}

// TypeTotalsOf sums natural-side Own amounts per type over the whole tree.
func TypeTotalsOf(tree *AccountTree) TypeTotals {
	totals := make(TypeTotals, len(AccountTypes))
	tree.Walk(func(n *Node, _ int) {
		totals[n.Account.Type] += n.Account.Type.Natural(n.Own)
	})
	return totals
}

// TrialBalance lists every account with a balance through asOf.
func (ra *ReportAggregator) TrialBalance(ctx context.Context, bookID BookID, asOf time.Time) (TrialBalance, error) {
	tree, err := ra.Tree(ctx, bookID, Through(asOf))
	if err != nil {
		return TrialBalance{}, err
	}
	tb := TrialBalance{AsOf: asOf}
	tree.Walk(func(n *Node, _ int) {
		if n.Own == 0 {
			return
		}
		row := TrialBalanceRow{AccountID: n.Account.ID, Code: n.Account.Code, Name: n.Account.Name, Type: n.Account.Type}
		if n.Own > 0 {
			row.Debit = n.Own
		} else {
			row.Credit = -n.Own
		}
		tb.TotalDebit += row.Debit
		tb.TotalCredit += row.Credit
		tb.Rows = append(tb.Rows, row)
	})
	tb.Totals = TypeTotalsOf(tree)
	tb.Identity = CheckIdentity(tb.Totals)
	return tb, nil
}

// ProfitAndLoss buckets income and expense activity inside period.
func (ra *ReportAggregator) ProfitAndLoss(ctx context.Context, bookID BookID, period Period) (ProfitAndLoss, error) {
	tree, err := ra.Tree(ctx, bookID, period)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	pl := ProfitAndLoss{Period: period}
	pl.Income, pl.TotalIncome = ra.section(tree, AccountIncome)
	pl.Expenses, pl.TotalExpense = ra.section(tree, AccountExpense)
	pl.NetProfit = pl.TotalIncome - pl.TotalExpense
	return pl, nil
}

// BalanceSheet buckets asset, liability and equity balances through asOf.
func (ra *ReportAggregator) BalanceSheet(ctx context.Context, bookID BookID, asOf time.Time) (BalanceSheet, error) {
	tree, err := ra.Tree(ctx, bookID, Through(asOf))
	if err != nil {
		return BalanceSheet{}, err
	}
	bs := BalanceSheet{AsOf: asOf}
	bs.Assets, bs.TotalAssets = ra.section(tree, AccountAsset)
	bs.Liabilities, bs.TotalLiabilities = ra.section(tree, AccountLiability)
	bs.Equity, bs.TotalEquity = ra.section(tree, AccountEquity)

	for _, c := range []struct {
		typ   AccountType
		total Money
	}{{AccountAsset, bs.TotalAssets}, {AccountLiability, bs.TotalLiabilities}, {AccountEquity, bs.TotalEquity}} {
		var root Money
		if n, ok := tree.FindTypeRoot(c.typ); ok {
			root = c.typ.Natural(n.Balance)
		}
		bs.CrossChecks = append(bs.CrossChecks, CrossCheck{Type: c.typ, BucketTotal: c.total, RootBalance: root, Diff: c.total - root})
	}

	totals := TypeTotalsOf(tree)
	bs.UnclosedEarnings = totals[AccountIncome] - totals[AccountExpense]
	bs.Identity = CheckIdentity(totals)
	return bs, nil
}

// section buckets the natural-side Own amounts of every account of typ.
func (ra *ReportAggregator) section(tree *AccountTree, typ AccountType) ([]ReportLine, Money) {
	names := ra.classifier.Buckets(typ)
	lines := make([]ReportLine, len(names))
	pos := make(map[string]int, len(names))
	for i, b := range names {
		lines[i] = ReportLine{Bucket: b}
		pos[b] = i
	}

	var total Money
	tree.Walk(func(n *Node, _ int) {
		if n.Account.Type != typ || n.Own == 0 {
			return
		}
		amount := typ.Natural(n.Own)
		i, ok := pos[ra.classifier.Bucket(n.Account)]
		if !ok {
			return
		}
		lines[i].Amount += amount
		lines[i].Accounts = append(lines[i].Accounts, AccountLine{
			AccountID: n.Account.ID, Code: n.Account.Code, Name: n.Account.Name, Amount: amount,
		})
		total += amount
	})
	for i := range lines {
		sortAccountLines(lines[i].Accounts)
	}
	return lines, total
}

func sortAccountLines(lines []AccountLine) {
	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.AccountID < b.AccountID
	})
}

// CashFlow reports cash-like movement inside period.
func (ra *ReportAggregator) CashFlow(ctx context.Context, bookID BookID, period Period) (CashFlow, error) {
	if !period.Valid() {
		return CashFlow{}, invalid(ErrInvalidInput, "period", "end before start")
	}
	accounts, err := ra.chart.ListAccounts(ctx, bookID)
	if err != nil {
		return CashFlow{}, fmt.Errorf("list accounts: %w", err)
	}
	tree := BuildTree(accounts, nil)
	cash := ra.cashSet(tree)

	cf := CashFlow{Period: period}
	if before, ok := period.Before(); ok {
		opening, err := ra.balances(ctx, bookID, before)
		if err != nil {
			return CashFlow{}, err
		}
		for id, m := range opening {
			if cash[id] {
				cf.Begin += m
			}
		}
	}

	deltas, err := ra.balances(ctx, bookID, period)
	if err != nil {
		return CashFlow{}, err
	}
	for id, m := range deltas {
		if !cash[id] || m == 0 {
			continue
		}
		n, _ := tree.Node(id)
		cf.Accounts = append(cf.Accounts, AccountLine{AccountID: id, Code: n.Account.Code, Name: n.Account.Name, Amount: m})
		cf.Net += m
		if m > 0 {
			cf.Inflow += m
		} else {
			cf.Outflow += -m
		}
	}
	sortAccountLines(cf.Accounts)
	cf.End = cf.Begin + cf.Net
	return cf, nil
}

func (ra *ReportAggregator) cashSet(tree *AccountTree) map[AccountID]bool {
	set := make(map[AccountID]bool)
	if len(ra.cashAccounts) > 0 {
		for _, id := range ra.cashAccounts {
			for _, d := range tree.Descendants(id) {
				set[d] = true
			}
		}
		return set
	}
	tree.Walk(func(n *Node, _ int) {
		if ra.classifier.CashLike(n.Account) {
			set[n.Account.ID] = true
		}
	})
	return set
}
