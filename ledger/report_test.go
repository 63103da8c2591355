package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moon/ledger-engine/ledger"
)

// =============================================================================
// IDENTITY
// =============================================================================

func TestCheckIdentity(t *testing.T) {
	tests := []struct {
		name     string
		totals   ledger.TypeTotals
		static   ledger.Money
		dynamic  ledger.Money
		balanced bool
	}{
		{
			name:     "balanced",
			totals:   ledger.TypeTotals{ledger.AccountAsset: 500, ledger.AccountLiability: 200, ledger.AccountEquity: 300},
			balanced: true,
		},
		{
			name:    "short equity is reported, not raised",
			totals:  ledger.TypeTotals{ledger.AccountAsset: 500, ledger.AccountLiability: 200, ledger.AccountEquity: 250},
			static:  50,
			dynamic: 50,
		},
		{
			name: "unclosed profit only balances dynamically",
			totals: ledger.TypeTotals{
				ledger.AccountAsset: 600, ledger.AccountLiability: 200, ledger.AccountEquity: 300,
				ledger.AccountIncome: 150, ledger.AccountExpense: 50,
			},
			static: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledger.CheckIdentity(tt.totals)
			assert.Equal(t, tt.static, got.StaticDiff)
			assert.Equal(t, tt.dynamic, got.DynamicDiff)
			assert.Equal(t, tt.balanced, got.Balanced)
		})
	}
}

// =============================================================================
// CLASSIFIER
// =============================================================================

func TestClassifier_Bucket(t *testing.T) {
	c := ledger.DefaultClassifier()
	tests := []struct {
		name string
		typ  ledger.AccountType
		want string
	}{
		{"主营业务收入", ledger.AccountIncome, "Operating Revenue"},
		{"Interest Received", ledger.AccountIncome, "Other Revenue"},
		{"主营业务成本", ledger.AccountExpense, "Cost of Sales"},
		{"销售费用", ledger.AccountExpense, "Selling Expenses"},
		{"管理费用", ledger.AccountExpense, "Administrative Expenses"},
		{"Bank Interest", ledger.AccountExpense, "Financial Expenses"},
		{"Travel", ledger.AccountExpense, "Other Expenses"},
		{"银行存款", ledger.AccountAsset, "Cash and Equivalents"},
		{"Trade Receivables", ledger.AccountAsset, "Receivables"},
		{"库存商品", ledger.AccountAsset, "Inventory"},
		{"Fixed Assets - Vehicles", ledger.AccountAsset, "Fixed Assets"},
		{"Prepayments", ledger.AccountAsset, "Other Assets"},
		{"应交税费", ledger.AccountLiability, "Taxes Payable"},
		{"Accounts Payable", ledger.AccountLiability, "Payables"},
		{"短期借款", ledger.AccountLiability, "Borrowings"},
		{"Accrued Wages", ledger.AccountLiability, "Other Liabilities"},
		{"实收资本", ledger.AccountEquity, "Paid-in Capital"},
		{"未分配利润", ledger.AccountEquity, "Retained Earnings"},
		{"Reserves", ledger.AccountEquity, "Other Equity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Bucket(ledger.Account{Name: tt.name, Type: tt.typ}))
		})
	}
	assert.True(t, c.CashLike(ledger.Account{Name: "Petty Cash", Type: ledger.AccountAsset}))
	assert.False(t, c.CashLike(ledger.Account{Name: "Cash Advances Owed", Type: ledger.AccountLiability}))
}

// =============================================================================
// REPORTS ON A SMALL BOOK
// =============================================================================

// seedActivity posts a two-month history:
//
//	Jan 05  cash +1000.00 / capital
//	Jan 10  ar   +500.00  / revenue
//	Jan 15  cogs +200.00  / cash
//	Feb 02  admin +50.00  / cash
//	Feb 10  cash +300.00  / ar
func seedActivity(t *testing.T, engine *ledger.Engine) {
	t.Helper()
	move(t, engine, day(time.January, 5), "cash", "capital", 100000)
	move(t, engine, day(time.January, 10), "ar", "revenue", 50000)
	move(t, engine, day(time.January, 15), "cogs", "cash", 20000)
	move(t, engine, day(time.February, 2), "admin", "cash", 5000)
	move(t, engine, day(time.February, 10), "cash", "ar", 30000)
}

func TestTrialBalance_DebitsEqualCredits(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	seedActivity(t, engine)

	tb, err := engine.TrialBalance(ctx, book, day(time.February, 28))
	require.NoError(t, err)

	assert.Equal(t, ledger.Money(150000), tb.TotalDebit)
	assert.Equal(t, tb.TotalDebit, tb.TotalCredit)
	assert.Len(t, tb.Rows, 6)
	assert.Equal(t, ledger.AccountID("cash"), tb.Rows[0].AccountID)
	assert.Equal(t, ledger.Money(105000), tb.Rows[0].Debit)
	assert.Equal(t, ledger.Money(0), tb.Identity.DynamicDiff)
	assert.Equal(t, ledger.Money(25000), tb.Identity.StaticDiff)
}

func TestProfitAndLoss_Buckets(t *testing.T) {
	// GIVEN: January revenue 500.00 and cost 200.00, February admin 50.00
	// WHEN: Reporting January alone and the full period
	// THEN: Only in-period activity counts, bucketed by account name

	ctx := context.Background()
	engine, _ := newTestEngine(t)
	seedActivity(t, engine)

	jan, err := engine.ProfitAndLoss(ctx, book, ledger.Between(day(time.January, 1), day(time.January, 31)))
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(50000), jan.TotalIncome)
	assert.Equal(t, ledger.Money(20000), jan.TotalExpense)
	assert.Equal(t, ledger.Money(30000), jan.NetProfit)
	require.Len(t, jan.Income, 2)
	assert.Equal(t, "Operating Revenue", jan.Income[0].Bucket)
	assert.Equal(t, ledger.Money(50000), jan.Income[0].Amount)
	assert.Equal(t, "Cost of Sales", jan.Expenses[0].Bucket)
	assert.Equal(t, ledger.Money(20000), jan.Expenses[0].Amount)

	all, err := engine.ProfitAndLoss(ctx, book, ledger.AllTime)
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(25000), all.NetProfit)
	assert.Equal(t, "Administrative Expenses", all.Expenses[2].Bucket)
	assert.Equal(t, ledger.Money(5000), all.Expenses[2].Amount)

	_, err = engine.ProfitAndLoss(ctx, book, ledger.Between(day(time.March, 1), day(time.January, 1)))
	assert.True(t, ledger.IsValidation(err))
}

func TestBalanceSheet_CrossChecksAndIdentity(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	seedActivity(t, engine)

	bs, err := engine.BalanceSheet(ctx, book, day(time.February, 28))
	require.NoError(t, err)

	assert.Equal(t, ledger.Money(125000), bs.TotalAssets)
	assert.Equal(t, ledger.Money(0), bs.TotalLiabilities)
	assert.Equal(t, ledger.Money(100000), bs.TotalEquity)
	assert.Equal(t, ledger.Money(25000), bs.UnclosedEarnings)
	assert.Equal(t, "Cash and Equivalents", bs.Assets[0].Bucket)
	assert.Equal(t, ledger.Money(105000), bs.Assets[0].Amount)
	assert.Equal(t, ledger.Money(20000), bs.Assets[1].Amount)

	for _, cc := range bs.CrossChecks {
		assert.Equal(t, ledger.Money(0), cc.Diff, "type %s", cc.Type)
	}
	assert.Equal(t, ledger.Money(0), bs.Identity.DynamicDiff)

	// As of January 12 only the capital and the sale exist.
	early, err := engine.BalanceSheet(ctx, book, day(time.January, 12))
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(150000), early.TotalAssets)
}

func TestCashFlow_BeginAndEnd(t *testing.T) {
	// GIVEN: January leaves 800.00 in cash
	// WHEN: Reporting February
	// THEN: begin 800.00, net +250.00, end 1050.00

	ctx := context.Background()
	engine, _ := newTestEngine(t)
	seedActivity(t, engine)

	cf, err := engine.CashFlow(ctx, book, ledger.Between(day(time.February, 1), day(time.February, 28)))
	require.NoError(t, err)

	assert.Equal(t, ledger.Money(80000), cf.Begin)
	assert.Equal(t, ledger.Money(25000), cf.Net)
	assert.Equal(t, ledger.Money(25000), cf.Inflow)
	assert.Equal(t, ledger.Money(0), cf.Outflow)
	assert.Equal(t, ledger.Money(105000), cf.End)
	require.Len(t, cf.Accounts, 1)
	assert.Equal(t, ledger.AccountID("cash"), cf.Accounts[0].AccountID)
}

func TestCashFlow_ConfiguredAccounts(t *testing.T) {
	// GIVEN: Cash pinned to the bank account, which never moved
	ctx := context.Background()
	engine, _ := newTestEngine(t, ledger.WithCashAccounts("bank"))
	seedActivity(t, engine)

	cf, err := engine.CashFlow(ctx, book, ledger.AllTime)
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(0), cf.End)
	assert.Empty(t, cf.Accounts)
}

func TestAccountTreeWithBalances(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	seedActivity(t, engine)

	tree, err := engine.AccountTreeWithBalances(ctx, book, day(time.January, 31))
	require.NoError(t, err)

	assets, ok := tree.FindTypeRoot(ledger.AccountAsset)
	require.True(t, ok)
	assert.Equal(t, ledger.Money(130000), assets.Balance)
	expenses, ok := tree.FindTypeRoot(ledger.AccountExpense)
	require.True(t, ok)
	assert.Equal(t, ledger.Money(20000), expenses.Balance)
}
