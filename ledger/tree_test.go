package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moon/ledger-engine/ledger"
)

// =============================================================================
// ROLLUP
// =============================================================================

func TestAccountTree_RollupConsistency(t *testing.T) {
	// GIVEN: Leaf balances under placeholder roots
	// WHEN: Rolling up
	// THEN: Every node equals its own amount plus its children's balances

	leaf := map[ledger.AccountID]ledger.Money{
		"cash": 80000, "bank": 25000, "ar": 20000,
		"capital": -100000, "revenue": -50000, "cogs": 20000, "admin": 5000,
	}
	tree := ledger.BuildTree(testChart(), leaf)
	balances := tree.Rollup()

	tree.Walk(func(n *ledger.Node, _ int) {
		want := n.Own
		for _, c := range tree.Children(n) {
			want += c.Balance
		}
		assert.Equal(t, want, n.Balance, "account %s", n.Account.ID)
		assert.Equal(t, n.Balance, balances[n.Account.ID])
	})

	assets, ok := tree.FindTypeRoot(ledger.AccountAsset)
	require.True(t, ok)
	assert.Equal(t, ledger.Money(125000), assets.Balance)
	assert.Equal(t, tree.Leaves("assets"), assets.Balance)

	// Global zero-sum survives the rollup.
	var total ledger.Money
	for _, r := range tree.Roots() {
		total += r.Balance
	}
	assert.Equal(t, ledger.Money(0), total)
}

func TestAccountTree_FindTypeRoot_Absent(t *testing.T) {
	tree := ledger.BuildTree([]ledger.Account{{ID: "cash", Type: ledger.AccountAsset}}, nil)

	_, ok := tree.FindTypeRoot(ledger.AccountEquity)
	assert.False(t, ok)
}

// =============================================================================
// STRUCTURE
// =============================================================================

func TestAccountTree_OrphanBecomesRoot(t *testing.T) {
	// GIVEN: An account whose parent id is not in the chart
	// WHEN: Building the tree
	// THEN: It is kept as a root, not dropped

	accounts := []ledger.Account{
		{ID: "assets", Code: "1000", Name: "Assets", Type: ledger.AccountAsset},
		{ID: "stray", ParentID: "gone", Code: "1900", Name: "Stray", Type: ledger.AccountAsset},
	}
	tree := ledger.BuildTree(accounts, map[ledger.AccountID]ledger.Money{"stray": 300})

	require.Len(t, tree.Roots(), 2)
	n, ok := tree.Node("stray")
	require.True(t, ok)
	_, hasParent := tree.Parent(n)
	assert.False(t, hasParent)
	assert.Equal(t, ledger.Money(300), n.Balance)
}

func TestAccountTree_ChildOrder(t *testing.T) {
	// GIVEN: Siblings in scrambled input order, two sharing a code
	// THEN: Children are ordered by code, then name, then id

	accounts := []ledger.Account{
		{ID: "c", ParentID: "root", Code: "20", Name: "Beta", Type: ledger.AccountAsset},
		{ID: "root", Code: "1", Name: "Root", Type: ledger.AccountAsset},
		{ID: "b", ParentID: "root", Code: "20", Name: "Alpha", Type: ledger.AccountAsset},
		{ID: "a", ParentID: "root", Code: "10", Name: "Zeta", Type: ledger.AccountAsset},
	}
	tree := ledger.BuildTree(accounts, nil)

	root, ok := tree.Node("root")
	require.True(t, ok)
	var got []ledger.AccountID
	for _, c := range tree.Children(root) {
		got = append(got, c.Account.ID)
	}
	assert.Equal(t, []ledger.AccountID{"a", "b", "c"}, got)
	assert.Equal(t, []ledger.AccountID{"root", "a", "b", "c"}, tree.Descendants("root"))
}

func TestAccountTree_ParentCycleIsBroken(t *testing.T) {
	// GIVEN: Two accounts naming each other as parent
	// WHEN: Building and rolling up
	// THEN: One is promoted to root and both balances are counted once

	accounts := []ledger.Account{
		{ID: "x", ParentID: "y", Code: "1", Type: ledger.AccountAsset},
		{ID: "y", ParentID: "x", Code: "2", Type: ledger.AccountAsset},
	}
	tree := ledger.BuildTree(accounts, map[ledger.AccountID]ledger.Money{"x": 100, "y": 50})

	roots := tree.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, ledger.AccountID("x"), roots[0].Account.ID)
	assert.Equal(t, ledger.Money(150), roots[0].Balance)

	visited := 0
	tree.Walk(func(*ledger.Node, int) { visited++ })
	assert.Equal(t, 2, visited)
}

func TestAccountTree_WalkDepth(t *testing.T) {
	tree := ledger.BuildTree(testChart(), nil)

	depths := map[ledger.AccountID]int{}
	tree.Walk(func(n *ledger.Node, depth int) { depths[n.Account.ID] = depth })

	assert.Equal(t, 0, depths["assets"])
	assert.Equal(t, 1, depths["cash"])
	assert.Equal(t, len(testChart()), tree.Len())
}
