package chart_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moon/ledger-engine/chart"
	"github.com/moon/ledger-engine/ledger"
	"github.com/moon/ledger-engine/ledger/store"
)

// =============================================================================
// PARSING & VALIDATION
// =============================================================================

func TestParse_ValidChart(t *testing.T) {
	data := []byte(`
name: tiny
accounts:
  - code: "1"
    name: Assets
    type: ASSET
    placeholder: true
  - code: "11"
    name: Cash
    type: ASSET
    parent: "1"
`)
	def, err := chart.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "tiny", def.Name)
	require.Len(t, def.Accounts, 2)
	assert.True(t, def.Accounts[0].Placeholder)
	assert.Equal(t, "1", def.Accounts[1].Parent)
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "accounts:\n  - code: \"1\"\n    name: A\n    type: ASSET\n    colour: red\n"},
		{"no accounts", "name: empty\n"},
		{"missing code", "accounts:\n  - name: A\n    type: ASSET\n"},
		{"missing name", "accounts:\n  - code: \"1\"\n    type: ASSET\n"},
		{"bad type", "accounts:\n  - code: \"1\"\n    name: A\n    type: REVENUE\n"},
		{"duplicate code", "accounts:\n  - code: \"1\"\n    name: A\n    type: ASSET\n  - code: \"1\"\n    name: B\n    type: ASSET\n"},
		{"unknown parent", "accounts:\n  - code: \"1\"\n    name: A\n    type: ASSET\n    parent: \"9\"\n"},
		{"type differs from parent", "accounts:\n  - code: \"1\"\n    name: A\n    type: ASSET\n  - code: \"2\"\n    name: B\n    type: INCOME\n    parent: \"1\"\n"},
		{"cycle", "accounts:\n  - code: \"1\"\n    name: A\n    type: ASSET\n    parent: \"2\"\n  - code: \"2\"\n    name: B\n    type: ASSET\n    parent: \"1\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chart.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, chart.ErrInvalidChart))
			assert.True(t, ledger.IsValidation(err))
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accounts:\n  - code: \"1\"\n    name: Cash\n    type: ASSET\n"), 0o644))

	def, err := chart.Load(path)
	require.NoError(t, err)
	require.Len(t, def.Accounts, 1)

	_, err = chart.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault_IsValid(t *testing.T) {
	def := chart.Default()
	require.NoError(t, def.Validate())

	codes := map[string]bool{}
	for _, a := range def.Accounts {
		codes[a.Code] = true
	}
	for _, want := range []string{"1001", "1002", "1122", "1901", "2202", "2211", "222101", "222102", "4001", "5602"} {
		assert.True(t, codes[want], "default chart misses %s", want)
	}
}

// =============================================================================
// SEEDING
// =============================================================================

func TestSeed_BuildsTree(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: The default chart is seeded into a book
	// THEN: Ids derive from codes and parents link by id

	ctx := context.Background()
	mem := store.NewMemory()

	seeded, err := chart.Seed(ctx, mem, "acme", chart.Default())
	require.NoError(t, err)

	accounts, err := mem.ListAccounts(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, accounts, len(seeded))

	tree := ledger.BuildTree(accounts, nil)
	cash, ok := tree.Node(chart.AccountID("acme", "1001"))
	require.True(t, ok)
	assert.Equal(t, "Cash on Hand", cash.Account.Name)
	assert.Equal(t, chart.AccountID("acme", "1000"), cash.Account.ParentID)

	root, ok := tree.FindTypeRoot(ledger.AccountLiability)
	require.True(t, ok)
	assert.Equal(t, "2000", root.Account.Code)
}

func TestSeed_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	_, err := chart.Seed(ctx, mem, "acme", chart.Default())
	require.NoError(t, err)
	_, err = chart.Seed(ctx, mem, "acme", chart.Default())
	require.NoError(t, err)

	accounts, err := mem.ListAccounts(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, accounts, len(chart.Default().Accounts))
}

// =============================================================================
// RESOLVER
// =============================================================================

func TestResolver_ByCodeAndName(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, err := chart.Seed(ctx, mem, "acme", chart.Default())
	require.NoError(t, err)

	r, err := chart.ResolverFor(ctx, mem, "acme")
	require.NoError(t, err)

	id, err := r.Resolve("1122")
	require.NoError(t, err)
	assert.Equal(t, chart.AccountID("acme", "1122"), id)

	id, err = r.Resolve("  accounts payable ")
	require.NoError(t, err)
	assert.Equal(t, chart.AccountID("acme", "2202"), id)

	_, err = r.Resolve("Petty Cash")
	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))
}

func TestResolver_DuplicateNamesPreferLowerCode(t *testing.T) {
	r := chart.NewResolver([]ledger.Account{
		{ID: "b", Code: "2", Name: "Misc", Type: ledger.AccountAsset},
		{ID: "a", Code: "1", Name: "misc", Type: ledger.AccountAsset},
	})
	a, ok := r.ByName("MISC")
	require.True(t, ok)
	assert.Equal(t, ledger.AccountID("a"), a.ID)
}
