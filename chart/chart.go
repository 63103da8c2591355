/*
Package chart provides YAML chart-of-accounts definitions.

PURPOSE:
  Converts a chart-of-accounts file into ledger.Account records for a book,
  so a book can be provisioned without code changes. Parent links are
  written by code in the file and turned into account ids on seeding.

YAML SCHEMA:
  name: Small trading company
  accounts:
    - code: "1000"
      name: Assets
      type: ASSET
      placeholder: true
    - code: "1001"
      name: Cash on Hand
      type: ASSET
      parent: "1000"

VALIDATION:
  - codes are unique and non-empty
  - type is one of ASSET, LIABILITY, EQUITY, INCOME, EXPENSE
  - a parent code must exist and have the same type
  - parent links may not form a cycle

USAGE:
  def, err := chart.Load("charts/trading.yaml")   // or chart.Default()
  accounts, err := chart.Seed(ctx, store, "book-1", def)

SEE ALSO:
  - resolver.go: lookup by code or name
  - ledger/tree.go: the tree these records form
*/
package chart

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/moon/ledger-engine/ledger"
)

//go:embed default.yaml
var defaultChart []byte

// ErrInvalidChart is wrapped by every validation failure.
var ErrInvalidChart = errors.New("invalid chart of accounts")

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// Definition is a chart of accounts as written in YAML.
type Definition struct {
	Name     string       `yaml:"name"`
	Accounts []AccountDef `yaml:"accounts"`
}

// AccountDef is one account line of the file.
type AccountDef struct {
	Code        string             `yaml:"code"`
	Name        string             `yaml:"name"`
	Type        ledger.AccountType `yaml:"type"`
	Parent      string             `yaml:"parent,omitempty"`
	Placeholder bool               `yaml:"placeholder,omitempty"`
	Description string             `yaml:"description,omitempty"`
}

// Parse decodes and validates a chart. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, &ledger.ValidationError{Err: ErrInvalidChart, Reason: err.Error()}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Load reads a chart file from disk.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chart: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in trading company chart.
func Default() *Definition {
	def, err := Parse(defaultChart)
	if err != nil {
		panic(fmt.Sprintf("embedded chart: %v", err))
	}
	return def
}

// Validate checks codes, types and parent links.
func (d *Definition) Validate() error {
	if len(d.Accounts) == 0 {
		return &ledger.ValidationError{Err: ErrInvalidChart, Field: "accounts", Reason: "no accounts"}
	}

	byCode := make(map[string]AccountDef, len(d.Accounts))
	for i, a := range d.Accounts {
		field := fmt.Sprintf("accounts[%d]", i)
		switch {
		case a.Code == "":
			return &ledger.ValidationError{Err: ErrInvalidChart, Field: field, Reason: "code is required"}
		case a.Name == "":
			return &ledger.ValidationError{Err: ErrInvalidChart, Field: field, Reason: "name is required"}
		case !a.Type.Valid():
			return &ledger.ValidationError{Err: ErrInvalidChart, Field: field, Reason: fmt.Sprintf("unknown type %q", a.Type)}
		}
		if _, dup := byCode[a.Code]; dup {
			return &ledger.ValidationError{Err: ErrInvalidChart, Field: field, Reason: fmt.Sprintf("duplicate code %s", a.Code)}
		}
		byCode[a.Code] = a
	}

	for i, a := range d.Accounts {
		if a.Parent == "" {
			continue
		}
		field := fmt.Sprintf("accounts[%d]", i)
		parent, ok := byCode[a.Parent]
		if !ok {
			return &ledger.ValidationError{Err: ErrInvalidChart, Field: field, Reason: fmt.Sprintf("unknown parent %s", a.Parent)}
		}
		if parent.Type != a.Type {
			return &ledger.ValidationError{Err: ErrInvalidChart, Field: field,
				Reason: fmt.Sprintf("%s is %s but parent %s is %s", a.Code, a.Type, parent.Code, parent.Type)}
		}
	}

	for _, a := range d.Accounts {
		seen := map[string]bool{a.Code: true}
		for p := a.Parent; p != ""; p = byCode[p].Parent {
			if seen[p] {
				return &ledger.ValidationError{Err: ErrInvalidChart, Field: "accounts", Reason: fmt.Sprintf("parent cycle through %s", a.Code)}
			}
			seen[p] = true
		}
	}
	return nil
}

// =============================================================================
// SEEDING
// =============================================================================

// AccountID is the id an account gets when its book is seeded from a chart.
func AccountID(bookID ledger.BookID, code string) ledger.AccountID {
	return ledger.AccountID(string(bookID) + ":" + code)
}

// LedgerAccounts converts the definition into ledger accounts of bookID.
func (d *Definition) LedgerAccounts(bookID ledger.BookID) []ledger.Account {
	out := make([]ledger.Account, 0, len(d.Accounts))
	for _, a := range d.Accounts {
		acct := ledger.Account{
			ID:          AccountID(bookID, a.Code),
			BookID:      bookID,
			Code:        a.Code,
			Name:        a.Name,
			Type:        a.Type,
			Placeholder: a.Placeholder,
			Description: a.Description,
		}
		if a.Parent != "" {
			acct.ParentID = AccountID(bookID, a.Parent)
		}
		out = append(out, acct)
	}
	return out
}

// AccountSaver persists accounts. Both stores implement it.
type AccountSaver interface {
	SaveAccount(ctx context.Context, a ledger.Account) error
}

// Seed writes every account of def into bookID. Re-seeding updates names
// and flags in place since ids are derived from codes.
func Seed(ctx context.Context, saver AccountSaver, bookID ledger.BookID, def *Definition) ([]ledger.Account, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	accounts := def.LedgerAccounts(bookID)
	for _, a := range accounts {
		if err := saver.SaveAccount(ctx, a); err != nil {
			return nil, fmt.Errorf("seed account %s: %w", a.Code, err)
		}
	}
	return accounts, nil
}
