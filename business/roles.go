package business

import (
	"context"

	"github.com/moon/ledger-engine/chart"
	"github.com/moon/ledger-engine/ledger"
)

// Roles are the accounts business flows post to by default. An empty role
// is simply not configured; operations that need it fail with
// ErrRoleNotConfigured.
type Roles struct {
	Receivable      ledger.AccountID
	Payable         ledger.AccountID
	Cash            ledger.AccountID
	Bank            ledger.AccountID
	EmployeePayable ledger.AccountID
	OutputTax       ledger.AccountID
	InputTax        ledger.AccountID
	Suspense        ledger.AccountID
}

// RoleProvider returns the roles of a book.
type RoleProvider interface {
	Roles(ctx context.Context, bookID ledger.BookID) (Roles, error)
}

// RoleCodes configures roles by account code (or name) so one setting
// serves every book seeded from the same chart.
type RoleCodes struct {
	Receivable      string `yaml:"receivable"`
	Payable         string `yaml:"payable"`
	Cash            string `yaml:"cash"`
	Bank            string `yaml:"bank"`
	EmployeePayable string `yaml:"employee_payable"`
	OutputTax       string `yaml:"output_tax"`
	InputTax        string `yaml:"input_tax"`
	Suspense        string `yaml:"suspense"`
}

// DefaultRoleCodes matches chart.Default().
func DefaultRoleCodes() RoleCodes {
	return RoleCodes{
		Receivable:      "1122",
		Payable:         "2202",
		Cash:            "1001",
		Bank:            "1002",
		EmployeePayable: "2211",
		OutputTax:       "222102",
		InputTax:        "222101",
		Suspense:        "1901",
	}
}

// CodeRoles resolves RoleCodes against each book's chart on demand.
type CodeRoles struct {
	chart ledger.ChartProvider
	codes RoleCodes
}

func NewCodeRoles(chart ledger.ChartProvider, codes RoleCodes) *CodeRoles {
	return &CodeRoles{chart: chart, codes: codes}
}

// Roles resolves every configured code. Codes missing from the book's chart
// leave their role empty.
func (c *CodeRoles) Roles(ctx context.Context, bookID ledger.BookID) (Roles, error) {
	r, err := chart.ResolverFor(ctx, c.chart, bookID)
	if err != nil {
		return Roles{}, err
	}
	lookup := func(ref string) ledger.AccountID {
		if ref == "" {
			return ""
		}
		id, err := r.Resolve(ref)
		if err != nil {
			return ""
		}
		return id
	}
	return Roles{
		Receivable:      lookup(c.codes.Receivable),
		Payable:         lookup(c.codes.Payable),
		Cash:            lookup(c.codes.Cash),
		Bank:            lookup(c.codes.Bank),
		EmployeePayable: lookup(c.codes.EmployeePayable),
		OutputTax:       lookup(c.codes.OutputTax),
		InputTax:        lookup(c.codes.InputTax),
		Suspense:        lookup(c.codes.Suspense),
	}, nil
}

// StaticRoles hands out the same roles for every book.
type StaticRoles Roles

func (s StaticRoles) Roles(context.Context, ledger.BookID) (Roles, error) { return Roles(s), nil }

func requireRole(role string, id ledger.AccountID) (ledger.AccountID, error) {
	if id == "" {
		return "", &ledger.StateError{Err: ErrRoleNotConfigured, Reason: role}
	}
	return id, nil
}

// pick returns explicit when set, else the role account.
func pick(explicit ledger.AccountID, role string, fallback ledger.AccountID) (ledger.AccountID, error) {
	if explicit != "" {
		return explicit, nil
	}
	return requireRole(role, fallback)
}
