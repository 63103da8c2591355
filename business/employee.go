package business

import (
	"context"
	"fmt"
	"time"

	"github.com/moon/ledger-engine/ledger"
)

// ExpenseClaim is money an employee spent on the company's behalf.
type ExpenseClaim struct {
	EmployeeID       ledger.OwnerID
	ExpenseAccountID ledger.AccountID
	Amount           ledger.Money
	Date             time.Time
	Description      string
}

// EmployeePayment pays an employee back.
type EmployeePayment struct {
	EmployeeID ledger.OwnerID
	Amount     ledger.Money
	Date       time.Time
	AccountID  ledger.AccountID // cash side, defaults to the cash role
	// ExpenseTxID optionally names the claim being reimbursed. It is kept
	// as the transaction number; the source stays the employee.
	ExpenseTxID ledger.TransactionID
}

// EmployeeBalance is what the company owes one employee.
type EmployeeBalance struct {
	Employee    ledger.Owner
	Claimed     ledger.Money
	Paid        ledger.Money
	Outstanding ledger.Money
}

// PostEmployeeExpense books a claim: +expense / -employee payable.
func (s *Service) PostEmployeeExpense(ctx context.Context, c ExpenseClaim) (ledger.TransactionID, error) {
	emp, err := s.ownerOfKind(ctx, c.EmployeeID, ledger.OwnerEmployee)
	if err != nil {
		return "", err
	}
	roles, err := s.roles.Roles(ctx, emp.BookID)
	if err != nil {
		return "", err
	}
	payable, err := requireRole("employee_payable", roles.EmployeePayable)
	if err != nil {
		return "", err
	}
	description := c.Description
	if description == "" {
		description = "Expense claim " + emp.Name
	}
	return s.engine.PostSimple(ctx, ledger.SimplePosting{
		Header: ledger.Header{
			BookID:      emp.BookID,
			PostDate:    s.dateOr(c.Date),
			Description: description,
			SourceType:  ledger.SourceEmployeeExpense,
			SourceID:    string(emp.ID),
		},
		Debit:  c.ExpenseAccountID,
		Credit: payable,
		Amount: c.Amount,
	})
}

// PayEmployee settles claims: +employee payable / -cash.
func (s *Service) PayEmployee(ctx context.Context, p EmployeePayment) (ledger.TransactionID, error) {
	emp, err := s.ownerOfKind(ctx, p.EmployeeID, ledger.OwnerEmployee)
	if err != nil {
		return "", err
	}
	roles, err := s.roles.Roles(ctx, emp.BookID)
	if err != nil {
		return "", err
	}
	payable, err := requireRole("employee_payable", roles.EmployeePayable)
	if err != nil {
		return "", err
	}
	cash, err := pick(p.AccountID, "cash", roles.Cash)
	if err != nil {
		return "", err
	}
	return s.engine.PostSimple(ctx, ledger.SimplePosting{
		Header: ledger.Header{
			BookID:      emp.BookID,
			PostDate:    s.dateOr(p.Date),
			Number:      string(p.ExpenseTxID),
			Description: "Reimbursement " + emp.Name,
			SourceType:  ledger.SourceEmployeePay,
			SourceID:    string(emp.ID),
		},
		Debit:  payable,
		Credit: cash,
		Amount: p.Amount,
	})
}

// EmployeeBalance sums the employee's claims and payments on the employee
// payable account.
func (s *Service) EmployeeBalance(ctx context.Context, id ledger.OwnerID) (EmployeeBalance, error) {
	emp, err := s.ownerOfKind(ctx, id, ledger.OwnerEmployee)
	if err != nil {
		return EmployeeBalance{}, err
	}
	roles, err := s.roles.Roles(ctx, emp.BookID)
	if err != nil {
		return EmployeeBalance{}, err
	}
	payable, err := requireRole("employee_payable", roles.EmployeePayable)
	if err != nil {
		return EmployeeBalance{}, err
	}
	splits, err := s.repo.QuerySplitsBySource(ctx, string(emp.ID))
	if err != nil {
		return EmployeeBalance{}, fmt.Errorf("query splits: %w", err)
	}

	bal := EmployeeBalance{Employee: emp}
	for _, sp := range splits {
		if sp.AccountID != payable {
			continue
		}
		if sp.Amount < 0 {
			bal.Claimed += -sp.Amount
		} else {
			bal.Paid += sp.Amount
		}
	}
	bal.Outstanding = bal.Claimed - bal.Paid
	return bal, nil
}
