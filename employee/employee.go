// Package employee keeps the payroll roster. Each employee owns the salary
// expenses generated for the rest of their hiring year.
package employee

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("employee not found")
	ErrEmptyName = errors.New("name can't be empty")
	ErrNoSalary  = errors.New("salary date is required")
)

type Employee struct {
	ID         uuid.UUID       `json:"id"`
	CompanyID  string          `json:"company_id"`
	Name       string          `json:"name"`
	Salary     decimal.Decimal `json:"salary"`
	SalaryDate time.Time       `json:"salary_date"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Repository interface {
	// Create stores the employee and its salary expenses together.
	Create(ctx context.Context, e Employee, salaries []expense.Expense) error
	Get(ctx context.Context, companyID string, id uuid.UUID) (*Employee, error)
	List(ctx context.Context, companyID string) ([]Employee, error)
	// Update saves name and salary and carries them over to the unpaid
	// salary expenses. It returns how many expenses changed.
	Update(ctx context.Context, e Employee) (int64, error)
	// Delete removes the employee and its unpaid salary expenses; paid ones
	// stay as history.
	Delete(ctx context.Context, companyID string, id uuid.UUID) (int64, error)
}

func New(companyID, name string, salary decimal.Decimal, salaryDate time.Time) (Employee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Employee{}, ErrEmptyName
	}
	if !salary.IsPositive() {
		return Employee{}, money.ErrInvalidAmount
	}
	if salaryDate.IsZero() {
		return Employee{}, ErrNoSalary
	}
	return Employee{
		ID:         uuid.New(),
		CompanyID:  companyID,
		Name:       name,
		Salary:     salary.Round(2),
		SalaryDate: time.Date(salaryDate.Year(), salaryDate.Month(), salaryDate.Day(), 0, 0, 0, 0, time.UTC),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Hire builds an employee and the payroll expenses that go with it.
func Hire(companyID, name, currency string, salary decimal.Decimal, salaryDate time.Time) (Employee, []expense.Expense, error) {
	e, err := New(companyID, name, salary, salaryDate)
	if err != nil {
		return Employee{}, nil, err
	}
	salaries, err := expense.NewSalaries(companyID, e.ID, e.Name, currency, e.Salary, e.SalaryDate)
	if err != nil {
		return Employee{}, nil, err
	}
	return e, salaries, nil
}
