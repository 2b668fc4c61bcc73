// Package expense tracks money a company owes: bills, recurring costs and
// the salary expenses generated for employees.
package expense

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/billbatista/acasinha-finance/listing"
	"github.com/billbatista/acasinha-finance/money"
	"github.com/billbatista/acasinha-finance/schedule"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeOneTime   Type = "one_time"
	TypeRecurring Type = "recurring"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// SalaryTitle is the category title payroll expenses are filed under.
const SalaryTitle = "Maaş"

var (
	ErrNotFound           = errors.New("expense not found")
	ErrEmptyName          = errors.New("name can't be empty")
	ErrEmptyTitle         = errors.New("title can't be empty")
	ErrUnknownSubcategory = errors.New("subcategory does not belong to this title")
	ErrAlreadyPaid        = errors.New("expense is already paid")
	ErrNotPaid            = errors.New("expense is not paid")
	ErrPartialTooLarge    = money.ErrPartialTooLarge
)

type Expense struct {
	ID              uuid.UUID       `json:"id"`
	CompanyID       string          `json:"company_id"`
	Name            string          `json:"name"`
	Title           string          `json:"title"`
	Subcategory     string          `json:"subcategory,omitempty"`
	Type            Type            `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	DueDate         time.Time       `json:"due_date"`
	PaidDate        *time.Time      `json:"paid_date,omitempty"`
	Status          Status          `json:"status"`
	Paid            bool            `json:"paid"`
	GroupID         *uuid.UUID      `json:"group_id,omitempty"`
	TotalMonths     int             `json:"total_months,omitempty"`
	RemainingMonths int             `json:"remaining_months,omitempty"`
	EmployeeID      *uuid.UUID      `json:"employee_id,omitempty"`
	Note            string          `json:"note,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (e Expense) Overdue(today time.Time) bool {
	return !e.Paid && e.DueDate.Before(truncateDay(today))
}

// MarkPaid keeps Status and Paid in step.
func (e *Expense) MarkPaid(on time.Time) {
	day := truncateDay(on)
	e.Status = StatusPaid
	e.Paid = true
	e.PaidDate = &day
}

func (e *Expense) MarkUnpaid() {
	e.Status = StatusPending
	e.Paid = false
	e.PaidDate = nil
}

type Repository interface {
	Create(ctx context.Context, expenses ...Expense) error
	Get(ctx context.Context, companyID string, id uuid.UUID) (*Expense, error)
	List(ctx context.Context, companyID string) ([]Expense, error)
	Update(ctx context.Context, e Expense) error
	SetPaid(ctx context.Context, companyID string, id uuid.UUID, paidDate *time.Time) error
	PayPartial(ctx context.Context, companyID string, id uuid.UUID, paid decimal.Decimal, paidDate time.Time) (*Expense, *Expense, error)
	Delete(ctx context.Context, companyID string, id uuid.UUID) error
	DeleteGroup(ctx context.Context, companyID string, groupID uuid.UUID) (int64, error)
}

// Taxonomy looks up the subcategories configured for a title. ok is false
// when the company has no category with that name.
type Taxonomy interface {
	Subcategories(ctx context.Context, companyID, title string) (subs []string, ok bool, err error)
}

// Details are the descriptive fields shared by every way of creating an
// expense.
type Details struct {
	Name        string
	Title       string
	Subcategory string
	Currency    string
	Note        string
}

func (d Details) template(companyID string, t Type) (Expense, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return Expense{}, ErrEmptyName
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Expense{}, ErrEmptyTitle
	}
	currency := d.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return Expense{
		CompanyID:   companyID,
		Name:        name,
		Title:       title,
		Subcategory: strings.TrimSpace(d.Subcategory),
		Type:        t,
		Currency:    currency,
		Status:      StatusPending,
		Note:        strings.TrimSpace(d.Note),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func NewOneTime(companyID string, d Details, amount decimal.Decimal, due time.Time) (Expense, error) {
	e, err := d.template(companyID, TypeOneTime)
	if err != nil {
		return Expense{}, err
	}
	if !amount.IsPositive() {
		return Expense{}, money.ErrInvalidAmount
	}
	if due.IsZero() {
		return Expense{}, schedule.ErrInvalidStart
	}
	e.ID = uuid.New()
	e.Amount = amount.Round(2)
	e.DueDate = truncateDay(due)
	return e, nil
}

// NewRecurring repeats amount monthly for months months, all sharing one
// group id.
func NewRecurring(companyID string, d Details, amount decimal.Decimal, months int, start time.Time) ([]Expense, error) {
	tmpl, err := d.template(companyID, TypeRecurring)
	if err != nil {
		return nil, err
	}
	entries, err := schedule.Recurring(amount, months, start)
	if err != nil {
		return nil, err
	}
	return FromEntries(tmpl, entries), nil
}

// NewSalaries builds the payroll expenses of one employee for the rest of the
// salary date's year.
func NewSalaries(companyID string, employeeID uuid.UUID, employeeName, currency string, salary decimal.Decimal, salaryDate time.Time) ([]Expense, error) {
	tmpl, err := Details{
		Name:        employeeName,
		Title:       SalaryTitle,
		Subcategory: employeeName,
		Currency:    currency,
	}.template(companyID, TypeRecurring)
	if err != nil {
		return nil, err
	}
	entries, err := schedule.Payroll(salary, salaryDate)
	if err != nil {
		return nil, err
	}
	tmpl.EmployeeID = &employeeID
	return FromEntries(tmpl, entries), nil
}

func FromEntries(tmpl Expense, entries []schedule.Entry) []Expense {
	group := uuid.New()
	out := make([]Expense, 0, len(entries))
	for _, en := range entries {
		e := tmpl
		e.ID = uuid.New()
		e.Amount = en.Amount
		e.DueDate = en.Date
		e.GroupID = &group
		e.TotalMonths = en.Count
		e.RemainingMonths = en.Remaining
		out = append(out, e)
	}
	return out
}

// CheckCategory validates subcategory against the subcategories of a known
// title. Titles the company never configured are accepted as free text.
func CheckCategory(ctx context.Context, tax Taxonomy, companyID, title, subcategory string) error {
	if tax == nil || subcategory == "" {
		return nil
	}
	subs, ok, err := tax.Subcategories(ctx, companyID, title)
	if err != nil {
		return err
	}
	if !ok || slices.ContainsFunc(subs, func(s string) bool { return strings.EqualFold(s, subcategory) }) {
		return nil
	}
	return ErrUnknownSubcategory
}

// SplitPartial reduces e by paid and returns a new paid expense for the paid
// portion, in the same group as e.
func SplitPartial(e Expense, paid decimal.Decimal, paidDate time.Time) (Expense, Expense, error) {
	if e.Paid {
		return Expense{}, Expense{}, ErrAlreadyPaid
	}
	rest, err := money.Partial(e.Amount, paid)
	if err != nil {
		return Expense{}, Expense{}, err
	}

	remaining := e
	remaining.Amount = rest

	settled := e
	settled.ID = uuid.New()
	settled.Amount = paid.Round(2)
	settled.MarkPaid(paidDate)
	settled.Note = strings.TrimSpace(strings.Join([]string{e.Note, "partial payment"}, " "))
	settled.CreatedAt = time.Now().UTC()

	return remaining, settled, nil
}

const (
	TabPending = "pending"
	TabPaid    = "paid"
	TabOverdue = "overdue"
)

func ListOptions(today time.Time) listing.Options[Expense] {
	return listing.Options[Expense]{
		Tabs: map[string]func(Expense) bool{
			TabPending: func(e Expense) bool { return !e.Paid },
			TabPaid:    func(e Expense) bool { return e.Paid },
			TabOverdue: func(e Expense) bool { return e.Overdue(today) },
		},
		Fields: func(e Expense) []string {
			return []string{
				e.Name,
				e.Title,
				e.Subcategory,
				string(e.Status),
				e.Note,
				e.Amount.StringFixed(2),
				money.Format(e.Amount, e.Currency),
				e.DueDate.Format("2006-01-02"),
				e.DueDate.Format("02.01.2006"),
			}
		},
		Date: func(e Expense) time.Time { return e.DueDate },
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
