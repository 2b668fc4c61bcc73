// Package dashboard aggregates a company's incomes and expenses into the
// figures shown on its overview page.
package dashboard

import (
	"cmp"
	"slices"
	"time"

	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/income"
	"github.com/shopspring/decimal"
)

// UpcomingWindow is how far ahead the upcoming list looks.
const UpcomingWindow = 30 * 24 * time.Hour

type Month struct {
	Month           time.Month      `json:"month"`
	IncomeCollected decimal.Decimal `json:"income_collected"`
	IncomePending   decimal.Decimal `json:"income_pending"`
	ExpensePaid     decimal.Decimal `json:"expense_paid"`
	ExpensePending  decimal.Decimal `json:"expense_pending"`
}

type TitleTotal struct {
	Title string          `json:"title"`
	Total decimal.Decimal `json:"total"`
}

type Upcoming struct {
	Kind   string          `json:"kind"`
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

type Summary struct {
	Year            int             `json:"year"`
	CollectedIncome decimal.Decimal `json:"collected_income"`
	PendingIncome   decimal.Decimal `json:"pending_income"`
	PaidExpenses    decimal.Decimal `json:"paid_expenses"`
	PendingExpenses decimal.Decimal `json:"pending_expenses"`
	Net             decimal.Decimal `json:"net"`
	OverdueIncomes  int             `json:"overdue_incomes"`
	OverdueExpenses int             `json:"overdue_expenses"`
	Months          []Month         `json:"months"`
	ExpensesByTitle []TitleTotal    `json:"expenses_by_title"`
	Upcoming        []Upcoming      `json:"upcoming"`
}

// Summarize computes the overview for year. Settled rows count in the month
// they were paid, falling back to their planned date when no paid date was
// recorded; open rows count in their planned month. Overdue counts and the
// upcoming list ignore year and are relative to now.
func Summarize(incomes []income.Income, expenses []expense.Expense, year int, now time.Time) Summary {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	horizon := today.Add(UpcomingWindow)

	s := Summary{
		Year:            year,
		Months:          make([]Month, 12),
		ExpensesByTitle: []TitleTotal{},
		Upcoming:        []Upcoming{},
	}
	for i := range s.Months {
		s.Months[i].Month = time.Month(i + 1)
	}

	for _, in := range incomes {
		collected := in.Status == income.StatusCollected
		if in.Overdue(today) {
			s.OverdueIncomes++
		}
		if !collected && inWindow(in.ExpectedDate, today, horizon) {
			s.Upcoming = append(s.Upcoming, Upcoming{Kind: "income", ID: in.ID.String(), Name: in.Name, Amount: in.Amount, Date: in.ExpectedDate})
		}

		when := settledOn(collected, in.PaidDate, in.ExpectedDate)
		if when.Year() != year {
			continue
		}
		m := &s.Months[when.Month()-1]
		if collected {
			s.CollectedIncome = s.CollectedIncome.Add(in.Amount)
			m.IncomeCollected = m.IncomeCollected.Add(in.Amount)
		} else {
			s.PendingIncome = s.PendingIncome.Add(in.Amount)
			m.IncomePending = m.IncomePending.Add(in.Amount)
		}
	}

	byTitle := map[string]decimal.Decimal{}
	for _, ex := range expenses {
		if ex.Overdue(today) {
			s.OverdueExpenses++
		}
		if !ex.Paid && inWindow(ex.DueDate, today, horizon) {
			s.Upcoming = append(s.Upcoming, Upcoming{Kind: "expense", ID: ex.ID.String(), Name: ex.Name, Amount: ex.Amount, Date: ex.DueDate})
		}

		when := settledOn(ex.Paid, ex.PaidDate, ex.DueDate)
		if when.Year() != year {
			continue
		}
		m := &s.Months[when.Month()-1]
		if ex.Paid {
			s.PaidExpenses = s.PaidExpenses.Add(ex.Amount)
			m.ExpensePaid = m.ExpensePaid.Add(ex.Amount)
		} else {
			s.PendingExpenses = s.PendingExpenses.Add(ex.Amount)
			m.ExpensePending = m.ExpensePending.Add(ex.Amount)
		}
		byTitle[ex.Title] = byTitle[ex.Title].Add(ex.Amount)
	}

	s.Net = s.CollectedIncome.Sub(s.PaidExpenses)

	for title, total := range byTitle {
		s.ExpensesByTitle = append(s.ExpensesByTitle, TitleTotal{Title: title, Total: total})
	}
	slices.SortFunc(s.ExpensesByTitle, func(a, b TitleTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	slices.SortStableFunc(s.Upcoming, func(a, b Upcoming) int {
		return a.Date.Compare(b.Date)
	})
	return s
}

func settledOn(settled bool, paid *time.Time, planned time.Time) time.Time {
	if settled && paid != nil {
		return *paid
	}
	return planned
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
