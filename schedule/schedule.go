// Package schedule generates the monthly plans behind installment incomes,
// recurring expenses and employee payroll.
package schedule

import (
	"errors"
	"time"

	"github.com/billbatista/acasinha-finance/money"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCount  = errors.New("count must be positive")
	ErrInvalidStart  = errors.New("start date is required")
	ErrPercentCount  = errors.New("one percentage per installment is required")
	ErrTooManyMonths = errors.New("schedules are limited to 120 months")
)

const MaxMonths = 120

// Entry is one slot of a monthly plan.
type Entry struct {
	Seq       int             `json:"seq"`
	Count     int             `json:"count"`
	Remaining int             `json:"remaining"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
}

// MonthlyDates returns n dates one month apart starting at start. The day of
// month is kept from start and clamped to the last day of shorter months, so
// Jan 31 yields Feb 28 (or 29) and then Mar 31 again.
func MonthlyDates(start time.Time, n int) ([]time.Time, error) {
	if start.IsZero() {
		return nil, ErrInvalidStart
	}
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	if n > MaxMonths {
		return nil, ErrTooManyMonths
	}

	anchor := start.Day()
	dates := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		first := time.Date(start.Year(), start.Month()+time.Month(i), 1,
			start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
		day := min(anchor, DaysIn(first.Year(), first.Month()))
		dates = append(dates, first.AddDate(0, 0, day-1))
	}
	return dates, nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// RemainingMonthsOfYear counts the months from start's month through
// December, inclusive.
func RemainingMonthsOfYear(start time.Time) int {
	return 12 - int(start.Month()) + 1
}

// Installments splits total into count monthly installments. Without
// percentages the split is equal to the cent; with them, pcts must have one
// entry per installment and add up to 100.
func Installments(total decimal.Decimal, count int, start time.Time, pcts []decimal.Decimal) ([]Entry, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}

	var (
		amounts []decimal.Decimal
		err     error
	)
	if len(pcts) > 0 {
		if len(pcts) != count {
			return nil, ErrPercentCount
		}
		amounts, err = money.SplitPercent(total, pcts)
	} else {
		amounts, err = money.SplitEqual(total, count)
	}
	if err != nil {
		return nil, err
	}

	return build(amounts, start)
}

// Recurring repeats amount for months consecutive months.
func Recurring(amount decimal.Decimal, months int, start time.Time) ([]Entry, error) {
	if !amount.IsPositive() {
		return nil, money.ErrInvalidAmount
	}
	if months <= 0 {
		return nil, ErrInvalidCount
	}
	amounts := make([]decimal.Decimal, months)
	for i := range amounts {
		amounts[i] = amount.Round(2)
	}
	return build(amounts, start)
}

// Payroll plans one salary payment per remaining month of salaryDate's
// calendar year.
func Payroll(salary decimal.Decimal, salaryDate time.Time) ([]Entry, error) {
	if salaryDate.IsZero() {
		return nil, ErrInvalidStart
	}
	return Recurring(salary, RemainingMonthsOfYear(salaryDate), salaryDate)
}

func build(amounts []decimal.Decimal, start time.Time) ([]Entry, error) {
	dates, err := MonthlyDates(start, len(amounts))
	if err != nil {
		return nil, err
	}
	n := len(amounts)
	entries := make([]Entry, n)
	for i := range amounts {
		entries[i] = Entry{
			Seq:       i + 1,
			Count:     n,
			Remaining: n - (i + 1),
			Amount:    amounts[i],
			Date:      dates[i],
		}
	}
	return entries, nil
}
