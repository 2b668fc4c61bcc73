package export

import (
	"fmt"

	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/income"
	"github.com/shopspring/decimal"
)

var incomeColumns = []Column[income.Income]{
	{Header: "Name", Width: 32, Value: func(i income.Income) any { return i.Name }},
	{Header: "Type", Value: func(i income.Income) any { return string(i.Type) }},
	{Header: "Status", Value: func(i income.Income) any { return string(i.Status) }},
	{Header: "Expected", Value: func(i income.Income) any { return i.ExpectedDate }},
	{Header: "Collected", Value: func(i income.Income) any { return i.PaidDate }},
	{Header: "Installment", Value: func(i income.Income) any { return installment(i.InstallmentNo, i.InstallmentCount) }},
	{Header: "Currency", Width: 10, Value: func(i income.Income) any { return i.Currency }},
	{Header: "Amount", Amount: func(i income.Income) decimal.Decimal { return i.Amount }},
	{Header: "Note", Width: 40, Value: func(i income.Income) any { return i.Note }},
}

var expenseColumns = []Column[expense.Expense]{
	{Header: "Name", Width: 32, Value: func(e expense.Expense) any { return e.Name }},
	{Header: "Title", Width: 20, Value: func(e expense.Expense) any { return e.Title }},
	{Header: "Subcategory", Width: 20, Value: func(e expense.Expense) any { return e.Subcategory }},
	{Header: "Type", Value: func(e expense.Expense) any { return string(e.Type) }},
	{Header: "Status", Value: func(e expense.Expense) any { return string(e.Status) }},
	{Header: "Due", Value: func(e expense.Expense) any { return e.DueDate }},
	{Header: "Paid", Value: func(e expense.Expense) any { return e.PaidDate }},
	{Header: "Currency", Width: 10, Value: func(e expense.Expense) any { return e.Currency }},
	{Header: "Amount", Amount: func(e expense.Expense) decimal.Decimal { return e.Amount }},
	{Header: "Note", Width: 40, Value: func(e expense.Expense) any { return e.Note }},
}

func installment(no, count int) string {
	if count == 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", no, count)
}
