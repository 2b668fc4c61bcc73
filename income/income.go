// Package income tracks money a company expects to receive: one-time
// invoices, installment plans and recurring service fees.
package income

import (
	"context"
	"errors"
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
	TypeOneTime     Type = "one_time"
	TypeInstallment Type = "installment"
	TypeRecurring   Type = "recurring_service"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusFinalized Status = "finalized"
	StatusCollected Status = "collected"
)

var (
	ErrNotFound         = errors.New("income not found")
	ErrEmptyName        = errors.New("name can't be empty")
	ErrAlreadyCollected = errors.New("income is already collected")
	ErrNotCollected     = errors.New("income is not collected")
	ErrBadTransition    = errors.New("status change not allowed")
	ErrPartialTooLarge  = money.ErrPartialTooLarge
)

type Income struct {
	ID                    uuid.UUID       `json:"id"`
	CompanyID             string          `json:"company_id"`
	Name                  string          `json:"name"`
	Type                  Type            `json:"type"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	ExpectedDate          time.Time       `json:"expected_date"`
	PaidDate              *time.Time      `json:"paid_date,omitempty"`
	Status                Status          `json:"status"`
	GroupID               *uuid.UUID      `json:"group_id,omitempty"`
	InstallmentNo         int             `json:"installment_no,omitempty"`
	InstallmentCount      int             `json:"installment_count,omitempty"`
	RemainingInstallments int             `json:"remaining_installments,omitempty"`
	Note                  string          `json:"note,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

// Overdue reports whether the income should have arrived before today.
func (i Income) Overdue(today time.Time) bool {
	return i.Status != StatusCollected && i.ExpectedDate.Before(truncateDay(today))
}

type Repository interface {
	Create(ctx context.Context, incomes ...Income) error
	Get(ctx context.Context, companyID string, id uuid.UUID) (*Income, error)
	List(ctx context.Context, companyID string) ([]Income, error)
	Update(ctx context.Context, i Income) error
	SetStatus(ctx context.Context, companyID string, id uuid.UUID, status Status, paidDate *time.Time) error
	CollectPartial(ctx context.Context, companyID string, id uuid.UUID, paid decimal.Decimal, paidDate time.Time) (*Income, *Income, error)
	Delete(ctx context.Context, companyID string, id uuid.UUID) error
	DeleteGroup(ctx context.Context, companyID string, groupID uuid.UUID) (int64, error)
}

func base(companyID, name, currency, note string, t Type) (Income, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Income{}, ErrEmptyName
	}
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return Income{
		CompanyID: companyID,
		Name:      name,
		Type:      t,
		Currency:  currency,
		Status:    StatusPending,
		Note:      strings.TrimSpace(note),
		CreatedAt: time.Now().UTC(),
	}, nil
}

func NewOneTime(companyID, name string, amount decimal.Decimal, expected time.Time, currency, note string) (Income, error) {
	i, err := base(companyID, name, currency, note, TypeOneTime)
	if err != nil {
		return Income{}, err
	}
	if !amount.IsPositive() {
		return Income{}, money.ErrInvalidAmount
	}
	if expected.IsZero() {
		return Income{}, schedule.ErrInvalidStart
	}
	i.ID = uuid.New()
	i.Amount = amount.Round(2)
	i.ExpectedDate = truncateDay(expected)
	return i, nil
}

// NewInstallments splits total over count monthly installments starting at
// start. pcts, when given, sets each installment's share of the total.
func NewInstallments(companyID, name string, total decimal.Decimal, count int, start time.Time, pcts []decimal.Decimal, currency, note string) ([]Income, error) {
	tmpl, err := base(companyID, name, currency, note, TypeInstallment)
	if err != nil {
		return nil, err
	}
	entries, err := schedule.Installments(total, count, start, pcts)
	if err != nil {
		return nil, err
	}
	return fromEntries(tmpl, entries), nil
}

// NewRecurring bills amount every month for months months starting at start.
func NewRecurring(companyID, name string, amount decimal.Decimal, months int, start time.Time, currency, note string) ([]Income, error) {
	tmpl, err := base(companyID, name, currency, note, TypeRecurring)
	if err != nil {
		return nil, err
	}
	entries, err := schedule.Recurring(amount, months, start)
	if err != nil {
		return nil, err
	}
	return fromEntries(tmpl, entries), nil
}

func fromEntries(tmpl Income, entries []schedule.Entry) []Income {
	group := uuid.New()
	out := make([]Income, 0, len(entries))
	for _, e := range entries {
		i := tmpl
		i.ID = uuid.New()
		i.Amount = e.Amount
		i.ExpectedDate = e.Date
		i.GroupID = &group
		i.InstallmentNo = e.Seq
		i.InstallmentCount = e.Count
		i.RemainingInstallments = e.Remaining
		out = append(out, i)
	}
	return out
}

// CheckTransition validates moving an income from one status to another.
// Collected incomes only go back through an explicit revert to pending.
func CheckTransition(from, to Status) error {
	switch to {
	case StatusFinalized:
		if from == StatusPending {
			return nil
		}
		if from == StatusCollected {
			return ErrAlreadyCollected
		}
	case StatusCollected:
		if from == StatusCollected {
			return ErrAlreadyCollected
		}
		return nil
	case StatusPending:
		if from != StatusPending {
			return nil
		}
	}
	return ErrBadTransition
}

// SplitPartial returns the income with its amount reduced by paid, plus a new
// collected income carrying the paid portion. The new record stays in the
// same group so deleting the plan removes it too.
func SplitPartial(i Income, paid decimal.Decimal, paidDate time.Time) (Income, Income, error) {
	if i.Status == StatusCollected {
		return Income{}, Income{}, ErrAlreadyCollected
	}
	rest, err := money.Partial(i.Amount, paid)
	if err != nil {
		return Income{}, Income{}, err
	}

	remaining := i
	remaining.Amount = rest

	day := truncateDay(paidDate)
	collected := i
	collected.ID = uuid.New()
	collected.Amount = paid.Round(2)
	collected.Status = StatusCollected
	collected.PaidDate = &day
	collected.Note = strings.TrimSpace(strings.Join([]string{i.Note, "partial payment"}, " "))
	collected.CreatedAt = time.Now().UTC()

	return remaining, collected, nil
}

const (
	TabPending   = "pending"
	TabFinalized = "finalized"
	TabCollected = "collected"
	TabOverdue   = "overdue"
)

// ListOptions drives the incomes table. today decides the overdue tab.
func ListOptions(today time.Time) listing.Options[Income] {
	return listing.Options[Income]{
		Tabs: map[string]func(Income) bool{
			TabPending:   func(i Income) bool { return i.Status == StatusPending },
			TabFinalized: func(i Income) bool { return i.Status == StatusFinalized },
			TabCollected: func(i Income) bool { return i.Status == StatusCollected },
			TabOverdue:   func(i Income) bool { return i.Overdue(today) },
		},
		Fields: func(i Income) []string {
			return []string{
				i.Name,
				string(i.Type),
				string(i.Status),
				i.Note,
				i.Amount.StringFixed(2),
				money.Format(i.Amount, i.Currency),
				i.ExpectedDate.Format("2006-01-02"),
				i.ExpectedDate.Format("02.01.2006"),
			}
		},
		Date: func(i Income) time.Time { return i.ExpectedDate },
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
