// Package money holds the amount helpers shared by incomes, expenses and
// payroll. Amounts are decimals with two fractional digits.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "TRY"

var (
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrInvalidCount  = errors.New("count must be positive")
	ErrPercentSum    = errors.New("percentages must sum to 100")
	ErrPercentValue  = errors.New("percentages must be positive")
	// ErrPartialTooLarge rejects a partial payment that would settle the
	// whole amount; a full payment is a status change instead.
	ErrPartialTooLarge = errors.New("partial amount must be less than the original amount")
)

// PercentTolerance is how far a set of installment percentages may drift
// from 100 and still be accepted.
var PercentTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

var symbols = map[string]string{
	"TRY": "₺",
	"USD": "$",
	"EUR": "€",
}

// Format renders amount the way the dashboard shows it: Turkish digit
// grouping, comma decimals, currency symbol in front when one is known.
func Format(amount decimal.Decimal, currency string) string {
	fixed := amount.Round(2).StringFixed(2)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, frac, _ := strings.Cut(fixed, ".")
	grouped := groupThousands(intPart)

	var b strings.Builder
	if negative && !amount.Round(2).IsZero() {
		b.WriteByte('-')
	}
	sym, known := symbols[strings.ToUpper(currency)]
	if known {
		b.WriteString(sym)
	}
	b.WriteString(grouped)
	b.WriteByte(',')
	b.WriteString(frac)
	if !known && currency != "" {
		b.WriteByte(' ')
		b.WriteString(strings.ToUpper(currency))
	}
	return b.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Parse accepts "1234.56", "1234,56", "1.234,56" and "1,234.56"
// (optionally with a currency symbol) and returns a positive amount rounded
// to cents. A lone "." followed by three digits is read as digit grouping,
// the way Format writes amounts; a lone "," followed by three digits is
// ambiguous and rejected.
func Parse(s string) (decimal.Decimal, error) {
	d, err := parse(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	for _, sym := range symbols {
		s = strings.TrimPrefix(s, sym)
	}
	s = strings.ReplaceAll(s, " ", "")

	intPart, frac, err := splitAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	num := intPart
	if frac != "" {
		num += "." + frac
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// splitAmount separates the integer and fractional digits of s and strips
// digit grouping from the integer part. When both "." and "," appear the
// later one is the decimal mark.
func splitAmount(s string) (string, string, error) {
	dot, comma := strings.LastIndexByte(s, '.'), strings.LastIndexByte(s, ',')

	var mark, group byte
	switch {
	case dot >= 0 && comma >= 0:
		mark, group = ',', '.'
		if dot > comma {
			mark, group = '.', ','
		}
	case dot >= 0:
		mark, group = '.', ','
		if strings.Count(s, ".") > 1 || len(s)-dot-1 == 3 {
			mark, group = 0, '.'
		}
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			mark, group = 0, ','
			break
		}
		if len(s)-comma-1 == 3 {
			return "", "", ErrInvalidAmount
		}
		mark, group = ',', '.'
	default:
		return s, "", nil
	}

	intPart, frac := s, ""
	if mark != 0 {
		i := strings.LastIndexByte(s, mark)
		intPart, frac = s[:i], s[i+1:]
		if frac == "" || strings.IndexByte(intPart, mark) >= 0 {
			return "", "", ErrInvalidAmount
		}
	}

	if strings.IndexByte(intPart, group) < 0 {
		return intPart, frac, nil
	}
	groups := strings.Split(intPart, string(group))
	head := strings.TrimPrefix(groups[0], "-")
	if len(head) == 0 || len(head) > 3 {
		return "", "", ErrInvalidAmount
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", "", ErrInvalidAmount
		}
	}
	return strings.Join(groups, ""), frac, nil
}

// Amount is a request amount. It decodes JSON numbers as plain decimals and
// strings in any format Parse accepts; range checks are left to the domain
// constructors.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	if !strings.HasPrefix(s, `"`) {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return ErrInvalidAmount
		}
		a.Decimal = d.Round(2)
		return nil
	}
	d, err := parse(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

// SplitEqual divides total into n cent-precise shares. Leftover cents go to
// the first shares so the shares always add back up to total.
func SplitEqual(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	if !total.IsPositive() {
		return nil, ErrInvalidAmount
	}

	cents := total.Round(2).Shift(2).IntPart()
	count := int64(n)
	if cents < count {
		// every share must be at least one cent
		return nil, ErrInvalidAmount
	}
	base := cents / count
	remainder := cents % count

	shares := make([]decimal.Decimal, 0, n)
	for i := int64(0); i < count; i++ {
		share := base
		if i < remainder {
			share++
		}
		shares = append(shares, decimal.New(share, -2))
	}
	return shares, nil
}

// SplitPercent divides total by percentages that must add up to 100 within
// PercentTolerance. The last share absorbs rounding. A percentage too small
// to round to a cent of total fails with ErrInvalidAmount.
func SplitPercent(total decimal.Decimal, pcts []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(pcts) == 0 {
		return nil, ErrInvalidCount
	}
	if !total.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := CheckPercentages(pcts); err != nil {
		return nil, err
	}

	total = total.Round(2)
	shares := make([]decimal.Decimal, len(pcts))
	allocated := decimal.Zero
	for i, p := range pcts[:len(pcts)-1] {
		shares[i] = total.Mul(p).Div(hundred).Round(2)
		if !shares[i].IsPositive() {
			return nil, ErrInvalidAmount
		}
		allocated = allocated.Add(shares[i])
	}
	last := total.Sub(allocated)
	if !last.IsPositive() {
		return nil, ErrInvalidAmount
	}
	shares[len(pcts)-1] = last
	return shares, nil
}

func CheckPercentages(pcts []decimal.Decimal) error {
	sum := decimal.Zero
	for _, p := range pcts {
		if !p.IsPositive() {
			return ErrPercentValue
		}
		sum = sum.Add(p)
	}
	if sum.Sub(hundred).Abs().GreaterThan(PercentTolerance) {
		return ErrPercentSum
	}
	return nil
}

// Partial splits amount into the paid portion and what is left over. paid
// must be positive and strictly less than amount.
func Partial(amount, paid decimal.Decimal) (decimal.Decimal, error) {
	paid = paid.Round(2)
	if !paid.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if paid.GreaterThanOrEqual(amount) {
		return decimal.Zero, ErrPartialTooLarge
	}
	return amount.Sub(paid), nil
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, amounts...)
}
