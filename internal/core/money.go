// Package core provides money parsing and handling utilities.
//
// Amounts are currency-agnostic decimals. They travel over the wire as bare
// JSON numbers, which is what the finance API emits and accepts.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal quantity in the display currency's unit.
type Amount struct {
	decimal.Decimal
}

// Summary holds the server-computed totals. The client only displays it.
type Summary struct {
	TotalIncome  Amount            `json:"total_income"`
	TotalExpense Amount            `json:"total_expense"`
	Balance      Amount            `json:"balance"`
	ByCategory   map[string]Amount `json:"by_category"`
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// AmountFromInt returns a whole-unit amount.
func AmountFromInt(n int64) Amount {
	return Amount{Decimal: decimal.NewFromInt(n)}
}

// MustAmount parses s and panics on failure. Intended for seeds and tests.
func MustAmount(s string) Amount {
	return Amount{Decimal: decimal.RequireFromString(s)}
}

// ParseAmount parses user input into a strictly positive amount.
//
// Surrounding whitespace and ASCII thousands separators are ignored
// ("1,000" is one thousand). Signs, empty input and zero are rejected.
//
// Examples:
//
//	ParseAmount("1500")     -> 1500, nil
//	ParseAmount("1,500.5")  -> 1500.5, nil
//	ParseAmount("0")        -> ErrInvalidAmount
//	ParseAmount("-3")       -> ErrInvalidAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Amount{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{Decimal: d}, nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings; null leaves zero.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	return a.Decimal.UnmarshalJSON(b)
}

// TotalIncomeOrZero and friends let callers treat an absent summary as zero.
func (s *Summary) TotalIncomeOrZero() Amount {
	if s == nil {
		return Amount{}
	}
	return s.TotalIncome
}

func (s *Summary) TotalExpenseOrZero() Amount {
	if s == nil {
		return Amount{}
	}
	return s.TotalExpense
}

func (s *Summary) BalanceOrZero() Amount {
	if s == nil {
		return Amount{}
	}
	return s.Balance
}
