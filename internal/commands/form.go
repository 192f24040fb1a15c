package commands

import (
	"errors"
	"strings"
	"time"

	"pfm/internal/core"
	"pfm/internal/viewmodel"
)

var (
	ErrMissingFields = errors.New("amount and category are required")
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD")
)

// Form is the transient state of the add-transaction screen.
type Form struct {
	Kind        core.Kind
	Amount      string
	Category    string
	Description string
	Date        string
}

// NewForm returns an expense form dated today.
func NewForm(now time.Time) *Form {
	return &Form{Kind: core.Expense, Date: core.FormatDateForInput(now)}
}

// Reset clears the amount and description and dates the form today.
// Kind and category carry over to the next entry.
func (f *Form) Reset(now time.Time) {
	f.Amount = ""
	f.Description = ""
	f.Date = core.FormatDateForInput(now)
}

// SetKind switches the kind and reselects the category from cats.
func (f *Form) SetKind(k core.Kind, cats []core.Category) {
	f.Kind = k
	f.SyncCategory(cats)
}

// SyncCategory keeps the selected category if it still exists for the
// current kind and otherwise picks the first one.
func (f *Form) SyncCategory(cats []core.Category) {
	f.Category = viewmodel.SelectDefaultCategory(cats, f.Kind, f.Category)
}

// Validate turns the form into a create payload without touching the network.
func (f *Form) Validate() (core.NewTransaction, error) {
	amountText := strings.TrimSpace(f.Amount)
	category := strings.TrimSpace(f.Category)
	if amountText == "" || category == "" {
		return core.NewTransaction{}, ErrMissingFields
	}
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		return core.NewTransaction{}, ErrInvalidAmount
	}
	if !f.Kind.Valid() {
		return core.NewTransaction{}, core.ErrInvalidKind
	}
	date, err := core.ParseDate(f.Date)
	if err != nil {
		return core.NewTransaction{}, ErrInvalidDate
	}
	return core.NewTransaction{
		Kind:        f.Kind,
		Amount:      amount,
		Category:    category,
		Description: strings.TrimSpace(f.Description),
		Date:        date,
	}, nil
}
