package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// DateLayout is the wire and form layout of calendar dates.
const DateLayout = "2006-01-02"

type (
	// Kind tells income and expense records apart.
	Kind string

	// Date is a calendar date without a time component.
	// Dates that could not be parsed keep their raw text and a zero Time.
	Date struct {
		time.Time
		raw string
	}

	Transaction struct {
		ID          RecordID `json:"id"`
		Kind        Kind     `json:"type"`
		Amount      Amount   `json:"amount"`
		Category    string   `json:"category"` // Category.Name, not its id
		Description string   `json:"description"`
		Date        Date     `json:"date"`
		CreatedAt   string   `json:"created_at,omitempty"`
	}

	Category struct {
		ID    RecordID `json:"id"`
		Name  string   `json:"name"`
		Kind  Kind     `json:"type"`
		Icon  string   `json:"icon"`
		Color string   `json:"color"`
	}

	// NewTransaction is the body of a create request.
	NewTransaction struct {
		Kind        Kind   `json:"type"`
		Amount      Amount `json:"amount"`
		Category    string `json:"category"`
		Description string `json:"description"`
		Date        Date   `json:"date"`
	}
)

var (
	ErrInvalidKind   = errors.New("kind must be income or expense")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidDate   = errors.New("invalid date")
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String returns the YYYY-MM-DD form, or the raw wire text for unparsable dates.
func (d Date) String() string {
	if d.IsZero() {
		return d.raw
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts YYYY-MM-DD and RFC 3339 timestamps. Anything else
// decodes to a zero date that remembers its text, so one bad record does not
// invalidate a whole list.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*d = Date{raw: strings.Trim(string(b), `"`)}
		return nil
	}
	if parsed, err := ParseDate(s); err == nil {
		*d = parsed
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*d = DateOf(t)
		return nil
	}
	*d = Date{raw: s}
	return nil
}

func (n NewTransaction) Validate() error {
	if !n.Kind.Valid() {
		return ErrInvalidKind
	}
	if !n.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(n.Category) == "" {
		return ErrEmptyCategory
	}
	return n.Date.Validate()
}

// Resource names one of the three server collections a view is built from.
type Resource string

const (
	ResourceTransactions Resource = "transactions"
	ResourceCategories   Resource = "categories"
	ResourceSummary      Resource = "summary"
)

func (r Resource) String() string {
	return string(r)
}
