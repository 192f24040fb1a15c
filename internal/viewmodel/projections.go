package viewmodel

import (
	"slices"

	"pfm/internal/core"
)

// Fallback glyphs for transactions whose category is unknown.
const (
	IncomeIcon  = "💰"
	ExpenseIcon = "💸"

	NoDescription = "説明なし"
)

// SortedByDateDesc returns a copy of txs ordered newest first. Transactions
// on the same date keep their server order. Undated records sort last.
func SortedByDateDesc(txs []core.Transaction) []core.Transaction {
	out := slices.Clone(txs)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return b.Date.Time.Compare(a.Date.Time)
	})
	return nonNil(out)
}

// FilterCategories keeps the categories of kind k in their original order.
func FilterCategories(cats []core.Category, k core.Kind) []core.Category {
	out := make([]core.Category, 0, len(cats))
	for _, c := range cats {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// SelectDefaultCategory returns current if it is still a category of kind k,
// otherwise the first category of that kind, or "" when there is none.
func SelectDefaultCategory(cats []core.Category, k core.Kind, current string) string {
	filtered := FilterCategories(cats, k)
	if current != "" {
		for _, c := range filtered {
			if c.Name == current {
				return current
			}
		}
	}
	if len(filtered) == 0 {
		return ""
	}
	return filtered[0].Name
}

// CategoryFor finds the category a transaction refers to by name and kind,
// falling back to a name-only match.
func CategoryFor(cats []core.Category, tx core.Transaction) (core.Category, bool) {
	var byName *core.Category
	for i := range cats {
		if cats[i].Name != tx.Category {
			continue
		}
		if cats[i].Kind == tx.Kind {
			return cats[i], true
		}
		if byName == nil {
			byName = &cats[i]
		}
	}
	if byName != nil {
		return *byName, true
	}
	return core.Category{}, false
}

// Row is a display-ready transaction.
type Row struct {
	ID          string    `json:"id"`
	Kind        core.Kind `json:"type"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color,omitempty"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Amount      string    `json:"amount"`
}

// Rows renders txs newest first, joined with their categories.
func Rows(txs []core.Transaction, cats []core.Category) []Row {
	sorted := SortedByDateDesc(txs)
	rows := make([]Row, 0, len(sorted))
	for _, tx := range sorted {
		row := Row{
			ID:          tx.ID.Normalize(),
			Kind:        tx.Kind,
			Icon:        fallbackIcon(tx.Kind),
			Category:    tx.Category,
			Description: tx.Description,
			Date:        core.FormatDate(tx.Date),
			Amount:      core.FormatSignedCurrency(tx.Kind, tx.Amount),
		}
		if c, ok := CategoryFor(cats, tx); ok {
			if c.Icon != "" {
				row.Icon = c.Icon
			}
			row.Color = c.Color
		}
		if row.Description == "" {
			row.Description = NoDescription
		}
		rows = append(rows, row)
	}
	return rows
}

func fallbackIcon(k core.Kind) string {
	if k == core.Income {
		return IncomeIcon
	}
	return ExpenseIcon
}

// Sorted returns the snapshot's transactions newest first.
func (s Snapshot) Sorted() []core.Transaction {
	return SortedByDateDesc(s.Transactions)
}

// CategoriesOf returns the snapshot's categories of kind k.
func (s Snapshot) CategoriesOf(k core.Kind) []core.Category {
	return FilterCategories(s.Categories, k)
}

// DefaultCategory applies SelectDefaultCategory to the snapshot.
func (s Snapshot) DefaultCategory(k core.Kind, current string) string {
	return SelectDefaultCategory(s.Categories, k, current)
}

// Rows returns the display rows of the snapshot.
func (s Snapshot) Rows() []Row {
	return Rows(s.Transactions, s.Categories)
}

// Totals returns income, expense and balance, zero when the summary is absent.
func (s Snapshot) Totals() (income, expense, balance core.Amount) {
	return s.Summary.TotalIncomeOrZero(), s.Summary.TotalExpenseOrZero(), s.Summary.BalanceOrZero()
}

// Contains reports whether a transaction with normalized id is displayed.
func (s Snapshot) Contains(id string) bool {
	for _, tx := range s.Transactions {
		if tx.ID.Normalize() == id {
			return true
		}
	}
	return false
}
