package http

import (
	"net/url"
	"strings"

	"pfm/internal/commands"
	"pfm/internal/core"
)

// applyTransactionForm copies the posted fields onto f. An unknown kind is
// kept verbatim so that validation rejects it.
func applyTransactionForm(f *commands.Form, form url.Values) {
	if v := sanitizeInput(form.Get("type")); v != "" {
		if k, err := core.ParseKind(v); err == nil {
			f.Kind = k
		} else {
			f.Kind = core.Kind(v)
		}
	}
	f.Amount = sanitizeInput(form.Get("amount"))
	f.Category = sanitizeInput(form.Get("category"))
	f.Description = sanitizeInput(form.Get("description"))
	if d := sanitizeInput(form.Get("date")); d != "" {
		f.Date = d
	}
}

// kindParam returns the kind selected through ?type=, if any.
func kindParam(query url.Values) (core.Kind, bool) {
	k, err := core.ParseKind(strings.TrimSpace(query.Get("type")))
	return k, err == nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
