package schema

import (
	"strings"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

// ValueSeparator joins the selected option values of a checkbox answer, in
// selection order. The separator is part of the stored answer format.
const ValueSeparator = ", "

// Resolution is the outcome of walking a field tree against an answer set.
// Matched records whether any selected option anywhere in the tree carried an
// amount; without it a zero Total is ambiguous between "priced at zero" and
// "nothing priced was chosen".
type Resolution struct {
	Total   float64
	Matched bool
}

// SplitAnswer breaks a recorded choice answer into its selected option
// values. Empty input yields no selections.
func SplitAnswer(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ValueSeparator)
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Resolve walks the tree depth-first and accumulates the amounts of every
// selected amount-bearing option. Sub-fields are only entered under options
// that are currently selected, whether or not the option itself carries an
// amount. Selected values that no longer match any option are ignored here;
// the display projection still renders them.
func Resolve(fields []models.CustomField, answers models.AnswerSet) Resolution {
	var res Resolution
	for _, field := range fields {
		if !field.Type.Choice() {
			continue
		}
		selected := SplitAnswer(answers[field.ID])
		if len(selected) == 0 {
			continue
		}
		for _, opt := range field.Options {
			if !contains(selected, opt.Value) {
				continue
			}
			if opt.Amount != nil {
				res.Total += *opt.Amount
				res.Matched = true
			}
			if children, ok := field.SubFields[opt.ID]; ok {
				child := Resolve(children, answers)
				res.Total += child.Total
				res.Matched = res.Matched || child.Matched
			}
		}
	}
	return res
}

// ResolveAmountDue turns a schema and an answer set into the amount a student
// owes. The flat targetAmount is a global fallback: it applies only when no
// amount-bearing option was selected anywhere in the tree, and is suppressed
// entirely otherwise, even when the matched total is zero.
func ResolveAmountDue(fields []models.CustomField, answers models.AnswerSet, targetAmount *float64) float64 {
	res := Resolve(fields, answers)
	if res.Matched {
		return res.Total
	}
	if targetAmount != nil {
		return *targetAmount
	}
	return 0
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
