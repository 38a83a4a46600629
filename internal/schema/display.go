package schema

import (
	"fmt"
	"strings"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

const (
	fieldSeparator = " • "
	subSeparator   = " - "
	indentUnit     = "  "
)

// DisplayString renders an answer set against the schema as a single compact
// line: "name: value" per answered field, joined by bullets, with the answers
// of active sub-fields appended after a dash. Unanswered fields render
// nothing. Answers whose field was deleted from the schema render nothing; an
// answer value deleted from its field's options still renders as stored.
func DisplayString(fields []models.CustomField, answers models.AnswerSet) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if part, ok := fieldDisplay(field, answers); ok {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, fieldSeparator)
}

func fieldDisplay(field models.CustomField, answers models.AnswerSet) (string, bool) {
	value := answers[field.ID]
	if strings.TrimSpace(value) == "" {
		return "", false
	}

	part := fmt.Sprintf("%s: %s", field.Name, value)
	if !field.Type.Choice() || len(field.SubFields) == 0 {
		return part, true
	}

	var subParts []string
	for _, opt := range field.Options {
		if !contains(SplitAnswer(value), opt.Value) {
			continue
		}
		for _, child := range field.SubFields[opt.ID] {
			if sub, ok := fieldDisplay(child, answers); ok {
				subParts = append(subParts, sub)
			}
		}
	}
	if len(subParts) > 0 {
		part += subSeparator + strings.Join(subParts, subSeparator)
	}
	return part, true
}

// DisplayLines renders the same projection as indented lines for detail
// views, one answered field per line, children indented under their parent.
func DisplayLines(fields []models.CustomField, answers models.AnswerSet) []string {
	return displayLines(fields, answers, 0)
}

func displayLines(fields []models.CustomField, answers models.AnswerSet, depth int) []string {
	var lines []string
	for _, field := range fields {
		value := answers[field.ID]
		if strings.TrimSpace(value) == "" {
			continue
		}
		lines = append(lines, strings.Repeat(indentUnit, depth)+fmt.Sprintf("%s: %s", field.Name, value))
		if !field.Type.Choice() {
			continue
		}
		selected := SplitAnswer(value)
		for _, opt := range field.Options {
			if !contains(selected, opt.Value) {
				continue
			}
			if children, ok := field.SubFields[opt.ID]; ok {
				lines = append(lines, displayLines(children, answers, depth+1)...)
			}
		}
	}
	return lines
}

// Breakdown counts, per choice field name, how many payments selected each
// option value, recursing into sub-fields of selected options. Each payment
// contributes at most once per value. Dangling values (no longer present in
// the field's options) are still counted under what was actually recorded.
func Breakdown(fields []models.CustomField, payments []models.Payment) map[string]map[string]int {
	breakdown := make(map[string]map[string]int)
	for _, payment := range payments {
		countFields(fields, payment.Answers, breakdown)
	}
	return breakdown
}

func countFields(fields []models.CustomField, answers models.AnswerSet, breakdown map[string]map[string]int) {
	for _, field := range fields {
		if !field.Type.Choice() {
			continue
		}
		selected := SplitAnswer(answers[field.ID])
		for _, value := range selected {
			if breakdown[field.Name] == nil {
				breakdown[field.Name] = make(map[string]int)
			}
			breakdown[field.Name][value]++

			if opt, ok := field.Option(value); ok {
				if children, ok := field.SubFields[opt.ID]; ok {
					countFields(children, answers, breakdown)
				}
			}
		}
	}
}
