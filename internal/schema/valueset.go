package schema

import (
	"github.com/google/uuid"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

// LinkValueSet replaces the field's options with a snapshot of the value
// set's current options and records the set id for traceability. The snapshot
// keeps the set's option ids, so a re-link after the set changes is a clean
// swap. Later edits to the set do not propagate; the field keeps its copy
// until explicitly re-linked. Sub-field branches keyed by replaced options go
// stale and are pruned on the next Normalize.
func LinkValueSet(field models.CustomField, set models.ValueSet) models.CustomField {
	field.Options = copyOptions(set.Options)
	field.ValueSetID = set.ID
	return field
}

// Unlink clears the value-set reference, leaving the current options in place
// and editable again.
func Unlink(field models.CustomField) models.CustomField {
	field.ValueSetID = ""
	return field
}

// SubFieldFromValueSet builds a new single-choice field named after the value
// set with a snapshot of its options, for attaching under a parent option.
func SubFieldFromValueSet(set models.ValueSet) models.CustomField {
	return models.CustomField{
		ID:         uuid.NewString(),
		Name:       set.Name,
		Type:       models.FieldTypeOption,
		Options:    copyOptions(set.Options),
		ValueSetID: set.ID,
	}
}

func copyOptions(options []models.FieldOption) []models.FieldOption {
	if len(options) == 0 {
		return nil
	}
	out := make([]models.FieldOption, len(options))
	for i, opt := range options {
		if opt.Amount != nil {
			amount := *opt.Amount
			opt.Amount = &amount
		}
		out[i] = opt
	}
	return out
}
