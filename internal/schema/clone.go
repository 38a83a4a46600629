package schema

import (
	"github.com/google/uuid"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

// CloneField deep-copies a field and all its descendants, assigning fresh ids
// at every level. Sub-field branches are re-keyed through the old-to-new
// option id mapping, so the clone shares no identity or mutable structure
// with the source. A branch keyed by an option id with no mapping is dropped.
func CloneField(field models.CustomField) models.CustomField {
	clone := field
	clone.ID = uuid.NewString()

	optionIDs := make(map[string]string, len(field.Options))
	if len(field.Options) > 0 {
		clone.Options = make([]models.FieldOption, len(field.Options))
		for i, opt := range field.Options {
			newID := uuid.NewString()
			optionIDs[opt.ID] = newID
			opt.ID = newID
			clone.Options[i] = opt
		}
	}

	if len(field.SubFields) > 0 {
		clone.SubFields = make(map[string][]models.CustomField, len(field.SubFields))
		for oldOptionID, children := range field.SubFields {
			newOptionID, ok := optionIDs[oldOptionID]
			if !ok {
				continue
			}
			cloned := make([]models.CustomField, len(children))
			for i, child := range children {
				cloned[i] = CloneField(child)
			}
			clone.SubFields[newOptionID] = cloned
		}
	}

	return clone
}
