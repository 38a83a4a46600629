// Package schema implements the custom-field tree at the heart of a
// collection: validation and pruning before persistence, deep cloning,
// value-set snapshots, and the valuation and display projections over a
// recorded answer set. All functions are pure; callers own persistence.
package schema

import (
	"strings"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

// Report lists everything Normalize discarded, so callers can tell a clean
// save from one that silently pruned nodes.
type Report struct {
	DroppedFieldIDs  []string `json:"dropped_field_ids,omitempty"`
	DroppedOptionIDs []string `json:"dropped_option_ids,omitempty"`
}

// Empty reports whether normalization dropped nothing.
func (r Report) Empty() bool {
	return len(r.DroppedFieldIDs) == 0 && len(r.DroppedOptionIDs) == 0
}

func (r *Report) merge(other Report) {
	r.DroppedFieldIDs = append(r.DroppedFieldIDs, other.DroppedFieldIDs...)
	r.DroppedOptionIDs = append(r.DroppedOptionIDs, other.DroppedOptionIDs...)
}

// Normalize returns a cleaned deep copy of the field tree ready for
// persistence, plus a report of what was pruned. The input is never mutated.
//
// Rules: names and option values are trimmed; options with empty values are
// dropped; a field is dropped when its trimmed name is empty or, for choice
// types, when no options survive; text fields never carry options or
// sub-fields; sub-field branches are normalized bottom-up and empty branches
// (including branches keyed by an option that no longer exists) are removed.
// Normalize is idempotent and preserves all surviving ids.
func Normalize(fields []models.CustomField) ([]models.CustomField, Report) {
	var report Report
	out := make([]models.CustomField, 0, len(fields))

	for _, field := range fields {
		cleaned, ok, fieldReport := normalizeField(field)
		report.merge(fieldReport)
		if !ok {
			report.DroppedFieldIDs = append(report.DroppedFieldIDs, field.ID)
			report.merge(collectSubtree(field))
			continue
		}
		out = append(out, cleaned)
	}
	if len(out) == 0 {
		return nil, report
	}
	return out, report
}

func normalizeField(field models.CustomField) (models.CustomField, bool, Report) {
	var report Report

	cleaned := field
	cleaned.Name = strings.TrimSpace(field.Name)
	if cleaned.Name == "" {
		return models.CustomField{}, false, report
	}

	if !field.Type.Choice() {
		cleaned.Options = nil
		cleaned.SubFields = nil
		cleaned.ValueSetID = ""
		return cleaned, true, report
	}

	options := make([]models.FieldOption, 0, len(field.Options))
	kept := make(map[string]bool, len(field.Options))
	for _, opt := range field.Options {
		opt.Value = strings.TrimSpace(opt.Value)
		if opt.Value == "" {
			report.DroppedOptionIDs = append(report.DroppedOptionIDs, opt.ID)
			continue
		}
		options = append(options, opt)
		kept[opt.ID] = true
	}
	if len(options) == 0 {
		// A choice field with no choices is meaningless.
		return models.CustomField{}, false, report
	}
	cleaned.Options = options

	// Sub-field branches are pruned before deciding whether the map stays,
	// and a branch whose owning option was just dropped goes with it.
	if len(field.SubFields) > 0 {
		subFields := make(map[string][]models.CustomField, len(field.SubFields))
		for optionID, children := range field.SubFields {
			if !kept[optionID] {
				for _, child := range children {
					report.DroppedFieldIDs = append(report.DroppedFieldIDs, child.ID)
					report.merge(collectSubtree(child))
				}
				continue
			}
			normalized, childReport := Normalize(children)
			report.merge(childReport)
			if len(normalized) > 0 {
				subFields[optionID] = normalized
			}
		}
		if len(subFields) > 0 {
			cleaned.SubFields = subFields
		} else {
			cleaned.SubFields = nil
		}
	}

	return cleaned, true, report
}

// collectSubtree gathers every descendant id of a field that is being dropped
// wholesale, so the report accounts for the full loss.
func collectSubtree(field models.CustomField) Report {
	var report Report
	for _, opt := range field.Options {
		report.DroppedOptionIDs = append(report.DroppedOptionIDs, opt.ID)
	}
	for _, children := range field.SubFields {
		for _, child := range children {
			report.DroppedFieldIDs = append(report.DroppedFieldIDs, child.ID)
			report.merge(collectSubtree(child))
		}
	}
	return report
}

// FieldIDs returns every field id in the tree, depth-first. Used to detect
// which recorded answers a schema edit would orphan.
func FieldIDs(fields []models.CustomField) []string {
	var ids []string
	walk(fields, func(field models.CustomField) {
		ids = append(ids, field.ID)
	})
	return ids
}

// FindField locates a field by id anywhere in the tree.
func FindField(fields []models.CustomField, id string) (models.CustomField, bool) {
	var found models.CustomField
	ok := false
	walk(fields, func(field models.CustomField) {
		if field.ID == id {
			found = field
			ok = true
		}
	})
	return found, ok
}

func walk(fields []models.CustomField, visit func(models.CustomField)) {
	for _, field := range fields {
		visit(field)
		for _, children := range field.SubFields {
			walk(children, visit)
		}
	}
}
