package models

// FieldType enumerates the supported custom field kinds.
type FieldType string

const (
	// FieldTypeText is a free-form text question.
	FieldTypeText FieldType = "text"
	// FieldTypeOption is a single-choice question.
	FieldTypeOption FieldType = "option"
	// FieldTypeCheckbox is a multi-choice question.
	FieldTypeCheckbox FieldType = "checkbox"
)

// Choice reports whether the field type carries options.
func (t FieldType) Choice() bool {
	return t == FieldTypeOption || t == FieldTypeCheckbox
}

// FieldOption is a single selectable choice of an option or checkbox field.
// Value is the human label and the match key for recorded answers; Amount,
// when set, contributes to the student's amount due once the option is
// selected.
type FieldOption struct {
	ID     string   `json:"id"`
	Value  string   `json:"value"`
	Amount *float64 `json:"amount,omitempty"`
}

// CustomField is one node of a collection's conditional question tree.
// SubFields maps an option id of this field to the child fields that become
// active when that option is selected, forming an option-indexed forest of
// unbounded depth. ValueSetID records which value set the options were
// snapshotted from; the snapshot does not follow later value-set edits.
type CustomField struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Type       FieldType                `json:"type"`
	Options    []FieldOption            `json:"options,omitempty"`
	SubFields  map[string][]CustomField `json:"subFields,omitempty"`
	ValueSetID string                   `json:"valueSetId,omitempty"`
}

// Linked reports whether the field's options are snapshotted from a value set.
// Linked options are read-only in the editor until the field is unlinked.
func (f CustomField) Linked() bool {
	return f.ValueSetID != ""
}

// Option returns the option with the given display value, if present.
func (f CustomField) Option(value string) (FieldOption, bool) {
	for _, opt := range f.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return FieldOption{}, false
}

// ValueSet is a named, reusable list of options that fields can snapshot-copy.
// It has an independent lifecycle; deleting a set leaves previously linked
// fields with their copied options and a dangling ValueSetID.
type ValueSet struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Options []FieldOption `json:"options"`
}

// AnswerSet maps a field id to the recorded string value on a payment. Choice
// answers hold the selected option values joined by ", " in selection order.
type AnswerSet map[string]string
