package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

func sizesValueSet() models.ValueSet {
	return models.ValueSet{
		ID:   "vs-sizes",
		Name: "Shirt Sizes",
		Options: []models.FieldOption{
			{ID: "vo-s", Value: "Small", Amount: amount(150)},
			{ID: "vo-l", Value: "Large", Amount: amount(180)},
		},
	}
}

func TestLinkValueSetSnapshotsOptions(t *testing.T) {
	field := models.CustomField{
		ID:      "f1",
		Name:    "Shirt",
		Type:    models.FieldTypeCheckbox,
		Options: []models.FieldOption{{ID: "o-old", Value: "Old"}},
	}
	set := sizesValueSet()

	linked := LinkValueSet(field, set)
	assert.Equal(t, "vs-sizes", linked.ValueSetID)
	assert.True(t, linked.Linked())
	require.Len(t, linked.Options, 2)
	assert.Equal(t, "Small", linked.Options[0].Value)

	// The snapshot is a copy: later set edits must not reach the field.
	set.Options[0].Value = "Tiny"
	*set.Options[1].Amount = 999
	assert.Equal(t, "Small", linked.Options[0].Value)
	assert.Equal(t, amount(180), linked.Options[1].Amount)
}

func TestUnlinkKeepsOptionsEditable(t *testing.T) {
	field := LinkValueSet(models.CustomField{ID: "f1", Name: "Shirt", Type: models.FieldTypeOption}, sizesValueSet())

	unlinked := Unlink(field)
	assert.False(t, unlinked.Linked())
	assert.Len(t, unlinked.Options, 2)
}

func TestSubFieldFromValueSet(t *testing.T) {
	sub := SubFieldFromValueSet(sizesValueSet())
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "Shirt Sizes", sub.Name)
	assert.Equal(t, models.FieldTypeOption, sub.Type)
	assert.Equal(t, "vs-sizes", sub.ValueSetID)
	require.Len(t, sub.Options, 2)
}
