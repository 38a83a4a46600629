package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

func TestCloneFieldRegeneratesEveryID(t *testing.T) {
	source := sizeColorField()

	clone := CloneField(source)

	sourceIDs := map[string]bool{}
	for _, id := range FieldIDs([]models.CustomField{source}) {
		sourceIDs[id] = true
	}
	walk([]models.CustomField{source}, func(f models.CustomField) {
		for _, opt := range f.Options {
			sourceIDs[opt.ID] = true
		}
	})

	walk([]models.CustomField{clone}, func(f models.CustomField) {
		assert.False(t, sourceIDs[f.ID], "field id %s collides with source", f.ID)
		for _, opt := range f.Options {
			assert.False(t, sourceIDs[opt.ID], "option id %s collides with source", opt.ID)
		}
	})
}

func TestCloneFieldPreservesContentAndWiring(t *testing.T) {
	source := sizeColorField()

	clone := CloneField(source)

	assert.Equal(t, source.Name, clone.Name)
	assert.Equal(t, source.Type, clone.Type)
	require.Len(t, clone.Options, 2)
	assert.Equal(t, "Medium", clone.Options[0].Value)
	assert.Equal(t, "Large", clone.Options[1].Value)

	// The Color branch must hang off the NEW id of the Large option.
	largeID := clone.Options[1].ID
	children, ok := clone.SubFields[largeID]
	require.True(t, ok, "sub-fields not re-keyed to cloned option id")
	require.Len(t, children, 1)
	assert.Equal(t, "Color", children[0].Name)
	assert.Equal(t, amount(20), children[0].Options[1].Amount)
}

func TestCloneFieldIsIndependentOfSource(t *testing.T) {
	source := shirtField()

	clone := CloneField(source)
	clone.Options[0].Value = "Extra Small"
	*clone.Options[1].Amount = 999

	assert.Equal(t, "Small", source.Options[0].Value)
	assert.Equal(t, amount(180), source.Options[1].Amount)
}

func TestCloneFieldDropsUnmappedSubFieldBranch(t *testing.T) {
	source := sizeColorField()
	// Simulate drift: a branch keyed by an option id that is not in options.
	source.SubFields["o-gone"] = []models.CustomField{
		{ID: "f-orphan", Name: "Orphan", Type: models.FieldTypeText},
	}

	clone := CloneField(source)
	assert.Len(t, clone.SubFields, 1)
}
