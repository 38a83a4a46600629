package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

func TestResolveAmountDueFallsBackWithoutFields(t *testing.T) {
	got := ResolveAmountDue(nil, models.AnswerSet{"anything": "ignored"}, amount(100))
	assert.Equal(t, 100.0, got)

	got = ResolveAmountDue(nil, nil, nil)
	assert.Equal(t, 0.0, got)
}

func TestResolveAmountDueSumsMultiSelect(t *testing.T) {
	fields := []models.CustomField{shirtField()}
	answers := models.AnswerSet{"f-shirt": "Small, Large"}

	got := ResolveAmountDue(fields, answers, amount(500))
	assert.Equal(t, 330.0, got)
}

func TestResolveAmountDueDrillsIntoSelectedSubFields(t *testing.T) {
	fields := []models.CustomField{sizeColorField()}
	// Large itself has no amount; the active Color sub-field carries it.
	answers := models.AnswerSet{"f-size": "Large", "f-color": "Blue"}

	got := ResolveAmountDue(fields, answers, amount(75))
	assert.Equal(t, 20.0, got)
}

func TestResolveSkipsSubFieldsOfUnselectedOptions(t *testing.T) {
	fields := []models.CustomField{sizeColorField()}
	// Color answered but its owning option Large is not selected.
	answers := models.AnswerSet{"f-size": "Medium", "f-color": "Blue"}

	res := Resolve(fields, answers)
	assert.False(t, res.Matched)
	assert.Equal(t, 0.0, res.Total)
	assert.Equal(t, 75.0, ResolveAmountDue(fields, answers, amount(75)))
}

func TestResolveAmountDueDanglingValueFallsBack(t *testing.T) {
	field := sizeColorField()
	field.Options = field.Options[1:] // Medium deleted after answers recorded

	got := ResolveAmountDue([]models.CustomField{field}, models.AnswerSet{"f-size": "Medium"}, amount(50))
	assert.Equal(t, 50.0, got)
}

func TestResolveAmountDueZeroPricedMatchSuppressesFallback(t *testing.T) {
	fields := []models.CustomField{
		{
			ID:      "f1",
			Name:    "Waiver",
			Type:    models.FieldTypeOption,
			Options: []models.FieldOption{{ID: "o1", Value: "Scholar", Amount: amount(0)}},
		},
	}

	got := ResolveAmountDue(fields, models.AnswerSet{"f1": "Scholar"}, amount(100))
	assert.Equal(t, 0.0, got)
}

func TestResolveSumsAcrossBranches(t *testing.T) {
	fields := []models.CustomField{shirtField(), sizeColorField()}
	answers := models.AnswerSet{
		"f-shirt": "Small",
		"f-size":  "Large",
		"f-color": "Red",
	}

	res := Resolve(fields, answers)
	assert.True(t, res.Matched)
	assert.Equal(t, 160.0, res.Total)
}

func TestResolveIgnoresTextFieldsAndForeignAnswers(t *testing.T) {
	fields := []models.CustomField{
		{ID: "f-note", Name: "Note", Type: models.FieldTypeText},
		shirtField(),
	}
	answers := models.AnswerSet{
		"f-note":       "paid in coins",
		"f-deleted":    "Large",
		"f-shirt":      "Large",
		"unrelated-id": "Small",
	}

	res := Resolve(fields, answers)
	assert.Equal(t, 180.0, res.Total)
}

func TestResolveDeterministic(t *testing.T) {
	fields := []models.CustomField{shirtField(), sizeColorField()}
	answers := models.AnswerSet{"f-shirt": "Small, Large", "f-size": "Large", "f-color": "Blue"}

	first := Resolve(fields, answers)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Resolve(fields, answers))
	}
}

func TestSplitAnswer(t *testing.T) {
	assert.Nil(t, SplitAnswer(""))
	assert.Equal(t, []string{"Small"}, SplitAnswer("Small"))
	assert.Equal(t, []string{"Small", "Large"}, SplitAnswer("Small, Large"))
	// A trailing separator leaves no phantom selection.
	assert.Equal(t, []string{"Small"}, SplitAnswer("Small, "))
}
