package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

func TestDisplayStringRendersAnsweredFieldsOnly(t *testing.T) {
	fields := []models.CustomField{
		{ID: "f-note", Name: "Note", Type: models.FieldTypeText},
		shirtField(),
	}
	answers := models.AnswerSet{"f-shirt": "Small, Large"}

	got := DisplayString(fields, answers)
	assert.Equal(t, "Shirt: Small, Large", got)
}

func TestDisplayStringJoinsFieldsWithBullets(t *testing.T) {
	fields := []models.CustomField{
		{ID: "f-note", Name: "Note", Type: models.FieldTypeText},
		shirtField(),
	}
	answers := models.AnswerSet{"f-note": "late payer", "f-shirt": "Small"}

	got := DisplayString(fields, answers)
	assert.Equal(t, "Note: late payer • Shirt: Small", got)
}

func TestDisplayStringAppendsActiveSubFields(t *testing.T) {
	fields := []models.CustomField{sizeColorField()}
	answers := models.AnswerSet{"f-size": "Large", "f-color": "Blue"}

	got := DisplayString(fields, answers)
	assert.Equal(t, "Size: Large - Color: Blue", got)
}

func TestDisplayStringKeepsDanglingAnswerText(t *testing.T) {
	field := sizeColorField()
	field.Options = field.Options[1:] // Medium removed from the schema

	got := DisplayString([]models.CustomField{field}, models.AnswerSet{"f-size": "Medium"})
	assert.Equal(t, "Size: Medium", got)
}

func TestDisplayStringSkipsSubFieldsOfUnselectedOption(t *testing.T) {
	fields := []models.CustomField{sizeColorField()}
	answers := models.AnswerSet{"f-size": "Medium", "f-color": "Blue"}

	got := DisplayString(fields, answers)
	assert.Equal(t, "Size: Medium", got)
}

func TestDisplayStringDeletedFieldRendersNothing(t *testing.T) {
	got := DisplayString(nil, models.AnswerSet{"f-gone": "Large"})
	assert.Empty(t, got)
}

func TestDisplayLinesIndentsSubFields(t *testing.T) {
	fields := []models.CustomField{sizeColorField(), {ID: "f-note", Name: "Note", Type: models.FieldTypeText}}
	answers := models.AnswerSet{"f-size": "Large", "f-color": "Red", "f-note": "ok"}

	lines := DisplayLines(fields, answers)
	require.Len(t, lines, 3)
	assert.Equal(t, "Size: Large", lines[0])
	assert.Equal(t, "  Color: Red", lines[1])
	assert.Equal(t, "Note: ok", lines[2])
}

func TestBreakdownCountsSelectionsPerOption(t *testing.T) {
	fields := []models.CustomField{shirtField()}
	payments := []models.Payment{
		{StudentID: "s1", Answers: models.AnswerSet{"f-shirt": "Small, Large"}},
		{StudentID: "s2", Answers: models.AnswerSet{"f-shirt": "Large"}},
		{StudentID: "s3", Answers: models.AnswerSet{}},
	}

	got := Breakdown(fields, payments)
	require.Contains(t, got, "Shirt")
	assert.Equal(t, 1, got["Shirt"]["Small"])
	assert.Equal(t, 2, got["Shirt"]["Large"])
}

func TestBreakdownRecursesIntoActiveSubFields(t *testing.T) {
	fields := []models.CustomField{sizeColorField()}
	payments := []models.Payment{
		{StudentID: "s1", Answers: models.AnswerSet{"f-size": "Large", "f-color": "Blue"}},
		{StudentID: "s2", Answers: models.AnswerSet{"f-size": "Medium", "f-color": "Blue"}},
	}

	got := Breakdown(fields, payments)
	assert.Equal(t, 1, got["Size"]["Large"])
	assert.Equal(t, 1, got["Size"]["Medium"])
	// s2's Color answer is inactive (Medium has no sub-fields), so only s1 counts.
	assert.Equal(t, 1, got["Color"]["Blue"])
}

func TestBreakdownCountsDanglingValues(t *testing.T) {
	field := sizeColorField()
	field.Options = field.Options[1:]
	payments := []models.Payment{{StudentID: "s1", Answers: models.AnswerSet{"f-size": "Medium"}}}

	got := Breakdown([]models.CustomField{field}, payments)
	assert.Equal(t, 1, got["Size"]["Medium"])
}
