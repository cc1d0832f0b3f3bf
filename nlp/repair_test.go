package nlp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `{
  "business_details": "Family-run bakery in Lahore",
  "business_type": "Retail food",
  "goals": "Take orders online",
  "target_audience": "Local households",
  "technology_preferences": ["web", "mobile"],
  "pain_points": "Phone orders get lost",
  "proposed_solution": "Problem: orders are untracked. Plan: 1..5. Platforms: web, Android."
}`

func assertWellFormed(t *testing.T, out *BusinessExtract) {
	t.Helper()
	require.NotNil(t, out.BusinessDetails)
	assert.Equal(t, "Family-run bakery in Lahore", *out.BusinessDetails)
	require.NotNil(t, out.BusinessType)
	assert.Equal(t, "Retail food", *out.BusinessType)
	assert.Equal(t, "Take orders online", out.Goals)
	assert.Equal(t, []string{"web", "mobile"}, out.TechnologyPreferences)
	assert.Equal(t, "Phone orders get lost", out.PainPoints)
}

func TestRepairTier1DirectParse(t *testing.T) {
	out, extractErr := RepairAndParse(wellFormed)
	require.Nil(t, extractErr)
	assertWellFormed(t, out)
}

func TestRepairTier1StripsCodeFences(t *testing.T) {
	fenced := "```json\n" + wellFormed + "\n```"
	out, extractErr := RepairAndParse(fenced)
	require.Nil(t, extractErr)
	assertWellFormed(t, out)
}

func TestRepairTier1StripsUppercaseFence(t *testing.T) {
	fenced := "```JSON\n" + wellFormed + "\n```"
	out, extractErr := RepairAndParse(fenced)
	require.Nil(t, extractErr)
	assertWellFormed(t, out)
}

func TestRepairTier2TrimsSurroundingCommentary(t *testing.T) {
	chatty := "Sure! Here is the JSON you asked for:\n" + wellFormed + "\nLet me know if you need anything else."
	out, extractErr := RepairAndParse(chatty)
	require.Nil(t, extractErr)
	assertWellFormed(t, out)
}

func TestRepairTier3FlattensControlCharacters(t *testing.T) {
	// an unescaped newline inside a string value breaks strict JSON parsing
	broken := "{\"business_details\": \"line one\nline two\", \"business_type\": \"Retail\", \"goals\": \"\", \"target_audience\": \"\", \"technology_preferences\": [], \"pain_points\": \"\", \"proposed_solution\": \"\"}"
	out, extractErr := RepairAndParse(broken)
	require.Nil(t, extractErr)
	require.NotNil(t, out.BusinessDetails)
	assert.Equal(t, "line one line two", *out.BusinessDetails)
}

func TestRepairUnrecoverableKeepsRawText(t *testing.T) {
	raw := "I could not produce JSON today { this is broken :"
	out, extractErr := RepairAndParse(raw)

	assert.Nil(t, out)
	require.NotNil(t, extractErr)
	assert.Equal(t, "Invalid JSON from Groq", extractErr.Error)
	assert.Equal(t, raw, extractErr.Raw, "raw model text must be preserved")
	assert.NotEmpty(t, extractErr.Attempted)
}

func TestRepairEmptyResponse(t *testing.T) {
	out, extractErr := RepairAndParse("")
	assert.Nil(t, out)
	require.NotNil(t, extractErr)
	assert.Equal(t, "", extractErr.Raw)
}

func TestRepairNonObjectResponse(t *testing.T) {
	out, extractErr := RepairAndParse(`"just a string"`)
	assert.Nil(t, out)
	require.NotNil(t, extractErr)
}

func TestRepairRoundTripKeysMatchSchema(t *testing.T) {
	out, extractErr := RepairAndParse(wellFormed)
	require.Nil(t, extractErr)

	// marshaling back must produce exactly the schema's keys
	b, err := json.Marshal(out)
	require.NoError(t, err)
	for _, key := range []string{
		"business_details", "business_type", "goals", "target_audience",
		"technology_preferences", "pain_points", "proposed_solution",
	} {
		assert.Contains(t, string(b), `"`+key+`"`)
	}
}
