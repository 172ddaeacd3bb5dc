package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject_WellFormed(t *testing.T) {
	e := ExtractObject(`{"decision":"approve","reason":"uses Python"}`)
	require.False(t, e.Degraded)
	assert.Equal(t, "approve", e.String("decision", ""))
	assert.Equal(t, "uses Python", e.String("reason", ""))
}

func TestExtractObject_Idempotent(t *testing.T) {
	original := map[string]interface{}{
		"decision": "reject",
		"reason":   "theoretical only",
	}
	raw, err := json.Marshal(original)
	require.NoError(t, err)

	e := ExtractObject(string(raw))
	require.False(t, e.Degraded)
	assert.Equal(t, original, e.Fields)
}

func TestExtractObject_ToleratesProse(t *testing.T) {
	text := "Sure! Here is my decision:\n{\"decision\": \"approve\", \"reason\": \"automation\"}\nHope that helps."
	e := ExtractObject(text)
	require.False(t, e.Degraded)
	assert.Equal(t, "approve", e.String("decision", ""))
	assert.Equal(t, text, e.Raw)
}

func TestExtractObject_EmptyString(t *testing.T) {
	e := ExtractObject("")
	assert.True(t, e.Degraded)
	assert.Empty(t, e.Raw)
	assert.NotNil(t, e.Fields)
}

func TestExtractObject_NoBraces(t *testing.T) {
	e := ExtractObject("I refuse to answer in JSON today.")
	assert.True(t, e.Degraded)
	assert.False(t, e.SpanFound)
	assert.Equal(t, "I refuse to answer in JSON today.", e.Raw)
}

func TestExtractObject_SpanFoundButInvalid(t *testing.T) {
	// A brace span exists but does not parse: still degraded, but callers
	// can tell it apart from a reply with no object at all.
	e := ExtractObject(`here you go: {decision: approve, no quotes}`)
	assert.True(t, e.Degraded)
	assert.True(t, e.SpanFound)
	assert.Equal(t, `here you go: {decision: approve, no quotes}`, e.Raw)
}

func TestExtractObject_UnbalancedBraces(t *testing.T) {
	for _, text := range []string{"{", "}", "}{", `{"a": `, "prose } with { reversed"} {
		e := ExtractObject(text)
		assert.True(t, e.Degraded, "input %q", text)
		assert.False(t, e.SpanFound, "input %q", text)
		assert.Equal(t, text, e.Raw)
	}
}

func TestExtractObject_GreedySpan(t *testing.T) {
	// Greedy first-{ to last-} parses the outer object even when values
	// contain nested objects.
	e := ExtractObject(`{"outer": {"inner": 1}}`)
	require.False(t, e.Degraded)
	inner, ok := e.Fields["outer"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), inner["inner"])
}

func TestExtraction_StringFallback(t *testing.T) {
	e := ExtractObject(`{"n": 42}`)
	assert.Equal(t, "default", e.String("missing", "default"))
	assert.Equal(t, "default", e.String("n", "default"))
}
