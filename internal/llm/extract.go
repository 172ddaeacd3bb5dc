package llm

import (
	"encoding/json"
	"strings"
)

// Extraction is the result of pulling a JSON object out of a model reply.
// When Degraded is true the reply could not be parsed and Raw carries the
// full original text so no information is lost. SpanFound distinguishes a
// located-but-unparseable object from a reply with no object at all.
type Extraction struct {
	Fields    map[string]interface{}
	Raw       string
	Degraded  bool
	SpanFound bool
}

// String returns the named field as a string, or fallback when absent or
// not a string.
func (e Extraction) String(key, fallback string) string {
	if v, ok := e.Fields[key].(string); ok {
		return v
	}
	return fallback
}

// ExtractObject locates a JSON object in free text: first '{' to the last
// '}', greedily, tolerating preamble and postamble prose the model may
// emit despite instructions. It never fails — unparseable input yields a
// degraded sentinel carrying the raw text. Nested unrelated braces in
// prose are deliberately not handled; the simple greedy span is enough
// for instruction-following replies.
func ExtractObject(text string) Extraction {
	start := strings.Index(text, "{")
	if start < 0 {
		return degraded(text, false)
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return degraded(text, false)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err != nil {
		return degraded(text, true)
	}
	return Extraction{Fields: fields, Raw: text, SpanFound: true}
}

func degraded(text string, spanFound bool) Extraction {
	return Extraction{
		Fields:    map[string]interface{}{},
		Raw:       text,
		Degraded:  true,
		SpanFound: spanFound,
	}
}
