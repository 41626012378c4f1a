package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseObject reads message content as one JSON object. Content wrapped in
// Markdown fences is retried with the fences removed. Failure is a
// content-stage *FormatError carrying the original text.
func ParseObject(content string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	err := json.Unmarshal([]byte(strings.TrimSpace(content)), &fields)
	if err != nil {
		err = json.Unmarshal([]byte(StripFences(content)), &fields)
	}
	if err == nil && fields == nil {
		err = fmt.Errorf("content is not a JSON object")
	}
	if err != nil {
		return nil, &FormatError{Stage: StageContent, Raw: content, Err: err}
	}
	return fields, nil
}

// StripFences removes ```json and ``` markers wherever they appear.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// IsAbsent reports whether a field is missing or null.
func IsAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// String returns a JSON string field trimmed, or the literal text of a
// number. Anything else is "".
func String(raw json.RawMessage) string {
	if IsAbsent(raw) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// Int reads a JSON number or numeric string, rounded to the nearest integer.
func Int(raw json.RawMessage) (int, bool) {
	if IsAbsent(raw) {
		return 0, false
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return int(math.Round(f)), true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(math.Round(f)), true
		}
	}
	return 0, false
}

// Strings reads a list of strings, keeping other scalars as text. A single
// string becomes a one-element list. The result is never nil.
func Strings(raw json.RawMessage) []string {
	out := []string{}
	if IsAbsent(raw) {
		return out
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		if s := String(raw); s != "" {
			out = append(out, s)
		}
		return out
	}
	for _, item := range items {
		if s := String(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
