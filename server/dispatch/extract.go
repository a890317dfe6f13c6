package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONSpan means the reply held no opening/closing delimiter pair.
var ErrNoJSONSpan = errors.New("no JSON span in reply")

// ExtractJSONSpan returns the text from the first opening delimiter to the
// last closing delimiter for mode, inclusive. It is the greedy span a model
// reply is most likely to hold its payload in, even when wrapped in prose or
// a markdown fence. ok is false if no such span exists.
func ExtractJSONSpan(text string, mode Mode) (span string, ok bool) {
	open, close := mode.delims()
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, close)
	if end < start {
		return "", false
	}
	return text[start : end+1], true
}

// Extract decodes the JSON payload of a model reply. The greedy span is
// tried first. If it does not parse, for example because prose after the
// payload contains a stray delimiter, the balanced spans are tried instead.
// A balanced span is accepted only when it is the one span in the reply
// that parses; when several parse the reply is ambiguous and fails.
func Extract(text string, mode Mode) (interface{}, error) {
	text = strings.TrimSpace(text)

	span, ok := ExtractJSONSpan(text, mode)
	if !ok {
		return nil, ErrNoJSONSpan
	}

	v, firstErr := decodeSpan(span, mode)
	if firstErr == nil {
		return v, nil
	}

	open, close := mode.delims()
	var found interface{}
	parsed := 0
	for _, candidate := range balancedSpans(text, open, close) {
		if candidate == span {
			continue
		}
		if v, err := decodeSpan(candidate, mode); err == nil {
			found = v
			parsed++
		}
	}
	switch parsed {
	case 0:
		return nil, fmt.Errorf("decode %s span: %w", mode, firstErr)
	case 1:
		return found, nil
	default:
		return nil, fmt.Errorf("decode %s span: %d candidate spans parse: %w", mode, parsed, firstErr)
	}
}

func decodeSpan(span string, mode Mode) (interface{}, error) {
	if mode == ModeArray {
		var arr []interface{}
		if err := json.Unmarshal([]byte(span), &arr); err != nil {
			return nil, err
		}
		return arr, nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// balancedSpans returns every top-level open..close span in text, in order.
// Delimiters inside JSON string literals are ignored once a span has
// started; quotes in surrounding prose are not treated as strings.
func balancedSpans(text string, open, close byte) []string {
	var spans []string
	depth, start := 0, -1
	inString, escaped := false, false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth > 0 {
				depth--
				if depth == 0 {
					spans = append(spans, text[start:i+1])
				}
			}
		}
	}
	return spans
}
