// Package dispatch turns a logical query type plus free text into one chat
// completion call and pulls a structured JSON result out of the reply.
//
// The set of query types is closed. Each Kind maps to exactly one PromptSpec
// holding the template, generation parameters and the shape of JSON to
// extract; adding a type means adding one entry to defaultSpecs.
package dispatch

import "fmt"

// Kind is a logical query type.
type Kind string

const (
	KindSafety  Kind = "safety"
	KindAnswer  Kind = "answer"
	KindRelated Kind = "related"
	KindFacts   Kind = "facts"
)

// Kinds lists every supported Kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindSafety, KindAnswer, KindRelated, KindFacts}
}

// ParseKind returns the Kind named by s. Unknown names are an error; there
// is no default kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown query type %q", s)
}

// Mode selects which JSON container is extracted from a reply.
type Mode int

const (
	// ModeObject extracts a {...} span.
	ModeObject Mode = iota
	// ModeArray extracts a [...] span.
	ModeArray
)

func (m Mode) String() string {
	if m == ModeArray {
		return "array"
	}
	return "object"
}

func (m Mode) delims() (open, close byte) {
	if m == ModeArray {
		return '[', ']'
	}
	return '{', '}'
}
