package dispatch

import (
	"bytes"
	"fmt"
	"io"
	"text/template"

	"github.com/teilomillet/sift/config"
)

// PromptSpec is the immutable recipe for one Kind.
type PromptSpec struct {
	Kind        Kind
	Temperature float64
	MaxTokens   int
	Mode        Mode

	tmpl *template.Template
}

// Render substitutes query into the template verbatim. text/template does
// no escaping, so quotes and newlines in query reach the model unchanged.
func (s PromptSpec) Render(query string) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, struct{ Query string }{query}); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", s.Kind, err)
	}
	return buf.String(), nil
}

type specSource struct {
	template    string
	temperature float64
	maxTokens   int
	mode        Mode
}

var defaultSpecs = map[Kind]specSource{
	KindSafety: {
		template:    `Analyze if this search query contains 18+ or inappropriate content. Respond with ONLY a JSON object in this exact format: {"safe": true} or {"safe": false}. No other text. Query: "{{.Query}}"`,
		temperature: 0.1,
		maxTokens:   50,
		mode:        ModeObject,
	},
	KindAnswer: {
		template:    `Answer this search query concisely. Respond in ONLY valid JSON format with this exact structure: {"direct_answer": "brief answer here", "explanation": "detailed explanation here"}. No other text before or after the JSON. Query: "{{.Query}}"`,
		temperature: 0.3,
		maxTokens:   500,
		mode:        ModeObject,
	},
	KindRelated: {
		template:    `Generate 5 related search queries for: "{{.Query}}". Respond ONLY with a JSON array of strings, nothing else: ["search1", "search2", "search3", "search4", "search5"]`,
		temperature: 0.7,
		maxTokens:   200,
		mode:        ModeArray,
	},
	KindFacts: {
		template:    `If this query is about a specific topic, provide 3-5 quick facts as key-value pairs. Respond ONLY with JSON: {"title": "Topic Name", "facts": [{"label": "Fact Label", "value": "Fact Value"}]}. If not applicable, respond with: {"applicable": false}. Query: "{{.Query}}"`,
		temperature: 0.3,
		maxTokens:   400,
		mode:        ModeObject,
	},
}

// builtinTable is parsed once; it is never mutated after init.
var builtinTable = mustBuildTable(nil)

// SpecTable maps every Kind to its PromptSpec.
type SpecTable struct {
	specs map[Kind]PromptSpec
}

// DefaultSpecTable returns the built-in prompt specs.
func DefaultSpecTable() *SpecTable {
	return builtinTable
}

// NewSpecTable builds a table from the built-in specs with overrides applied.
// Override keys must name a known Kind. The extraction mode of a Kind cannot
// be overridden since it fixes the response shape.
func NewSpecTable(overrides map[string]config.PromptOverride) (*SpecTable, error) {
	if len(overrides) == 0 {
		return builtinTable, nil
	}
	return buildTable(overrides)
}

// Lookup returns the prompt spec for k.
func (t *SpecTable) Lookup(k Kind) (PromptSpec, bool) {
	s, ok := t.specs[k]
	return s, ok
}

func buildTable(overrides map[string]config.PromptOverride) (*SpecTable, error) {
	for name := range overrides {
		if _, err := ParseKind(name); err != nil {
			return nil, fmt.Errorf("prompt override: %w", err)
		}
	}

	specs := make(map[Kind]PromptSpec, len(defaultSpecs))
	for kind, src := range defaultSpecs {
		if o, ok := overrides[string(kind)]; ok {
			if o.Template != "" {
				src.template = o.Template
			}
			if o.Temperature != nil {
				src.temperature = *o.Temperature
			}
			if o.MaxTokens > 0 {
				src.maxTokens = o.MaxTokens
			}
		}

		if src.temperature < 0 || src.temperature > 1 {
			return nil, fmt.Errorf("%s prompt: temperature %v out of range [0,1]", kind, src.temperature)
		}
		if src.maxTokens <= 0 {
			return nil, fmt.Errorf("%s prompt: max tokens must be positive", kind)
		}

		tmpl, err := template.New(string(kind)).Option("missingkey=error").Parse(src.template)
		if err != nil {
			return nil, fmt.Errorf("%s prompt: parse template: %w", kind, err)
		}
		if err := tmpl.Execute(io.Discard, struct{ Query string }{}); err != nil {
			return nil, fmt.Errorf("%s prompt: %w", kind, err)
		}

		specs[kind] = PromptSpec{
			Kind:        kind,
			Temperature: src.temperature,
			MaxTokens:   src.maxTokens,
			Mode:        src.mode,
			tmpl:        tmpl,
		}
	}
	return &SpecTable{specs: specs}, nil
}

func mustBuildTable(overrides map[string]config.PromptOverride) *SpecTable {
	t, err := buildTable(overrides)
	if err != nil {
		panic(err)
	}
	return t
}
