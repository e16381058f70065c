package quiz

import (
	"fmt"
	"regexp"
	"strings"
)

// BlankToken is the marker a fill_blank question uses for its gap.
const BlankToken = "___"

// blankMarker matches one gap: a run of three or more underscores.
var blankMarker = regexp.MustCompile(`_{3,}`)

// CountBlanks returns the number of blank markers in s.
func CountBlanks(s string) int {
	return len(blankMarker.FindAllStringIndex(s, -1))
}

// Field describes one required property of a question object.
type Field struct {
	Name        string
	JSONType    string // "string" or "boolean"
	Description string
	Enum        []string
	Pattern     string
}

// Schema is the field structure and quality rules for one quiz type.
type Schema struct {
	Type   Type
	Label  string
	Fields []Field
	Rules  []string
}

var (
	questionField = Field{Name: "question", JSONType: "string", Description: "The question text"}
	categoryField = Field{Name: "category", JSONType: "string", Description: "Category of the question"}
	levelField    = Field{Name: "level", JSONType: "string", Description: "Bloom taxonomy level of the question",
		Enum: []string{"C1", "C2", "C3", "C4", "C5", "C6"}}
)

// SchemaFor returns the schema of a quiz type.
func SchemaFor(t Type) (Schema, error) {
	switch t {
	case MultipleChoice:
		return Schema{
			Type:  t,
			Label: "multiple choice",
			Fields: []Field{
				questionField,
				{Name: "option_a", JSONType: "string", Description: "Option A"},
				{Name: "option_b", JSONType: "string", Description: "Option B"},
				{Name: "option_c", JSONType: "string", Description: "Option C"},
				{Name: "option_d", JSONType: "string", Description: "Option D"},
				{Name: "answer", JSONType: "string", Description: "Letter of the correct option",
					Enum: []string{"A", "B", "C", "D"}},
				categoryField,
				levelField,
			},
			Rules: []string{
				"The question must be clear and easy to understand.",
				"All four options (A, B, C, D) must be plausible and relevant.",
				"Exactly one option is correct.",
				"Use neutral language.",
				"Each question must match the requested difficulty level.",
			},
		}, nil
	case TrueFalse:
		return Schema{
			Type:  t,
			Label: "true/false",
			Fields: []Field{
				{Name: "question", JSONType: "string", Description: "A statement that is either true or false"},
				{Name: "answer", JSONType: "boolean", Description: "Whether the statement is true"},
				categoryField,
				levelField,
			},
			Rules: []string{
				"The statement must be clear and unambiguous.",
				"The answer can only be true or false.",
				"Avoid confusing or trick statements.",
				"Each question must match the requested difficulty level.",
			},
		}, nil
	case FillBlank:
		return Schema{
			Type:  t,
			Label: "fill in the blank",
			Fields: []Field{
				{Name: "question", JSONType: "string",
					Description: "Sentence containing exactly one " + BlankToken + " marking the missing part",
					Pattern:     "^[^_]*_{3,}[^_]*$"},
				{Name: "answer", JSONType: "string", Description: "The word or short phrase that fills the blank"},
				categoryField,
				levelField,
			},
			Rules: []string{
				"The question must be clear and easy to understand.",
				"The answer must follow from the context.",
				"Use '" + BlankToken + "' for the blank, exactly once per question.",
				"The answer must be a single word or short phrase.",
				"Focus on one key concept per question.",
				"Each question must match the requested difficulty level.",
			},
		}, nil
	default:
		return Schema{}, &ValidationError{Field: "quiz_type", Reason: fmt.Sprintf("no schema for %s", t)}
	}
}

// FieldNames returns the required field names in order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// ItemSchema returns the JSON Schema of a single question object.
func (s Schema) ItemSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		p := map[string]any{"type": f.JSONType, "description": f.Description}
		if len(f.Enum) > 0 {
			p["enum"] = f.Enum
		}
		if f.Pattern != "" {
			p["pattern"] = f.Pattern
		}
		props[f.Name] = p
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             s.FieldNames(),
		"additionalProperties": false,
	}
}

// JSONSchema returns the function-calling parameter schema: an object holding a
// "questions" array of 1..maxItems items.
func (s Schema) JSONSchema(maxItems int) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"items":    s.ItemSchema(),
				"minItems": 1,
				"maxItems": maxItems,
			},
		},
		"required":             []string{"questions"},
		"additionalProperties": false,
	}
}

// Describe renders the fields and allowed values for the user instruction.
func (s Schema) Describe() string {
	var b strings.Builder
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "- %s (%s): %s", f.Name, f.JSONType, f.Description)
		if len(f.Enum) > 0 {
			fmt.Fprintf(&b, "; one of %s", strings.Join(f.Enum, ", "))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
