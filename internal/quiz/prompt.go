package quiz

import (
	"fmt"
	"strings"
)

// ToolName is the function the generation provider is asked to call.
const ToolName = "submit_questions"

// Instructions is the composed generation request.
type Instructions struct {
	System string
	User   string
}

// BuildInstructions composes the system and user instructions for spec, grounding
// the questions in context.
func BuildInstructions(spec Spec, grounding string) (Instructions, error) {
	schema, err := SchemaFor(spec.Type)
	if err != nil {
		return Instructions{}, err
	}
	bloom, ok := Bloom(spec.Level)
	if !ok {
		return Instructions{}, &ValidationError{Field: "level", Reason: fmt.Sprintf("%s not in C1..C6", spec.Level)}
	}

	var sys strings.Builder
	fmt.Fprintf(&sys, "You write %s quiz questions grounded strictly in the provided context.\n\n", schema.Label)
	fmt.Fprintf(&sys, "Rules for %s questions:\n", schema.Label)
	for i, r := range schema.Rules {
		fmt.Fprintf(&sys, "%d. %s\n", i+1, r)
	}
	fmt.Fprintf(&sys, "\nTarget Bloom taxonomy level:\n%s\n", bloom.Describe())
	fmt.Fprintf(&sys, "\nBloom taxonomy reference:\n%s\n", TaxonomyText())
	fmt.Fprintf(&sys, "\nRespond only by calling %s.", ToolName)

	var usr strings.Builder
	fmt.Fprintf(&usr, "Create %d %s questions from the following context:\n", spec.NumQuestions, schema.Label)
	fmt.Fprintf(&usr, "<context>\n%s\n</context>\n\n", grounding)
	fmt.Fprintf(&usr, "Category: %s\n", spec.Category)
	fmt.Fprintf(&usr, "Level: %s (%s)\n", spec.Level, bloom.Name)
	fmt.Fprintf(&usr, "Number of questions: %d\n\n", spec.NumQuestions)
	fmt.Fprintf(&usr, "Return {\"questions\": [...]} where every question has exactly these fields:\n%s\n", schema.Describe())
	fmt.Fprintf(&usr, "Every question's level must be %s and its category must be %q.", spec.Level, spec.Category)

	return Instructions{System: sys.String(), User: usr.String()}, nil
}
