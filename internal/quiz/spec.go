package quiz

import (
	"fmt"
	"strings"
)

// Bounds on the number of questions per request.
const (
	MinQuestions = 1
	MaxQuestions = 10
)

// Spec is a single quiz request. Context is the retrieval query for the material.
type Spec struct {
	Type         Type
	Category     string
	Level        Level
	NumQuestions int
	Context      string
}

// ValidationError reports an invalid request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewSpec parses string inputs into a validated Spec.
func NewSpec(quizType, category, level string, numQuestions int, context string) (Spec, error) {
	t, err := ParseType(quizType)
	if err != nil {
		return Spec{}, err
	}
	l, err := ParseLevel(level)
	if err != nil {
		return Spec{}, err
	}
	s := Spec{Type: t, Category: category, Level: l, NumQuestions: numQuestions, Context: context}
	return s, s.Validate()
}

// Validate checks every field of the request.
func (s Spec) Validate() error {
	switch {
	case !s.Type.Valid():
		return &ValidationError{Field: "quiz_type", Reason: fmt.Sprintf("unknown quiz type %s", s.Type)}
	case !s.Level.Valid():
		return &ValidationError{Field: "level", Reason: fmt.Sprintf("%s not in C1..C6", s.Level)}
	case s.NumQuestions < MinQuestions || s.NumQuestions > MaxQuestions:
		return &ValidationError{Field: "num_questions",
			Reason: fmt.Sprintf("%d not in [%d, %d]", s.NumQuestions, MinQuestions, MaxQuestions)}
	case strings.TrimSpace(s.Category) == "":
		return &ValidationError{Field: "category", Reason: "must not be empty"}
	case strings.TrimSpace(s.Context) == "":
		return &ValidationError{Field: "context", Reason: "must not be empty"}
	}
	return nil
}
