// Package quiz defines the quiz question schemas, the Bloom taxonomy levels and the
// composer that turns retrieved context into validated questions.
package quiz

import (
	"fmt"
	"strings"
)

// Type is a quiz question type.
type Type int

const (
	MultipleChoice Type = iota + 1
	TrueFalse
	FillBlank
)

// Types lists every supported quiz type.
var Types = []Type{MultipleChoice, TrueFalse, FillBlank}

func (t Type) String() string {
	switch t {
	case MultipleChoice:
		return "multiple_choice"
	case TrueFalse:
		return "true_false"
	case FillBlank:
		return "fill_blank"
	default:
		return fmt.Sprintf("quiz_type(%d)", int(t))
	}
}

// Valid reports whether t is a known quiz type.
func (t Type) Valid() bool {
	return t >= MultipleChoice && t <= FillBlank
}

// ParseType accepts the canonical names and the legacy aliases
// "multiple", "multiple_choices" and "fill_the_blank".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "multiple_choice", "multiple", "multiple_choices":
		return MultipleChoice, nil
	case "true_false":
		return TrueFalse, nil
	case "fill_blank", "fill_the_blank":
		return FillBlank, nil
	default:
		return 0, &ValidationError{Field: "quiz_type", Reason: fmt.Sprintf("unknown quiz type %q", s)}
	}
}

// Level is a Bloom taxonomy level, C1 (remember) through C6 (create).
type Level int

const (
	C1 Level = iota + 1
	C2
	C3
	C4
	C5
	C6
)

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return fmt.Sprintf("C%d", int(l))
}

// Valid reports whether l is one of C1..C6.
func (l Level) Valid() bool {
	return l >= C1 && l <= C6
}

// ParseLevel parses "C1".."C6" (case-insensitive).
func ParseLevel(s string) (Level, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 2 && s[0] == 'C' && s[1] >= '1' && s[1] <= '6' {
		return Level(s[1] - '0'), nil
	}
	return 0, &ValidationError{Field: "level", Reason: fmt.Sprintf("level %q not in C1..C6", s)}
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
