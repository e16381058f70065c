package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaError lists every way a provider response violated the question schema.
type SchemaError struct {
	Type       Type
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s response violates schema: %s", e.Type, strings.Join(e.Violations, "; "))
}

type violations struct {
	list []string
}

func (v *violations) addf(format string, args ...any) {
	v.list = append(v.list, fmt.Sprintf(format, args...))
}

// ParseQuestions decodes raw provider output against the schema of spec.Type.
// Accepted shapes are {"questions": [...]}, a bare array, or a single question object.
// Between 1 and spec.NumQuestions questions must be present, all at spec.Level.
func ParseQuestions(spec Spec, raw []byte) ([]GeneratedQuestion, error) {
	items, err := splitItems(raw)
	if err != nil {
		return nil, &SchemaError{Type: spec.Type, Violations: []string{err.Error()}}
	}

	v := &violations{}
	switch {
	case len(items) == 0:
		v.addf("no questions in response")
	case len(items) > spec.NumQuestions:
		v.addf("got %d questions, at most %d requested", len(items), spec.NumQuestions)
	}

	questions := make([]GeneratedQuestion, 0, len(items))
	for i, item := range items {
		q := parseItem(spec, fmt.Sprintf("questions[%d]", i), item, v)
		if q != nil {
			questions = append(questions, q)
		}
	}

	if len(v.list) > 0 {
		return nil, &SchemaError{Type: spec.Type, Violations: v.list}
	}
	return questions, nil
}

func splitItems(raw []byte) ([]map[string]json.RawMessage, error) {
	raw = stripCodeFence(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	if raw[0] == '[' {
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("malformed JSON array: %v", err)
		}
		return items, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("malformed JSON: %v", err)
	}
	if list, ok := obj["questions"]; ok {
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(list, &items); err != nil {
			return nil, fmt.Errorf("questions: expected an array of objects")
		}
		return items, nil
	}
	if _, ok := obj["question"]; ok {
		return []map[string]json.RawMessage{obj}, nil
	}
	return nil, fmt.Errorf("response has no questions field")
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if !bytes.HasPrefix(raw, []byte("```")) {
		return raw
	}
	raw = raw[3:]
	if nl := bytes.IndexByte(raw, '\n'); nl >= 0 {
		raw = raw[nl+1:]
	}
	raw = bytes.TrimSuffix(bytes.TrimSpace(raw), []byte("```"))
	return bytes.TrimSpace(raw)
}

func parseItem(spec Spec, path string, item map[string]json.RawMessage, v *violations) GeneratedQuestion {
	before := len(v.list)
	question := requireString(item, path, "question", v)
	meta := Meta{Category: requireString(item, path, "category", v)}

	if lvl, ok := stringField(item, path, "level", v); ok {
		parsed, err := ParseLevel(lvl)
		switch {
		case err != nil:
			v.addf("%s.level: %q not in C1..C6", path, lvl)
		case parsed != spec.Level:
			v.addf("%s.level: got %s, requested %s", path, parsed, spec.Level)
		default:
			meta.Level = parsed
		}
	}

	var q GeneratedQuestion
	switch spec.Type {
	case MultipleChoice:
		mc := &MultipleChoiceQuestion{Question: question, Meta: meta}
		mc.OptionA = requireString(item, path, "option_a", v)
		mc.OptionB = requireString(item, path, "option_b", v)
		mc.OptionC = requireString(item, path, "option_c", v)
		mc.OptionD = requireString(item, path, "option_d", v)
		if ans, ok := stringField(item, path, "answer", v); ok {
			ans = strings.ToUpper(strings.TrimSpace(ans))
			switch ans {
			case "A", "B", "C", "D":
				mc.Answer = ans
			default:
				v.addf("%s.answer: must be one of A, B, C, D (got %q)", path, ans)
			}
		}
		q = mc
	case TrueFalse:
		tf := &TrueFalseQuestion{Question: question, Meta: meta}
		if ans, ok := boolField(item, path, "answer", v); ok {
			tf.Answer = ans
		}
		q = tf
	case FillBlank:
		fb := &FillBlankQuestion{Question: question, Meta: meta}
		if question != "" {
			if n := CountBlanks(question); n != 1 {
				v.addf("%s.question: must contain exactly one %s blank (found %d)", path, BlankToken, n)
			}
		}
		fb.Answer = requireString(item, path, "answer", v)
		q = fb
	default:
		v.addf("%s: unsupported quiz type %s", path, spec.Type)
	}

	if len(v.list) > before {
		return nil
	}
	return q
}

func stringField(item map[string]json.RawMessage, path, name string, v *violations) (string, bool) {
	raw, ok := item[name]
	if !ok || string(raw) == "null" {
		v.addf("%s.%s: missing", path, name)
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		v.addf("%s.%s: expected string", path, name)
		return "", false
	}
	return s, true
}

func requireString(item map[string]json.RawMessage, path, name string, v *violations) string {
	s, ok := stringField(item, path, name, v)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		v.addf("%s.%s: must not be empty", path, name)
	}
	return s
}

// boolField accepts a JSON boolean or the strings "true"/"false" in any case.
func boolField(item map[string]json.RawMessage, path, name string, v *violations) (bool, bool) {
	raw, ok := item[name]
	if !ok || string(raw) == "null" {
		v.addf("%s.%s: missing", path, name)
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	v.addf("%s.%s: must be true or false", path, name)
	return false, false
}
