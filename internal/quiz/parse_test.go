package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcSpec(n int) Spec {
	return Spec{Type: MultipleChoice, Category: "Biology", Level: C2, NumQuestions: n, Context: "cells"}
}

func TestParseQuestions_MultipleChoice(t *testing.T) {
	raw := `{"questions":[{"question":"What produces ATP?","option_a":"Nucleus","option_b":"Mitochondria",
		"option_c":"Ribosome","option_d":"Golgi","answer":" b ","category":"Biology","level":"C2"}]}`

	qs, err := ParseQuestions(mcSpec(2), []byte(raw))
	require.NoError(t, err)
	require.Len(t, qs, 1)

	mc, ok := qs[0].(*MultipleChoiceQuestion)
	require.True(t, ok)
	assert.Equal(t, "B", mc.Answer)
	assert.Equal(t, "Mitochondria", mc.Options()[1])
	assert.Equal(t, Meta{Category: "Biology", Level: C2}, mc.Metadata())
}

func TestParseQuestions_RejectsAnswerOutsideSet(t *testing.T) {
	raw := `[{"question":"q","option_a":"a","option_b":"b","option_c":"c","option_d":"d",
		"answer":"E","category":"Biology","level":"C2"}]`

	_, err := ParseQuestions(mcSpec(1), []byte(raw))
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	require.Len(t, se.Violations, 1)
	assert.Contains(t, se.Violations[0], "answer")
}

func TestParseQuestions_MissingAndWrongTypedFields(t *testing.T) {
	raw := `{"question":"q","option_a":"a","option_b":3,"option_c":"c","answer":"A","category":"Biology","level":"C2"}`

	_, err := ParseQuestions(mcSpec(1), []byte(raw))
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Violations, 2)
	assert.Contains(t, se.Error(), "option_b: expected string")
	assert.Contains(t, se.Error(), "option_d: missing")
}

func TestParseQuestions_LevelMismatch(t *testing.T) {
	raw := `[{"question":"q","option_a":"a","option_b":"b","option_c":"c","option_d":"d",
		"answer":"A","category":"Biology","level":"C5"}]`

	_, err := ParseQuestions(mcSpec(1), []byte(raw))
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Violations[0], "requested C2")
}

func TestParseQuestions_TrueFalse(t *testing.T) {
	spec := Spec{Type: TrueFalse, Category: "Sport", Level: C1, NumQuestions: 3, Context: "games"}
	raw := "```json\n" + `{"questions":[
		{"question":"Indonesia won gold in 2019.","answer":true,"category":"Sport","level":"C1"},
		{"question":"The games were held in 1900.","answer":"False","category":"Sport","level":"C1"}
	]}` + "\n```"

	qs, err := ParseQuestions(spec, []byte(raw))
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "true", qs[0].AnswerText())
	assert.Equal(t, "false", qs[1].AnswerText())

	_, err = ParseQuestions(spec, []byte(`[{"question":"x","answer":"maybe","category":"Sport","level":"C1"}]`))
	assert.Error(t, err)
}

func TestParseQuestions_FillBlankMarkers(t *testing.T) {
	spec := Spec{Type: FillBlank, Category: "Biology", Level: C1, NumQuestions: 2, Context: "cells"}

	ok := `[{"question":"The ___ is the powerhouse of the cell.","answer":"mitochondria","category":"Biology","level":"C1"}]`
	qs, err := ParseQuestions(spec, []byte(ok))
	require.NoError(t, err)
	assert.Equal(t, FillBlank, qs[0].Type())

	for name, q := range map[string]string{
		"zero blanks": "The mitochondria is the powerhouse of the cell.",
		"two blanks":  "The ___ is the ____ of the cell.",
	} {
		t.Run(name, func(t *testing.T) {
			raw := `[{"question":"` + q + `","answer":"x","category":"Biology","level":"C1"}]`
			_, err := ParseQuestions(spec, []byte(raw))
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Contains(t, se.Violations[0], "exactly one")
		})
	}
}

func TestParseQuestions_Count(t *testing.T) {
	spec := Spec{Type: FillBlank, Category: "Biology", Level: C1, NumQuestions: 1, Context: "cells"}
	item := `{"question":"A ___ b","answer":"x","category":"Biology","level":"C1"}`

	_, err := ParseQuestions(spec, []byte(`{"questions":[]}`))
	assert.ErrorContains(t, err, "no questions")

	_, err = ParseQuestions(spec, []byte(`[`+item+`,`+item+`]`))
	assert.ErrorContains(t, err, "at most 1")
}

func TestParseQuestions_Malformed(t *testing.T) {
	spec := mcSpec(1)
	for _, raw := range []string{"", "not json", `{"items":[]}`, `{"questions":"nope"}`} {
		_, err := ParseQuestions(spec, []byte(raw))
		var se *SchemaError
		assert.ErrorAs(t, err, &se, raw)
	}
}

func TestSchemaFor(t *testing.T) {
	for _, qt := range Types {
		s, err := SchemaFor(qt)
		require.NoError(t, err)
		assert.Equal(t, qt, s.Type)
		assert.Contains(t, s.FieldNames(), "question")
		assert.Contains(t, s.FieldNames(), "level")
		assert.NotEmpty(t, s.Rules)
	}

	mc, _ := SchemaFor(MultipleChoice)
	js := mc.JSONSchema(5)
	questions := js["properties"].(map[string]any)["questions"].(map[string]any)
	assert.Equal(t, 5, questions["maxItems"])
	item := questions["items"].(map[string]any)
	assert.Len(t, item["required"], 8)

	_, err := SchemaFor(Type(0))
	assert.Error(t, err)
}

func TestCountBlanks(t *testing.T) {
	assert.Equal(t, 0, CountBlanks("no gap __ here"))
	assert.Equal(t, 1, CountBlanks("one ______ gap"))
	assert.Equal(t, 2, CountBlanks("___ and ___"))
}
