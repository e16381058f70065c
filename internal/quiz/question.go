package quiz

import "strconv"

// GeneratedQuestion is one validated question. The concrete types are
// *MultipleChoiceQuestion, *TrueFalseQuestion and *FillBlankQuestion.
type GeneratedQuestion interface {
	Type() Type
	Text() string
	AnswerText() string
	Metadata() Meta
	sealed()
}

// Meta is shared by every question type.
type Meta struct {
	Category string `json:"category"`
	Level    Level  `json:"level"`
}

type MultipleChoiceQuestion struct {
	Question string `json:"question"`
	OptionA  string `json:"option_a"`
	OptionB  string `json:"option_b"`
	OptionC  string `json:"option_c"`
	OptionD  string `json:"option_d"`
	Answer   string `json:"answer"`
	Meta
}

// Options returns the four options in A..D order.
func (q *MultipleChoiceQuestion) Options() [4]string {
	return [4]string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

func (q *MultipleChoiceQuestion) Type() Type { return MultipleChoice }
func (q *MultipleChoiceQuestion) Text() string { return q.Question }
func (q *MultipleChoiceQuestion) AnswerText() string { return q.Answer }
func (q *MultipleChoiceQuestion) Metadata() Meta { return q.Meta }
func (*MultipleChoiceQuestion) sealed() {}

type TrueFalseQuestion struct {
	Question string `json:"question"`
	Answer   bool   `json:"answer"`
	Meta
}

func (q *TrueFalseQuestion) Type() Type { return TrueFalse }
func (q *TrueFalseQuestion) Text() string { return q.Question }
func (q *TrueFalseQuestion) AnswerText() string { return strconv.FormatBool(q.Answer) }
func (q *TrueFalseQuestion) Metadata() Meta { return q.Meta }
func (*TrueFalseQuestion) sealed() {}

type FillBlankQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Meta
}

func (q *FillBlankQuestion) Type() Type { return FillBlank }
func (q *FillBlankQuestion) Text() string { return q.Question }
func (q *FillBlankQuestion) AnswerText() string { return q.Answer }
func (q *FillBlankQuestion) Metadata() Meta { return q.Meta }
func (*FillBlankQuestion) sealed() {}
