package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"quizrag/internal/quiz"
)

var (
	headingLabel = color.New(color.FgCyan, color.Bold).SprintFunc()
	answerLabel  = color.New(color.FgGreen, color.Bold).SprintFunc()
	okLabel      = color.New(color.FgGreen).SprintFunc()
	mutedLabel   = color.New(color.Faint).SprintFunc()
)

// renderQuestions prints questions with their options and answers.
func renderQuestions(w io.Writer, qs []quiz.GeneratedQuestion) {
	for i, q := range qs {
		meta := q.Metadata()
		tag := fmt.Sprintf("[%s, %s]", meta.Category, meta.Level)
		if b, ok := quiz.Bloom(meta.Level); ok {
			tag = fmt.Sprintf("[%s, %s %s]", meta.Category, meta.Level, b.Name)
		}
		fmt.Fprintf(w, "%s %s\n", headingLabel(fmt.Sprintf("%d.", i+1)), q.Text())
		switch q := q.(type) {
		case *quiz.MultipleChoiceQuestion:
			for j, opt := range q.Options() {
				fmt.Fprintf(w, "   %c) %s\n", 'A'+j, opt)
			}
		case *quiz.TrueFalseQuestion:
			fmt.Fprintln(w, "   True / False")
		}
		fmt.Fprintf(w, "   %s %s  %s\n\n", answerLabel("Answer:"), q.AnswerText(), mutedLabel(tag))
	}
}
