package questionbank

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizrag/internal/quiz"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "bank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_UpsertResource(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	r, err := s.UpsertResource(ctx, "biology", "/docs/bio.txt", 4)
	require.NoError(t, err)
	assert.Equal(t, "biology", r.Name)
	assert.Equal(t, 4, r.Chunks)
	assert.False(t, r.CreatedAt.IsZero())

	r2, err := s.UpsertResource(ctx, "biology", "/docs/bio-v2.txt", 7)
	require.NoError(t, err)
	assert.Equal(t, r.ID, r2.ID)
	assert.Equal(t, "/docs/bio-v2.txt", r2.Path)
	assert.Equal(t, 7, r2.Chunks)

	all, err := s.Resources(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_ResourceNotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.Resource(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrResourceNotFound)

	_, err = s.SaveQuestions(context.Background(), "missing", Run{}, nil)
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestStore_SaveAndListQuestions(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.UpsertResource(ctx, "biology", "/docs/bio.txt", 3)
	require.NoError(t, err)

	meta := quiz.Meta{Category: "Biology", Level: quiz.C2}
	questions := []quiz.GeneratedQuestion{
		&quiz.MultipleChoiceQuestion{Question: "What makes ATP?", OptionA: "Nucleus", OptionB: "Mitochondria",
			OptionC: "Ribosome", OptionD: "Golgi", Answer: "B", Meta: meta},
		&quiz.TrueFalseQuestion{Question: "Ribosomes build proteins.", Answer: true, Meta: meta},
		&quiz.FillBlankQuestion{Question: "The ___ stores DNA.", Answer: "nucleus", Meta: meta},
	}

	ids, err := s.SaveQuestions(ctx, "biology", Run{QuizType: quiz.MultipleChoice, Level: quiz.C2, Requested: 3, Attempts: 1}, questions)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	stored, err := s.ListQuestions(ctx, "biology", 0)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for i, sq := range stored {
		assert.Equal(t, ids[i], sq.ID)
		assert.NotEmpty(t, sq.RunID)
		assert.Equal(t, questions[i], sq.Question)
	}

	limited, err := s.ListQuestions(ctx, "biology", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_SaveQuestionsRollsBack(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.UpsertResource(ctx, "biology", "/docs/bio.txt", 1)
	require.NoError(t, err)

	bad := []quiz.GeneratedQuestion{
		&quiz.FillBlankQuestion{Question: "The ___ stores DNA.", Answer: "nucleus", Meta: quiz.Meta{Category: "Biology", Level: quiz.C1}},
		&quiz.MultipleChoiceQuestion{Question: "q", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
			Answer: "E", Meta: quiz.Meta{Category: "Biology", Level: quiz.C1}},
	}
	_, err = s.SaveQuestions(ctx, "biology", Run{QuizType: quiz.FillBlank, Level: quiz.C1}, bad)
	require.Error(t, err)

	stored, err := s.ListQuestions(ctx, "biology", 0)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
