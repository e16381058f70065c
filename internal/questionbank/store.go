// Package questionbank persists ingested resources and the questions generated from them.
package questionbank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"quizrag/internal/database"
	"quizrag/internal/quiz"
)

// ErrResourceNotFound is returned for an unknown resource name.
var ErrResourceNotFound = errors.New("questionbank: resource not found")

// Resource is an ingested document.
type Resource struct {
	ID        int64
	Name      string
	Path      string
	Chunks    int
	CreatedAt time.Time
}

// Run describes the composition that produced a batch of questions.
type Run struct {
	ID          string
	QuizType    quiz.Type
	Level       quiz.Level
	Requested   int
	Attempts    int
	TotalTokens int
}

// StoredQuestion is a question read back from the bank.
type StoredQuestion struct {
	ID        string
	RunID     string
	Question  quiz.GeneratedQuestion
	CreatedAt time.Time
}

// Store is the SQLite question bank.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the bank at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("questionbank: create directory: %w", err)
		}
	}
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("questionbank: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertResource records a resource, updating path and chunk count if it exists.
func (s *Store) UpsertResource(ctx context.Context, name, path string, chunks int) (*Resource, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resources (name, path, chunks, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET path = excluded.path, chunks = excluded.chunks`,
		name, path, chunks, now)
	if err != nil {
		return nil, fmt.Errorf("questionbank: upsert resource %q: %w", name, err)
	}
	return s.Resource(ctx, name)
}

// Resource looks a resource up by name.
func (s *Store) Resource(ctx context.Context, name string) (*Resource, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, path, chunks, created_at FROM resources WHERE name = ?", name)
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("questionbank: load resource %q: %w", name, err)
	}
	return r, nil
}

// Resources lists all resources by name.
func (s *Store) Resources(ctx context.Context) ([]Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, path, chunks, created_at FROM resources ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("questionbank: list resources: %w", err)
	}
	defer rows.Close()

	var out []Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(sc scanner) (*Resource, error) {
	var r Resource
	var created string
	if err := sc.Scan(&r.ID, &r.Name, &r.Path, &r.Chunks, &created); err != nil {
		return nil, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &r, nil
}

// SaveQuestions stores a run and its questions for the named resource in one
// transaction and returns the new question ids.
func (s *Store) SaveQuestions(ctx context.Context, resource string, run Run, questions []quiz.GeneratedQuestion) ([]string, error) {
	res, err := s.Resource(ctx, resource)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("questionbank: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO generation_runs (id, resource_id, quiz_type, level, requested, produced, attempts, total_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, res.ID, run.QuizType.String(), run.Level.String(), run.Requested, len(questions),
		run.Attempts, run.TotalTokens, now); err != nil {
		return nil, fmt.Errorf("questionbank: insert run: %w", err)
	}

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		id := uuid.NewString()
		meta := q.Metadata()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO questions (id, resource_id, run_id, type, question, category, level, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, res.ID, run.ID, q.Type().String(), q.Text(), meta.Category, meta.Level.String(), now); err != nil {
			return nil, fmt.Errorf("questionbank: insert question: %w", err)
		}

		if err := insertDetail(ctx, tx, id, q); err != nil {
			return nil, fmt.Errorf("questionbank: insert %s detail: %w", q.Type(), err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("questionbank: commit: %w", err)
	}
	return ids, nil
}

func insertDetail(ctx context.Context, tx *sql.Tx, id string, q quiz.GeneratedQuestion) error {
	var err error
	switch q := q.(type) {
	case *quiz.MultipleChoiceQuestion:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO multiple_choice_questions (question_id, option_a, option_b, option_c, option_d, correct_answer)
			VALUES (?, ?, ?, ?, ?, ?)`, id, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.Answer)
	case *quiz.TrueFalseQuestion:
		_, err = tx.ExecContext(ctx,
			"INSERT INTO true_false_questions (question_id, correct_answer) VALUES (?, ?)", id, q.Answer)
	case *quiz.FillBlankQuestion:
		_, err = tx.ExecContext(ctx,
			"INSERT INTO fill_blank_questions (question_id, correct_answer) VALUES (?, ?)", id, q.Answer)
	default:
		err = fmt.Errorf("unsupported question type %T", q)
	}
	return err
}

// ListQuestions returns up to limit questions of a resource, oldest first.
// A non-positive limit returns all of them.
func (s *Store) ListQuestions(ctx context.Context, resource string, limit int) ([]StoredQuestion, error) {
	res, err := s.Resource(ctx, resource)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, COALESCE(q.run_id, ''), q.type, q.question, q.category, q.level, q.created_at,
		       mc.option_a, mc.option_b, mc.option_c, mc.option_d, mc.correct_answer,
		       tf.correct_answer, fb.correct_answer
		FROM questions q
		LEFT JOIN multiple_choice_questions mc ON mc.question_id = q.id
		LEFT JOIN true_false_questions tf ON tf.question_id = q.id
		LEFT JOIN fill_blank_questions fb ON fb.question_id = q.id
		WHERE q.resource_id = ?
		ORDER BY q.created_at, q.rowid
		LIMIT ?`, res.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("questionbank: list questions: %w", err)
	}
	defer rows.Close()

	var out []StoredQuestion
	for rows.Next() {
		var (
			sq                     StoredQuestion
			typ, text, cat, lvl    string
			created                string
			optA, optB, optC, optD sql.NullString
			mcAns, fbAns           sql.NullString
			tfAns                  sql.NullBool
		)
		if err := rows.Scan(&sq.ID, &sq.RunID, &typ, &text, &cat, &lvl, &created,
			&optA, &optB, &optC, &optD, &mcAns, &tfAns, &fbAns); err != nil {
			return nil, fmt.Errorf("questionbank: scan question: %w", err)
		}
		sq.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)

		qt, err := quiz.ParseType(typ)
		if err != nil {
			return nil, err
		}
		level, err := quiz.ParseLevel(lvl)
		if err != nil {
			return nil, err
		}
		meta := quiz.Meta{Category: cat, Level: level}

		switch qt {
		case quiz.MultipleChoice:
			sq.Question = &quiz.MultipleChoiceQuestion{Question: text, OptionA: optA.String, OptionB: optB.String,
				OptionC: optC.String, OptionD: optD.String, Answer: mcAns.String, Meta: meta}
		case quiz.TrueFalse:
			sq.Question = &quiz.TrueFalseQuestion{Question: text, Answer: tfAns.Bool, Meta: meta}
		case quiz.FillBlank:
			sq.Question = &quiz.FillBlankQuestion{Question: text, Answer: fbAns.String, Meta: meta}
		}
		out = append(out, sq)
	}
	return out, rows.Err()
}
