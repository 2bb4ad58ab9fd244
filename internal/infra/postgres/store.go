package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"exam-bot-service/internal/domain"
)

// QuestionStore keeps bank entries as JSONB rows with the category and id
// broken out for filtering.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) RandomUnseen(ctx context.Context, category string, seenIDs []string) (domain.Question, error) {
	if seenIDs == nil {
		seenIDs = []string{}
	}
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM questions
		 WHERE exam_name = $1 AND NOT (id = ANY($2))
		 ORDER BY random() LIMIT 1`,
		category, seenIDs,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrNoUnseenQuestions
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("select random question: %w", err)
	}
	return unmarshalQuestion(raw)
}

func (s *QuestionStore) GetByID(ctx context.Context, id string) (domain.Question, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM questions WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("select question %s: %w", id, err)
	}
	return unmarshalQuestion(raw)
}

// InsertQuestions loads bank entries; used by the seed command only. Entries
// without an id get a uuid.
func (s *QuestionStore) InsertQuestions(ctx context.Context, questions []domain.Question) error {
	for _, q := range questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question %s: %w", q.ID, err)
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO questions (id, exam_name, data) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET exam_name = EXCLUDED.exam_name, data = EXCLUDED.data`,
			q.ID, q.ExamName, data,
		)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return nil
}

func unmarshalQuestion(raw []byte) (domain.Question, error) {
	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
	}
	return q, nil
}

// ProgressStore keeps one row per user with a text[] seen list.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) SeenIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.pool.QueryRow(ctx,
		`SELECT seen_question_ids FROM user_progress WHERE id = $1`, userID,
	).Scan(&ids)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select progress for %s: %w", userID, err)
	}
	return ids, nil
}

func (s *ProgressStore) MarkSeen(ctx context.Context, userID, questionID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_progress (id, seen_question_ids) VALUES ($1, ARRAY[$2])
		 ON CONFLICT (id) DO UPDATE
		 SET seen_question_ids = array_append(user_progress.seen_question_ids, $2)`,
		userID, questionID,
	)
	if err != nil {
		return fmt.Errorf("mark question %s seen for %s: %w", questionID, userID, err)
	}
	return nil
}
