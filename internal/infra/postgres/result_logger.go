package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"whatsapp-quiz-bot/internal/domain"
)

// ResultLogger persists one row per finished quiz run so results outlive the
// session TTL and can be queried for history and leaderboards.
type ResultLogger struct {
	pool *pgxpool.Pool
}

func NewResultLogger(pool *pgxpool.Pool) *ResultLogger {
	return &ResultLogger{pool: pool}
}

func (l *ResultLogger) LogResult(ctx context.Context, r domain.QuizResult) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO quiz_results
			(entity_id, user_id, quiz_id, score, correct_count, answered_count, total_questions, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.EntityID, r.UserID, r.QuizID, r.Score, r.CorrectCount, r.AnsweredCount, r.TotalQuestions, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("log quiz result: %w", err)
	}
	return nil
}
