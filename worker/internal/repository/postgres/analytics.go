package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lxp-platform/fabric/worker/internal/repository"
)

var _ repository.Analytics = (*pgAnalytics)(nil)

type pgAnalytics struct {
	pool *pgxpool.Pool
}

// NewPostgresAnalytics creates a Postgres-backed Analytics store over the
// users / session_logs / message_logs / performance_tracking tables.
func NewPostgresAnalytics(pool *pgxpool.Pool) repository.Analytics {
	return &pgAnalytics{pool: pool}
}

func (r *pgAnalytics) EnsureUser(ctx context.Context, userID, username string) error {
	query := `
		INSERT INTO users (user_id, username, total_sessions)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id) DO UPDATE SET total_sessions = users.total_sessions + 1`
	if _, err := r.pool.Exec(ctx, query, userID, username); err != nil {
		return fmt.Errorf("postgres: ensure user: %w", err)
	}
	return nil
}

func (r *pgAnalytics) StartSession(ctx context.Context, log repository.SessionLog) error {
	query := `
		INSERT INTO session_logs (session_id, user_id, persona_type, scenario, start_time)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, log.SessionID, log.UserID, log.PersonaType, log.Scenario, log.StartTime)
	if err != nil {
		return fmt.Errorf("postgres: start session log: %w", err)
	}
	return nil
}

func (r *pgAnalytics) RecordMessage(ctx context.Context, sessionID, userID, role, content string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin record message: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO message_logs (session_id, role, content) VALUES ($1, $2, $3)`, sessionID, role, content); err != nil {
		return fmt.Errorf("postgres: insert message log: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE session_logs SET message_count = message_count + 1 WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("postgres: bump session message count: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET total_messages = total_messages + 1 WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("postgres: bump user message count: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgAnalytics) EndSession(ctx context.Context, sessionID, userID string, outcome repository.SessionOutcome) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin end session: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE session_logs
		SET end_time = $2, performance_score = $3, feedback = $4, session_duration = $5
		WHERE session_id = $1`
	if _, err := tx.Exec(ctx, query, sessionID, outcome.EndTime, outcome.PerformanceScore, outcome.Feedback, outcome.SessionDuration); err != nil {
		return fmt.Errorf("postgres: end session log: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO performance_tracking (user_id, session_id, criterion, score)
		VALUES ($1, $2, 'overall', $3)`, userID, sessionID, outcome.PerformanceScore); err != nil {
		return fmt.Errorf("postgres: insert performance tracking: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET best_score = GREATEST(best_score, $2) WHERE user_id = $1`, userID, outcome.PerformanceScore); err != nil {
		return fmt.Errorf("postgres: bump best score: %w", err)
	}

	return tx.Commit(ctx)
}
