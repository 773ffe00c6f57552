// internal/store/store.go

// Package store persists execution records. The primary backend is
// PostgreSQL; when no database is configured, records fall back to JSON
// files written next to the screenshots.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/agent"
)

// Both backends satisfy the agent's persistence interface.
var (
	_ agent.ResultSink = (*Store)(nil)
	_ agent.ResultSink = (*FileSink)(nil)
)

// DBPool abstracts the pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const sqlCreateExecutions = `
	CREATE TABLE IF NOT EXISTS executions (
		execution_id    TEXT PRIMARY KEY,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		task            TEXT NOT NULL,
		domain          TEXT NOT NULL,
		success         BOOLEAN NOT NULL,
		error           TEXT NOT NULL DEFAULT '',
		steps_completed JSONB NOT NULL DEFAULT '[]',
		screenshots     JSONB NOT NULL DEFAULT '[]',
		agent_reasoning TEXT NOT NULL DEFAULT ''
	);`

const sqlInsertExecution = `
	INSERT INTO executions (execution_id, task, domain, success, error, steps_completed, screenshots, agent_reasoning)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (execution_id) DO NOTHING;`

// Store is the PostgreSQL-backed execution record repository.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

// EnsureSchema creates the executions table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateExecutions); err != nil {
		return fmt.Errorf("failed to ensure executions schema: %w", err)
	}
	return nil
}

// Save inserts one execution record. Records are immutable; a duplicate
// execution id is a no-op.
func (s *Store) Save(ctx context.Context, rec schemas.ExecutionRecord) error {
	steps, err := json.Marshal(rec.StepsCompleted)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}
	shots, err := json.Marshal(rec.Screenshots)
	if err != nil {
		return fmt.Errorf("failed to marshal screenshots: %w", err)
	}

	_, err = s.pool.Exec(ctx, sqlInsertExecution,
		rec.ExecutionID, rec.Task, rec.Domain, rec.Success, rec.Error,
		steps, shots, rec.AgentReasoning,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution %s: %w", rec.ExecutionID, err)
	}

	s.log.Info("Execution record persisted",
		zap.String("execution_id", rec.ExecutionID),
		zap.Bool("success", rec.Success))
	return nil
}
