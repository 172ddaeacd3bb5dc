// Package history appends workflow outcomes to the remote project_history
// table and reads them back, newest first. Writes are best-effort from the
// orchestrator's point of view; this package just reports errors and lets
// the caller decide to swallow them.
package history

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/code-company/internal/supabase"
)

const historyTable = "project_history"

// Entry is one project_history row.
type Entry struct {
	ProjectTitle     string `json:"project_title"`
	CEODecision      string `json:"ceo_decision"`
	CEOReason        string `json:"ceo_reason"`
	OperationsStatus string `json:"operations_status"`
	Timestamp        string `json:"timestamp"`
}

// Logger records and retrieves workflow run history.
type Logger struct {
	client *supabase.Client
	logger zerolog.Logger
}

// NewLogger creates a history logger on top of the Supabase client.
func NewLogger(client *supabase.Client, logger zerolog.Logger) *Logger {
	return &Logger{
		client: client,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Enabled reports whether the remote store is configured.
func (l *Logger) Enabled() bool { return l.client.Enabled() }

// LogRun inserts one run record. The timestamp is set here if absent.
func (l *Logger) LogRun(ctx context.Context, e Entry) error {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if err := l.client.Insert(ctx, historyTable, e); err != nil {
		return err
	}
	l.logger.Info().Str("project", e.ProjectTitle).Str("decision", e.CEODecision).Msg("run logged")
	return nil
}

// Fetch returns all run records, newest first.
func (l *Logger) Fetch(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := l.client.Select(ctx, supabase.From(historyTable).OrderDesc("timestamp"), &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
