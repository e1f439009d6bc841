// Package outbox implements the transactional outbox the notification and
// messaging collaborators drain. Rows are written in the caller's transaction
// so an event exists exactly when its business change committed.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TopicStageAdvanced is published on every successful workflow transition.
const TopicStageAdvanced = "workflow.stage_advanced"

type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal payload: %w", err)
	}
	if _, err := tx.Exec(ctx, `
        INSERT INTO outbox (topic, payload)
        VALUES ($1, $2::jsonb)
    `, topic, string(body)); err != nil {
		return fmt.Errorf("outbox: enqueue: %w", err)
	}
	return nil
}
