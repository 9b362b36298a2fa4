package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"eventflow/internal/domain"
)

type auditLog struct {
	DB Querier
}

func NewAuditLog(db Querier) domain.AuditLog {
	return &auditLog{DB: db}
}

func (a *auditLog) Append(ctx context.Context, entry domain.AuditEntry) error {
	payload := []byte("{}")
	if len(entry.Payload) > 0 {
		var err error
		if payload, err = json.Marshal(entry.Payload); err != nil {
			return fmt.Errorf("marshal audit payload: %w", err)
		}
	}
	query := `
		INSERT INTO workflow_audit (op, entity_kind, entity_id, actor_id, payload, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := a.DB.ExecContext(ctx, query, entry.Op, entry.EntityKind, entry.EntityID, entry.ActorID, payload, entry.TS)
	return err
}
