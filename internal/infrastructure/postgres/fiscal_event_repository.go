package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vfarias/gestor-api/internal/domain/entity"
	"github.com/vfarias/gestor-api/internal/domain/repository"
)

var _ repository.FiscalEventRepository = (*FiscalEventRepo)(nil)

// FiscalEventRepo implementação de FiscalEventRepository sobre PostgreSQL.
// O histórico é append-only: não há Update nem Delete.
type FiscalEventRepo struct {
	q Querier
}

// NewFiscalEventRepository constrói o adaptador. Passar pool ou tx (Querier).
func NewFiscalEventRepository(q Querier) *FiscalEventRepo {
	return &FiscalEventRepo{q: q}
}

// Append persiste um evento do histórico de transmissão.
func (r *FiscalEventRepo) Append(ctx context.Context, event *entity.FiscalEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	query := `
		INSERT INTO fiscal_events (id, document_id, kind, description, authority_message, resulting_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		event.ID, event.DocumentID, event.Kind, event.Description,
		nullIfEmpty(event.AuthorityMessage), event.ResultingStatus, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fiscal event: %w", err)
	}
	return nil
}

// ListByDocument devolve o histórico do documento em ordem cronológica.
func (r *FiscalEventRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.FiscalEvent, error) {
	query := `
		SELECT id, document_id, kind, description, COALESCE(authority_message, ''), resulting_status, created_at
		FROM fiscal_events WHERE document_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list fiscal events: %w", err)
	}
	defer rows.Close()
	var list []*entity.FiscalEvent
	for rows.Next() {
		var ev entity.FiscalEvent
		if err := rows.Scan(&ev.ID, &ev.DocumentID, &ev.Kind, &ev.Description,
			&ev.AuthorityMessage, &ev.ResultingStatus, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fiscal event: %w", err)
		}
		list = append(list, &ev)
	}
	return list, rows.Err()
}
