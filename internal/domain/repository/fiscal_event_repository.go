package repository

import (
	"context"

	"github.com/vfarias/gestor-api/internal/domain/entity"
)

// FiscalEventRepository porta do histórico append-only de eventos.
// Não há update nem delete: a tabela só cresce.
type FiscalEventRepository interface {
	Append(ctx context.Context, event *entity.FiscalEvent) error
	ListByDocument(ctx context.Context, documentID string) ([]*entity.FiscalEvent, error)
}
