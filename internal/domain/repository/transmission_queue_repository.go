package repository

import (
	"context"

	"github.com/vfarias/gestor-api/internal/domain/entity"
)

// TransmissionQueueRepository porta da fila durável de transmissão.
// Entradas nunca são apagadas; Resolve marca success/error exatamente uma vez.
type TransmissionQueueRepository interface {
	Create(ctx context.Context, entry *entity.TransmissionQueueEntry) error
	GetByID(ctx context.Context, id string) (*entity.TransmissionQueueEntry, error)
	// HasPendingForDocument informa se já existe entrada pending para o
	// documento (invariante: nunca duas pendentes ao mesmo tempo).
	HasPendingForDocument(ctx context.Context, documentID string) (bool, error)
	// ListPending devolve entradas pending do tipo dado em ordem de criação.
	ListPending(ctx context.Context, documentType string, limit int) ([]*entity.TransmissionQueueEntry, error)
	// Resolve marca a entrada como success ou error e grava resolved_at.
	Resolve(ctx context.Context, id, status, lastError string) error
}
