package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vfarias/gestor-api/internal/domain/entity"
	"github.com/vfarias/gestor-api/internal/domain/repository"
)

var _ repository.TransmissionQueueRepository = (*TransmissionQueueRepo)(nil)

// TransmissionQueueRepo implementação da fila durável sobre PostgreSQL.
// Entradas nunca são apagadas: resolvidas viram registro de auditoria.
type TransmissionQueueRepo struct {
	q Querier
}

// NewTransmissionQueueRepository constrói o adaptador. Passar pool ou tx (Querier).
func NewTransmissionQueueRepository(q Querier) *TransmissionQueueRepo {
	return &TransmissionQueueRepo{q: q}
}

// Create persiste uma nova entrada pending. O índice único parcial sobre
// (document_id) WHERE status = 'pending' garante no máximo uma pendente por documento.
func (r *TransmissionQueueRepo) Create(ctx context.Context, entry *entity.TransmissionQueueEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	query := `
		INSERT INTO transmission_queue (id, document_id, document_type, action, cancel_reason, status, last_error, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		entry.ID, entry.DocumentID, entry.DocumentType, entry.Action,
		nullIfEmpty(entry.CancelReason), entry.Status, nullIfEmpty(entry.LastError),
		entry.CreatedAt, entry.ResolvedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pending entry already exists for document: %w", err)
		}
		return fmt.Errorf("insert queue entry: %w", err)
	}
	return nil
}

// GetByID obtém uma entrada por ID. Devolve (nil, nil) se não existe.
func (r *TransmissionQueueRepo) GetByID(ctx context.Context, id string) (*entity.TransmissionQueueEntry, error) {
	query := `
		SELECT id, document_id, document_type, action, COALESCE(cancel_reason, ''), status, COALESCE(last_error, ''), created_at, resolved_at
		FROM transmission_queue WHERE id = $1`
	var e entity.TransmissionQueueEntry
	err := r.q.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.DocumentID, &e.DocumentType, &e.Action,
		&e.CancelReason, &e.Status, &e.LastError, &e.CreatedAt, &e.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get queue entry: %w", err)
	}
	return &e, nil
}

// HasPendingForDocument informa se já existe entrada pending para o documento.
func (r *TransmissionQueueRepo) HasPendingForDocument(ctx context.Context, documentID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM transmission_queue WHERE document_id = $1 AND status = $2
		)`
	var exists bool
	if err := r.q.QueryRow(ctx, query, documentID, entity.QueueStatusPending).Scan(&exists); err != nil {
		return false, fmt.Errorf("check pending entry: %w", err)
	}
	return exists, nil
}

// ListPending devolve entradas pending do tipo dado em ordem de criação.
func (r *TransmissionQueueRepo) ListPending(ctx context.Context, documentType string, limit int) ([]*entity.TransmissionQueueEntry, error) {
	query := `
		SELECT id, document_id, document_type, action, COALESCE(cancel_reason, ''), status, COALESCE(last_error, ''), created_at, resolved_at
		FROM transmission_queue
		WHERE document_type = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3`
	rows, err := r.q.Query(ctx, query, documentType, entity.QueueStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.TransmissionQueueEntry
	for rows.Next() {
		var e entity.TransmissionQueueEntry
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.DocumentType, &e.Action,
			&e.CancelReason, &e.Status, &e.LastError, &e.CreatedAt, &e.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

// Resolve marca a entrada como success ou error exatamente uma vez: o WHERE
// status = 'pending' torna a operação idempotente diante de corrida.
func (r *TransmissionQueueRepo) Resolve(ctx context.Context, id, status, lastError string) error {
	query := `
		UPDATE transmission_queue
		SET status = $2, last_error = $3, resolved_at = $4
		WHERE id = $1 AND status = $5`
	_, err := r.q.Exec(ctx, query, id, status, nullIfEmpty(lastError), time.Now(), entity.QueueStatusPending)
	if err != nil {
		return fmt.Errorf("resolve queue entry: %w", err)
	}
	return nil
}
