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

var _ repository.FiscalDocumentRepository = (*FiscalDocumentRepo)(nil)

// FiscalDocumentRepo implementação de FiscalDocumentRepository sobre PostgreSQL
// (usável com pool ou tx).
type FiscalDocumentRepo struct {
	q Querier
}

// NewFiscalDocumentRepository constrói o adaptador. Passar pool ou tx (Querier).
func NewFiscalDocumentRepository(q Querier) *FiscalDocumentRepo {
	return &FiscalDocumentRepo{q: q}
}

// Create persiste o cabeçalho do documento fiscal.
func (r *FiscalDocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	query := `
		INSERT INTO fiscal_documents (id, document_type, number, series, client_id, service_order_id,
			gross_amount, discount, iss_rate, iss_base, tax_amount, total,
			status, cancel_reason, canceled_at, payload, authority_response, protocol, access_key,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.DocumentType, doc.Number, doc.Series, doc.ClientID, nullIfEmpty(doc.ServiceOrderID),
		doc.GrossAmount, doc.Discount, doc.ISSRate, doc.ISSBase, doc.TaxAmount, doc.Total,
		doc.Status, nullIfEmpty(doc.CancelReason), doc.CanceledAt,
		nullIfEmpty(doc.Payload), nullIfEmpty(doc.AuthorityResponse), nullIfEmpty(doc.Protocol), nullIfEmpty(doc.AccessKey),
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("document number already exists: %w", err)
		}
		return fmt.Errorf("insert fiscal document: %w", err)
	}
	return nil
}

// CreateItem persiste uma linha do documento.
func (r *FiscalDocumentRepo) CreateItem(ctx context.Context, item *entity.FiscalDocumentItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO fiscal_document_items (id, document_id, description, service_code, quantity, unit_price, discount, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.DocumentID, item.Description, item.ServiceCode,
		item.Quantity, item.UnitPrice, item.Discount, item.Subtotal,
	)
	if err != nil {
		return fmt.Errorf("insert document item: %w", err)
	}
	return nil
}

// GetByID obtém um documento completo por ID. Devolve (nil, nil) se não existe.
func (r *FiscalDocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	query := `
		SELECT id, document_type, number, series, client_id, service_order_id,
		       gross_amount, discount, iss_rate, iss_base, tax_amount, total,
		       status, cancel_reason, canceled_at, payload, authority_response, protocol, access_key,
		       created_at, updated_at
		FROM fiscal_documents WHERE id = $1`
	var doc entity.FiscalDocument
	var serviceOrderID, cancelReason, payload, authorityResponse, protocol, accessKey *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.DocumentType, &doc.Number, &doc.Series, &doc.ClientID, &serviceOrderID,
		&doc.GrossAmount, &doc.Discount, &doc.ISSRate, &doc.ISSBase, &doc.TaxAmount, &doc.Total,
		&doc.Status, &cancelReason, &doc.CanceledAt, &payload, &authorityResponse, &protocol, &accessKey,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal document: %w", err)
	}
	doc.ServiceOrderID = derefStr(serviceOrderID)
	doc.CancelReason = derefStr(cancelReason)
	doc.Payload = derefStr(payload)
	doc.AuthorityResponse = derefStr(authorityResponse)
	doc.Protocol = derefStr(protocol)
	doc.AccessKey = derefStr(accessKey)
	return &doc, nil
}

// GetItems obtém todas as linhas de um documento.
func (r *FiscalDocumentRepo) GetItems(ctx context.Context, documentID string) ([]*entity.FiscalDocumentItem, error) {
	query := `
		SELECT id, document_id, description, service_code, quantity, unit_price, discount, subtotal
		FROM fiscal_document_items WHERE document_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document items: %w", err)
	}
	defer rows.Close()
	var list []*entity.FiscalDocumentItem
	for rows.Next() {
		var it entity.FiscalDocumentItem
		if err := rows.Scan(&it.ID, &it.DocumentID, &it.Description, &it.ServiceCode,
			&it.Quantity, &it.UnitPrice, &it.Discount, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

// Update persiste status, artefatos de transmissão e campos de cancelamento.
// Os campos financeiros não são tocados: o documento é imutável após a emissão.
func (r *FiscalDocumentRepo) Update(ctx context.Context, doc *entity.FiscalDocument) error {
	query := `
		UPDATE fiscal_documents
		SET status             = $2,
		    cancel_reason      = COALESCE($3, cancel_reason),
		    canceled_at        = COALESCE($4, canceled_at),
		    payload            = COALESCE($5, payload),
		    authority_response = COALESCE($6, authority_response),
		    protocol           = COALESCE($7, protocol),
		    access_key         = COALESCE($8, access_key),
		    updated_at         = $9
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		doc.ID,
		doc.Status,
		nullIfEmpty(doc.CancelReason),
		doc.CanceledAt,
		nullIfEmpty(doc.Payload),
		nullIfEmpty(doc.AuthorityResponse),
		nullIfEmpty(doc.Protocol),
		nullIfEmpty(doc.AccessKey),
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update fiscal document: %w", err)
	}
	return nil
}

// NextNumber aloca o próximo número da série com upsert atômico. Chamar dentro
// da transação que cria o documento: a linha da série fica bloqueada até o commit.
func (r *FiscalDocumentRepo) NextNumber(ctx context.Context, documentType, series string) (int64, error) {
	query := `
		INSERT INTO document_series (document_type, series, next_number)
		VALUES ($1, $2, 2)
		ON CONFLICT (document_type, series)
		DO UPDATE SET next_number = document_series.next_number + 1
		RETURNING next_number - 1`
	var number int64
	if err := r.q.QueryRow(ctx, query, documentType, series).Scan(&number); err != nil {
		return 0, fmt.Errorf("next document number: %w", err)
	}
	return number, nil
}

// ListStaleProcessing devolve documentos em processing sem atualização desde
// olderThan, mais antigos primeiro.
func (r *FiscalDocumentRepo) ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]*entity.FiscalDocument, error) {
	query := `
		SELECT id, document_type, number, series, client_id, COALESCE(service_order_id, ''),
		       status, COALESCE(protocol, ''), COALESCE(access_key, ''), updated_at
		FROM fiscal_documents
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3`
	rows, err := r.q.Query(ctx, query, entity.StatusProcessing, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale documents: %w", err)
	}
	defer rows.Close()
	var list []*entity.FiscalDocument
	for rows.Next() {
		var doc entity.FiscalDocument
		if err := rows.Scan(&doc.ID, &doc.DocumentType, &doc.Number, &doc.Series, &doc.ClientID, &doc.ServiceOrderID,
			&doc.Status, &doc.Protocol, &doc.AccessKey, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stale document: %w", err)
		}
		list = append(list, &doc)
	}
	return list, rows.Err()
}

// GetStatusProjection devolve só os campos de status (consulta leve, polling da UI).
func (r *FiscalDocumentRepo) GetStatusProjection(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	const query = `
		SELECT id, document_type, status, COALESCE(protocol, ''), COALESCE(access_key, '')
		FROM fiscal_documents WHERE id = $1`
	var doc entity.FiscalDocument
	err := r.q.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.DocumentType, &doc.Status, &doc.Protocol, &doc.AccessKey,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document status: %w", err)
	}
	return &doc, nil
}
