package repository

import (
	"context"
	"time"

	"github.com/vfarias/gestor-api/internal/domain/entity"
)

// FiscalDocumentRepository porta de persistência de documentos fiscais e itens.
// GetByID devolve (nil, nil) quando o documento não existe.
type FiscalDocumentRepository interface {
	Create(ctx context.Context, doc *entity.FiscalDocument) error
	CreateItem(ctx context.Context, item *entity.FiscalDocumentItem) error
	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)
	GetItems(ctx context.Context, documentID string) ([]*entity.FiscalDocumentItem, error)
	// Update persiste status, artefatos de transmissão, campos de cancelamento
	// e updated_at. Não toca nos campos financeiros.
	Update(ctx context.Context, doc *entity.FiscalDocument) error
	// NextNumber aloca o próximo número sequencial da série (monotônico).
	// Deve ser chamado dentro da transação que cria o documento.
	NextNumber(ctx context.Context, documentType, series string) (int64, error)
	// ListStaleProcessing devolve documentos em processing cujo updated_at é
	// anterior a olderThan, em ordem de updated_at (mais antigos primeiro).
	ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]*entity.FiscalDocument, error)
	// GetStatusProjection devolve só os campos de status (consulta leve, polling da UI).
	GetStatusProjection(ctx context.Context, id string) (*entity.FiscalDocument, error)
}
