package fiscal

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vfarias/gestor-api/internal/application/dto"
	"github.com/vfarias/gestor-api/internal/domain"
	"github.com/vfarias/gestor-api/internal/domain/entity"
	"github.com/vfarias/gestor-api/internal/domain/repository"
)

// CreateDocumentUseCase cria o documento fiscal em pending: valida o cliente,
// calcula os totais no servidor a partir dos itens e aloca o próximo número da
// série dentro da mesma transação (numeração monotônica por emissor+série).
type CreateDocumentUseCase struct {
	tx      TxRunner
	docs    repository.FiscalDocumentRepository
	events  repository.FiscalEventRepository
	clients repository.ClientRepository
	now     func() time.Time
}

// NewCreateDocumentUseCase constrói o caso de uso.
func NewCreateDocumentUseCase(
	tx TxRunner,
	docs repository.FiscalDocumentRepository,
	events repository.FiscalEventRepository,
	clients repository.ClientRepository,
) *CreateDocumentUseCase {
	return &CreateDocumentUseCase{
		tx:      tx,
		docs:    docs,
		events:  events,
		clients: clients,
		now:     time.Now,
	}
}

// Create valida a entrada, persiste cabeçalho + itens e devolve a resposta.
// Nenhuma transmissão acontece aqui; o documento nasce pending.
func (uc *CreateDocumentUseCase) Create(ctx context.Context, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if !entity.ValidDocumentType(in.DocumentType) {
		return nil, domain.ErrInvalidInput
	}
	if in.ClientID == "" || strings.TrimSpace(in.Series) == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.ServiceOrderID != "" && in.DocumentType != entity.DocumentTypeNFCe {
		// só NFC-e referencia ordem de serviço anterior
		return nil, domain.ErrInvalidInput
	}
	if in.ISSRate.LessThan(decimal.Zero) || in.Discount.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}

	client, err := uc.clients.GetByID(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrNotFound
	}

	now := uc.now()
	doc := &entity.FiscalDocument{
		ID:             uuid.New().String(),
		DocumentType:   in.DocumentType,
		Series:         strings.TrimSpace(in.Series),
		ClientID:       in.ClientID,
		ServiceOrderID: in.ServiceOrderID,
		Discount:       in.Discount,
		ISSRate:        normalizeRate(in.ISSRate),
		Status:         entity.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	items := make([]*entity.FiscalDocumentItem, 0, len(in.Items))
	for _, it := range in.Items {
		if strings.TrimSpace(it.Description) == "" || !it.Quantity.GreaterThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
		if it.UnitPrice.LessThan(decimal.Zero) || it.Discount.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
		items = append(items, &entity.FiscalDocumentItem{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			Description: strings.TrimSpace(it.Description),
			ServiceCode: strings.TrimSpace(it.ServiceCode),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
		})
	}

	doc.ComputeTotals(items)
	if doc.Total.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}

	err = uc.tx.Run(ctx, func(
		docs repository.FiscalDocumentRepository,
		_ repository.FiscalEventRepository,
		_ repository.TransmissionQueueRepository,
	) error {
		number, err := docs.NextNumber(ctx, doc.DocumentType, doc.Series)
		if err != nil {
			return err
		}
		doc.Number = number
		if err := docs.Create(ctx, doc); err != nil {
			return err
		}
		for _, item := range items {
			if err := docs.CreateItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dto.ToDocumentResponse(doc, items, nil), nil
}

// Get devolve o documento completo com itens e histórico.
func (uc *CreateDocumentUseCase) Get(ctx context.Context, id string) (*dto.DocumentResponse, error) {
	doc, err := uc.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	items, err := uc.docs.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := uc.events.ListByDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.ToDocumentResponse(doc, items, events), nil
}

// GetStatus devolve a projeção leve de status (polling da UI).
func (uc *CreateDocumentUseCase) GetStatus(ctx context.Context, id string) (*dto.DocumentStatusResponse, error) {
	doc, err := uc.docs.GetStatusProjection(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return &dto.DocumentStatusResponse{
		ID:        doc.ID,
		Status:    doc.Status,
		Protocol:  doc.Protocol,
		AccessKey: doc.AccessKey,
	}, nil
}

// History devolve só o histórico de eventos do documento.
func (uc *CreateDocumentUseCase) History(ctx context.Context, id string) ([]dto.EventResponse, error) {
	doc, err := uc.docs.GetStatusProjection(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	events, err := uc.events.ListByDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.ToEventResponses(events), nil
}

// normalizeRate aceita alíquota em fração (0.05) ou percentual (5).
func normalizeRate(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return rate.Div(decimal.NewFromInt(100))
	}
	return rate
}
