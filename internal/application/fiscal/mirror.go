package fiscal

import (
	"context"

	"github.com/vfarias/gestor-api/internal/domain"
	"github.com/vfarias/gestor-api/internal/domain/entity"
	"github.com/vfarias/gestor-api/internal/domain/repository"
)

// DocumentPDFGenerator porta de saída para a geração do espelho em PDF.
type DocumentPDFGenerator interface {
	GenerateDocumentPDF(ctx context.Context, doc *entity.FiscalDocument, client *entity.Client, items []*entity.FiscalDocumentItem) ([]byte, error)
}

// MirrorUseCase gera o espelho (representação gráfica) do documento fiscal.
// Só documentos autorizados têm espelho: antes disso não há protocolo nem
// chave de acesso para imprimir.
type MirrorUseCase struct {
	docs      repository.FiscalDocumentRepository
	clients   repository.ClientRepository
	generator DocumentPDFGenerator
}

// NewMirrorUseCase constrói o caso de uso do espelho.
func NewMirrorUseCase(docs repository.FiscalDocumentRepository, clients repository.ClientRepository, generator DocumentPDFGenerator) *MirrorUseCase {
	return &MirrorUseCase{docs: docs, clients: clients, generator: generator}
}

// Generate devolve os bytes do PDF do documento autorizado.
func (uc *MirrorUseCase) Generate(ctx context.Context, documentID string) ([]byte, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.Status != entity.StatusAuthorized {
		return nil, domain.NewPreconditionError(domain.PreconditionIllegalTransition,
			"espelho disponível apenas para documentos autorizados")
	}
	items, err := uc.docs.GetItems(ctx, documentID)
	if err != nil {
		return nil, err
	}
	client, err := uc.clients.GetByID(ctx, doc.ClientID)
	if err != nil {
		return nil, err
	}
	return uc.generator.GenerateDocumentPDF(ctx, doc, client, items)
}
