package repository

import (
	"context"

	"github.com/vfarias/gestor-api/internal/domain/entity"
)

// CertificateConfigRepository porta do registro de certificados.
// Uma configuração ativa por tipo de documento.
type CertificateConfigRepository interface {
	GetActiveByType(ctx context.Context, documentType string) (*entity.CertificateConfig, error)
	// Upsert grava a configuração do tipo, desativando a anterior se houver.
	Upsert(ctx context.Context, cfg *entity.CertificateConfig) error
}
