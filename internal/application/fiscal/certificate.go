package fiscal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vfarias/gestor-api/internal/domain"
	"github.com/vfarias/gestor-api/internal/domain/entity"
	"github.com/vfarias/gestor-api/internal/domain/repository"
)

// CertificateInspector abre o material A1 (.pfx/.p12 ou par PEM) e devolve o
// titular e a janela de validade do certificado x509.
type CertificateInspector interface {
	Inspect(certPath, password string) (holder string, validFrom, validUntil time.Time, err error)
}

// CertificateUseCase é o registro de certificados: uma credencial ativa por
// tipo de documento, consultada pela máquina de estados antes de transmitir.
type CertificateUseCase struct {
	repo      repository.CertificateConfigRepository
	inspector CertificateInspector
	now       func() time.Time
}

// NewCertificateUseCase constrói o registro.
func NewCertificateUseCase(repo repository.CertificateConfigRepository, inspector CertificateInspector) *CertificateUseCase {
	return &CertificateUseCase{repo: repo, inspector: inspector, now: time.Now}
}

// WithClock troca o relógio (testes).
func (uc *CertificateUseCase) WithClock(now func() time.Time) *CertificateUseCase {
	uc.now = now
	return uc
}

// IsSubmittable implementa CertificateChecker. Resposta negativa vem com
// motivo legível (ausente, expirado ou marcado inválido).
func (uc *CertificateUseCase) IsSubmittable(ctx context.Context, documentType string) (bool, string, error) {
	cfg, err := uc.repo.GetActiveByType(ctx, documentType)
	if err != nil {
		return false, "", err
	}
	ok, reason := cfg.IsSubmittable(uc.now())
	return ok, reason, nil
}

// Get devolve a configuração ativa do tipo; ErrNotFound se não houver.
func (uc *CertificateUseCase) Get(ctx context.Context, documentType string) (*entity.CertificateConfig, error) {
	if !entity.ValidDocumentType(documentType) {
		return nil, domain.ErrInvalidInput
	}
	cfg, err := uc.repo.GetActiveByType(ctx, documentType)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrNotFound
	}
	return cfg, nil
}

// Register abre o material, deriva a janela de validade do certificado x509 e
// grava a configuração como ativa para o tipo. A janela nunca vem do operador;
// sempre do próprio certificado.
func (uc *CertificateUseCase) Register(ctx context.Context, documentType, certPath, password, environment string) (*entity.CertificateConfig, error) {
	if !entity.ValidDocumentType(documentType) || certPath == "" {
		return nil, domain.ErrInvalidInput
	}
	if environment != entity.EnvironmentHomologacao && environment != entity.EnvironmentProducao {
		return nil, domain.ErrInvalidInput
	}

	holder, validFrom, validUntil, err := uc.inspector.Inspect(certPath, password)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	cfg := &entity.CertificateConfig{
		ID:           uuid.New().String(),
		DocumentType: documentType,
		CertPath:     certPath,
		CertPassword: password,
		Environment:  environment,
		Holder:       holder,
		ValidFrom:    validFrom,
		ValidUntil:   validUntil,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
