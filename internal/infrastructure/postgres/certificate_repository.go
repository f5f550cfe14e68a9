package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vfarias/gestor-api/internal/domain/entity"
	"github.com/vfarias/gestor-api/internal/domain/repository"
)

var _ repository.CertificateConfigRepository = (*CertificateConfigRepo)(nil)

// CertificateConfigRepo implementação de CertificateConfigRepository sobre PostgreSQL.
type CertificateConfigRepo struct {
	q Querier
}

// NewCertificateConfigRepository constrói o adaptador. Passar pool ou tx (Querier).
func NewCertificateConfigRepository(q Querier) *CertificateConfigRepo {
	return &CertificateConfigRepo{q: q}
}

// GetActiveByType obtém a configuração ativa do tipo. Devolve (nil, nil) se não há.
func (r *CertificateConfigRepo) GetActiveByType(ctx context.Context, documentType string) (*entity.CertificateConfig, error) {
	query := `
		SELECT id, document_type, cert_path, cert_password, environment, COALESCE(holder, ''),
		       valid_from, valid_until, active, created_at, updated_at
		FROM certificate_configs
		WHERE document_type = $1 AND active = true
		ORDER BY updated_at DESC
		LIMIT 1`
	var cfg entity.CertificateConfig
	err := r.q.QueryRow(ctx, query, documentType).Scan(
		&cfg.ID, &cfg.DocumentType, &cfg.CertPath, &cfg.CertPassword, &cfg.Environment, &cfg.Holder,
		&cfg.ValidFrom, &cfg.ValidUntil, &cfg.Active, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get certificate config: %w", err)
	}
	return &cfg, nil
}

// Upsert grava a configuração do tipo desativando a anterior. Duas queries sem
// tx: o pior caso de corrida deixa duas ativas e GetActiveByType pega a mais nova.
func (r *CertificateConfigRepo) Upsert(ctx context.Context, cfg *entity.CertificateConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	deactivate := `UPDATE certificate_configs SET active = false, updated_at = $2 WHERE document_type = $1 AND active = true`
	if _, err := r.q.Exec(ctx, deactivate, cfg.DocumentType, cfg.UpdatedAt); err != nil {
		return fmt.Errorf("deactivate previous certificate: %w", err)
	}
	insert := `
		INSERT INTO certificate_configs (id, document_type, cert_path, cert_password, environment, holder,
			valid_from, valid_until, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, insert,
		cfg.ID, cfg.DocumentType, cfg.CertPath, cfg.CertPassword, cfg.Environment, nullIfEmpty(cfg.Holder),
		cfg.ValidFrom, cfg.ValidUntil, cfg.Active, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert certificate config: %w", err)
	}
	return nil
}
