package repository

import (
	"context"

	"github.com/vfarias/gestor-api/internal/domain/entity"
)

// ClientRepository porta de leitura do cadastro de clientes (o CRUD completo
// pertence às telas do console, fora deste núcleo).
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Client, error)
	Create(ctx context.Context, client *entity.Client) error
}
