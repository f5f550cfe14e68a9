package repository

import (
	"context"

	"github.com/vfarias/gestor-api/internal/domain/entity"
)

// UserRepository porta de persistência de operadores.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}
