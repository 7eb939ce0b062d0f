package files

import (
	"context"

	"github.com/dmitrijs2005/filedrop/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id string) (*models.File, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.File, error)
	FindByStorageKey(ctx context.Context, storageKey string) (*models.File, error)
	Delete(ctx context.Context, id string) error
}
