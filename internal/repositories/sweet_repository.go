package repositories

import (
	"context"

	"sweetshop/internal/models"
)

// SweetRepository defines the interface for sweet data access.
//
// Decrement and Increment must be atomic with respect to concurrent callers on
// the same record: a decrement never leaves quantity below zero.
type SweetRepository interface {
	Create(ctx context.Context, sweet *models.Sweet) error
	GetAll(ctx context.Context) ([]models.Sweet, error)
	GetByID(ctx context.Context, id uint) (*models.Sweet, error)
	Search(ctx context.Context, filter models.SweetFilter) ([]models.Sweet, error)
	Update(ctx context.Context, id uint, patch models.SweetPatch) (*models.Sweet, error)
	Decrement(ctx context.Context, id uint, quantity int) (*models.Sweet, error)
	Increment(ctx context.Context, id uint, quantity int) (*models.Sweet, error)
	Delete(ctx context.Context, id uint) error
}
