package repository

import (
	"context"

	"bookstore/internal/domain/model"
)

type CategoryRepository interface {
	List(ctx context.Context, page int, limit int) ([]model.Category, int64, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
	SoftDelete(ctx context.Context, id int64) error
}
