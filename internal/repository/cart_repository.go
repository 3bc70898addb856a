package repository

import (
	"context"

	"bookstore/internal/domain/model"
)

type CartRepository interface {
	Create(ctx context.Context, cart model.Cart) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 注文確定用。トランザクション内で行ロックを取って取得する。
	FindByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error)
}
