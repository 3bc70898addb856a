package repository

import (
	"context"

	"bookstore/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	// 同一書籍は数量加算
	UpsertByCartAndBook(ctx context.Context, cartID int64, bookID int64, addQty int64) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	// 注文確定で消費した明細の一括削除。ロック中に読んだIDだけを消し、
	// 読み取り後に追加された明細は巻き込まない。
	DeleteByIDs(ctx context.Context, cartItemIDs []int64) error
	IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error)
}
