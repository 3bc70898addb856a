package repository

import (
	"context"
	"errors"

	"bookstore/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 同一カートへの同時注文などをストア側で検出したときに返す
var ErrConflict = errors.New("conflict")

// 書籍の永続化（保存・取得・検索）だけを約束。
type BookRepository interface {
	List(ctx context.Context, page int, limit int) ([]model.Book, int64, error)
	// Searchは合成済みの述語を実行する。述語の組み立てはbookspec.go側。
	Search(ctx context.Context, spec BookSpecification, page int, limit int) ([]model.Book, int64, error)
	FindByID(ctx context.Context, id int64) (model.Book, error)
	ListByCategoryID(ctx context.Context, categoryID int64) ([]model.Book, error)

	Create(ctx context.Context, b model.Book) (model.Book, error)
	Update(ctx context.Context, b model.Book) error
	SoftDelete(ctx context.Context, id int64) error
}
