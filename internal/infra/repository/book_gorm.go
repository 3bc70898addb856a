package repository

import (
	"context"
	"errors"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"gorm.io/gorm"
)

type BookGormRepository struct {
	db *gorm.DB
}

// DI
func NewBookGormRepository(db *gorm.DB) *BookGormRepository {
	return &BookGormRepository{db: db}
}

// 一覧（ページング付き）。ソフトデリート済みはgormが自動で除外する。
func (r *BookGormRepository) List(ctx context.Context, page int, limit int) ([]model.Book, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Book{}).Count(&total).Error; err != nil {
		return []model.Book{}, 0, err
	}

	var books []model.Book
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Order("id asc").
		Limit(limit).
		Offset(offset).
		Find(&books).Error
	if err != nil {
		return []model.Book{}, 0, err
	}

	return books, total, nil
}

// Search は合成済み述語を適用して実行する。
func (r *BookGormRepository) Search(ctx context.Context, spec repo.BookSpecification, page int, limit int) ([]model.Book, int64, error) {
	base := spec(r.db.WithContext(ctx).Model(&model.Book{}))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return []model.Book{}, 0, err
	}

	var books []model.Book
	offset := (page - 1) * limit
	err := base.
		Order("id asc").
		Limit(limit).
		Offset(offset).
		Find(&books).Error
	if err != nil {
		return []model.Book{}, 0, err
	}

	return books, total, nil
}

func (r *BookGormRepository) FindByID(ctx context.Context, id int64) (model.Book, error) {
	var b model.Book
	err := r.db.WithContext(ctx).Preload("Categories").First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Book{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Book{}, err
	}
	return b, nil
}

// カテゴリIDで書籍を取得
func (r *BookGormRepository) ListByCategoryID(ctx context.Context, categoryID int64) ([]model.Book, error) {
	var books []model.Book
	err := r.db.WithContext(ctx).
		Joins("join book_categories on book_categories.book_id = books.id").
		Where("book_categories.category_id = ?", categoryID).
		Order("books.id asc").
		Find(&books).Error
	if err != nil {
		return []model.Book{}, err
	}
	return books, nil
}

func (r *BookGormRepository) Create(ctx context.Context, b model.Book) (model.Book, error) {
	// ISBNの一意制約違反はErrConflictにする
	if err := r.db.WithContext(ctx).Create(&b).Error; err != nil {
		return model.Book{}, translateConflict(err)
	}
	return b, nil
}

func (r *BookGormRepository) Update(ctx context.Context, b model.Book) error {
	res := r.db.WithContext(ctx).Model(&model.Book{}).Where("id = ?", b.ID).Updates(map[string]interface{}{
		"title":       b.Title,
		"isbn":        b.ISBN,
		"price":       b.Price,
		"description": b.Description,
		"cover_image": b.CoverImage,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}

	// カテゴリの付け替え
	if b.Categories != nil {
		if err := r.db.WithContext(ctx).Model(&b).Association("Categories").Replace(b.Categories); err != nil {
			return err
		}
	}
	return nil
}

func (r *BookGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Book{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
