package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/shopspring/decimal"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

type BookUsecase struct {
	bookRepo     repo.BookRepository
	categoryRepo repo.CategoryRepository
}

// DI
func NewBookUsecase(bookRepo repo.BookRepository, categoryRepo repo.CategoryRepository) *BookUsecase {
	return &BookUsecase{
		bookRepo:     bookRepo,
		categoryRepo: categoryRepo,
	}
}

type CreateBookInput struct {
	Title       string
	ISBN        string
	Price       decimal.Decimal
	Description string
	CoverImage  string
	CategoryIDs []int64
}

// 部分更新。nilのフィールドは変更しない。
type UpdateBookInput struct {
	Title       *string
	ISBN        *string
	Price       *decimal.Decimal
	Description *string
	CoverImage  *string
	CategoryIDs []int64
}

// GET /books/search の入力
type SearchBooksInput struct {
	Titles []string
	ISBNs  []string
	Prices []string
	Page   int
	Limit  int
}

type BookListOutput struct {
	Items []model.Book `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (u *BookUsecase) List(ctx context.Context, page int, limit int) (BookListOutput, error) {
	if page < 1 {
		return BookListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return BookListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	items, total, err := u.bookRepo.List(ctx, page, limit)
	if err != nil {
		return BookListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return BookListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Search は空でないパラメータ群をANDで合成して検索する。
// パラメータが全部空なら全件。
func (u *BookUsecase) Search(ctx context.Context, in SearchBooksInput) (BookListOutput, error) {
	if in.Page < 1 {
		return BookListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return BookListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	spec, err := repo.BuildBookSpecification(repo.BookSearchParams{
		Titles: in.Titles,
		ISBNs:  in.ISBNs,
		Prices: in.Prices,
	})
	if err != nil {
		// プロバイダ未登録は設定ミス
		return BookListOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	items, total, err := u.bookRepo.Search(ctx, spec, in.Page, in.Limit)
	if err != nil {
		return BookListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return BookListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

func (u *BookUsecase) Get(ctx context.Context, id int64) (model.Book, error) {
	if id <= 0 {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	b, err := u.bookRepo.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return model.Book{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Book{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return b, nil
}

func (u *BookUsecase) ListByCategory(ctx context.Context, categoryID int64) ([]model.Book, error) {
	if categoryID <= 0 {
		return []model.Book{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if _, err := u.categoryRepo.FindByID(ctx, categoryID); err != nil {
		if err == repo.ErrNotFound {
			return []model.Book{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return []model.Book{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	books, err := u.bookRepo.ListByCategoryID(ctx, categoryID)
	if err != nil {
		return []model.Book{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return books, nil
}

func (u *BookUsecase) Create(ctx context.Context, in CreateBookInput) (model.Book, error) {
	if strings.TrimSpace(in.Title) == "" {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "invalid title")
	}
	if strings.TrimSpace(in.ISBN) == "" {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "invalid isbn")
	}
	if in.Price.IsNegative() {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "invalid price")
	}

	categories, err := u.resolveCategories(ctx, in.CategoryIDs)
	if err != nil {
		return model.Book{}, err
	}

	b := model.Book{
		Title:       strings.TrimSpace(in.Title),
		ISBN:        strings.TrimSpace(in.ISBN),
		Price:       in.Price,
		Description: in.Description,
		CoverImage:  in.CoverImage,
		Categories:  categories,
	}

	created, err := u.bookRepo.Create(ctx, b)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return model.Book{}, NewHTTPError(http.StatusConflict, "isbn already exists")
		}
		return model.Book{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return created, nil
}

func (u *BookUsecase) Update(ctx context.Context, id int64, in UpdateBookInput) (model.Book, error) {
	if id <= 0 {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	b, err := u.bookRepo.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return model.Book{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Book{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if in.Title != nil {
		b.Title = strings.TrimSpace(*in.Title)
	}
	if in.ISBN != nil {
		b.ISBN = strings.TrimSpace(*in.ISBN)
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return model.Book{}, NewHTTPError(http.StatusBadRequest, "invalid price")
		}
		b.Price = *in.Price
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.CoverImage != nil {
		b.CoverImage = *in.CoverImage
	}
	if in.CategoryIDs != nil {
		categories, err := u.resolveCategories(ctx, in.CategoryIDs)
		if err != nil {
			return model.Book{}, err
		}
		b.Categories = categories
	}

	if err := u.bookRepo.Update(ctx, b); err != nil {
		if err == repo.ErrNotFound {
			return model.Book{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return model.Book{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return b, nil
}

func (u *BookUsecase) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := u.bookRepo.SoftDelete(ctx, id); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// カテゴリIDを実在確認しつつモデルへ解決する
func (u *BookUsecase) resolveCategories(ctx context.Context, ids []int64) ([]model.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	categories := make([]model.Category, 0, len(ids))
	for _, id := range ids {
		c, err := u.categoryRepo.FindByID(ctx, id)
		if err == repo.ErrNotFound {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid category_id")
		}
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		categories = append(categories, c)
	}
	return categories, nil
}
