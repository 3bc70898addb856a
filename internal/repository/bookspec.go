package repository

import (
	"fmt"

	"gorm.io/gorm"
)

// BookSpecification は検索条件1グループ分をクエリに適用する述語。
// 実行はBookRepository.Searchに任せ、ここでは組み立てだけを行う。
type BookSpecification func(tx *gorm.DB) *gorm.DB

// 検索対象フィールド。文字列キーでの動的ディスパッチはやめて、
// 列挙したフィールドだけをコンパイル時に結び付ける。
type SearchField string

const (
	SearchFieldTitle SearchField = "title"
	SearchFieldISBN  SearchField = "isbn"
	SearchFieldPrice SearchField = "price"
)

// 任意指定の検索パラメータ群。空のグループは無視される。
type BookSearchParams struct {
	Titles []string
	ISBNs  []string
	Prices []string
}

// SpecificationProviderFor は対象フィールドの述語ビルダーを返す。
// 未登録のフィールドは設定ミスなので黙って無視せず即エラー。
func SpecificationProviderFor(field SearchField) (func(values []string) BookSpecification, error) {
	switch field {
	case SearchFieldTitle:
		return inSpec("title"), nil
	case SearchFieldISBN:
		return inSpec("isbn"), nil
	case SearchFieldPrice:
		return inSpec("price"), nil
	default:
		return nil, fmt.Errorf("no specification provider for field %q", string(field))
	}
}

// 値リストのどれかに一致（IN）。部分一致ではない。
func inSpec(column string) func(values []string) BookSpecification {
	return func(values []string) BookSpecification {
		return func(tx *gorm.DB) *gorm.DB {
			return tx.Where(column+" IN ?", values)
		}
	}
}

// BuildBookSpecification は空でないグループを宣言順にANDで合成する。
// 全グループが空なら全件にマッチする述語を返す。
func BuildBookSpecification(params BookSearchParams) (BookSpecification, error) {
	groups := []struct {
		field  SearchField
		values []string
	}{
		{SearchFieldTitle, params.Titles},
		{SearchFieldISBN, params.ISBNs},
		{SearchFieldPrice, params.Prices},
	}

	specs := make([]BookSpecification, 0, len(groups))
	for _, g := range groups {
		if len(g.values) == 0 {
			continue
		}
		provider, err := SpecificationProviderFor(g.field)
		if err != nil {
			return nil, err
		}
		specs = append(specs, provider(g.values))
	}

	return func(tx *gorm.DB) *gorm.DB {
		for _, s := range specs {
			tx = s(tx)
		}
		return tx
	}, nil
}
