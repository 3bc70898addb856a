package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 書籍。価格は注文時にスナップショットされるので、
// ここを後から変えても既存のOrderItemには影響しない。
type Book struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	ISBN        string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"isbn"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Description string          `gorm:"type:text" json:"description"`
	CoverImage  string          `gorm:"type:varchar(512)" json:"cover_image"`
	Categories  []Category      `gorm:"many2many:book_categories" json:"categories,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}
