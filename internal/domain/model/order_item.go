package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 注文明細。Priceは注文時点の書籍価格×数量のスナップショットで、
// 以後Book.Priceが変わっても再計算しない。
type OrderItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"not null;index" json:"order_id"`
	BookID    int64           `gorm:"not null;index" json:"book_id"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}
