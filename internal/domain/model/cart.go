package model

import (
	"time"

	"gorm.io/gorm"
)

// 1ユーザーにつきカートは1つ。会員登録時に作成し、
// 退会時のソフトデリート以外では消さない。
type Cart struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64          `gorm:"not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
