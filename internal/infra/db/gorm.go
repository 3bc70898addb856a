package db

import (
	"fmt"
	"os"

	"bookstore/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect は設定からDSNを組み立てて *gorm.DB を返す。
// DATABASE_URL があればそちらを最優先で使う。
func Connect(cfg config.Config) (*gorm.DB, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		orDefault(cfg.PostgresHost, "localhost"),
		cfg.PostgresPort,
		orDefault(cfg.PostgresUser, "postgres"),
		orDefault(cfg.PostgresPassword, "postgres"),
		orDefault(cfg.PostgresDB, "bookstore"),
		orDefault(os.Getenv("POSTGRES_SSLMODE"), "disable"),
	)

	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func orDefault(v string, def string) string {
	if v == "" {
		return def
	}
	return v
}
