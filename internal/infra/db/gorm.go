package db

import (
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/model"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if !debug {
		cfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	gdb, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return gdb, nil
}

// Migrate は商品と監査ログのテーブルを作る
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&model.Product{},
		&model.AuditLog{},
	); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}
