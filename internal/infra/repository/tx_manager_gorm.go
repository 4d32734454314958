package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
	repo "github.com/zvMateo/yerbaXanaes-main-sub000/internal/repository"
)

type txReposGorm struct {
	products  repo.ProductRepository
	auditLogs repo.AuditLogRepository
}

func (r *txReposGorm) Products() repo.ProductRepository   { return r.products }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository { return r.auditLogs }

type TxManagerGorm struct {
	db    *gorm.DB
	table *catalog.Table
}

func NewTxManagerGorm(db *gorm.DB, table *catalog.Table) *TxManagerGorm {
	return &TxManagerGorm{db: db, table: table}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			products:  NewProductGormRepository(tx, tm.table),
			auditLogs: NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
