package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/model"
	repo "github.com/zvMateo/yerbaXanaes-main-sub000/internal/repository"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

func (r *AuditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(&log).Error; err != nil {
		return errors.Wrapf(err, "create audit log %s %s", log.Action, log.ResourceID)
	}
	return nil
}

func (r *AuditLogGormRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	tx := whereAudit(r.db.WithContext(ctx).Model(&model.AuditLog{}), filter)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count audit logs")
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var logs []model.AuditLog
	err := tx.
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list audit logs")
	}
	return logs, total, nil
}

// 一致条件はまとめてmapで渡す
func whereAudit(q *gorm.DB, f repo.AuditLogFilter) *gorm.DB {
	eq := map[string]interface{}{}
	if f.ActorUserID != nil {
		eq["actor_user_id"] = *f.ActorUserID
	}
	if f.Action != nil {
		eq["action"] = string(*f.Action)
	}
	if f.ResourceType != nil {
		eq["resource_type"] = string(*f.ResourceType)
	}
	if f.ResourceID != nil {
		eq["resource_id"] = *f.ResourceID
	}
	if len(eq) > 0 {
		q = q.Where(eq)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}
	return q
}
