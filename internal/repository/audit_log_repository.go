package repository

import (
	"context"
	"time"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/model"
)

// AuditLogFilter は監査ログ一覧の条件。nilの項目は絞り込まない。
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int // 0なら既定値
	Offset       int
}

// AuditLogRepository は商品変更の記録。書き込みは商品と同じTxで行う。
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error

	// 新しい順のページと、条件に合う総件数
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, int64, error)
}
