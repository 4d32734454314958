package usecase

import (
	"context"
	"net/http"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/model"
	repo "github.com/zvMateo/yerbaXanaes-main-sub000/internal/repository"
)

type AuditLogUsecase struct {
	auditRepo repo.AuditLogRepository
}

// DI
func NewAuditLogUsecase(auditRepo repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{auditRepo: auditRepo}
}

type AuditLogPage struct {
	Items  []model.AuditLog `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// 監査ログの一覧（新しい順）
func (u *AuditLogUsecase) List(ctx context.Context, f repo.AuditLogFilter) (AuditLogPage, error) {
	if f.Limit < 0 || f.Limit > 200 {
		return AuditLogPage{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Offset < 0 {
		return AuditLogPage{}, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedFrom.After(*f.CreatedTo) {
		return AuditLogPage{}, NewHTTPError(http.StatusBadRequest, "from must be <= to")
	}

	logs, total, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return AuditLogPage{}, dbError("list audit logs", err)
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return AuditLogPage{Items: logs, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}
