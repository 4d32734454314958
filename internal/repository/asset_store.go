package repository

import (
	"context"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/transport"
)

// アップロード済みの画像
type StoredAsset struct {
	URL      string
	PublicID string
}

// 画像の外部保存の約束（アップロード/削除だけ）。
type AssetStore interface {
	Upload(ctx context.Context, file transport.File) (StoredAsset, error)
	Delete(ctx context.Context, publicID string) error
}
