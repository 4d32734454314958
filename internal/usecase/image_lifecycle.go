package usecase

import (
	"context"

	"go.uber.org/zap"

	repo "github.com/zvMateo/yerbaXanaes-main-sub000/internal/repository"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/transport"
)

// 画像の後片付けの種類
const (
	AssetOpReplace = "replace"
	AssetOpDelete  = "delete"
)

// ImageLifecycle は商品画像のアップロードと削除。
// アップロード失敗はエラー、削除失敗は警告にする。
type ImageLifecycle struct {
	store repo.AssetStore
	log   *zap.Logger
}

// DI
func NewImageLifecycle(store repo.AssetStore, log *zap.Logger) *ImageLifecycle {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImageLifecycle{store: store, log: log}
}

// Upload は新しい画像があればアップロードする。なければ uploaded=false。
func (l *ImageLifecycle) Upload(ctx context.Context, file *transport.File) (asset repo.StoredAsset, uploaded bool, err error) {
	if file == nil {
		return repo.StoredAsset{}, false, nil
	}

	asset, err = l.store.Upload(ctx, *file)
	if err != nil {
		l.log.Error("image upload failed",
			zap.String("filename", file.Filename),
			zap.Error(err),
		)
		return repo.StoredAsset{}, false, &UploadError{Err: err}
	}
	return asset, true, nil
}

// Discard は不要になった画像を消す。失敗しても止めずに警告を返す。
func (l *ImageLifecycle) Discard(ctx context.Context, op string, publicID string) *AssetWarning {
	if publicID == "" {
		return nil
	}
	if err := l.store.Delete(ctx, publicID); err != nil {
		l.log.Warn("image delete failed",
			zap.String("op", op),
			zap.String("publicId", publicID),
			zap.Error(err),
		)
		return &AssetWarning{Op: op, PublicID: publicID, Message: err.Error()}
	}
	return nil
}

// Orphaned は保存に失敗して参照されなくなった画像を記録する（自動では消さない）
func (l *ImageLifecycle) Orphaned(productID string, asset repo.StoredAsset, cause error) {
	l.log.Error("image orphaned after failed write",
		zap.String("productId", productID),
		zap.String("publicId", asset.PublicID),
		zap.Error(cause),
	)
}
