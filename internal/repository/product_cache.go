package repository

import (
	"context"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/model"
)

// 公開商品の読み取りキャッシュ。
// 失敗しても呼び出し元はDBにフォールバックする。
type ProductCache interface {
	// ヒットしなければ ok=false
	Get(ctx context.Context, id string) (p model.Product, ok bool, err error)
	Set(ctx context.Context, p model.Product) error
	Invalidate(ctx context.Context, id string) error
}
