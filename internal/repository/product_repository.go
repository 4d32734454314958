package repository

import (
	"context"
	"errors"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Category string
	Type     string
	// nilなら公開/非公開どちらも
	IsActive *bool
	// name/description/category/type の部分一致
	Q    string
	Sort string
}

// 商品の永続化（保存・取得）だけを約束。
// Create/Updateは保存前に必ず非アクティブ側のGroupを消す。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id string) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	// unset はNULLに戻すフィールド名（省略とは区別する）
	Update(ctx context.Context, p model.Product, unset []string) (model.Product, error)
	Delete(ctx context.Context, id string) error
}
