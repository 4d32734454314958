package usecase

import (
	"strings"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/transport"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/validator"
)

// NormalizedProduct はサーバ側で検証し直した商品と、NULLに戻すフィールド。
type NormalizedProduct struct {
	Data catalog.ProductData
	// 非アクティブ側のGroupのフィールド（前の分類の値を消すため）
	Unset []string
}

// NormalizeProduct は送信形式を読み、typeからGroupを決め直して検証する。
// クライアントが送ってきた非アクティブ側の値は使わない。
// I/Oの前に呼ぶ（失敗したら何も書かない）。
func NormalizeProduct(rec transport.Record, table *catalog.Table) (NormalizedProduct, error) {
	d, err := transport.Decode(rec)
	if err != nil {
		return NormalizedProduct{}, err
	}

	if g, ok := table.GroupOf(strings.TrimSpace(d.Type)); ok {
		d = dropGroup(d, g.Other())
	}

	data, err := validator.ValidateProduct(d, table)
	if err != nil {
		return NormalizedProduct{}, err
	}

	return NormalizedProduct{
		Data:  data,
		Unset: catalog.GroupFields(data.Group().Other()),
	}, nil
}

func dropGroup(d catalog.Draft, g catalog.Group) catalog.Draft {
	switch g {
	case catalog.GroupWeightBased:
		d.StockInKg = ""
		d.PackageSizes = nil
	case catalog.GroupUnitBased:
		d.Price = ""
		d.Stock = ""
	}
	return d
}
