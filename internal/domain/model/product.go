package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
)

// Product は保存形式（検索用にフラット）。
// GroupごとのカラムはNULL可で、非アクティブ側は必ずNULLにする。
type Product struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(255);not null;check:chk_products_name,length(name) >= 3" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"type:varchar(50);not null;index" json:"category"`
	Type        string `gorm:"type:varchar(100);not null;index" json:"type"`
	IsActive    bool   `gorm:"not null;index" json:"isActive"`

	// 単品
	Price *decimal.Decimal `gorm:"type:numeric(12,2);check:chk_products_price,price IS NULL OR price > 0" json:"price,omitempty"`
	Stock *int64           `gorm:"check:chk_products_stock,stock IS NULL OR stock >= 0" json:"stock,omitempty"`

	// 量り売り
	StockInKg    *decimal.Decimal `gorm:"type:numeric(12,3);check:chk_products_stock_in_kg,stock_in_kg IS NULL OR stock_in_kg > 0" json:"stockInKg,omitempty"`
	PackageSizes datatypes.JSON   `json:"packageSizes,omitempty"`

	// 画像は両方あるか両方ないか
	ImageURL      *string `gorm:"type:text;check:chk_products_image,(image_url IS NULL) = (image_public_id IS NULL)" json:"imageUrl,omitempty"`
	ImagePublicID *string `gorm:"type:varchar(255)" json:"imagePublicId,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// packageSizes のJSON要素
type packageSizeJSON struct {
	SizeInKg decimal.Decimal `json:"sizeInKg"`
	Price    decimal.Decimal `json:"price"`
}

// Groupのフィールド名 → カラム名
var groupColumns = map[string]string{
	catalog.FieldPrice:        "price",
	catalog.FieldStock:        "stock",
	catalog.FieldStockInKg:    "stock_in_kg",
	catalog.FieldPackageSizes: "package_sizes",
}

// GroupColumn はGroupのフィールド名に対応するカラム名
func GroupColumn(field string) (string, bool) {
	c, ok := groupColumns[field]
	return c, ok
}

// ProductFromData は検証済みデータから保存形式を作る（画像・時刻は別に入れる）
func ProductFromData(id string, d catalog.ProductData) (Product, error) {
	p := Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Category:    string(d.Category),
		Type:        d.Type,
		IsActive:    d.IsActive,
	}
	if err := p.SetAttributes(d.Attributes); err != nil {
		return Product{}, err
	}
	return p, nil
}

// SetAttributes はGroupのカラムを入れ替える（もう片方はNULLに戻す）
func (p *Product) SetAttributes(a catalog.Attributes) error {
	p.clearGroup(catalog.GroupWeightBased)
	p.clearGroup(catalog.GroupUnitBased)

	switch v := a.(type) {
	case catalog.WeightAttributes:
		stock := v.StockInKg
		p.StockInKg = &stock

		items := make([]packageSizeJSON, 0, len(v.PackageSizes))
		for _, ps := range v.PackageSizes {
			items = append(items, packageSizeJSON{SizeInKg: ps.SizeInKg, Price: ps.Price})
		}
		b, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("marshal package sizes: %w", err)
		}
		p.PackageSizes = datatypes.JSON(b)
	case catalog.UnitAttributes:
		price := v.Price
		stock := v.Stock
		p.Price = &price
		p.Stock = &stock
	case nil:
	default:
		return fmt.Errorf("unknown attributes %T", a)
	}
	return nil
}

// ScrubInactiveGroup は現在のtypeから決まるGroupの反対側を消す。
// 呼び出し元が何を入れていても保存前に必ず通す。
func (p *Product) ScrubInactiveGroup(table *catalog.Table) (catalog.Group, error) {
	if !table.Allows(catalog.Category(p.Category), p.Type) {
		return "", fmt.Errorf("%w: type %q is not valid for category %q",
			catalog.ErrInvalidClassification, p.Type, p.Category)
	}
	g, _ := table.GroupOf(p.Type)
	p.clearGroup(g.Other())
	return g, nil
}

func (p *Product) clearGroup(g catalog.Group) {
	switch g {
	case catalog.GroupWeightBased:
		p.StockInKg = nil
		p.PackageSizes = nil
	case catalog.GroupUnitBased:
		p.Price = nil
		p.Stock = nil
	}
}

// PackageSizeList は保存されたJSONを読む
func (p Product) PackageSizeList() ([]catalog.PackageSize, error) {
	if len(p.PackageSizes) == 0 {
		return nil, nil
	}
	var items []packageSizeJSON
	if err := json.Unmarshal(p.PackageSizes, &items); err != nil {
		return nil, fmt.Errorf("unmarshal package sizes: %w", err)
	}
	out := make([]catalog.PackageSize, 0, len(items))
	for _, it := range items {
		out = append(out, catalog.PackageSize{SizeInKg: it.SizeInKg, Price: it.Price})
	}
	return out, nil
}

// Data は保存形式をGroup付きの値に戻す。
// アクティブ側のカラムが欠けている行はエラー。
func (p Product) Data(table *catalog.Table) (catalog.ProductData, error) {
	d := catalog.ProductData{
		Name:        p.Name,
		Description: p.Description,
		Category:    catalog.Category(p.Category),
		Type:        p.Type,
		IsActive:    p.IsActive,
	}

	g, ok := table.GroupOf(p.Type)
	if !ok {
		return catalog.ProductData{}, fmt.Errorf("%w: unknown type %q", catalog.ErrInvalidClassification, p.Type)
	}

	switch g {
	case catalog.GroupWeightBased:
		if p.StockInKg == nil {
			return catalog.ProductData{}, fmt.Errorf("product %s: stockInKg missing", p.ID)
		}
		sizes, err := p.PackageSizeList()
		if err != nil {
			return catalog.ProductData{}, err
		}
		d.Attributes = catalog.WeightAttributes{StockInKg: *p.StockInKg, PackageSizes: sizes}
	case catalog.GroupUnitBased:
		if p.Price == nil || p.Stock == nil {
			return catalog.ProductData{}, fmt.Errorf("product %s: price or stock missing", p.ID)
		}
		d.Attributes = catalog.UnitAttributes{Price: *p.Price, Stock: *p.Stock}
	}
	return d, nil
}

// SetImage は画像の参照を入れる（空なら両方外す）
func (p *Product) SetImage(url, publicID string) {
	if url == "" || publicID == "" {
		p.ImageURL = nil
		p.ImagePublicID = nil
		return
	}
	p.ImageURL = &url
	p.ImagePublicID = &publicID
}

// ImageRef は画像の公開IDと有無
func (p Product) ImageRef() (string, bool) {
	if p.ImagePublicID == nil || *p.ImagePublicID == "" {
		return "", false
	}
	return *p.ImagePublicID, true
}
