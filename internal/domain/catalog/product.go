package catalog

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// フィールド名（transportのキー、エラーパスと共通）
const (
	FieldName         = "name"
	FieldDescription  = "description"
	FieldCategory     = "category"
	FieldType         = "type"
	FieldIsActive     = "isActive"
	FieldPrice        = "price"
	FieldStock        = "stock"
	FieldStockInKg    = "stockInKg"
	FieldPackageSizes = "packageSizes"
	FieldImage        = "image"

	SubFieldSizeInKg = "sizeInKg"
	SubFieldPrice    = "price"
)

// GroupFields はGroupに属するフィールド
func GroupFields(g Group) []string {
	switch g {
	case GroupWeightBased:
		return []string{FieldStockInKg, FieldPackageSizes}
	case GroupUnitBased:
		return []string{FieldPrice, FieldStock}
	default:
		return nil
	}
}

// Other は反対側のGroup
func (g Group) Other() Group {
	if g == GroupWeightBased {
		return GroupUnitBased
	}
	return GroupWeightBased
}

// PackageSizePath は packageSizes.<i>.<field> 形式のエラーパス。
func PackageSizePath(index int, field string) string {
	return FieldPackageSizes + "." + strconv.Itoa(index) + "." + field
}

// Draft は入力途中の商品。数値はテキストのまま持つ。
type Draft struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Category     string             `json:"category"`
	Type         string             `json:"type"`
	IsActive     bool               `json:"isActive"`
	Price        string             `json:"price"`
	Stock        string             `json:"stock"`
	StockInKg    string             `json:"stockInKg"`
	PackageSizes []PackageSizeDraft `json:"packageSizes"`
}

type PackageSizeDraft struct {
	SizeInKg string `json:"sizeInKg"`
	Price    string `json:"price"`
}

// Clone はPackageSizesも含めてコピーする
func (d Draft) Clone() Draft {
	out := d
	if d.PackageSizes != nil {
		out.PackageSizes = make([]PackageSizeDraft, len(d.PackageSizes))
		copy(out.PackageSizes, d.PackageSizes)
	}
	return out
}

// Attributes は販売形態ごとの属性。WeightAttributes か UnitAttributes のどちらか。
// 両方・どちらも無い状態は作れない。
type Attributes interface {
	Group() Group
	isAttributes()
}

type PackageSize struct {
	SizeInKg decimal.Decimal `json:"sizeInKg"`
	Price    decimal.Decimal `json:"price"`
}

// 量り売り
type WeightAttributes struct {
	StockInKg    decimal.Decimal
	PackageSizes []PackageSize
}

func (WeightAttributes) Group() Group { return GroupWeightBased }
func (WeightAttributes) isAttributes() {}

// 単品
type UnitAttributes struct {
	Price decimal.Decimal
	Stock int64
}

func (UnitAttributes) Group() Group { return GroupUnitBased }
func (UnitAttributes) isAttributes() {}

// ProductData は検証済みの商品（id・時刻なし）
type ProductData struct {
	Name        string
	Description string
	Category    Category
	Type        string
	IsActive    bool
	Attributes  Attributes
}

// Group はAttributesから決まる販売形態
func (p ProductData) Group() Group {
	if p.Attributes == nil {
		return ""
	}
	return p.Attributes.Group()
}

// ToDraft は検証済みデータを入力形式に戻す（再検証・編集画面の初期値用）
func (p ProductData) ToDraft() Draft {
	d := Draft{
		Name:        p.Name,
		Description: p.Description,
		Category:    string(p.Category),
		Type:        p.Type,
		IsActive:    p.IsActive,
	}
	switch a := p.Attributes.(type) {
	case WeightAttributes:
		d.StockInKg = a.StockInKg.String()
		d.PackageSizes = make([]PackageSizeDraft, 0, len(a.PackageSizes))
		for _, ps := range a.PackageSizes {
			d.PackageSizes = append(d.PackageSizes, PackageSizeDraft{
				SizeInKg: ps.SizeInKg.String(),
				Price:    ps.Price.String(),
			})
		}
	case UnitAttributes:
		d.Price = a.Price.String()
		d.Stock = strconv.FormatInt(a.Stock, 10)
	}
	return d
}
