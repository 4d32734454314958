package validator

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
)

// 商品名の最低文字数
const MinNameLength = 3

// 数値の桁数の上限（保存先カラムの精度に合わせる）
type decimalLimit struct {
	intDigits int64 // 整数部の最大桁数
	scale     int32 // 小数部の最大桁数
}

var (
	// price numeric(12,2)
	moneyLimit = decimalLimit{intDigits: 10, scale: 2}
	// stock_in_kg numeric(12,3)
	kgLimit = decimalLimit{intDigits: 9, scale: 3}
)

// 数値テキストの最大長。これより長いものはパースしない。
const maxNumericText = 32

// ValidateProduct は入力途中の商品を検証し、型付きのProductDataにする。
// エラーは catalog.FieldErrors（パス→エラー）で返す。
// 画面側とサーバ側の両方がこの関数を使う。
func ValidateProduct(d catalog.Draft, table *catalog.Table) (catalog.ProductData, error) {
	errs := catalog.FieldErrors{}

	name := strings.TrimSpace(d.Name)
	if utf8.RuneCountInString(name) < MinNameLength {
		errs.Add(catalog.FieldName, catalog.KindRequiredField,
			fmt.Sprintf("name must be at least %d characters", MinNameLength))
	}

	category := strings.TrimSpace(d.Category)
	if !table.IsCategory(category) {
		errs.Add(catalog.FieldCategory, catalog.KindInvalidClassification, "category is not valid")
	}

	typ := strings.TrimSpace(d.Type)
	switch {
	case typ == "":
		errs.Add(catalog.FieldType, catalog.KindRequiredField, "type is required")
	case !table.Allows(catalog.Category(category), typ):
		errs.Add(catalog.FieldType, catalog.KindInvalidClassification,
			fmt.Sprintf("type %q is not valid for category %q", typ, category))
	}

	out := catalog.ProductData{
		Name:        name,
		Description: strings.TrimSpace(d.Description),
		Category:    catalog.Category(category),
		Type:        typ,
		IsActive:    d.IsActive,
	}

	// typeが表にあればカテゴリ不一致でもGroupのチェックは行う
	if group, ok := table.GroupOf(typ); ok {
		switch group {
		case catalog.GroupWeightBased:
			out.Attributes = validateWeight(d, errs)
		case catalog.GroupUnitBased:
			out.Attributes = validateUnit(d, errs)
		}
	}

	if err := errs.Err(); err != nil {
		return catalog.ProductData{}, err
	}
	return out, nil
}

func validateWeight(d catalog.Draft, errs catalog.FieldErrors) catalog.Attributes {
	attrs := catalog.WeightAttributes{}

	if v, ok := positiveDecimal(d.StockInKg, catalog.FieldStockInKg, kgLimit, errs); ok {
		attrs.StockInKg = v
	}

	if len(d.PackageSizes) == 0 {
		errs.Add(catalog.FieldPackageSizes, catalog.KindAggregateValidation,
			"at least one package size is required")
		return attrs
	}

	for i, ps := range d.PackageSizes {
		size, sizeOK := positiveDecimal(ps.SizeInKg, catalog.PackageSizePath(i, catalog.SubFieldSizeInKg), kgLimit, errs)
		price, priceOK := positiveDecimal(ps.Price, catalog.PackageSizePath(i, catalog.SubFieldPrice), moneyLimit, errs)
		if sizeOK && priceOK {
			attrs.PackageSizes = append(attrs.PackageSizes, catalog.PackageSize{SizeInKg: size, Price: price})
		}
	}

	// 各行のエラーとは別に、リスト全体のエラーも出す
	if len(attrs.PackageSizes) == 0 {
		errs.Add(catalog.FieldPackageSizes, catalog.KindAggregateValidation,
			"at least one package size needs both size and price")
	}
	return attrs
}

func validateUnit(d catalog.Draft, errs catalog.FieldErrors) catalog.Attributes {
	attrs := catalog.UnitAttributes{}

	if v, ok := positiveDecimal(d.Price, catalog.FieldPrice, moneyLimit, errs); ok {
		attrs.Price = v
	}

	raw := strings.TrimSpace(d.Stock)
	if raw == "" {
		errs.Add(catalog.FieldStock, catalog.KindRequiredField, "stock is required")
		return attrs
	}
	if len(raw) > maxNumericText {
		errs.Add(catalog.FieldStock, catalog.KindRequiredField, "stock is too long")
		return attrs
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if _, decErr := decimal.NewFromString(raw); decErr == nil {
			errs.Add(catalog.FieldStock, catalog.KindRequiredField, "stock must be a whole number")
		} else {
			errs.Add(catalog.FieldStock, catalog.KindRequiredField, "stock must be a number")
		}
		return attrs
	}
	if n < 0 {
		errs.Add(catalog.FieldStock, catalog.KindRequiredField, "stock must be 0 or greater")
		return attrs
	}
	attrs.Stock = n
	return attrs
}

// positiveDecimal は空文字を「未入力」として扱い、> 0 かつ limit に収まる数値だけ通す。
func positiveDecimal(raw string, path string, limit decimalLimit, errs catalog.FieldErrors) (decimal.Decimal, bool) {
	label := fieldLabel(path)

	raw = strings.TrimSpace(raw)
	if raw == "" {
		errs.Add(path, catalog.KindRequiredField, label+" is required")
		return decimal.Zero, false
	}
	if len(raw) > maxNumericText {
		errs.Add(path, catalog.KindRequiredField, label+" is too long")
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		errs.Add(path, catalog.KindRequiredField, label+" must be a number")
		return decimal.Zero, false
	}
	if !v.IsPositive() {
		errs.Add(path, catalog.KindRequiredField, label+" must be greater than 0")
		return decimal.Zero, false
	}
	if msg := checkDigits(v, limit); msg != "" {
		errs.Add(path, catalog.KindRequiredField, label+" "+msg)
		return decimal.Zero, false
	}
	return v, true
}

// checkDigits は係数と指数だけで桁数を見る（String()で展開しない）。
// 収まらなければメッセージを返す。
func checkDigits(v decimal.Decimal, limit decimalLimit) string {
	coef := new(big.Int).Abs(v.Coefficient())
	exp := int64(v.Exponent())

	// 1.500 → 15e-1
	ten := big.NewInt(10)
	rem := new(big.Int)
	for exp < 0 {
		q, r := new(big.Int).QuoRem(coef, ten, rem)
		if r.Sign() != 0 {
			break
		}
		coef = q
		exp++
	}

	if exp < -int64(limit.scale) {
		return fmt.Sprintf("must have at most %d decimal places", limit.scale)
	}
	if int64(len(coef.String()))+exp > limit.intDigits {
		return fmt.Sprintf("must have at most %d digits before the decimal point", limit.intDigits)
	}
	return ""
}

// packageSizes.0.price → price
func fieldLabel(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}
