package transport

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
)

// packageSizes の行数の上限
const MaxPackageSizes = 50

var packageSizeKeyRe = regexp.MustCompile(`^packageSizes\[(\d+)\]\[([A-Za-z]+)\]$`)

// Decode は送信形式を入力形式（テキストのまま）に戻す。
// どのGroupのフィールドを使うかはここでは決めない（typeから後で決める）。
// 壊れたエンコードは FieldFormat の catalog.FieldErrors を返す。
func Decode(rec Record) (catalog.Draft, error) {
	errs := catalog.FieldErrors{}

	d := catalog.Draft{
		Name:        rec.Fields[catalog.FieldName],
		Description: rec.Fields[catalog.FieldDescription],
		Category:    rec.Fields[catalog.FieldCategory],
		Type:        rec.Fields[catalog.FieldType],
		IsActive:    true,
		Price:       rec.Fields[catalog.FieldPrice],
		Stock:       rec.Fields[catalog.FieldStock],
		StockInKg:   rec.Fields[catalog.FieldStockInKg],
	}

	if raw, ok := rec.Fields[catalog.FieldIsActive]; ok && strings.TrimSpace(raw) != "" {
		b, err := cast.ToBoolE(strings.TrimSpace(raw))
		if err != nil {
			errs.Add(catalog.FieldIsActive, catalog.KindFieldFormat, "isActive must be true or false")
		} else {
			d.IsActive = b
		}
	}

	sizes, err := decodePackageSizes(rec.Fields)
	if err != nil {
		errs.Add(catalog.FieldPackageSizes, catalog.KindFieldFormat, err.Error())
	} else {
		d.PackageSizes = sizes
	}

	if err := errs.Err(); err != nil {
		return catalog.Draft{}, err
	}
	return d, nil
}

// decodePackageSizes は packageSizes[i][field] のキー、
// または packageSizes に入ったJSON配列を読む。
// 添字の抜けは詰めて、添字順に並べる。
func decodePackageSizes(fields map[string]string) ([]catalog.PackageSizeDraft, error) {
	items := map[int]*catalog.PackageSizeDraft{}

	for key, v := range fields {
		if key == catalog.FieldPackageSizes || !strings.HasPrefix(key, catalog.FieldPackageSizes) {
			continue
		}
		m := packageSizeKeyRe.FindStringSubmatch(key)
		if m == nil {
			return nil, fmt.Errorf("malformed key %q", key)
		}
		// 00 と 0 が同じ行になるので先頭0は不可
		if len(m[1]) > 1 && m[1][0] == '0' {
			return nil, fmt.Errorf("malformed index in %q", key)
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx >= MaxPackageSizes {
			return nil, fmt.Errorf("index out of range in %q", key)
		}

		item, ok := items[idx]
		if !ok {
			item = &catalog.PackageSizeDraft{}
			items[idx] = item
		}
		switch m[2] {
		case catalog.SubFieldSizeInKg:
			item.SizeInKg = v
		case catalog.SubFieldPrice:
			item.Price = v
		default:
			return nil, fmt.Errorf("unknown package size field %q", m[2])
		}
	}

	raw, hasJSON := fields[catalog.FieldPackageSizes]
	if hasJSON && strings.TrimSpace(raw) != "" {
		if len(items) > 0 {
			return nil, fmt.Errorf("packageSizes sent both as JSON and as indexed keys")
		}
		return decodePackageSizesJSON(raw)
	}

	if len(items) == 0 {
		return nil, nil
	}

	indexes := make([]int, 0, len(items))
	for i := range items {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]catalog.PackageSizeDraft, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, *items[i])
	}
	return out, nil
}

type jsonPackageSize struct {
	SizeInKg flexString `json:"sizeInKg"`
	Price    flexString `json:"price"`
}

// flexString は "0.5" と 0.5 のどちらも受け付ける
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func decodePackageSizesJSON(raw string) ([]catalog.PackageSizeDraft, error) {
	var items []jsonPackageSize
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("packageSizes is not a valid JSON array")
	}
	if len(items) > MaxPackageSizes {
		return nil, fmt.Errorf("too many package sizes")
	}

	out := make([]catalog.PackageSizeDraft, 0, len(items))
	for _, it := range items {
		out = append(out, catalog.PackageSizeDraft{
			SizeInKg: string(it.SizeInKg),
			Price:    string(it.Price),
		})
	}
	return out, nil
}
