package transport

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
)

// Encode は検証済みの商品を送信形式にする。
// 非アクティブなGroupのフィールドは空でも送らない。
// 画像は新しく選んだときだけ渡す（既存の画像は再送しない）。
func Encode(data catalog.ProductData, image *File) Record {
	fields := map[string]string{
		catalog.FieldName:        data.Name,
		catalog.FieldDescription: data.Description,
		catalog.FieldCategory:    string(data.Category),
		catalog.FieldType:        data.Type,
		catalog.FieldIsActive:    strconv.FormatBool(data.IsActive),
	}

	switch a := data.Attributes.(type) {
	case catalog.WeightAttributes:
		fields[catalog.FieldStockInKg] = a.StockInKg.String()

		i := 0
		for _, ps := range a.PackageSizes {
			// 片方でも欠けている行は送らない
			if !ps.SizeInKg.IsPositive() || !ps.Price.IsPositive() {
				continue
			}
			fields[PackageSizeKey(i, catalog.SubFieldSizeInKg)] = ps.SizeInKg.String()
			fields[PackageSizeKey(i, catalog.SubFieldPrice)] = ps.Price.String()
			i++
		}
	case catalog.UnitAttributes:
		fields[catalog.FieldPrice] = a.Price.String()
		fields[catalog.FieldStock] = strconv.FormatInt(a.Stock, 10)
	}

	return Record{Fields: fields, Image: image}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// WriteMultipart はRecordを multipart/form-data に書き出す。
func WriteMultipart(w *multipart.Writer, rec Record) error {
	for _, k := range rec.Keys() {
		if err := w.WriteField(k, rec.Fields[k]); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if rec.Image == nil {
		return nil
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		catalog.FieldImage, quoteEscaper.Replace(rec.Image.Filename)))
	contentType := rec.Image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(part, rec.Image.Body); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}
