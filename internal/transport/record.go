// Package transport は商品フォームの送信形式（フラットなkey/value＋画像）を扱う。
package transport

import (
	"fmt"
	"io"
	"sort"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
)

// File は送信する画像
type File struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Record はフラットなkey/valueと、差し替え時だけ付く画像。
type Record struct {
	Fields map[string]string
	Image  *File
}

// NewRecord はフォームの値（先頭の値だけ使う）からRecordを作る
func NewRecord(values map[string][]string) Record {
	fields := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		fields[k] = vs[0]
	}
	return Record{Fields: fields}
}

func (r Record) Get(key string) (string, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

func (r Record) Has(key string) bool {
	_, ok := r.Fields[key]
	return ok
}

// Keys はソート済みのキー一覧
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PackageSizeKey は packageSizes[i][field] 形式のキー
func PackageSizeKey(index int, field string) string {
	return fmt.Sprintf("%s[%d][%s]", catalog.FieldPackageSizes, index, field)
}
