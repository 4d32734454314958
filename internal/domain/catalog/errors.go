package catalog

import (
	"errors"
	"sort"
	"strings"
)

type ErrorKind string

const (
	KindRequiredField         ErrorKind = "required_field"
	KindAggregateValidation   ErrorKind = "aggregate_validation"
	KindFieldFormat           ErrorKind = "field_format"
	KindInvalidClassification ErrorKind = "invalid_classification"
)

var (
	// 必須フィールドの欠落・不正
	ErrRequiredField = errors.New("required field")
	// リスト単位の条件（有効なpackageSizeが1つもない等）
	ErrAggregateValidation = errors.New("aggregate validation")
	// transportのエンコードが壊れている
	ErrFieldFormat = errors.New("field format")
	// typeがcategoryに合わない
	ErrInvalidClassification = errors.New("invalid classification")
)

// FieldError は1フィールド分のエラー
type FieldError struct {
	Path    string    `json:"path"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Path + ": " + e.Message
}

// Unwrap で errors.Is(err, ErrRequiredField) などが使える
func (e *FieldError) Unwrap() error {
	switch e.Kind {
	case KindRequiredField:
		return ErrRequiredField
	case KindAggregateValidation:
		return ErrAggregateValidation
	case KindFieldFormat:
		return ErrFieldFormat
	case KindInvalidClassification:
		return ErrInvalidClassification
	}
	return nil
}

// FieldErrors はフィールドパス→エラー。
// パスは "price" や "packageSizes.0.price" の形。
type FieldErrors map[string]*FieldError

// Add は同じパスに既にエラーがあれば上書きしない
func (fe FieldErrors) Add(path string, kind ErrorKind, message string) {
	if _, ok := fe[path]; ok {
		return
	}
	fe[path] = &FieldError{Path: path, Kind: kind, Message: message}
}

func (fe FieldErrors) Has(path string) bool {
	_, ok := fe[path]
	return ok
}

// Kind はパスのエラー種別（なければ空）
func (fe FieldErrors) Kind(path string) ErrorKind {
	if e, ok := fe[path]; ok {
		return e.Kind
	}
	return ""
}

// Discard はパス自身と、その配下（path.xxx）のエラーを消す
func (fe FieldErrors) Discard(path string) {
	prefix := path + "."
	for p := range fe {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fe, p)
		}
	}
}

// Paths はソート済みのパス一覧
func (fe FieldErrors) Paths() []string {
	paths := make([]string, 0, len(fe))
	for p := range fe {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Messages は レスポンス用の path→message
func (fe FieldErrors) Messages() map[string]string {
	out := make(map[string]string, len(fe))
	for p, e := range fe {
		out[p] = e.Message
	}
	return out
}

func (fe FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(fe))
	for p, e := range fe {
		cp := *e
		out[p] = &cp
	}
	return out
}

// Err はエラーが無ければnilを返す
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, p := range fe.Paths() {
		parts = append(parts, fe[p].Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) Unwrap() []error {
	errs := make([]error, 0, len(fe))
	for _, p := range fe.Paths() {
		errs = append(errs, fe[p])
	}
	return errs
}

// AsFieldErrors はerrからFieldErrorsを取り出す
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
