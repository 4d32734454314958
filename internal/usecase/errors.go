package usecase

import (
	"errors"
	"fmt"
)

type HTTPError struct {
	Status  int
	Message string
	// 項目ごとのエラー（検証エラーのとき）
	Fields map[string]string
	Err    error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 検証は通ったが保存に失敗した
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// 画像のアップロードに失敗した（書き込み前なので何も変わっていない）
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("image upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// AssetWarning は画像の後片付けの失敗。処理自体は成功扱い。
type AssetWarning struct {
	Op       string `json:"op"`
	PublicID string `json:"publicId"`
	Message  string `json:"message"`
}

func (w AssetWarning) String() string {
	return fmt.Sprintf("%s %s: %s", w.Op, w.PublicID, w.Message)
}
