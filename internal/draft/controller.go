// Package draft は管理画面の商品フォームの状態（入力途中の商品）を持つ。
package draft

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cast"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/validator"
)

var (
	// 量り売りで最後の1行は消せない（警告扱い、状態は変えない）
	ErrLastPackageSize = errors.New("at least one package size must remain")
	// 存在しない行番号
	ErrIndexOutOfRange = errors.New("package size index out of range")
	// SetFieldで扱わないフィールド
	ErrUnknownField = errors.New("unknown field")
	// 送信中にもう一度送信しようとした
	ErrSubmitInProgress = errors.New("submit already in progress")
)

// SubmitFunc は検証済みのデータを送る処理（HTTPクライアントなど）
type SubmitFunc func(ctx context.Context, data catalog.ProductData) error

type Controller struct {
	mu         sync.Mutex
	table      *catalog.Table
	draft      catalog.Draft
	group      catalog.Group
	errs       catalog.FieldErrors
	submitting bool
}

// NewDraft は新規作成フォームの初期値（isActiveはtrue）
func NewDraft() catalog.Draft {
	return catalog.Draft{IsActive: true}
}

// DI
func NewController(table *catalog.Table, initial catalog.Draft) *Controller {
	c := &Controller{
		table: table,
		draft: initial.Clone(),
		errs:  catalog.FieldErrors{},
	}
	c.group = c.deriveGroup()
	c.ensurePackageSize()
	return c
}

func (c *Controller) Draft() catalog.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// Group は現在のtypeから決まる販売形態（未確定なら空）
func (c *Controller) Group() catalog.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.group
}

func (c *Controller) Errors() catalog.FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs.Clone()
}

func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// SetField はスカラー項目を更新し、その項目の古いエラーだけ消す。
// categoryが変わるとtypeは空に戻り、typeとGroup側のエラーも消える。
func (c *Controller) SetField(name string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case catalog.FieldName:
		c.draft.Name = value
	case catalog.FieldDescription:
		c.draft.Description = value
	case catalog.FieldCategory:
		changed := value != c.draft.Category
		c.draft.Category = value
		if changed {
			c.draft.Type = ""
			c.errs.Discard(catalog.FieldType)
			c.discardGroupErrors(catalog.GroupWeightBased)
			c.discardGroupErrors(catalog.GroupUnitBased)
			c.group = ""
		}
	case catalog.FieldType:
		c.draft.Type = value
		c.setGroup(c.deriveGroup())
	case catalog.FieldIsActive:
		b, err := cast.ToBoolE(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("isActive: %w", err)
		}
		c.draft.IsActive = b
	case catalog.FieldPrice:
		c.draft.Price = value
	case catalog.FieldStock:
		c.draft.Stock = value
	case catalog.FieldStockInKg:
		c.draft.StockInKg = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	delete(c.errs, name)
	return nil
}

// SetPackageSizeField は index 行の sizeInKg / price を更新する
func (c *Controller) SetPackageSizeField(index int, field string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.draft.PackageSizes) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	switch field {
	case catalog.SubFieldSizeInKg:
		c.draft.PackageSizes[index].SizeInKg = value
	case catalog.SubFieldPrice:
		c.draft.PackageSizes[index].Price = value
	default:
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, catalog.FieldPackageSizes, field)
	}

	delete(c.errs, catalog.PackageSizePath(index, field))
	return nil
}

// AddPackageSize は空の行を末尾に追加する
func (c *Controller) AddPackageSize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.PackageSizes = append(c.draft.PackageSizes, catalog.PackageSizeDraft{})
}

// RemovePackageSize は行を削除する。
// 量り売りで残り1行のときは ErrLastPackageSize を返し、何も変えない。
func (c *Controller) RemovePackageSize(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.draft.PackageSizes)
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if c.group == catalog.GroupWeightBased && n == 1 {
		return ErrLastPackageSize
	}

	sizes := make([]catalog.PackageSizeDraft, 0, n-1)
	sizes = append(sizes, c.draft.PackageSizes[:index]...)
	sizes = append(sizes, c.draft.PackageSizes[index+1:]...)
	c.draft.PackageSizes = sizes

	c.shiftItemErrors(index)
	return nil
}

// Validate は送信前の全体検証。結果のエラーで状態を置き換える。
func (c *Controller) Validate() (catalog.ProductData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateLocked()
}

// Submit は検証してから send を呼ぶ。
// 送信中はもう一度呼んでも ErrSubmitInProgress を返す（ボタン無効化に相当）。
func (c *Controller) Submit(ctx context.Context, send SubmitFunc) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitInProgress
	}
	data, err := c.validateLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.submitting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	return send(ctx, data)
}

func (c *Controller) validateLocked() (catalog.ProductData, error) {
	data, err := validator.ValidateProduct(c.draft, c.table)
	if err != nil {
		if fe, ok := catalog.AsFieldErrors(err); ok {
			c.errs = fe.Clone()
		}
		return catalog.ProductData{}, err
	}
	c.errs = catalog.FieldErrors{}
	return data, nil
}

func (c *Controller) deriveGroup() catalog.Group {
	g, _ := c.table.GroupOf(strings.TrimSpace(c.draft.Type))
	return g
}

// typeが変わってGroupが切り替わったら、非アクティブ側のエラーは捨てる
func (c *Controller) setGroup(g catalog.Group) {
	if g == c.group {
		return
	}
	c.group = g
	switch g {
	case catalog.GroupWeightBased, catalog.GroupUnitBased:
		c.discardGroupErrors(g.Other())
	default:
		c.discardGroupErrors(catalog.GroupWeightBased)
		c.discardGroupErrors(catalog.GroupUnitBased)
	}
	c.ensurePackageSize()
}

func (c *Controller) discardGroupErrors(g catalog.Group) {
	for _, f := range catalog.GroupFields(g) {
		c.errs.Discard(f)
	}
}

// 量り売りは常に1行以上
func (c *Controller) ensurePackageSize() {
	if c.group == catalog.GroupWeightBased && len(c.draft.PackageSizes) == 0 {
		c.draft.PackageSizes = append(c.draft.PackageSizes, catalog.PackageSizeDraft{})
	}
}

// 削除した行より後ろの行エラーを1つ前に詰める
func (c *Controller) shiftItemErrors(removed int) {
	prefix := catalog.FieldPackageSizes + "."
	moved := catalog.FieldErrors{}

	for path, fe := range c.errs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		idxStr, field, ok := strings.Cut(rest, ".")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			continue
		}

		delete(c.errs, path)
		switch {
		case idx < removed:
			moved[path] = fe
		case idx > removed:
			newPath := catalog.PackageSizePath(idx-1, field)
			cp := *fe
			cp.Path = newPath
			moved[newPath] = &cp
		}
	}

	for path, fe := range moved {
		c.errs[path] = fe
	}
}
