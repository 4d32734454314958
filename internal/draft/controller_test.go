package draft

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
)

func newYerbaController(t *testing.T) *Controller {
	t.Helper()
	c := NewController(catalog.DefaultTable(), NewDraft())
	require.NoError(t, c.SetField(catalog.FieldName, "Yerba Test"))
	require.NoError(t, c.SetField(catalog.FieldCategory, "Yerbas"))
	require.NoError(t, c.SetField(catalog.FieldType, "yerba"))
	require.NoError(t, c.SetField(catalog.FieldStockInKg, "5.5"))
	return c
}

func TestController_WeightGroupStartsWithOnePackageSize(t *testing.T) {
	c := newYerbaController(t)

	assert.Equal(t, catalog.GroupWeightBased, c.Group())
	assert.Len(t, c.Draft().PackageSizes, 1)
}

// 量り売りで最後の1行は消せない
func TestController_RemoveLastPackageSizeRefused(t *testing.T) {
	c := newYerbaController(t)
	require.Len(t, c.Draft().PackageSizes, 1)

	err := c.RemovePackageSize(0)
	assert.ErrorIs(t, err, ErrLastPackageSize)
	assert.Len(t, c.Draft().PackageSizes, 1)
}

func TestController_RemovePackageSizeShiftsErrors(t *testing.T) {
	c := newYerbaController(t)
	c.AddPackageSize()
	c.AddPackageSize()
	require.NoError(t, c.SetPackageSizeField(0, catalog.SubFieldSizeInKg, "0.5"))
	require.NoError(t, c.SetPackageSizeField(0, catalog.SubFieldPrice, "750"))
	require.NoError(t, c.SetPackageSizeField(2, catalog.SubFieldSizeInKg, "1"))

	_, err := c.Validate()
	require.Error(t, err)
	errs := c.Errors()
	require.True(t, errs.Has("packageSizes.1.sizeInKg"))
	require.True(t, errs.Has("packageSizes.2.price"))

	require.NoError(t, c.RemovePackageSize(1))

	errs = c.Errors()
	assert.Len(t, c.Draft().PackageSizes, 2)
	assert.False(t, errs.Has("packageSizes.1.sizeInKg"))
	assert.True(t, errs.Has("packageSizes.1.price"))
	assert.Equal(t, "packageSizes.1.price", errs["packageSizes.1.price"].Path)
	assert.False(t, errs.Has("packageSizes.2.price"))
}

func TestController_RemovePackageSizeOutOfRange(t *testing.T) {
	c := newYerbaController(t)
	assert.ErrorIs(t, c.RemovePackageSize(5), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.SetPackageSizeField(-1, catalog.SubFieldPrice, "1"), ErrIndexOutOfRange)
}

// 単品なら最後の1行も消せる（Groupの制約がない）
func TestController_RemovePackageSizeAllowedForUnitGroup(t *testing.T) {
	c := NewController(catalog.DefaultTable(), catalog.Draft{
		Category:     "Mates",
		Type:         "mate calabaza",
		PackageSizes: []catalog.PackageSizeDraft{{}},
	})
	assert.NoError(t, c.RemovePackageSize(0))
	assert.Empty(t, c.Draft().PackageSizes)
}

// categoryを変えるとtypeが空に戻り、typeとGroup側のエラーも消える
func TestController_CategoryChangeResetsType(t *testing.T) {
	c := NewController(catalog.DefaultTable(), catalog.Draft{Category: "Mates", Type: "mate calabaza"})
	_, err := c.Validate()
	require.Error(t, err)
	require.True(t, c.Errors().Has(catalog.FieldPrice))

	require.NoError(t, c.SetField(catalog.FieldCategory, "Yerbas"))

	assert.Equal(t, "", c.Draft().Type)
	assert.Equal(t, catalog.Group(""), c.Group())
	errs := c.Errors()
	assert.False(t, errs.Has(catalog.FieldType))
	assert.False(t, errs.Has(catalog.FieldPrice))
	assert.False(t, errs.Has(catalog.FieldStock))
	// 名前のエラーは関係ないので残る
	assert.True(t, errs.Has(catalog.FieldName))
}

func TestController_SameCategoryKeepsType(t *testing.T) {
	c := NewController(catalog.DefaultTable(), catalog.Draft{Category: "Mates", Type: "mate calabaza"})
	require.NoError(t, c.SetField(catalog.FieldCategory, "Mates"))
	assert.Equal(t, "mate calabaza", c.Draft().Type)
}

// typeが変わってGroupが切り替わると、非アクティブ側のエラーは捨てる
func TestController_TypeFlipDiscardsInactiveGroupErrors(t *testing.T) {
	c := NewController(catalog.DefaultTable(), catalog.Draft{Name: "Yerba", Category: "Yerbas", Type: "yerba"})
	_, err := c.Validate()
	require.Error(t, err)
	require.True(t, c.Errors().Has(catalog.FieldStockInKg))
	require.True(t, c.Errors().Has("packageSizes.0.price"))

	// 表にあるtypeなら他カテゴリのものでもGroupは決まる
	require.NoError(t, c.SetField(catalog.FieldType, "mate calabaza"))

	errs := c.Errors()
	assert.Equal(t, catalog.GroupUnitBased, c.Group())
	assert.False(t, errs.Has(catalog.FieldStockInKg))
	assert.False(t, errs.Has("packageSizes.0.price"))
	assert.False(t, errs.Has(catalog.FieldPackageSizes))
	assert.False(t, errs.Has(catalog.FieldType))
}

// 項目の編集はその項目のエラーだけ消す
func TestController_SetFieldClearsOnlyThatError(t *testing.T) {
	c := NewController(catalog.DefaultTable(), catalog.Draft{Category: "Mates", Type: "mate calabaza"})
	_, err := c.Validate()
	require.Error(t, err)

	require.NoError(t, c.SetField(catalog.FieldPrice, "1000"))

	errs := c.Errors()
	assert.False(t, errs.Has(catalog.FieldPrice))
	assert.True(t, errs.Has(catalog.FieldStock))
	assert.True(t, errs.Has(catalog.FieldName))
}

func TestController_SetFieldUnknownAndIsActive(t *testing.T) {
	c := NewController(catalog.DefaultTable(), NewDraft())

	assert.ErrorIs(t, c.SetField("color", "red"), ErrUnknownField)
	assert.ErrorIs(t, c.SetPackageSizeField(0, "color", "red"), ErrIndexOutOfRange)

	require.NoError(t, c.SetField(catalog.FieldIsActive, "false"))
	assert.False(t, c.Draft().IsActive)
	assert.Error(t, c.SetField(catalog.FieldIsActive, "maybe"))
}

func TestController_DraftIsCopy(t *testing.T) {
	c := newYerbaController(t)
	d := c.Draft()
	d.PackageSizes[0].Price = "1"

	assert.Equal(t, "", c.Draft().PackageSizes[0].Price)
}

func TestController_SubmitValidatesFirst(t *testing.T) {
	c := NewController(catalog.DefaultTable(), NewDraft())
	called := false

	err := c.Submit(context.Background(), func(ctx context.Context, data catalog.ProductData) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, called)
	assert.True(t, c.Errors().Has(catalog.FieldName))
}

// 送信中の二重送信は拒否
func TestController_SubmitRejectsConcurrentSubmit(t *testing.T) {
	c := newYerbaController(t)
	require.NoError(t, c.SetPackageSizeField(0, catalog.SubFieldSizeInKg, "0.5"))
	require.NoError(t, c.SetPackageSizeField(0, catalog.SubFieldPrice, "750"))

	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = c.Submit(context.Background(), func(ctx context.Context, data catalog.ProductData) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	assert.True(t, c.Submitting())
	err := c.Submit(context.Background(), func(ctx context.Context, data catalog.ProductData) error {
		t.Fatal("second submit must not be sent")
		return nil
	})
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(release)
	wg.Wait()
	assert.NoError(t, firstErr)
	assert.False(t, c.Submitting())
}
