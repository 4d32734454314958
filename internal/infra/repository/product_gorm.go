package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/model"
	repo "github.com/zvMateo/yerbaXanaes-main-sub000/internal/repository"
)

type ProductGormRepository struct {
	db    *gorm.DB
	table *catalog.Table
}

// DI
func NewProductGormRepository(db *gorm.DB, table *catalog.Table) *ProductGormRepository {
	return &ProductGormRepository{db: db, table: table}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// 検索/絞り込み/ソート/ページング付きで返す。
func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Product{})

	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Type != "" {
		tx = tx.Where("type = ?", q.Type)
	}
	if q.IsActive != nil {
		tx = tx.Where("is_active = ?", *q.IsActive)
	}

	// q は name/description/category/type を対象
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + likeEscaper.Replace(s) + "%"
		if r.db.Dialector.Name() == "postgres" {
			tx = tx.Where(`(name ILIKE ? OR description ILIKE ? OR category ILIKE ? OR type ILIKE ?)`,
				like, like, like, like)
		} else {
			like = strings.ToLower(like)
			tx = tx.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\' OR LOWER(type) LIKE ? ESCAPE '\')`,
				like, like, like, like)
		}
	}

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, errors.Wrap(err, "count products")
	}

	//sort
	switch q.Sort {
	case "name_asc":
		tx = tx.Order("name asc").Order("id asc")
	case "name_desc":
		tx = tx.Order("name desc").Order("id desc")
	default:
		tx = tx.Order("created_at desc").Order("id desc")
	}

	if q.Limit > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		tx = tx.Offset((page - 1) * q.Limit).Limit(q.Limit)
	}
	if err := tx.Find(&products).Error; err != nil {
		return []model.Product{}, 0, errors.Wrap(err, "list products")
	}

	return products, total, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id string) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, errors.Wrapf(err, "find product %s", id)
	}
	return p, nil
}

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if _, err := p.ScrubInactiveGroup(r.table); err != nil {
		return model.Product{}, err
	}
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, errors.Wrap(err, "create product")
	}
	return p, nil
}

// 商品の更新。
// 非アクティブ側のGroupと unset のカラムは必ずNULLにする（省略ではなく消す）。
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product, unset []string) (model.Product, error) {
	group, err := p.ScrubInactiveGroup(r.table)
	if err != nil {
		return model.Product{}, err
	}

	values := map[string]interface{}{
		"name":            p.Name,
		"description":     p.Description,
		"category":        p.Category,
		"type":            p.Type,
		"is_active":       p.IsActive,
		"image_url":       p.ImageURL,
		"image_public_id": p.ImagePublicID,
	}
	if !p.UpdatedAt.IsZero() {
		values["updated_at"] = p.UpdatedAt
	}

	switch group {
	case catalog.GroupWeightBased:
		values["stock_in_kg"] = p.StockInKg
		values["package_sizes"] = p.PackageSizes
	case catalog.GroupUnitBased:
		values["price"] = p.Price
		values["stock"] = p.Stock
	}

	active := map[string]bool{}
	for _, f := range catalog.GroupFields(group) {
		active[f] = true
	}
	toClear := append(catalog.GroupFields(group.Other()), unset...)
	for _, f := range toClear {
		// アクティブ側の値は消さない
		if active[f] {
			continue
		}
		if col, ok := model.GroupColumn(f); ok {
			values[col] = nil
		}
	}

	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", p.ID).Updates(values)
	if res.Error != nil {
		return model.Product{}, errors.Wrapf(res.Error, "update product %s", p.ID)
	}
	if res.RowsAffected == 0 {
		return model.Product{}, repo.ErrNotFound
	}

	return r.FindByID(ctx, p.ID)
}

// 商品削除（物理削除）
func (r *ProductGormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Product{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete product %s", id)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
