package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/model"
	repo "github.com/zvMateo/yerbaXanaes-main-sub000/internal/repository"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/transport"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type ProductUsecase struct {
	productRepo repo.ProductRepository
	tx          repo.TransactionManager
	images      *ImageLifecycle
	cache       repo.ProductCache
	table       *catalog.Table
	idGen       IDGenerator
	clock       Clock
	log         *zap.Logger
}

// DI
// cache はnilならキャッシュなし
func NewProductUsecase(
	productRepo repo.ProductRepository,
	tx repo.TransactionManager,
	images *ImageLifecycle,
	cache repo.ProductCache,
	table *catalog.Table,
	idGen IDGenerator,
	clock Clock,
	log *zap.Logger,
) *ProductUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductUsecase{
		productRepo: productRepo,
		tx:          tx,
		images:      images,
		cache:       cache,
		table:       table,
		idGen:       idGen,
		clock:       clock,
		log:         log,
	}
}

// GET /products, /admin/products の入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Category string
	Type     string
	Q        string
	Sort     string
	IsActive *bool
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// 作成・更新・削除の結果。画像の後片付けの失敗は Warnings に入る。
type MutationResult struct {
	Product  model.Product  `json:"product"`
	Warnings []AssetWarning `json:"warnings,omitempty"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	active := true
	in.IsActive = &active
	return u.list(ctx, in)
}

// 管理画面用（非公開も含む）
func (u *ProductUsecase) AdminListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	return u.list(ctx, in)
}

func (u *ProductUsecase) list(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.Category != "" && !u.table.IsCategory(in.Category) {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid category")
	}
	if in.Type != "" {
		if _, ok := u.table.GroupOf(in.Type); !ok {
			return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid type")
		}
	}
	switch in.Sort {
	case "", "new", "name_asc", "name_desc":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Category: in.Category,
		Type:     in.Type,
		IsActive: in.IsActive,
		Q:        strings.TrimSpace(in.Q),
		Sort:     in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, dbError("list", err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

// 公開商品の詳細（非公開は404）。キャッシュを先に見る。
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID string) (model.Product, error) {
	if !validProductID(productID) {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	if u.cache != nil {
		p, ok, err := u.cache.Get(ctx, productID)
		if err != nil {
			u.log.Warn("product cache get failed", zap.String("productId", productID), zap.Error(err))
		}
		if ok && p.IsActive {
			return p, nil
		}
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, dbError("find", err)
	}
	if !p.IsActive {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	if u.cache != nil {
		u.fillCache(ctx, p)
	}
	return p, nil
}

// fillCache は読んだ商品をキャッシュに入れ、入れた後にDBを読み直す。
// 読み込みからSetの間に更新・削除がコミットされていたら、
// その書き込み側のInvalidateより後にSetしている可能性があるので消す。
// 読み直しがSetより前の状態を見た場合は、書き込み側のInvalidateがSetより後に走る。
func (u *ProductUsecase) fillCache(ctx context.Context, p model.Product) {
	if err := u.cache.Set(ctx, p); err != nil {
		u.log.Warn("product cache set failed", zap.String("productId", p.ID), zap.Error(err))
		return
	}

	cur, err := u.productRepo.FindByID(ctx, p.ID)
	if err == nil && cur.IsActive && cur.UpdatedAt.Equal(p.UpdatedAt) {
		return
	}
	u.log.Info("product changed while filling cache", zap.String("productId", p.ID))
	u.invalidate(ctx, p.ID)
}

// 管理画面用の詳細（非公開も返す）
func (u *ProductUsecase) AdminGetProduct(ctx context.Context, productID string) (model.Product, error) {
	if !validProductID(productID) {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, dbError("find", err)
	}
	return p, nil
}

// 作成。検証 → 画像アップロード → 保存（＋監査ログ）の順。
func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, rec transport.Record) (MutationResult, error) {
	if adminUserID <= 0 {
		return MutationResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	n, err := NormalizeProduct(rec, u.table)
	if err != nil {
		return MutationResult{}, validationError(err)
	}

	p, err := model.ProductFromData(u.idGen.NewID(), n.Data)
	if err != nil {
		return MutationResult{}, validationError(err)
	}

	asset, uploaded, err := u.images.Upload(ctx, rec.Image)
	if err != nil {
		return MutationResult{}, uploadError(err)
	}
	if uploaded {
		p.SetImage(asset.URL, asset.PublicID)
	}

	now := u.clock.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	var created model.Product
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		created, err = r.Products().Create(ctx, p)
		if err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, u.auditLog(adminUserID, model.AuditActionCreateProduct, p.ID, nil, &created, now))
	})
	if err != nil {
		if uploaded {
			u.images.Orphaned(p.ID, asset, err)
		}
		return MutationResult{}, writeError("create", err)
	}

	u.log.Info("product created",
		zap.String("productId", created.ID),
		zap.String("type", created.Type),
		zap.Int64("actor", adminUserID),
	)
	return MutationResult{Product: created}, nil
}

// 更新。
// 検証 → 既存の読み込み → 新画像アップロード → 旧画像削除（失敗は警告）→ 保存の順。
// Groupが変わったら前のGroupのカラムはNULLに戻す。
func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID string, rec transport.Record) (MutationResult, error) {
	if adminUserID <= 0 {
		return MutationResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !validProductID(productID) {
		return MutationResult{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	n, err := NormalizeProduct(rec, u.table)
	if err != nil {
		return MutationResult{}, validationError(err)
	}

	p, err := model.ProductFromData(productID, n.Data)
	if err != nil {
		return MutationResult{}, validationError(err)
	}

	//変更前（before）
	prior, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return MutationResult{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return MutationResult{}, dbError("find", err)
	}

	var warnings []AssetWarning
	p.ImageURL = prior.ImageURL
	p.ImagePublicID = prior.ImagePublicID

	asset, uploaded, err := u.images.Upload(ctx, rec.Image)
	if err != nil {
		return MutationResult{}, uploadError(err)
	}
	if uploaded {
		if oldID, ok := prior.ImageRef(); ok {
			if w := u.images.Discard(ctx, AssetOpReplace, oldID); w != nil {
				warnings = append(warnings, *w)
			}
		}
		p.SetImage(asset.URL, asset.PublicID)
	}

	now := u.clock.Now()
	p.CreatedAt = prior.CreatedAt
	p.UpdatedAt = now

	var updated model.Product
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		updated, err = r.Products().Update(ctx, p, n.Unset)
		if err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, u.auditLog(adminUserID, model.AuditActionUpdateProduct, productID, &prior, &updated, now))
	})
	if err != nil {
		if uploaded {
			u.images.Orphaned(productID, asset, err)
		}
		if errors.Is(err, repo.ErrNotFound) {
			return MutationResult{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return MutationResult{}, writeError("update", err)
	}

	u.invalidate(ctx, productID)

	if prior.Type != updated.Type {
		u.log.Info("product reclassified",
			zap.String("productId", productID),
			zap.String("from", prior.Type),
			zap.String("to", updated.Type),
			zap.Strings("cleared", n.Unset),
		)
	}
	return MutationResult{Product: updated, Warnings: warnings}, nil
}

// 削除。レコードを消してから画像を消す（画像の失敗は警告）。
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID string) (MutationResult, error) {
	if adminUserID <= 0 {
		return MutationResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !validProductID(productID) {
		return MutationResult{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	prior, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return MutationResult{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return MutationResult{}, dbError("find", err)
	}

	now := u.clock.Now()
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Products().Delete(ctx, productID); err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, u.auditLog(adminUserID, model.AuditActionDeleteProduct, productID, &prior, nil, now))
	})
	if errors.Is(err, repo.ErrNotFound) {
		return MutationResult{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return MutationResult{}, writeError("delete", err)
	}

	u.invalidate(ctx, productID)

	var warnings []AssetWarning
	if publicID, ok := prior.ImageRef(); ok {
		if w := u.images.Discard(ctx, AssetOpDelete, publicID); w != nil {
			warnings = append(warnings, *w)
		}
	}
	return MutationResult{Product: prior, Warnings: warnings}, nil
}

func (u *ProductUsecase) invalidate(ctx context.Context, productID string) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Invalidate(ctx, productID); err != nil {
		u.log.Warn("product cache invalidate failed", zap.String("productId", productID), zap.Error(err))
	}
}

// 「誰が」「何を」「どの対象に」「どう変えたか」を残す
func (u *ProductUsecase) auditLog(actor int64, action model.AuditAction, productID string, before, after *model.Product, now time.Time) model.AuditLog {
	return model.AuditLog{
		ActorUserID:  actor,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   snapshot(before),
		AfterJSON:    snapshot(after),
		CreatedAt:    now,
	}
}

func snapshot(p *model.Product) datatypes.JSON {
	if p == nil {
		return nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func validProductID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// 検証エラーは項目ごとのメッセージ付きの400
func validationError(err error) error {
	he := &HTTPError{Status: http.StatusBadRequest, Message: "validation failed", Err: err}
	if fe, ok := catalog.AsFieldErrors(err); ok {
		he.Fields = fe.Messages()
	}
	return he
}

func uploadError(err error) error {
	return &HTTPError{Status: http.StatusBadGateway, Message: "image upload failed", Err: err}
}

func dbError(op string, err error) error {
	return &HTTPError{Status: http.StatusInternalServerError, Message: "db error", Err: &PersistenceError{Op: op, Err: err}}
}

// 保存時のエラー。保存層の分類チェックで弾かれたものは400。
func writeError(op string, err error) error {
	if errors.Is(err, catalog.ErrInvalidClassification) {
		return validationError(err)
	}
	return dbError(op, err)
}
