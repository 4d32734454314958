package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/config"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/handler"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/infra/db"
	infraRepo "github.com/zvMateo/yerbaXanaes-main-sub000/internal/infra/repository"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/middleware"
	repo "github.com/zvMateo/yerbaXanaes-main-sub000/internal/repository"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/transport"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/usecase"
)

const testSecret = "test-secret"

// PNGのシグネチャ（中身の判定用）
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

// =====================
// fakes
// =====================

type memoryAssetStore struct {
	mu        sync.Mutex
	uploaded  []transport.File
	deleted   []string
	deleteErr error
}

func (s *memoryAssetStore) Upload(ctx context.Context, file transport.File) (repo.StoredAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = append(s.uploaded, file)
	id := "products/" + uuid.NewString()
	return repo.StoredAsset{URL: "http://assets.local/" + id, PublicID: id}, nil
}

func (s *memoryAssetStore) Delete(ctx context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, publicID)
	return s.deleteErr
}

type uuidGen struct{}

func (uuidGen) NewID() string { return uuid.NewString() }

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }

// =====================
// レスポンス確認用
// =====================

type productBody struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Type         string          `json:"type"`
	IsActive     bool            `json:"isActive"`
	Price        *string         `json:"price"`
	Stock        *int64          `json:"stock"`
	StockInKg    *string         `json:"stockInKg"`
	PackageSizes json.RawMessage `json:"packageSizes"`
	ImageURL     *string         `json:"imageUrl"`
}

type mutationBody struct {
	Product  productBody            `json:"product"`
	Warnings []usecase.AssetWarning `json:"warnings"`
}

type listBody struct {
	Items []productBody `json:"items"`
	Total int64         `json:"total"`
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// =====================
// helper
// =====================

type testApp struct {
	e      *echo.Echo
	db     *gorm.DB
	assets *memoryAssetStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	table := catalog.DefaultTable()
	assets := &memoryAssetStore{}
	log := zap.NewNop()

	productUC := usecase.NewProductUsecase(
		infraRepo.NewProductGormRepository(gdb, table),
		infraRepo.NewTxManagerGorm(gdb, table),
		usecase.NewImageLifecycle(assets, log),
		nil,
		table,
		uuidGen{},
		wallClock{},
		log,
	)
	auditUC := usecase.NewAuditLogUsecase(infraRepo.NewAuditLogGormRepository(gdb))

	e := echo.New()
	handler.NewProductHandler(productUC).RegisterRoutes(e)
	handler.NewClassificationHandler(table).RegisterRoutes(e)

	admin := e.Group("/admin", middleware.AuthJWT(config.Config{JWTSecret: testSecret}), middleware.AdminRoleGuard())
	handler.NewAdminProductHandler(productUC, 1024).RegisterRoutes(admin)
	handler.NewAuditLogHandler(auditUC).RegisterRoutes(admin)

	return &testApp{e: e, db: gdb, assets: assets}
}

func makeJWT(t *testing.T, sub int64, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (a *testApp) do(t *testing.T, req *http.Request, role string) *httptest.ResponseRecorder {
	t.Helper()
	if role != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+makeJWT(t, 1, role))
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target string, fields map[string]string) *http.Request {
	v := url.Values{}
	for k, s := range fields {
		v.Set(k, s)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(v.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, s := range fields {
		require.NoError(t, w.WriteField(k, s))
	}
	if image != nil {
		fw, err := w.CreateFormFile(catalog.FieldImage, "photo.jpg")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func yerbaFields() map[string]string {
	return map[string]string{
		"name":                      "Yerba Test",
		"category":                  "Yerbas",
		"type":                      "yerba",
		"isActive":                  "true",
		"stockInKg":                 "5.5",
		"packageSizes[0][sizeInKg]": "0.5",
		"packageSizes[0][price]":    "750",
	}
}

func (a *testApp) createYerba(t *testing.T) productBody {
	t.Helper()
	rec := a.do(t, formRequest(http.MethodPost, "/admin/products", yerbaFields()), middleware.RoleAdmin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[mutationBody](t, rec).Product
}

// =====================
// tests
// =====================

func TestClassification_ServesTable(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/catalog/classification", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[catalog.TableView](t, rec)
	require.Len(t, body.Categories, 5)
	assert.Equal(t, catalog.CategoryYerbas, body.Categories[0].Name)
	for _, typ := range body.Categories[0].Types {
		assert.Equal(t, catalog.GroupWeightBased, typ.Group)
	}
}

func TestAdmin_RequiresToken(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, formRequest(http.MethodPost, "/admin/products", yerbaFields()), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, formRequest(http.MethodPost, "/admin/products", yerbaFields()), "USER")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminCreate_WeightBased_Form(t *testing.T) {
	app := newTestApp(t)

	p := app.createYerba(t)
	assert.Equal(t, "yerba", p.Type)
	require.NotNil(t, p.StockInKg)
	assert.Equal(t, "5.5", *p.StockInKg)
	assert.Nil(t, p.Price)
	assert.Nil(t, p.Stock)
	assert.Nil(t, p.ImageURL)

	// 公開APIから見える
	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/products/"+p.ID, nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, p.ID, decode[productBody](t, rec).ID)
}

func TestAdminCreate_ValidationErrors_HaveFields(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, formRequest(http.MethodPost, "/admin/products", map[string]string{
		"name":     "Mate",
		"category": "Mates",
		"type":     "mate calabaza",
		"price":    "",
		"stock":    "",
	}), middleware.RoleAdmin)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, catalog.FieldPrice)
	assert.Contains(t, body.Fields, catalog.FieldStock)
}

func TestAdminCreate_Multipart_WithImage(t *testing.T) {
	app := newTestApp(t)

	fields := map[string]string{
		"name": "Mate Imperial", "category": "Mates", "type": "mate calabaza",
		"price": "12500.50", "stock": "3",
	}
	rec := app.do(t, multipartRequest(t, http.MethodPost, "/admin/products", fields, pngBytes), middleware.RoleAdmin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	p := decode[mutationBody](t, rec).Product
	require.NotNil(t, p.ImageURL)
	assert.Nil(t, p.StockInKg)
	require.NotNil(t, p.Stock)
	assert.Equal(t, int64(3), *p.Stock)

	// 拡張子ではなく中身で判定する
	require.Len(t, app.assets.uploaded, 1)
	assert.Equal(t, "image/png", app.assets.uploaded[0].ContentType)
}

func TestAdminCreate_RejectsNonImage(t *testing.T) {
	app := newTestApp(t)

	fields := map[string]string{
		"name": "Mate Imperial", "category": "Mates", "type": "mate calabaza",
		"price": "100", "stock": "3",
	}
	rec := app.do(t, multipartRequest(t, http.MethodPost, "/admin/products", fields, []byte("just some text")), middleware.RoleAdmin)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Fields, catalog.FieldImage)
	assert.Empty(t, app.assets.uploaded)
}

func TestAdminCreate_RejectsLargeImage(t *testing.T) {
	app := newTestApp(t)

	big := append(append([]byte{}, pngBytes...), make([]byte, 2048)...)
	fields := map[string]string{
		"name": "Mate Imperial", "category": "Mates", "type": "mate calabaza",
		"price": "100", "stock": "3",
	}
	rec := app.do(t, multipartRequest(t, http.MethodPost, "/admin/products", fields, big), middleware.RoleAdmin)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Fields, catalog.FieldImage)
	assert.Empty(t, app.assets.uploaded)
}

// 量り売り→単品に変えたら量り売り側のカラムは消える
func TestAdminUpdate_Reclassify_ClearsOldGroup(t *testing.T) {
	app := newTestApp(t)
	p := app.createYerba(t)

	rec := app.do(t, formRequest(http.MethodPut, "/admin/products/"+p.ID, map[string]string{
		"name": "Yerba Test", "category": "Mates", "type": "mate calabaza",
		"price": "12500.50", "stock": "0",
		// 古いキーが残っていても使われない
		"stockInKg": "5.5",
	}), middleware.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/admin/products/"+p.ID, nil), middleware.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[productBody](t, rec)
	assert.Equal(t, "mate calabaza", got.Type)
	require.NotNil(t, got.Price)
	assert.Equal(t, "12500.5", *got.Price)
	require.NotNil(t, got.Stock)
	assert.Equal(t, int64(0), *got.Stock)
	assert.Nil(t, got.StockInKg)
	assert.Empty(t, got.PackageSizes)
}

func TestAdminUpdate_NotFound(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, formRequest(http.MethodPut, "/admin/products/"+uuid.NewString(), yerbaFields()), middleware.RoleAdmin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDelete_RemovesAndWarnsOnAssetFailure(t *testing.T) {
	app := newTestApp(t)

	fields := yerbaFields()
	rec := app.do(t, multipartRequest(t, http.MethodPost, "/admin/products", fields, pngBytes), middleware.RoleAdmin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[mutationBody](t, rec).Product

	app.assets.deleteErr = errors.New("store down")

	rec = app.do(t, httptest.NewRequest(http.MethodDelete, "/admin/products/"+p.ID, nil), middleware.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[mutationBody](t, rec)
	require.Len(t, body.Warnings, 1)
	assert.Equal(t, usecase.AssetOpDelete, body.Warnings[0].Op)

	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/products/"+p.ID, nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicList_HidesInactive(t *testing.T) {
	app := newTestApp(t)
	app.createYerba(t)

	fields := yerbaFields()
	fields["name"] = "Yerba Oculta"
	fields["isActive"] = "false"
	rec := app.do(t, formRequest(http.MethodPost, "/admin/products", fields), middleware.RoleAdmin)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/products?category=Yerbas", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	pub := decode[listBody](t, rec)
	assert.Equal(t, int64(1), pub.Total)

	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/admin/products?isActive=false", nil), middleware.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	adm := decode[listBody](t, rec)
	require.Len(t, adm.Items, 1)
	assert.Equal(t, "Yerba Oculta", adm.Items[0].Name)
}

func TestPublicList_BadQuery(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/products?page=abc", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/products?category=Nope", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditLogs_ListsMutations(t *testing.T) {
	app := newTestApp(t)
	p := app.createYerba(t)

	rec := app.do(t, httptest.NewRequest(http.MethodDelete, "/admin/products/"+p.ID, nil), middleware.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/admin/audit-logs?resourceId="+p.ID, nil), middleware.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []struct {
			Action string `json:"action"`
		} `json:"items"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, int64(2), body.Total)
	assert.Equal(t, "DELETE_PRODUCT", body.Items[0].Action)

	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/admin/audit-logs?from=yesterday", nil), middleware.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
