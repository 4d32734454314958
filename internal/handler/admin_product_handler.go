package handler

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/transport"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/usecase"
)

// /admin/products
type AdminProductHandler struct {
	uc            *usecase.ProductUsecase
	maxImageBytes int64
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase, maxImageBytes int64) *AdminProductHandler {
	return &AdminProductHandler{uc: uc, maxImageBytes: maxImageBytes}
}

// admin グループ（AuthJWT + AdminRoleGuard 済み）に登録する
func (h *AdminProductHandler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/products", h.listProducts)
	admin.GET("/products/:id", h.getProduct)
	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
}

func (h *AdminProductHandler) listProducts(c echo.Context) error {
	in, msg := parseListQuery(c)
	if msg != "" {
		return badRequest(c, msg)
	}
	if v := c.QueryParam("isActive"); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return badRequest(c, "invalid isActive")
		}
		in.IsActive = &b
	}

	out, err := h.uc.AdminListProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) getProduct(c echo.Context) error {
	p, err := h.uc.AdminGetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	rec, err := h.readRecord(c)
	if err != nil {
		return writeError(c, err)
	}

	res, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, rec)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	rec, err := h.readRecord(c)
	if err != nil {
		return writeError(c, err)
	}

	res, err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, c.Param("id"), rec)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	res, err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// multipart/form-data か x-www-form-urlencoded からレコードを作る
func (h *AdminProductHandler) readRecord(c echo.Context) (transport.Record, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)

	if !strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		params, err := c.FormParams()
		if err != nil {
			return transport.Record{}, usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		return transport.NewRecord(params), nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return transport.Record{}, usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	rec := transport.NewRecord(form.Value)

	if files := form.File[catalog.FieldImage]; len(files) > 0 {
		img, err := h.readImage(files[0])
		if err != nil {
			return transport.Record{}, err
		}
		rec.Image = img
	}
	return rec, nil
}

// サイズ上限とContent-Typeの中身チェック（拡張子やヘッダは信用しない）
func (h *AdminProductHandler) readImage(fh *multipart.FileHeader) (*transport.File, error) {
	if h.maxImageBytes > 0 && fh.Size > h.maxImageBytes {
		return nil, imageError(fmt.Sprintf("image must be at most %d bytes", h.maxImageBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if len(data) == 0 {
		// 空のファイル欄は「画像なし」
		return nil, nil
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, imageError("image must be an image file")
	}

	return &transport.File{
		Filename:    fh.Filename,
		ContentType: mt.String(),
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, nil
}

func imageError(msg string) error {
	fe := catalog.FieldErrors{}
	fe.Add(catalog.FieldImage, catalog.KindFieldFormat, msg)
	return &usecase.HTTPError{
		Status:  http.StatusBadRequest,
		Message: "validation failed",
		Fields:  fe.Messages(),
		Err:     fe.Err(),
	}
}
