package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/usecase"
)

// /products の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
}

func (h *ProductHandler) list(c echo.Context) error {
	in, msg := parseListQuery(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	p, err := h.uc.GetProductDetail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

// page（default 1）, limit（default 20）, category, type, q, sort
// 失敗したらエラーメッセージを返す
func parseListQuery(c echo.Context) (usecase.ListProductsInput, string) {
	in := usecase.ListProductsInput{
		Page:     1,
		Limit:    20,
		Category: c.QueryParam("category"),
		Type:     c.QueryParam("type"),
		Q:        c.QueryParam("q"),
		Sort:     c.QueryParam("sort"),
	}

	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return in, "invalid page"
		}
		in.Page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return in, "invalid limit"
		}
		in.Limit = l
	}

	return in, ""
}
