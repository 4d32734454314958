package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
)

// 分類表をそのまま返す。クライアントはこれを使ってtypeの選択肢とGroupを決める。
type ClassificationHandler struct {
	table *catalog.Table
}

func NewClassificationHandler(table *catalog.Table) *ClassificationHandler {
	return &ClassificationHandler{table: table}
}

func (h *ClassificationHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/catalog/classification", h.get)
}

func (h *ClassificationHandler) get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.table.View())
}
