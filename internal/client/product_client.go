// Package client は管理API（/admin/products）を叩くHTTPクライアント。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/transport"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/usecase"
)

// APIError はサーバが返した4xx/5xx
type APIError struct {
	Status  int               `json:"-"`
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return fmt.Sprintf("%d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

// MutationResponse は作成・更新の結果。商品はそのまま表示する想定なので生JSONで持つ。
type MutationResponse struct {
	Product  json.RawMessage        `json:"product"`
	Warnings []usecase.AssetWarning `json:"warnings,omitempty"`
}

type ProductClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// DI
func NewProductClient(baseURL string, token string) *ProductClient {
	return &ProductClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Classification はサーバの分類表を取る（ローカルの表と食い違っていないかの確認用）
func (c *ProductClient) Classification(ctx context.Context) (catalog.TableView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/catalog/classification", nil)
	if err != nil {
		return catalog.TableView{}, errors.Wrap(err, "build request")
	}

	var view catalog.TableView
	if err := c.do(req, &view); err != nil {
		return catalog.TableView{}, err
	}
	return view, nil
}

func (c *ProductClient) Create(ctx context.Context, data catalog.ProductData, image *transport.File) (MutationResponse, error) {
	return c.send(ctx, http.MethodPost, "/admin/products", data, image)
}

func (c *ProductClient) Update(ctx context.Context, id string, data catalog.ProductData, image *transport.File) (MutationResponse, error) {
	return c.send(ctx, http.MethodPut, "/admin/products/"+id, data, image)
}

// 検証済みデータをmultipartに詰めて送る
func (c *ProductClient) send(ctx context.Context, method, path string, data catalog.ProductData, image *transport.File) (MutationResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := transport.WriteMultipart(w, transport.Encode(data, image)); err != nil {
		return MutationResponse{}, errors.Wrap(err, "encode product")
	}
	if err := w.Close(); err != nil {
		return MutationResponse{}, errors.Wrap(err, "encode product")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return MutationResponse{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out MutationResponse
	if err := c.do(req, &out); err != nil {
		return MutationResponse{}, err
	}
	return out, nil
}

func (c *ProductClient) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if res.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: res.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(res.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, out), "decode response")
}
