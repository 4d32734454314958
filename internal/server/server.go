package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/config"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/middleware"
)

// Server は echo を包んで起動と停止をまとめる
type Server struct {
	e    *echo.Echo
	addr string
	log  *zap.Logger
}

func New(cfg config.Config, log *zap.Logger, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	// 画像込みのフォームでも上限を超えたらハンドラに入る前に弾く
	e.Use(echomw.BodyLimit(bodyLimit(cfg.MaxImageBytes)))

	RegisterRoutes(e, cfg, h)

	return &Server{e: e, addr: addr(cfg.Port), log: log}
}

// Handler はテストから叩く用
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start はShutdownされるまでブロックする
func (s *Server) Start() error {
	s.log.Info("server started", zap.String("addr", s.addr))
	if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown は処理中のリクエストを待って止める。ctxがキャンセル済みでも猶予は取る。
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

func addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] != ':' {
		return ":" + port
	}
	return port
}

// 画像の上限＋フォーム本体の余裕
func bodyLimit(maxImage int64) string {
	const slackKB = 256
	if maxImage <= 0 {
		return "10M"
	}
	kb := maxImage/1024 + slackKB
	return strconv.FormatInt(kb, 10) + "K"
}
