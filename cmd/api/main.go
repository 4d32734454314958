package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/config"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/handler"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/infra/cache"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/infra/db"
	infraRepo "github.com/zvMateo/yerbaXanaes-main-sub000/internal/infra/repository"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/infra/storage"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/logger"
	repo "github.com/zvMateo/yerbaXanaes-main-sub000/internal/repository"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/server"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/usecase"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now().UTC()
}

func main() {
	//.env はあれば読む（本番は環境変数だけ）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg.DSN(), !cfg.IsProduction())
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//画像ストア
	minioClient, err := storage.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	assets := storage.NewMinioAssetStore(minioClient, cfg.MinioBucket, storage.PublicBaseURL(cfg))

	//キャッシュ（REDIS_ADDR が空なら使わない）
	var productCache repo.ProductCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		productCache = cache.NewProductRedisCache(rdb, cfg.ProductCacheTTL)
	} else {
		zl.Info("product cache disabled")
	}

	table := catalog.DefaultTable()

	//Repository（GORM実装）
	productRepo := infraRepo.NewProductGormRepository(gormDB, table)
	txm := infraRepo.NewTxManagerGorm(gormDB, table)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)

	//Usecase
	productUC := usecase.NewProductUsecase(
		productRepo,
		txm,
		usecase.NewImageLifecycle(assets, zl),
		productCache,
		table,
		&uuidGenerator{},
		&realClock{},
		zl,
	)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)

	//Handler
	srv := server.New(cfg, zl, server.Handlers{
		Products:       handler.NewProductHandler(productUC),
		AdminProducts:  handler.NewAdminProductHandler(productUC, cfg.MaxImageBytes),
		Classification: handler.NewClassificationHandler(table),
		AuditLogs:      handler.NewAuditLogHandler(auditUC),
	})

	//Server起動。シグナルで止める。
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down")
		return srv.Shutdown(gctx)
	})
	return g.Wait()
}
