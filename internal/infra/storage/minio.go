// Package storage は商品画像をMinIO（S3互換）に置く。
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/config"
	repo "github.com/zvMateo/yerbaXanaes-main-sub000/internal/repository"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/transport"
)

// オブジェクト名の接頭辞
const objectPrefix = "products/"

// minio.Client のうち使う部分
type objectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type MinioAssetStore struct {
	client  objectAPI
	bucket  string
	baseURL string
}

// DI
func NewMinioAssetStore(client *minio.Client, bucket string, baseURL string) *MinioAssetStore {
	return newMinioAssetStore(client, bucket, baseURL)
}

func newMinioAssetStore(client objectAPI, bucket string, baseURL string) *MinioAssetStore {
	return &MinioAssetStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Connect はMinIOに接続し、バケットがなければ作る。
func Connect(ctx context.Context, cfg config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "minio client")
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, errors.Wrapf(err, "check bucket %s", cfg.MinioBucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "make bucket %s", cfg.MinioBucket)
		}
	}
	return client, nil
}

// PublicBaseURL は画像URLのベース
func PublicBaseURL(cfg config.Config) string {
	if cfg.MinioPublicURL != "" {
		return strings.TrimRight(cfg.MinioPublicURL, "/")
	}
	scheme := "http"
	if cfg.MinioUseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket)
}

// Upload はuuidのオブジェクト名で保存する。publicIDはオブジェクト名。
func (s *MinioAssetStore) Upload(ctx context.Context, file transport.File) (repo.StoredAsset, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	objectName := objectPrefix + uuid.NewString() + ext

	size := file.Size
	if size <= 0 {
		size = -1
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectName, file.Body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return repo.StoredAsset{}, errors.Wrapf(err, "put object %s", objectName)
	}

	return repo.StoredAsset{
		URL:      s.baseURL + "/" + objectName,
		PublicID: objectName,
	}, nil
}

func (s *MinioAssetStore) Delete(ctx context.Context, publicID string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, "remove object %s", publicID)
	}
	return nil
}
