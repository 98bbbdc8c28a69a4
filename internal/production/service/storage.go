package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sanventru/odoomegastock-sub001/internal/config"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// NewMinIOClient 按配置创建 MinIO 客户端，未启用返回 nil
func NewMinIOClient(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket: %w", err)
		}
	}
	return client, nil
}

// ReportStore 报表归档；客户端为空时归档跳过
type ReportStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewReportStore(client *minio.Client, bucket string, logger *zap.Logger) *ReportStore {
	return &ReportStore{client: client, bucket: bucket, logger: logger}
}

// Enabled 是否配置了对象存储
func (s *ReportStore) Enabled() bool {
	return s != nil && s.client != nil
}

// Put 上传报表，返回对象名；未启用时返回空串
func (s *ReportStore) Put(ctx context.Context, objectName string, data []byte) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: xlsxContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload report: %w", err)
	}
	s.logger.Info("report archived", zap.String("bucket", s.bucket), zap.String("object", objectName))
	return objectName, nil
}

// Get 读取已归档报表
func (s *ReportStore) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("storage not configured")
	}
	object, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return object, nil
}
