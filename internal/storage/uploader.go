package storage

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader 将本地报告文件上传到对象存储
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// MinioUploader 基于 minio-go 的 S3 兼容上传实现
type MinioUploader struct {
	client *minio.Client
	bucket string
	prefix string

	once      sync.Once
	bucketErr error
}

// NewMinioUploader 创建上传器。Endpoint 为空时返回 nil, nil,表示不上传。
func NewMinioUploader(cfg config.UploadConfig) (*MinioUploader, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, nil
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = "pulse-reports"
	}
	return &MinioUploader{client: client, bucket: bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// ObjectName 返回本地文件对应的对象名
func (u *MinioUploader) ObjectName(localPath string) string {
	return ObjectName(u.prefix, localPath)
}

// ObjectName 拼接前缀与文件名
func ObjectName(prefix, localPath string) string {
	name := filepath.Base(localPath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// ContentType 根据扩展名推断内容类型
func ContentType(localPath string) string {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".yaml", ".yml":
		return "application/yaml"
	}
	if t := mime.TypeByExtension(filepath.Ext(localPath)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// ensureBucket 首次上传时检查并创建 bucket
func (u *MinioUploader) ensureBucket(ctx context.Context) error {
	u.once.Do(func() {
		exists, err := u.client.BucketExists(ctx, u.bucket)
		if err != nil {
			u.bucketErr = err
			return
		}
		if !exists {
			u.bucketErr = u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{})
		}
	})
	return u.bucketErr
}

// Upload 上传文件,返回 bucket/object 形式的位置
func (u *MinioUploader) Upload(ctx context.Context, localPath string) (string, error) {
	if err := u.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("failed to prepare bucket %s: %w", u.bucket, err)
	}
	object := u.ObjectName(localPath)
	_, err := u.client.FPutObject(ctx, u.bucket, object, localPath, minio.PutObjectOptions{ContentType: ContentType(localPath)})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", localPath, err)
	}
	return u.bucket + "/" + object, nil
}
