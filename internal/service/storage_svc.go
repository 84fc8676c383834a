package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"ecomsimply_v1_202608/pkg/utils"
)

// ==================== 配置 ====================

type StorageConfig struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	CDNDomain string // CDN 域名 (可选，回源 S3)
	BasePath  string // 基础路径前缀
}

// ==================== 服务实现 ====================

// StorageService 图片镜像存储
// listing 里的外链图片在提交 feed 前先搬到自有 S3，保证 Amazon 抓取时 URL 稳定可访问
type StorageService struct {
	client    *s3.Client
	bucket    string
	region    string
	cdnDomain string
	basePath  string
}

func NewStorageService(cfg *StorageConfig) (*StorageService, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %v", err)
	}

	return &StorageService{
		client:    s3.NewFromConfig(awsCfg),
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		cdnDomain: cfg.CDNDomain,
		basePath:  cfg.BasePath,
	}, nil
}

// Upload 上传字节流，返回公开访问 URL
func (s *StorageService) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	key := s.generateKey(filename)

	if contentType == "" {
		contentType = "image/jpeg"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传S3失败: %v", err)
	}

	return s.publicURL(key), nil
}

// UploadFromURL 从外链下载后镜像上传 (实现 ImageMirrorInterface)
func (s *StorageService) UploadFromURL(ctx context.Context, sourceURL string, filename string) (string, error) {
	data, contentType, err := utils.DownloadImage(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	return s.Upload(ctx, data, filename, contentType)
}

// Delete 删除镜像文件
func (s *StorageService) Delete(ctx context.Context, fileURL string) error {
	key := s.extractKey(fileURL)
	if key == "" {
		return fmt.Errorf("无法解析文件路径: %s", fileURL)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// generateKey 生成按日期分层的对象 key, 文件名用 uuid 防撞
func (s *StorageService) generateKey(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	name := fmt.Sprintf("%s%s", uuid.New().String(), ext)

	datePath := time.Now().Format("2006/01/02")
	if s.basePath != "" {
		return fmt.Sprintf("%s/%s/%s", s.basePath, datePath, name)
	}
	return fmt.Sprintf("%s/%s", datePath, name)
}

func (s *StorageService) publicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func (s *StorageService) extractKey(fileURL string) string {
	if s.cdnDomain != "" && strings.Contains(fileURL, s.cdnDomain) {
		return strings.TrimPrefix(fileURL, fmt.Sprintf("https://%s/", s.cdnDomain))
	}
	prefix := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region)
	if strings.HasPrefix(fileURL, prefix) {
		return strings.TrimPrefix(fileURL, prefix)
	}
	return ""
}
