package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"ecomsimply_v1_202608/internal/model"
	"ecomsimply_v1_202608/internal/repository"
	"ecomsimply_v1_202608/pkg/retry"
	"ecomsimply_v1_202608/pkg/spapi"
)

// ==================== 错误定义 ====================

// ErrConnectionRequired 目标站点没有 active 连接
// 路由层固定映射成 412 Precondition Failed，前端据此弹"请先连接账号"引导
var ErrConnectionRequired = errors.New("no active amazon connection for this marketplace")

// ==================== 外部服务依赖 ====================

// ImageMirrorInterface 图片镜像接口 (实现: StorageService)
// Amazon 要求图片 URL 稳定可访问，提交前先镜像到自己的存储
type ImageMirrorInterface interface {
	UploadFromURL(ctx context.Context, sourceURL, filename string) (string, error)
}

// ==================== 发布参数 ====================

// PublishOptions 发布选项
type PublishOptions struct {
	MarketplaceID string // 为空时取用户默认站点
	ListingID     string // 内部 listing 标识，可选
}

// ==================== 服务实现 ====================

// PublisherService 把规范商品表示提交成 JSON_LISTINGS_FEED
type PublisherService struct {
	connSvc    *ConnectionService
	pubRepo    repository.PublicationRepository
	settings   repository.SettingsRepository
	feedClient FeedClientInterface
	storage    ImageMirrorInterface // 可为 nil，镜像失败只降级为 warning
	policy     *retry.Policy
}

// NewPublisherService 创建发布服务
// policy 传 nil 时用默认策略 (最多 3 次重试，指数退避封顶 60s)
func NewPublisherService(
	connSvc *ConnectionService,
	pubRepo repository.PublicationRepository,
	settings repository.SettingsRepository,
	feedClient FeedClientInterface,
	storage ImageMirrorInterface,
	policy *retry.Policy,
) *PublisherService {
	if policy == nil {
		policy = retry.DefaultPolicy()
		policy.Retryable = RetryableSPAPIError
	}
	return &PublisherService{
		connSvc:    connSvc,
		pubRepo:    pubRepo,
		settings:   settings,
		feedClient: feedClient,
		storage:    storage,
		policy:     policy,
	}
}

// RetryableSPAPIError 只重试配额类错误
func RetryableSPAPIError(err error) bool {
	var apiErr *spapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// Publish 发布一条商品
// 前置条件检查在任何网络调用之前: 没有 active 连接时零次外呼
func (s *PublisherService) Publish(ctx context.Context, userID int64, listing *spapi.ProductListing, opts PublishOptions) (*model.PublicationRecord, error) {
	start := time.Now()

	// 1. 确定目标站点
	marketplaceID := opts.MarketplaceID
	if marketplaceID == "" {
		userSettings, err := s.settings.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		marketplaceID = userSettings.DefaultMarketplaceID
	}
	if marketplaceID == "" {
		return nil, fmt.Errorf("未指定目标站点，且用户没有默认站点配置")
	}

	// 2. 必须有 active 连接
	conn, err := s.connSvc.GetActiveConnection(ctx, userID, marketplaceID)
	if err != nil {
		if errors.Is(err, repository.ErrConnectionNotFound) {
			return nil, ErrConnectionRequired
		}
		return nil, err
	}

	record := &model.PublicationRecord{
		UserID:        userID,
		MarketplaceID: marketplaceID,
		SellerID:      conn.SellerID,
		SKU:           listing.SKU,
		ListingID:     opts.ListingID,
	}

	// 3. 本地文案校验，不合规直接终止，不打 Amazon
	if problems := listing.Validate(); len(problems) > 0 {
		record.Success = false
		record.Status = model.FeedStatusFatal
		record.ErrorKind = spapi.ErrKindValidation.String()
		record.Errors = datatypes.JSONSlice[string](problems)
		s.saveRecord(ctx, record, start)
		return record, nil
	}

	var warnings []string

	// 4. 镜像图片到自有存储，失败降级为 warning，沿用原始 URL
	if s.storage != nil {
		s.mirrorImages(ctx, listing, &warnings)
	}

	// 5. 拿可用 Token (内部会透明刷新)
	accessToken, err := s.connSvc.GetValidAccessToken(ctx, conn)
	if err != nil {
		record.Success = false
		record.Status = model.FeedStatusFatal
		record.ErrorKind = spapi.ErrKindAuth.String()
		record.Errors = datatypes.JSONSlice[string]{err.Error()}
		s.saveRecord(ctx, record, start)
		return record, nil
	}

	region, _ := spapi.GetRegion(conn.Region)
	feed := spapi.BuildListingsFeed(conn.SellerID, marketplaceID, listing)

	// 6. 有界重试提交: 只有配额错误才重试
	var feedID, feedDocID string
	attempts, err := s.policy.Do(ctx, func() error {
		var submitErr error
		feedID, feedDocID, submitErr = s.feedClient.SubmitListing(ctx, region.APIBase, accessToken, marketplaceID, feed)
		return submitErr
	})
	record.RetryCount = attempts - 1

	if err != nil {
		record.Success = false
		record.Status = model.FeedStatusFatal
		record.ErrorKind = errorKindOf(err)
		record.Errors = datatypes.JSONSlice[string]{err.Error()}
		record.Warnings = datatypes.JSONSlice[string](warnings)
		s.saveRecord(ctx, record, start)
		log.Printf("[Publisher] 用户 %d SKU %s 发布失败 (%s): %v", userID, listing.SKU, record.ErrorKind, err)
		return record, nil
	}

	// 7. 成功，记下 feed id 供后续轮询
	now := time.Now()
	record.Success = true
	record.Status = model.FeedStatusSubmitted
	record.FeedID = feedID
	record.FeedDocumentID = feedDocID
	record.PublishedAt = &now
	record.Warnings = datatypes.JSONSlice[string](warnings)
	s.saveRecord(ctx, record, start)

	log.Printf("[Publisher] 用户 %d SKU %s 提交成功 (feed=%s, 重试 %d 次)", userID, listing.SKU, feedID, record.RetryCount)
	return record, nil
}

// FeedStatusResult 状态查询结果
// LocalOnly=true 表示查 Amazon 实时状态失败，只有本地记录可用
type FeedStatusResult struct {
	Record    *model.PublicationRecord
	Live      *spapi.GetFeedResp
	LocalOnly bool
	LiveError string
}

// GetPublicationStatus 查发布状态
// "本地没有这条 feed" 和 "查 Amazon 失败" 是两类结果:
// 前者返回 ErrPublicationNotFound，后者降级返回本地记录
func (s *PublisherService) GetPublicationStatus(ctx context.Context, userID int64, feedID string) (*FeedStatusResult, error) {
	record, err := s.pubRepo.GetByFeedID(ctx, userID, feedID)
	if err != nil {
		return nil, err // ErrPublicationNotFound 原样透出
	}

	conn, err := s.connSvc.GetActiveConnection(ctx, userID, record.MarketplaceID)
	if err != nil {
		return &FeedStatusResult{Record: record, LocalOnly: true, LiveError: "no active connection"}, nil
	}

	accessToken, err := s.connSvc.GetValidAccessToken(ctx, conn)
	if err != nil {
		return &FeedStatusResult{Record: record, LocalOnly: true, LiveError: err.Error()}, nil
	}

	region, _ := spapi.GetRegion(conn.Region)
	live, err := s.feedClient.GetFeedStatus(ctx, region.APIBase, accessToken, feedID)
	if err != nil {
		return &FeedStatusResult{Record: record, LocalOnly: true, LiveError: err.Error()}, nil
	}

	// 顺手把本地状态带到最新
	if live.ProcessingStatus != "" && live.ProcessingStatus != record.Status {
		if updateErr := s.pubRepo.UpdateStatus(ctx, record.ID, live.ProcessingStatus); updateErr == nil {
			record.Status = live.ProcessingStatus
		}
	}

	return &FeedStatusResult{Record: record, Live: live}, nil
}

// ListPublications 发布历史
func (s *PublisherService) ListPublications(ctx context.Context, filter repository.PublicationFilter) ([]model.PublicationRecord, int64, error) {
	return s.pubRepo.List(ctx, filter)
}

// mirrorImages 逐张镜像，单张失败不影响整体
func (s *PublisherService) mirrorImages(ctx context.Context, listing *spapi.ProductListing, warnings *[]string) {
	for i := range listing.Images {
		img := &listing.Images[i]
		filename := fmt.Sprintf("listings/%s/%s%s", listing.SKU, uuid.NewString()[:8], path.Ext(img.URL))
		mirrored, err := s.storage.UploadFromURL(ctx, img.URL, filename)
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf("图片镜像失败，沿用原始 URL: %s", img.URL))
			continue
		}
		img.URL = mirrored
	}
}

// saveRecord 落库 + 记录整次耗时
func (s *PublisherService) saveRecord(ctx context.Context, record *model.PublicationRecord, start time.Time) {
	record.ProcessingTimeMs = time.Since(start).Milliseconds()
	if err := s.pubRepo.Create(ctx, record); err != nil {
		log.Printf("[Publisher] 发布记录入库失败: %v", err)
	}
}

// errorKindOf 从错误里提取分类标签
func errorKindOf(err error) string {
	var apiErr *spapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind.String()
	}
	return spapi.ErrKindGeneric.String()
}
