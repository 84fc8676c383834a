package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ecomsimply_v1_202608/internal/model"
	"ecomsimply_v1_202608/internal/repository"
	"ecomsimply_v1_202608/pkg/spapi"
)

// ==================== 状态与步骤常量 ====================

const (
	PipelineStatusCompleted     = "completed"
	PipelineStatusFailed        = "failed"
	PipelineStatusPendingReview = "pending_review"
)

// 步骤 key 固定，调用方靠它定位失败在哪一步
const (
	StepSEOGeneration   = "seo_generation"
	StepPriceDiscovery  = "price_discovery"
	StepPriceValidation = "price_validation"
	StepMerge           = "merge"
	StepPublish         = "publish"
)

// ==================== 数据结构 ====================

// PipelineStep 单步执行结果
type PipelineStep struct {
	Key     string      `json:"key"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PipelineResult 整条流水线的结果
// 不管成功失败，步骤明细和耗时都完整返回，方便在失败那一步续跑/排查
type PipelineResult struct {
	Status     string                   `json:"status"` // completed | failed | pending_review
	DurationMs int64                    `json:"duration_ms"`
	Steps      []PipelineStep           `json:"steps"`
	Listing    *spapi.ProductListing    `json:"listing,omitempty"`
	Record     *model.PublicationRecord `json:"record,omitempty"`
}

// MergePayload 合并步骤的产出: 文案 + 价格 + 来源标记
type MergePayload struct {
	Title         string  `json:"title"`
	Price         float64 `json:"price"`
	A9Compliant   bool    `json:"a9_compliant"`
	PriceScraped  bool    `json:"price_scraped"`
	MarketplaceID string  `json:"marketplace_id"`
}

// PipelineInput 流水线入参
type PipelineInput struct {
	Listing       *spapi.ProductListing
	Category      string
	Features      string // 给文案生成的卖点提示
	MarketplaceID string // 为空时取用户默认站点
}

// PublisherInterface 发布入口 (便于测试 mock)
type PublisherInterface interface {
	Publish(ctx context.Context, userID int64, listing *spapi.ProductListing, opts PublishOptions) (*model.PublicationRecord, error)
}

// ==================== 服务实现 ====================

// PipelineService 串联 文案生成 → 比价 → 护栏校验 → 合并 → 发布
type PipelineService struct {
	seo       SEOServiceInterface
	price     PriceServiceInterface
	publisher PublisherInterface
	connSvc   *ConnectionService
	settings  repository.SettingsRepository
}

func NewPipelineService(
	seo SEOServiceInterface,
	price PriceServiceInterface,
	publisher PublisherInterface,
	connSvc *ConnectionService,
	settings repository.SettingsRepository,
) *PipelineService {
	return &PipelineService{
		seo:       seo,
		price:     price,
		publisher: publisher,
		connSvc:   connSvc,
		settings:  settings,
	}
}

// Execute 跑完整流水线
// 五步严格串行; 前两步失败整体 failed; 护栏违规 pending_review 并且绝不触发发布
func (s *PipelineService) Execute(ctx context.Context, userID int64, input PipelineInput) *PipelineResult {
	start := time.Now()
	result := &PipelineResult{Status: PipelineStatusFailed}
	defer func() {
		result.DurationMs = time.Since(start).Milliseconds()
	}()

	listing := input.Listing
	if listing == nil {
		result.Steps = append(result.Steps, PipelineStep{Key: StepSEOGeneration, Error: "缺少商品数据"})
		return result
	}

	userSettings, err := s.settings.GetByUserID(ctx, userID)
	if err != nil {
		result.Steps = append(result.Steps, PipelineStep{Key: StepSEOGeneration, Error: fmt.Sprintf("读取用户配置失败: %v", err)})
		return result
	}

	marketplaceID := input.MarketplaceID
	if marketplaceID == "" {
		marketplaceID = userSettings.DefaultMarketplaceID
	}

	// 1. SEO 文案生成
	content, err := s.seo.GenerateContent(ctx, listing.Title, input.Category, input.Features)
	if err != nil {
		result.Steps = append(result.Steps, PipelineStep{Key: StepSEOGeneration, Error: err.Error()})
		log.Printf("[Pipeline] 用户 %d SKU %s 文案生成失败: %v", userID, listing.SKU, err)
		return result
	}
	result.Steps = append(result.Steps, PipelineStep{Key: StepSEOGeneration, Success: true, Data: content})

	// 2. 多来源比价
	quotes, err := s.price.FetchReferencePrices(ctx, listing.Title, marketplaceID)
	if err != nil {
		result.Steps = append(result.Steps, PipelineStep{Key: StepPriceDiscovery, Error: err.Error()})
		log.Printf("[Pipeline] 用户 %d SKU %s 比价失败: %v", userID, listing.SKU, err)
		return result
	}
	summary := AggregateQuotes(quotes)
	result.Steps = append(result.Steps, PipelineStep{Key: StepPriceDiscovery, Success: true, Data: summary})

	// 3. 价格护栏: 违规即停，绝不带着可疑价格自动上架
	targetPrice := listing.Price
	priceScraped := false
	if targetPrice <= 0 && summary.Count > 0 {
		targetPrice = summary.Avg
		priceScraped = true
	}
	if violations := CheckPriceGuards(targetPrice, summary, userSettings); len(violations) > 0 {
		result.Status = PipelineStatusPendingReview
		result.Steps = append(result.Steps, PipelineStep{Key: StepPriceValidation, Data: violations})
		log.Printf("[Pipeline] 用户 %d SKU %s 价格护栏拦截，转人工审核", userID, listing.SKU)
		return result
	}
	result.Steps = append(result.Steps, PipelineStep{Key: StepPriceValidation, Success: true, Data: targetPrice})

	// 4. 合并: 文案+价格写回商品，打上来源标记
	content.ApplyToListing(listing)
	listing.Price = targetPrice
	listing.PriceScraped = priceScraped
	if listing.Currency == "" && summary.Currency != "" {
		listing.Currency = summary.Currency
	}
	merge := MergePayload{
		Title:         listing.Title,
		Price:         listing.Price,
		A9Compliant:   content.A9Compliant,
		PriceScraped:  priceScraped,
		MarketplaceID: marketplaceID,
	}
	result.Steps = append(result.Steps, PipelineStep{Key: StepMerge, Success: true, Data: merge})
	result.Listing = listing

	// 5. 发布
	record, err := s.publisher.Publish(ctx, userID, listing, PublishOptions{MarketplaceID: marketplaceID})
	if err != nil {
		result.Steps = append(result.Steps, PipelineStep{Key: StepPublish, Error: err.Error()})
		return result
	}
	result.Record = record
	if !record.Success {
		result.Steps = append(result.Steps, PipelineStep{Key: StepPublish, Error: firstOr(record.Errors, "发布失败"), Data: record})
		return result
	}

	result.Steps = append(result.Steps, PipelineStep{Key: StepPublish, Success: true, Data: record})
	result.Status = PipelineStatusCompleted
	return result
}

// ==================== 前置检查 ====================

// ValidatePipelinePrerequisites 自动发布前置检查
// 返回缺失项列表而不是布尔值，前端要逐项提示用户补齐
func (s *PipelineService) ValidatePipelinePrerequisites(ctx context.Context, userID int64, marketplaceID string) ([]string, error) {
	var missing []string

	userSettings, err := s.settings.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if marketplaceID == "" {
		marketplaceID = userSettings.DefaultMarketplaceID
	}
	if marketplaceID == "" {
		missing = append(missing, "未配置默认目标站点")
	}

	if marketplaceID != "" {
		if _, err := s.connSvc.GetActiveConnection(ctx, userID, marketplaceID); err != nil {
			if errors.Is(err, repository.ErrConnectionNotFound) {
				missing = append(missing, "目标站点没有已连接的 Amazon 账号")
			} else {
				return nil, err
			}
		}
	}

	if !userSettings.AllowsAutoPublish() {
		missing = append(missing, "当前订阅计划不支持自动发布，请升级到 premium 或 enterprise")
	}

	if !userSettings.PriceGuardConfigured() {
		missing = append(missing, "未配置价格护栏 (价格区间或最大偏差)")
	}

	return missing, nil
}

func firstOr(items []string, fallback string) string {
	if len(items) > 0 {
		return items[0]
	}
	return fallback
}
