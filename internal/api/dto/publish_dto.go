package dto

import (
	"time"

	"ecomsimply_v1_202608/pkg/spapi"
)

// ================== Publish DTO ==================

// PublishReq 直接发布请求 (不走流水线的手动发布)
type PublishReq struct {
	MarketplaceID string               `json:"marketplace_id"` // 可选，不传用默认站点
	ListingID     string               `json:"listing_id"`
	Listing       spapi.ProductListing `json:"listing" binding:"required"`
}

// PublishResp 发布结果
type PublishResp struct {
	Success          bool       `json:"success"`
	FeedID           string     `json:"feed_id,omitempty"`
	FeedDocumentID   string     `json:"feed_document_id,omitempty"`
	SKU              string     `json:"sku"`
	Status           string     `json:"status"`
	ErrorKind        string     `json:"error_kind,omitempty"`
	Errors           []string   `json:"errors,omitempty"`
	Warnings         []string   `json:"warnings,omitempty"`
	RetryCount       int        `json:"retry_count"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
}

// PipelineReq 流水线发布请求
type PipelineReq struct {
	MarketplaceID string               `json:"marketplace_id"`
	Category      string               `json:"category"`
	Features      string               `json:"features"` // 给文案生成的卖点提示
	Listing       spapi.ProductListing `json:"listing" binding:"required"`
}

// PublicationListReq 发布历史查询
type PublicationListReq struct {
	MarketplaceID string `form:"marketplace_id"`
	Page          int    `form:"page,default=1"`
	PageSize      int    `form:"page_size,default=20"`
}

// PublicationItemResp 发布历史单条
type PublicationItemResp struct {
	ID            int64      `json:"id"`
	MarketplaceID string     `json:"marketplace_id"`
	SKU           string     `json:"sku"`
	FeedID        string     `json:"feed_id,omitempty"`
	Success       bool       `json:"success"`
	Status        string     `json:"status"`
	ErrorKind     string     `json:"error_kind,omitempty"`
	RetryCount    int        `json:"retry_count"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PublicationListResp 发布历史分页响应
type PublicationListResp struct {
	Total int64                 `json:"total"`
	Items []PublicationItemResp `json:"items"`
}

// PrerequisitesResp 流水线前置检查响应
type PrerequisitesResp struct {
	Ready   bool     `json:"ready"`
	Missing []string `json:"missing"`
}
