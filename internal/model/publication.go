package model

import (
	"time"

	"gorm.io/datatypes"
)

// Feed 处理状态常量 (对齐 SP-API processingStatus)
const (
	FeedStatusSubmitted  = "SUBMITTED" // 已提交，还没拿到 Amazon 状态
	FeedStatusInQueue    = "IN_QUEUE"
	FeedStatusInProgress = "IN_PROGRESS"
	FeedStatusDone       = "DONE"
	FeedStatusCancelled  = "CANCELLED"
	FeedStatusFatal      = "FATAL"
)

// PublicationRecord 一次发布尝试的结果
// 创建后不可变，只有 Status 会被轮询任务更新
type PublicationRecord struct {
	BaseModel

	UserID        int64  `gorm:"index;not null"`
	MarketplaceID string `gorm:"size:20;index"`
	SellerID      string `gorm:"size:64"`

	// 商品/任务标识
	SKU       string `gorm:"size:64;index"`
	ListingID string `gorm:"size:64"` // 内部 listing 标识

	// SP-API 返回的异步任务标识
	FeedID         string `gorm:"size:64;index"`
	FeedDocumentID string `gorm:"size:128"`

	// 结果
	Success          bool
	Status           string                      `gorm:"size:20;index;default:'SUBMITTED'"`
	Errors           datatypes.JSONSlice[string] // 阻断性错误
	Warnings         datatypes.JSONSlice[string] // 提示性问题
	ErrorKind        string                      `gorm:"size:20"` // quota/auth/validation/...
	RetryCount       int                         // 实际重试次数
	ProcessingTimeMs int64                       // 整次发布耗时

	PublishedAt *time.Time
}

func (PublicationRecord) TableName() string {
	return "publication_records"
}

// Terminal Feed 是否已到终态，轮询任务据此停止跟踪
func (p *PublicationRecord) Terminal() bool {
	switch p.Status {
	case FeedStatusDone, FeedStatusCancelled, FeedStatusFatal:
		return true
	}
	return false
}
