package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"ecomsimply_v1_202608/internal/model"
)

// ErrPublicationNotFound feed 在本地没有记录
// 与"查询 Amazon 失败"是两类不同的情况，调用方需要区分
var ErrPublicationNotFound = errors.New("publication record not found")

// ==================== 接口定义 ====================

// PublicationRepository 发布记录仓储接口
type PublicationRepository interface {
	Create(ctx context.Context, record *model.PublicationRecord) error
	GetByFeedID(ctx context.Context, userID int64, feedID string) (*model.PublicationRecord, error)
	UpdateStatus(ctx context.Context, id int64, status string) error

	List(ctx context.Context, filter PublicationFilter) ([]model.PublicationRecord, int64, error)
	ListPendingFeeds(ctx context.Context, limit int) ([]model.PublicationRecord, error)
}

// PublicationFilter 查询过滤条件
type PublicationFilter struct {
	UserID        int64
	MarketplaceID string
	Page          int
	PageSize      int
}

// ==================== 仓储实现 ====================

type publicationRepo struct {
	db *gorm.DB
}

// NewPublicationRepository 创建发布记录仓储
func NewPublicationRepository(db *gorm.DB) PublicationRepository {
	return &publicationRepo{db: db}
}

func (r *publicationRepo) Create(ctx context.Context, record *model.PublicationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByFeedID feed 记录按 (user, feed) 查，避免越权读别人的发布结果
func (r *publicationRepo) GetByFeedID(ctx context.Context, userID int64, feedID string) (*model.PublicationRecord, error) {
	var record model.PublicationRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND feed_id = ?", userID, feedID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPublicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *publicationRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.PublicationRecord{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *publicationRepo) List(ctx context.Context, filter PublicationFilter) ([]model.PublicationRecord, int64, error) {
	var records []model.PublicationRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&model.PublicationRecord{})

	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.MarketplaceID != "" {
		query = query.Where("marketplace_id = ?", filter.MarketplaceID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	if err := query.Order("created_at DESC").Limit(filter.PageSize).Offset(offset).Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// ListPendingFeeds 轮询任务用: 提交成功但还没到终态的 feed
func (r *publicationRepo) ListPendingFeeds(ctx context.Context, limit int) ([]model.PublicationRecord, error) {
	var records []model.PublicationRecord
	err := r.db.WithContext(ctx).
		Where("success = ? AND feed_id <> '' AND status NOT IN ?",
			true, []string{model.FeedStatusDone, model.FeedStatusCancelled, model.FeedStatusFatal}).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
