package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"ecomsimply_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// SettingsRepository 用户发布配置仓储接口
type SettingsRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*model.UserSettings, error)
	Upsert(ctx context.Context, settings *model.UserSettings) error
}

// ==================== 仓储实现 ====================

type settingsRepo struct {
	db *gorm.DB
}

// NewSettingsRepository 创建配置仓储
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

// GetByUserID 没有配置记录时返回默认值 (free 计划，未配置护栏)
// 前置检查需要把"没配置"当成缺失项来报告，而不是报错
func (r *settingsRepo) GetByUserID(ctx context.Context, userID int64) (*model.UserSettings, error) {
	var settings model.UserSettings
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.UserSettings{UserID: userID, Plan: model.PlanFree}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepo) Upsert(ctx context.Context, settings *model.UserSettings) error {
	var existing model.UserSettings
	err := r.db.WithContext(ctx).
		Where("user_id = ?", settings.UserID).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(settings).Error
	}
	if err != nil {
		return err
	}

	settings.ID = existing.ID
	return r.db.WithContext(ctx).Save(settings).Error
}
