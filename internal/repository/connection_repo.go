package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"ecomsimply_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// ErrConnectionNotFound 统一的未找到错误，屏蔽 gorm 细节
var ErrConnectionNotFound = errors.New("connection not found")

// ConnectionRepository 授权连接仓储接口
type ConnectionRepository interface {
	Create(ctx context.Context, conn *model.Connection) error
	GetByConnectionID(ctx context.Context, connectionID string) (*model.Connection, error)
	Update(ctx context.Context, conn *model.Connection) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// 业务查询
	FindNonRevoked(ctx context.Context, userID int64, marketplaceID string) (*model.Connection, error)
	FindActive(ctx context.Context, userID int64, marketplaceID string) (*model.Connection, error)
	FindPendingByState(ctx context.Context, state string) (*model.Connection, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Connection, error)

	// 状态迁移
	MarkError(ctx context.Context, id int64, reason string) error
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)

	// 后台清理
	DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error)
}

// ==================== 仓储实现 ====================

type connectionRepo struct {
	db *gorm.DB
}

// NewConnectionRepository 创建授权连接仓储
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepo{db: db}
}

func (r *connectionRepo) Create(ctx context.Context, conn *model.Connection) error {
	return r.db.WithContext(ctx).Create(conn).Error
}

func (r *connectionRepo) GetByConnectionID(ctx context.Context, connectionID string) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) Update(ctx context.Context, conn *model.Connection) error {
	return r.db.WithContext(ctx).Save(conn).Error
}

func (r *connectionRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Connection{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// FindNonRevoked 查 (user, marketplace) 下未撤销的记录，用于创建时的唯一性检查
func (r *connectionRepo) FindNonRevoked(ctx context.Context, userID int64, marketplaceID string) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND marketplace_id = ? AND status <> ?",
			userID, marketplaceID, model.ConnectionStatusRevoked).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) FindActive(ctx context.Context, userID int64, marketplaceID string) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND marketplace_id = ? AND status = ?",
			userID, marketplaceID, model.ConnectionStatusActive).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// FindPendingByState 回调入口: 按 state 值找 pending 记录
// 过期判断放在业务层，这里只做存储匹配
func (r *connectionRepo) FindPendingByState(ctx context.Context, state string) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.WithContext(ctx).
		Where("oauth_state = ? AND status = ?", state, model.ConnectionStatusPending).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) ListByUser(ctx context.Context, userID int64) ([]model.Connection, error) {
	var conns []model.Connection
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&conns).Error
	return conns, err
}

// MarkError 记录失败原因并迁移到 error 状态，同时作废 state
func (r *connectionRepo) MarkError(ctx context.Context, id int64, reason string) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{
		"status":              model.ConnectionStatusError,
		"error_message":       reason,
		"oauth_state":         "",
		"oauth_state_expires": nil,
	})
}

// RevokeAllForUser 撤销用户全部连接并抹掉 Token 材料，幂等
func (r *connectionRepo) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Connection{}).
		Where("user_id = ? AND status <> ?", userID, model.ConnectionStatusRevoked).
		Updates(map[string]interface{}{
			"status":                  model.ConnectionStatusRevoked,
			"encrypted_refresh_token": "",
			"token_nonce":             "",
			"encryption_key_id":       "",
			"oauth_state":             "",
			"oauth_state_expires":     nil,
		})
	return result.RowsAffected, result.Error
}

// DeleteExpiredPending 清理 state 已过期的 pending 记录
func (r *connectionRepo) DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND oauth_state_expires < ?", model.ConnectionStatusPending, now).
		Delete(&model.Connection{})
	return result.RowsAffected, result.Error
}
