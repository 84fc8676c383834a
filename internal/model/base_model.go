package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 所有表的公共字段
// 连接/发布记录对外都用业务 ID (ConnectionID/FeedID)，自增主键不出 API
type BaseModel struct {
	ID        int64          `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // 软删除，revoked 连接靠状态不靠删行
}
