package model

import (
	"time"
)

// Connection 生命周期状态常量
const (
	ConnectionStatusPending = "pending" // 等待用户在 Amazon 授权
	ConnectionStatusActive  = "active"  // 已拿到 Token，可发布
	ConnectionStatusError   = "error"   // 回调/刷新失败
	ConnectionStatusRevoked = "revoked" // 用户主动断开，终态
)

// Connection 一个用户到一个站点的 SP-API 授权记录
// 约束: 同一 (user_id, marketplace_id) 下最多一条非 revoked 记录
type Connection struct {
	BaseModel

	// 1. 核心身份
	ConnectionID  string `gorm:"size:64;uniqueIndex"` // 对外暴露的 UUID，不用自增主键
	UserID        int64  `gorm:"index;not null"`
	MarketplaceID string `gorm:"size:20;not null"` // 如 A13V1IB3VIYZZH
	Region        string `gorm:"size:4;not null"`  // NA / EU / FE
	SellerID      string `gorm:"size:64"`          // 授权成功后 Amazon 返回

	// 2. 生命周期
	Status       string `gorm:"size:20;index;default:'pending'"`
	ErrorMessage string `gorm:"type:text"`
	ConnectedAt  *time.Time

	// 3. CSRF state，仅 pending 期间存在，消费后立即清空
	OAuthState        string     `gorm:"column:oauth_state;size:512;index"`
	OAuthStateExpires *time.Time `gorm:"column:oauth_state_expires"`

	// 4. 加密的 Token 包，仅 active 期间存在
	// 内容是整个 TokenBundle 的密文 (access + refresh + 过期时间)
	EncryptedRefreshToken string `gorm:"type:text"`
	TokenNonce            string `gorm:"size:64"`
	EncryptionKeyID       string `gorm:"size:32"`
}

func (Connection) TableName() string {
	return "amazon_connections"
}

// IsRevoked revoked 是终态，任何状态机迁移都要先查这个
func (c *Connection) IsRevoked() bool {
	return c.Status == ConnectionStatusRevoked
}

// StateExpired pending 记录的 state 是否已过期
func (c *Connection) StateExpired(now time.Time) bool {
	return c.OAuthStateExpires == nil || now.After(*c.OAuthStateExpires)
}

// HasTokenMaterial 是否还持有 Token 密文
func (c *Connection) HasTokenMaterial() bool {
	return c.EncryptedRefreshToken != "" || c.TokenNonce != ""
}
