package dto

import "time"

// ================== Connection DTO ==================

// ConnectReq 发起授权请求
type ConnectReq struct {
	MarketplaceID string `json:"marketplace_id" binding:"required"`
	Region        string `json:"region"` // 可选，不传按站点推导
}

// ConnectResp 发起授权响应
type ConnectResp struct {
	ConnectionID     string    `json:"connection_id"`
	AuthorizationURL string    `json:"authorization_url"`
	ExpiresAt        time.Time `json:"expires_at"` // 授权链接里的 state 过期时间
}

// ConnectionResp 单条连接
// 不回传任何 Token 材料，只有状态类字段
type ConnectionResp struct {
	ConnectionID  string     `json:"connection_id"`
	MarketplaceID string     `json:"marketplace_id"`
	Region        string     `json:"region"`
	SellerID      string     `json:"seller_id,omitempty"`
	Status        string     `json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	ConnectedAt   *time.Time `json:"connected_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ConnectionStatusResp 聚合状态响应
type ConnectionStatusResp struct {
	Status      string           `json:"status"` // none | connected | pending | error | revoked
	Counts      map[string]int   `json:"counts"`
	Connections []ConnectionResp `json:"connections"`
}

// DisconnectResp 断开响应
type DisconnectResp struct {
	Revoked int64 `json:"revoked"` // 本次撤销的连接数
}
