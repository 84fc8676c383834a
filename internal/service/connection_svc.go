package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ecomsimply_v1_202608/internal/model"
	"ecomsimply_v1_202608/internal/repository"
	"ecomsimply_v1_202608/pkg/spapi"
	"ecomsimply_v1_202608/pkg/utils"
)

// ==================== 错误定义 ====================

// ErrConnectionExists 同一 (user, marketplace) 已有未撤销的连接 (409)
// 并发的 connect 请求在这里直接拒绝，不做记录级加锁调和
var ErrConnectionExists = errors.New("a connection already exists for this marketplace")

// ErrInvalidState 回调带来的 state 不认识或已过期
// 此时没有可标错的记录，直接拒绝
var ErrInvalidState = errors.New("invalid or expired oauth state")

// ErrNoTokenMaterial 连接上没有可用的 Token 密文 (已撤销或从未激活)
var ErrNoTokenMaterial = errors.New("connection has no token material")

// ==================== 外部服务依赖 ====================

// LWAClientInterface LWA 客户端接口 (实现: LWAService)
type LWAClientInterface interface {
	BuildAuthorizationURL(state, marketplaceID, regionCode string) (string, error)
	ExchangeCodeForTokens(ctx context.Context, code, regionCode string) (*TokenBundle, error)
	RefreshAccessToken(ctx context.Context, refreshToken, regionCode string) (*TokenBundle, error)
}

// ==================== 服务实现 ====================

// ConnectionService 授权连接的状态机编排
// pending -> active / error，active -> error / revoked，error -> revoked
// revoked 是终态
type ConnectionService struct {
	connRepo repository.ConnectionRepository
	codec    *StateCodec
	lwa      LWAClientInterface
	crypto   *CryptoService
}

// NewConnectionService 创建连接编排服务
func NewConnectionService(
	connRepo repository.ConnectionRepository,
	codec *StateCodec,
	lwa LWAClientInterface,
	crypto *CryptoService,
) *ConnectionService {
	return &ConnectionService{
		connRepo: connRepo,
		codec:    codec,
		lwa:      lwa,
		crypto:   crypto,
	}
}

// CreateConnection 发起授权: 建 pending 记录并返回授权跳转链接
func (s *ConnectionService) CreateConnection(ctx context.Context, userID int64, marketplaceID, regionCode string) (string, *model.Connection, error) {
	// 1. 推导区域
	if regionCode == "" {
		region, ok := spapi.RegionForMarketplace(marketplaceID)
		if !ok {
			return "", nil, fmt.Errorf("未知站点 %s，请显式指定 region", marketplaceID)
		}
		regionCode = region.Code
	} else if _, ok := spapi.GetRegion(regionCode); !ok {
		return "", nil, fmt.Errorf("未知区域: %s", regionCode)
	}

	// 2. 唯一性检查: 同站点已有未撤销连接时拒绝，不动已有记录
	if _, err := s.connRepo.FindNonRevoked(ctx, userID, marketplaceID); err == nil {
		return "", nil, ErrConnectionExists
	} else if !errors.Is(err, repository.ErrConnectionNotFound) {
		return "", nil, err
	}

	// 3. 生成 state 并建 pending 记录
	connectionID := uuid.NewString()
	state, err := s.codec.Generate(userID, connectionID)
	if err != nil {
		return "", nil, fmt.Errorf("生成 state 失败: %v", err)
	}

	expires := time.Now().Add(StateMaxAge)
	conn := &model.Connection{
		ConnectionID:      connectionID,
		UserID:            userID,
		MarketplaceID:     marketplaceID,
		Region:            regionCode,
		Status:            model.ConnectionStatusPending,
		OAuthState:        state,
		OAuthStateExpires: &expires,
	}
	if err := s.connRepo.Create(ctx, conn); err != nil {
		return "", nil, fmt.Errorf("创建连接记录失败: %v", err)
	}

	// 4. 拼授权链接
	authURL, err := s.lwa.BuildAuthorizationURL(state, marketplaceID, regionCode)
	if err != nil {
		return "", nil, err
	}

	log.Printf("[Connection] 用户 %d 发起 %s 授权 (conn=%s)", userID, marketplaceID, connectionID)
	return authURL, conn, nil
}

// HandleOAuthCallback 处理 Amazon 回调
// 顺序不可调换: 先 CSRF 校验，再换 Token，最后落库
// 任何一步失败都会把失败原因固化到记录上
func (s *ConnectionService) HandleOAuthCallback(ctx context.Context, state, code, sellerID string) (*model.Connection, error) {
	// 1. 按 state 找 pending 记录；找不到或已过期说明来路不明，没有可标错的记录
	conn, err := s.connRepo.FindPendingByState(ctx, state)
	if err != nil {
		return nil, ErrInvalidState
	}
	if conn.StateExpired(time.Now()) {
		return nil, ErrInvalidState
	}

	// 2. CSRF 校验 (fail closed，只会返回 false 不会抛异常)
	if !s.codec.Verify(state, conn.UserID, conn.ConnectionID, StateMaxAge) {
		s.markError(ctx, conn, "CSRF validation failed")
		return nil, fmt.Errorf("CSRF validation failed")
	}

	// 3. 授权码换 Token；失败不重试，授权码已作废
	bundle, err := s.lwa.ExchangeCodeForTokens(ctx, code, conn.Region)
	if err != nil {
		s.markError(ctx, conn, err.Error())
		return nil, err
	}

	// 4. 加密 Token 包并一次性落库: 激活 + 记 seller + 清 state
	ciphertext, nonce, err := s.crypto.Encrypt(bundle, conn.UserID)
	if err != nil {
		s.markError(ctx, conn, "token encryption failed: "+err.Error())
		return nil, err
	}

	now := time.Now()
	err = s.connRepo.UpdateFields(ctx, conn.ID, map[string]interface{}{
		"status":                  model.ConnectionStatusActive,
		"seller_id":               sellerID,
		"connected_at":            &now,
		"encrypted_refresh_token": ciphertext,
		"token_nonce":             nonce,
		"encryption_key_id":       s.crypto.KeyID(),
		"oauth_state":             "",
		"oauth_state_expires":     nil,
		"error_message":           "",
	})
	if err != nil {
		return nil, fmt.Errorf("连接激活落库失败: %v", err)
	}

	conn.Status = model.ConnectionStatusActive
	conn.SellerID = sellerID
	conn.ConnectedAt = &now
	conn.OAuthState = ""
	conn.OAuthStateExpires = nil

	log.Printf("[Connection] 连接 %s 激活成功 (seller=%s)", conn.ConnectionID, utils.MaskSecret(sellerID, 6))
	return conn, nil
}

// GetValidAccessToken 取可用的访问 Token
// Token 未过期直接用缓存值；过期则透明刷新、重新加密、落库
// 这是唯一会自愈的路径，所有 SP-API 调用方都依赖这个约定
func (s *ConnectionService) GetValidAccessToken(ctx context.Context, conn *model.Connection) (string, error) {
	if conn.Status != model.ConnectionStatusActive || !conn.HasTokenMaterial() {
		return "", ErrNoTokenMaterial
	}

	bundle, err := s.crypto.Decrypt(conn.EncryptedRefreshToken, conn.TokenNonce, conn.UserID)
	if err != nil {
		return "", err
	}

	if !bundle.Expired(time.Now()) {
		return bundle.AccessToken, nil
	}

	// 过期，刷新后重新加密入库
	fresh, err := s.lwa.RefreshAccessToken(ctx, bundle.RefreshToken, conn.Region)
	if err != nil {
		// 刷新失败: active -> error，用户需要重新授权
		s.markError(ctx, conn, "token refresh failed: "+err.Error())
		return "", err
	}

	ciphertext, nonce, err := s.crypto.Encrypt(fresh, conn.UserID)
	if err != nil {
		return "", err
	}
	err = s.connRepo.UpdateFields(ctx, conn.ID, map[string]interface{}{
		"encrypted_refresh_token": ciphertext,
		"token_nonce":             nonce,
		"encryption_key_id":       s.crypto.KeyID(),
	})
	if err != nil {
		return "", fmt.Errorf("刷新后的 Token 落库失败: %v", err)
	}

	conn.EncryptedRefreshToken = ciphertext
	conn.TokenNonce = nonce

	log.Printf("[Connection] 连接 %s Token 刷新成功", conn.ConnectionID)
	return fresh.AccessToken, nil
}

// Disconnect 撤销用户的所有连接，幂等
func (s *ConnectionService) Disconnect(ctx context.Context, userID int64) (int64, error) {
	affected, err := s.connRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	log.Printf("[Connection] 用户 %d 断开连接，撤销 %d 条", userID, affected)
	return affected, nil
}

// GetUserConnections 只读投影
func (s *ConnectionService) GetUserConnections(ctx context.Context, userID int64) ([]model.Connection, error) {
	return s.connRepo.ListByUser(ctx, userID)
}

// GetActiveConnection 查某站点的 active 连接 (Publisher 的前置条件)
func (s *ConnectionService) GetActiveConnection(ctx context.Context, userID int64, marketplaceID string) (*model.Connection, error) {
	return s.connRepo.FindActive(ctx, userID, marketplaceID)
}

// AggregateStatus 聚合连接状态: none | connected | pending | error | revoked
// active 优先级最高，依次降级
func (s *ConnectionService) AggregateStatus(conns []model.Connection) (string, map[string]int) {
	counts := map[string]int{}
	for _, c := range conns {
		counts[c.Status]++
	}

	switch {
	case counts[model.ConnectionStatusActive] > 0:
		return "connected", counts
	case counts[model.ConnectionStatusPending] > 0:
		return "pending", counts
	case counts[model.ConnectionStatusError] > 0:
		return "error", counts
	case counts[model.ConnectionStatusRevoked] > 0:
		return "revoked", counts
	}
	return "none", counts
}

// markError 状态机统一的失败落库入口
func (s *ConnectionService) markError(ctx context.Context, conn *model.Connection, reason string) {
	if err := s.connRepo.MarkError(ctx, conn.ID, reason); err != nil {
		log.Printf("[Connection] 记录失败状态出错 (conn=%s): %v", conn.ConnectionID, err)
	}
	conn.Status = model.ConnectionStatusError
	conn.ErrorMessage = reason
}
