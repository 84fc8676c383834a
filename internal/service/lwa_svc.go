package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"ecomsimply_v1_202608/pkg/spapi"
	"ecomsimply_v1_202608/pkg/utils"
)

// ==================== 错误定义 ====================

// 这几类错误业务层要分别处理，必须可区分

// ErrMissingRefreshToken 换 Token 成功但响应里没有 refresh_token
// 实际发生过: redirect_uri 不一致时 Amazon 会静默省略 refresh_token，
// 这属于配置错误，必须有自己的错误类型而不是混在 500 里
var ErrMissingRefreshToken = errors.New("token response missing refresh_token (check redirect_uri)")

// ErrInvalidAuthorizationCode 授权码无效/已被用过 (HTTP 400)
var ErrInvalidAuthorizationCode = errors.New("invalid or expired authorization code")

// ErrInvalidClientCredentials LWA client id/secret 配置错误 (HTTP 401)
var ErrInvalidClientCredentials = errors.New("invalid LWA client credentials")

// TokenExchangeError 其他非 2xx，带上状态码
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: status %d: %s", e.StatusCode, e.Body)
}

// ==================== Token 包 ====================

// TokenBundle LWA 返回的完整 Token 包，整包加密入库
type TokenBundle struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"` // 入库前按 ExpiresIn 算好
}

// Expired 提前 5 分钟判过期，避免拿着临期 Token 打 SP-API
func (b *TokenBundle) Expired(now time.Time) bool {
	return now.After(b.ExpiresAt.Add(-5 * time.Minute))
}

// lwaTokenResp LWA Token 端点的原始响应
type lwaTokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

// ==================== 服务实现 ====================

// LWAConfig LWA/SP-API 应用配置
type LWAConfig struct {
	ClientID     string
	ClientSecret string
	AppID        string // Seller Central 里注册的应用 ID
	RedirectURI  string // 必须与后台配置完全一致，差一个字符就拿不到 refresh_token
	Timeout      time.Duration

	// 测试/本地联调用，覆盖区域端点
	TokenURLOverride string
	APIBaseOverride  string
}

// LWAService Login-With-Amazon 客户端
type LWAService struct {
	cfg    *LWAConfig
	client *resty.Client
}

// NewLWAService 创建 LWA 客户端
func NewLWAService(cfg *LWAConfig) *LWAService {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "Ecomsimply-Go-App/1.0")

	return &LWAService{cfg: cfg, client: client}
}

// BuildAuthorizationURL 拼授权跳转链接，纯函数无副作用
// region 为空时按 marketplace 推导
func (s *LWAService) BuildAuthorizationURL(state, marketplaceID, regionCode string) (string, error) {
	region, err := s.resolveRegion(marketplaceID, regionCode)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("application_id", s.cfg.AppID)
	params.Set("state", state)
	params.Set("redirect_uri", s.cfg.RedirectURI)

	return region.AuthURL + "?" + params.Encode(), nil
}

// ExchangeCodeForTokens 授权码换 Token
// 失败不重试: 授权码一次性，失败只能让用户重新走授权
func (s *LWAService) ExchangeCodeForTokens(ctx context.Context, code, regionCode string) (*TokenBundle, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", s.cfg.RedirectURI)
	data.Set("client_id", s.cfg.ClientID)
	data.Set("client_secret", s.cfg.ClientSecret)

	return s.requestToken(ctx, regionCode, data, true)
}

// RefreshAccessToken 刷新访问 Token
// Amazon 在这条流程里不轮换 refresh_token，成功后沿用传入的值
func (s *LWAService) RefreshAccessToken(ctx context.Context, refreshToken, regionCode string) (*TokenBundle, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", s.cfg.ClientID)
	data.Set("client_secret", s.cfg.ClientSecret)

	bundle, err := s.requestToken(ctx, regionCode, data, false)
	if err != nil {
		return nil, err
	}
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = refreshToken
	}
	return bundle, nil
}

// requestToken 真正打 Token 端点
// requireRefresh: 授权码流程必须带 refresh_token，刷新流程不强制
func (s *LWAService) requestToken(ctx context.Context, regionCode string, data url.Values, requireRefresh bool) (*TokenBundle, error) {
	region, ok := spapi.GetRegion(regionCode)
	if !ok {
		return nil, fmt.Errorf("未知区域: %s", regionCode)
	}
	tokenURL := region.TokenURL
	if s.cfg.TokenURLOverride != "" {
		tokenURL = s.cfg.TokenURLOverride
	}

	var tokenResp lwaTokenResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormDataFromValues(data).
		SetResult(&tokenResp).
		SetError(&tokenResp).
		Post(tokenURL)
	if err != nil {
		return nil, fmt.Errorf("LWA 请求失败: %v", err)
	}

	// 按状态码区分错误类别
	switch {
	case resp.StatusCode() == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAuthorizationCode, tokenResp.ErrorDesc)
	case resp.StatusCode() == http.StatusUnauthorized:
		return nil, ErrInvalidClientCredentials
	case resp.StatusCode() != http.StatusOK:
		return nil, &TokenExchangeError{
			StatusCode: resp.StatusCode(),
			Body:       tokenResp.Error + " " + tokenResp.ErrorDesc,
		}
	}

	if tokenResp.AccessToken == "" {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode(), Body: "empty access_token"}
	}
	if requireRefresh && tokenResp.RefreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	return &TokenBundle{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		ExpiresIn:    tokenResp.ExpiresIn,
		ExpiresAt:    time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

// ValidateAccessToken 打一个低成本 SP-API 接口探活
// 只做诊断用，吞掉所有异常，绝不在关键路径上调用
func (s *LWAService) ValidateAccessToken(ctx context.Context, accessToken, regionCode string) bool {
	region, ok := spapi.GetRegion(regionCode)
	if !ok {
		return false
	}
	apiBase := region.APIBase
	if s.cfg.APIBaseOverride != "" {
		apiBase = s.cfg.APIBaseOverride
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("x-amz-access-token", accessToken).
		Get(apiBase + "/sellers/v1/marketplaceParticipations")
	if err != nil {
		log.Printf("[LWA] Token 探活失败 (token=%s): %v", utils.MaskSecret(accessToken, 8), err)
		return false
	}
	return resp.StatusCode() == http.StatusOK
}

// resolveRegion 显式 region 优先，否则按 marketplace 推导
func (s *LWAService) resolveRegion(marketplaceID, regionCode string) (spapi.Region, error) {
	if regionCode != "" {
		region, ok := spapi.GetRegion(regionCode)
		if !ok {
			return spapi.Region{}, fmt.Errorf("未知区域: %s", regionCode)
		}
		return region, nil
	}

	region, ok := spapi.RegionForMarketplace(marketplaceID)
	if !ok {
		return spapi.Region{}, fmt.Errorf("未知站点 %s，且未显式指定区域", marketplaceID)
	}
	return region, nil
}
