package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"ecomsimply_v1_202608/internal/model"
	"ecomsimply_v1_202608/internal/repository"
	"ecomsimply_v1_202608/pkg/retry"
	"ecomsimply_v1_202608/pkg/spapi"
)

// ==================== 测试基建 ====================

// mockFeedClient 函数字段式 mock，记录提交次数
type mockFeedClient struct {
	submitFn func(ctx context.Context, apiBase, accessToken, marketplaceID string, feed *spapi.ListingsFeed) (string, string, error)
	statusFn func(ctx context.Context, apiBase, accessToken, feedID string) (*spapi.GetFeedResp, error)

	submitCalls int
	statusCalls int
}

func (m *mockFeedClient) SubmitListing(ctx context.Context, apiBase, accessToken, marketplaceID string, feed *spapi.ListingsFeed) (string, string, error) {
	m.submitCalls++
	if m.submitFn != nil {
		return m.submitFn(ctx, apiBase, accessToken, marketplaceID, feed)
	}
	return "FEED-001", "DOC-001", nil
}

func (m *mockFeedClient) GetFeedStatus(ctx context.Context, apiBase, accessToken, feedID string) (*spapi.GetFeedResp, error) {
	m.statusCalls++
	if m.statusFn != nil {
		return m.statusFn(ctx, apiBase, accessToken, feedID)
	}
	return &spapi.GetFeedResp{FeedID: feedID, ProcessingStatus: model.FeedStatusDone}, nil
}

type publisherFixture struct {
	svc        *PublisherService
	connSvc    *ConnectionService
	lwa        *mockLWA
	feedClient *mockFeedClient
	pubRepo    repository.PublicationRepository
	sleeps     []time.Duration
}

// newPublisherFixture 搭一套完整的发布服务，注入假 Sleep 免真等
func newPublisherFixture(t *testing.T) *publisherFixture {
	db := setupServiceTestDB(t)
	connRepo := repository.NewConnectionRepository(db)
	pubRepo := repository.NewPublicationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	lwa := &mockLWA{}
	codec := NewStateCodec("test-state-secret")
	crypto, err := NewCryptoService("test-encryption-secret", "v1")
	if err != nil {
		t.Fatalf("NewCryptoService() error = %v", err)
	}
	connSvc := NewConnectionService(connRepo, codec, lwa, crypto)

	fixture := &publisherFixture{
		connSvc:    connSvc,
		lwa:        lwa,
		feedClient: &mockFeedClient{},
		pubRepo:    pubRepo,
	}

	policy := retry.DefaultPolicy()
	policy.Retryable = RetryableSPAPIError
	policy.Sleep = func(d time.Duration) {
		fixture.sleeps = append(fixture.sleeps, d)
	}

	fixture.svc = NewPublisherService(connSvc, pubRepo, settingsRepo, fixture.feedClient, nil, policy)
	return fixture
}

// connectMarketplace 走完授权流程，让指定站点进入 active
func (f *publisherFixture) connectMarketplace(t *testing.T, userID int64, marketplaceID string) {
	ctx := context.Background()
	_, conn, err := f.connSvc.CreateConnection(ctx, userID, marketplaceID, "")
	if err != nil {
		t.Fatalf("CreateConnection() error = %v", err)
	}
	if _, err := f.connSvc.HandleOAuthCallback(ctx, conn.OAuthState, "auth-code", "SELLER123"); err != nil {
		t.Fatalf("HandleOAuthCallback() error = %v", err)
	}
}

func publishableListing() *spapi.ProductListing {
	return &spapi.ProductListing{
		SKU:         "SKU-TEST-001",
		Title:       "Stainless Steel Water Bottle 750ml Insulated",
		Brand:       "Hydra",
		Description: "Keeps drinks cold for 24 hours and hot for 12 hours.",
		Bullets: []string{
			"Double wall vacuum insulation",
			"Leak proof lid with carry loop",
			"Food grade 18/8 stainless steel",
			"Fits standard cup holders",
			"Easy to clean wide mouth",
		},
		Price:    29.99,
		Currency: "EUR",
		Quantity: 100,
		EAN:      "4006381333931",
	}
}

func quotaError() *spapi.APIError {
	return &spapi.APIError{
		Kind:       spapi.ErrKindQuota,
		StatusCode: http.StatusTooManyRequests,
		Code:       "QuotaExceeded",
		Message:    "You exceeded your quota",
	}
}

// ==================== 前置条件 ====================

func TestPublisherService_NoConnection(t *testing.T) {
	f := newPublisherFixture(t)

	// 没有任何连接: 返回前置条件错误，并且零次外呼
	_, err := f.svc.Publish(context.Background(), 42, publishableListing(), PublishOptions{MarketplaceID: "A13V1IB3VIYZZH"})
	if !errors.Is(err, ErrConnectionRequired) {
		t.Fatalf("error = %v, want ErrConnectionRequired", err)
	}
	if f.feedClient.submitCalls != 0 {
		t.Errorf("submitCalls = %d, want 0", f.feedClient.submitCalls)
	}
	if f.lwa.refreshCalls != 0 || f.lwa.exchangeCalls != 0 {
		t.Error("无连接时不允许有任何 LWA 调用")
	}
}

func TestPublisherService_PendingConnectionNotEnough(t *testing.T) {
	f := newPublisherFixture(t)
	ctx := context.Background()

	// 只发起授权不回调: 连接停在 pending，同样 412
	if _, _, err := f.connSvc.CreateConnection(ctx, 42, "A13V1IB3VIYZZH", ""); err != nil {
		t.Fatalf("CreateConnection() error = %v", err)
	}

	_, err := f.svc.Publish(ctx, 42, publishableListing(), PublishOptions{MarketplaceID: "A13V1IB3VIYZZH"})
	if !errors.Is(err, ErrConnectionRequired) {
		t.Fatalf("error = %v, want ErrConnectionRequired", err)
	}
	if f.feedClient.submitCalls != 0 {
		t.Errorf("submitCalls = %d, want 0", f.feedClient.submitCalls)
	}
}

// ==================== 本地校验 ====================

func TestPublisherService_LocalValidationStopsBeforeNetwork(t *testing.T) {
	f := newPublisherFixture(t)
	f.connectMarketplace(t, 42, "A13V1IB3VIYZZH")

	listing := publishableListing()
	listing.Bullets = listing.Bullets[:3] // 五点描述不够

	record, err := f.svc.Publish(context.Background(), 42, listing, PublishOptions{MarketplaceID: "A13V1IB3VIYZZH"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if record.Success {
		t.Error("本地校验失败不应标记成功")
	}
	if record.ErrorKind != spapi.ErrKindValidation.String() {
		t.Errorf("ErrorKind = %s, want validation", record.ErrorKind)
	}
	if len(record.Errors) == 0 {
		t.Error("应返回具体的校验问题列表")
	}
	if f.feedClient.submitCalls != 0 {
		t.Errorf("submitCalls = %d, want 0 (校验失败不打 Amazon)", f.feedClient.submitCalls)
	}
}

// ==================== 成功路径 ====================

func TestPublisherService_PublishSuccess(t *testing.T) {
	f := newPublisherFixture(t)
	f.connectMarketplace(t, 42, "A13V1IB3VIYZZH")
	ctx := context.Background()

	record, err := f.svc.Publish(ctx, 42, publishableListing(), PublishOptions{MarketplaceID: "A13V1IB3VIYZZH"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if !record.Success {
		t.Fatalf("Success = false, errors = %v", record.Errors)
	}
	if record.FeedID != "FEED-001" {
		t.Errorf("FeedID = %s", record.FeedID)
	}
	if record.Status != model.FeedStatusSubmitted {
		t.Errorf("Status = %s, want SUBMITTED", record.Status)
	}
	if record.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0", record.RetryCount)
	}
	if record.PublishedAt == nil {
		t.Error("成功发布应记录 PublishedAt")
	}

	// 记录已落库，可按 feed id 查回
	stored, err := f.pubRepo.GetByFeedID(ctx, 42, "FEED-001")
	if err != nil {
		t.Fatalf("GetByFeedID() error = %v", err)
	}
	if stored.SKU != "SKU-TEST-001" {
		t.Errorf("SKU = %s", stored.SKU)
	}
}

// ==================== 重试语义 ====================

func TestPublisherService_QuotaRetryThenSuccess(t *testing.T) {
	f := newPublisherFixture(t)
	f.connectMarketplace(t, 42, "A13V1IB3VIYZZH")

	// 前三次配额错误，第四次成功: 恰好 4 次提交
	f.feedClient.submitFn = func(ctx context.Context, apiBase, accessToken, marketplaceID string, feed *spapi.ListingsFeed) (string, string, error) {
		if f.feedClient.submitCalls <= 3 {
			return "", "", quotaError()
		}
		return "FEED-002", "DOC-002", nil
	}

	record, err := f.svc.Publish(context.Background(), 42, publishableListing(), PublishOptions{MarketplaceID: "A13V1IB3VIYZZH"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if !record.Success {
		t.Fatalf("Success = false, errors = %v", record.Errors)
	}
	if f.feedClient.submitCalls != 4 {
		t.Errorf("submitCalls = %d, want 4", f.feedClient.submitCalls)
	}
	if record.RetryCount != 3 {
		t.Errorf("RetryCount = %d, want 3", record.RetryCount)
	}

	// 退避间隔单调不减且封顶 60s
	if len(f.sleeps) != 3 {
		t.Fatalf("sleeps = %d 次, want 3", len(f.sleeps))
	}
	for i := 1; i < len(f.sleeps); i++ {
		if f.sleeps[i] < f.sleeps[i-1] {
			t.Errorf("退避间隔出现回落: %v", f.sleeps)
		}
	}
	for _, d := range f.sleeps {
		if d > 60*time.Second {
			t.Errorf("退避间隔超过 60s 封顶: %v", d)
		}
	}
}

func TestPublisherService_NonQuotaNoRetry(t *testing.T) {
	f := newPublisherFixture(t)
	f.connectMarketplace(t, 42, "A13V1IB3VIYZZH")

	f.feedClient.submitFn = func(ctx context.Context, apiBase, accessToken, marketplaceID string, feed *spapi.ListingsFeed) (string, string, error) {
		return "", "", &spapi.APIError{
			Kind:       spapi.ErrKindPermission,
			StatusCode: http.StatusForbidden,
			Code:       "Unauthorized",
			Message:    "Access to requested resource is denied",
		}
	}

	record, err := f.svc.Publish(context.Background(), 42, publishableListing(), PublishOptions{MarketplaceID: "A13V1IB3VIYZZH"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if record.Success {
		t.Error("权限错误不应标记成功")
	}
	if f.feedClient.submitCalls != 1 {
		t.Errorf("submitCalls = %d, want 1 (非配额错误不重试)", f.feedClient.submitCalls)
	}
	if len(f.sleeps) != 0 {
		t.Errorf("非配额错误不应触发退避, sleeps = %v", f.sleeps)
	}
	if record.ErrorKind != spapi.ErrKindPermission.String() {
		t.Errorf("ErrorKind = %s, want permission", record.ErrorKind)
	}
}

func TestPublisherService_QuotaExhausted(t *testing.T) {
	f := newPublisherFixture(t)
	f.connectMarketplace(t, 42, "A13V1IB3VIYZZH")

	f.feedClient.submitFn = func(ctx context.Context, apiBase, accessToken, marketplaceID string, feed *spapi.ListingsFeed) (string, string, error) {
		return "", "", quotaError()
	}

	record, err := f.svc.Publish(context.Background(), 42, publishableListing(), PublishOptions{MarketplaceID: "A13V1IB3VIYZZH"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if record.Success {
		t.Error("配额耗尽不应标记成功")
	}
	if f.feedClient.submitCalls != 4 {
		t.Errorf("submitCalls = %d, want 4 (打满重试上限)", f.feedClient.submitCalls)
	}
	if record.ErrorKind != spapi.ErrKindQuota.String() {
		t.Errorf("ErrorKind = %s, want quota", record.ErrorKind)
	}
}

// ==================== 默认站点 ====================

func TestPublisherService_DefaultMarketplaceFromSettings(t *testing.T) {
	db := setupServiceTestDB(t)
	connRepo := repository.NewConnectionRepository(db)
	pubRepo := repository.NewPublicationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	ctx := context.Background()

	if err := settingsRepo.Upsert(ctx, &model.UserSettings{
		UserID:               42,
		Plan:                 model.PlanPremium,
		DefaultMarketplaceID: "A13V1IB3VIYZZH",
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	lwa := &mockLWA{}
	codec := NewStateCodec("test-state-secret")
	crypto, _ := NewCryptoService("test-encryption-secret", "v1")
	connSvc := NewConnectionService(connRepo, codec, lwa, crypto)
	feedClient := &mockFeedClient{}
	svc := NewPublisherService(connSvc, pubRepo, settingsRepo, feedClient, nil, nil)

	_, conn, _ := connSvc.CreateConnection(ctx, 42, "A13V1IB3VIYZZH", "")
	if _, err := connSvc.HandleOAuthCallback(ctx, conn.OAuthState, "code", "SELLER123"); err != nil {
		t.Fatalf("HandleOAuthCallback() error = %v", err)
	}

	// 不传站点: 落到用户默认站点
	record, err := svc.Publish(ctx, 42, publishableListing(), PublishOptions{})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if record.MarketplaceID != "A13V1IB3VIYZZH" {
		t.Errorf("MarketplaceID = %s, want 默认站点", record.MarketplaceID)
	}
}

// ==================== 状态查询 ====================

func TestPublisherService_GetPublicationStatus(t *testing.T) {
	f := newPublisherFixture(t)
	f.connectMarketplace(t, 42, "A13V1IB3VIYZZH")
	ctx := context.Background()

	if _, err := f.svc.Publish(ctx, 42, publishableListing(), PublishOptions{MarketplaceID: "A13V1IB3VIYZZH"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	result, err := f.svc.GetPublicationStatus(ctx, 42, "FEED-001")
	if err != nil {
		t.Fatalf("GetPublicationStatus() error = %v", err)
	}
	if result.LocalOnly {
		t.Errorf("LocalOnly = true, LiveError = %s", result.LiveError)
	}
	if result.Live == nil || result.Live.ProcessingStatus != model.FeedStatusDone {
		t.Error("应返回 Amazon 实时状态 DONE")
	}
	// 本地记录顺带追平
	if result.Record.Status != model.FeedStatusDone {
		t.Errorf("本地 Status = %s, want DONE", result.Record.Status)
	}

	// 本地不存在的 feed: 原样透出 not found
	if _, err := f.svc.GetPublicationStatus(ctx, 42, "FEED-MISSING"); !errors.Is(err, repository.ErrPublicationNotFound) {
		t.Errorf("error = %v, want ErrPublicationNotFound", err)
	}
}

func TestPublisherService_GetPublicationStatus_Degraded(t *testing.T) {
	f := newPublisherFixture(t)
	f.connectMarketplace(t, 42, "A13V1IB3VIYZZH")
	ctx := context.Background()

	if _, err := f.svc.Publish(ctx, 42, publishableListing(), PublishOptions{MarketplaceID: "A13V1IB3VIYZZH"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// 查实时状态失败: 降级为只回本地记录
	f.feedClient.statusFn = func(ctx context.Context, apiBase, accessToken, feedID string) (*spapi.GetFeedResp, error) {
		return nil, quotaError()
	}

	result, err := f.svc.GetPublicationStatus(ctx, 42, "FEED-001")
	if err != nil {
		t.Fatalf("GetPublicationStatus() error = %v", err)
	}
	if !result.LocalOnly {
		t.Error("实时查询失败应降级为 LocalOnly")
	}
	if result.Record.FeedID != "FEED-001" {
		t.Errorf("FeedID = %s", result.Record.FeedID)
	}
}
