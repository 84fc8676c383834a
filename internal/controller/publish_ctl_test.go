package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"ecomsimply_v1_202608/internal/api/dto"
	"ecomsimply_v1_202608/internal/middleware"
	"ecomsimply_v1_202608/internal/model"
	"ecomsimply_v1_202608/internal/repository"
	"ecomsimply_v1_202608/internal/service"
	"ecomsimply_v1_202608/pkg/spapi"
)

// ==================== 测试辅助 ====================

type stubFeedClient struct {
	submitCalls int
}

func (s *stubFeedClient) SubmitListing(ctx context.Context, apiBase, accessToken, marketplaceID string, feed *spapi.ListingsFeed) (string, string, error) {
	s.submitCalls++
	return "FEED-001", "DOC-001", nil
}

func (s *stubFeedClient) GetFeedStatus(ctx context.Context, apiBase, accessToken, feedID string) (*spapi.GetFeedResp, error) {
	return &spapi.GetFeedResp{FeedID: feedID, ProcessingStatus: model.FeedStatusDone}, nil
}

type stubSEO struct{}

func (s *stubSEO) GenerateContent(ctx context.Context, productName, category, features string) (*service.SEOContent, error) {
	content := &service.SEOContent{
		Title:          "Optimized " + productName,
		Description:    "Optimized description",
		Bullets:        []string{"b1", "b2", "b3", "b4", "b5"},
		BackendKeyword: "kw1 kw2",
	}
	service.NormalizeSEOContent(content)
	return content, nil
}

type stubPrice struct{}

func (s *stubPrice) FetchReferencePrices(ctx context.Context, productName, marketplaceID string) ([]service.PriceQuote, error) {
	return []service.PriceQuote{
		{Source: "google_shopping", Price: 28, Currency: "EUR"},
		{Source: "ebay", Price: 32, Currency: "EUR"},
	}, nil
}

type publishCtlFixture struct {
	router     *gin.Engine
	connSvc    *service.ConnectionService
	feedClient *stubFeedClient
}

func setupPublishRouter(t *testing.T) *publishCtlFixture {
	db := setupCtlTestDB(t)
	connSvc := newConnectionService(t, db)
	pubRepo := repository.NewPublicationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	if err := settingsRepo.Upsert(context.Background(), &model.UserSettings{
		UserID:               42,
		Plan:                 model.PlanPremium,
		DefaultMarketplaceID: "A13V1IB3VIYZZH",
		MinPrice:             5,
		MaxPrice:             500,
		MaxVariancePct:       50,
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	feedClient := &stubFeedClient{}
	publisher := service.NewPublisherService(connSvc, pubRepo, settingsRepo, feedClient, nil, nil)
	pipeline := service.NewPipelineService(&stubSEO{}, &stubPrice{}, publisher, connSvc, settingsRepo)
	ctl := NewPublishController(publisher, pipeline, middleware.NewPublishRateLimiter())

	r := gin.New()
	auth := r.Group("/api/amazon", fakeAuth(42))
	{
		auth.POST("/publish", ctl.Publish)
		auth.POST("/pipeline", ctl.PipelinePublish)
		auth.GET("/pipeline/prerequisites", ctl.Prerequisites)
		auth.GET("/publications", ctl.ListPublications)
		auth.GET("/feeds/:feed_id", ctl.FeedStatus)
	}

	return &publishCtlFixture{router: r, connSvc: connSvc, feedClient: feedClient}
}

// connect 让站点进入 active
func (f *publishCtlFixture) connect(t *testing.T) {
	ctx := context.Background()
	_, conn, err := f.connSvc.CreateConnection(ctx, 42, "A13V1IB3VIYZZH", "")
	if err != nil {
		t.Fatalf("CreateConnection() error = %v", err)
	}
	if _, err := f.connSvc.HandleOAuthCallback(ctx, conn.OAuthState, "code", "SELLER123"); err != nil {
		t.Fatalf("HandleOAuthCallback() error = %v", err)
	}
}

func testPublishReq(sku string) dto.PublishReq {
	return dto.PublishReq{
		MarketplaceID: "A13V1IB3VIYZZH",
		Listing: spapi.ProductListing{
			SKU:         sku,
			Title:       "Stainless Steel Water Bottle 750ml",
			Brand:       "Hydra",
			Description: "Keeps drinks cold for 24 hours.",
			Bullets:     []string{"b1", "b2", "b3", "b4", "b5"},
			Price:       29.99,
			Currency:    "EUR",
			Quantity:    100,
			EAN:         "4006381333931",
		},
	}
}

// ==================== Publish ====================

func TestPublishController_NoConnection412(t *testing.T) {
	f := setupPublishRouter(t)

	// 未连接: 412 且零次 SP-API 调用
	w := performJSON(f.router, http.MethodPost, "/api/amazon/publish", testPublishReq("SKU-1"))
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, 0, f.feedClient.submitCalls)
}

func TestPublishController_PublishSuccess(t *testing.T) {
	f := setupPublishRouter(t)
	f.connect(t)

	w := performJSON(f.router, http.MethodPost, "/api/amazon/publish", testPublishReq("SKU-1"))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.PublishResp
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "FEED-001", resp.FeedID)
	assert.Equal(t, model.FeedStatusSubmitted, resp.Status)
}

func TestPublishController_RateLimited(t *testing.T) {
	f := setupPublishRouter(t)
	f.connect(t)

	w := performJSON(f.router, http.MethodPost, "/api/amazon/publish", testPublishReq("SKU-1"))
	assert.Equal(t, http.StatusOK, w.Code)

	// 同一 SKU 冷却期内重发: 429 + retry_after
	w = performJSON(f.router, http.MethodPost, "/api/amazon/publish", testPublishReq("SKU-1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var limited struct {
		RetryAfter float64 `json:"retry_after"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &limited))
	assert.Greater(t, limited.RetryAfter, 0.0)

	// 换 SKU 不受影响
	w = performJSON(f.router, http.MethodPost, "/api/amazon/publish", testPublishReq("SKU-2"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPublishController_FailedPublishFreesCooldown(t *testing.T) {
	f := setupPublishRouter(t)
	f.connect(t)

	// 标题带推广词，本地校验驳回 (200 + success=false)
	bad := testPublishReq("SKU-1")
	bad.Listing.Title = "Best Seller Water Bottle"
	w := performJSON(f.router, http.MethodPost, "/api/amazon/publish", bad)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.PublishResp
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, 0, f.feedClient.submitCalls)

	// 失败不占冷却窗口: 修正后同一 SKU 立即重发成功
	w = performJSON(f.router, http.MethodPost, "/api/amazon/publish", testPublishReq("SKU-1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestPublishController_BadRequest(t *testing.T) {
	f := setupPublishRouter(t)
	f.connect(t)

	w := performJSON(f.router, http.MethodPost, "/api/amazon/publish", map[string]interface{}{"marketplace_id": "A13V1IB3VIYZZH"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ==================== Pipeline ====================

func TestPublishController_Pipeline(t *testing.T) {
	f := setupPublishRouter(t)
	f.connect(t)

	req := dto.PipelineReq{
		Category: "kitchen",
		Features: "vacuum insulated",
		Listing:  testPublishReq("SKU-PIPE").Listing,
	}
	w := performJSON(f.router, http.MethodPost, "/api/amazon/pipeline", req)
	assert.Equal(t, http.StatusOK, w.Code)

	var result service.PipelineResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, service.PipelineStatusCompleted, result.Status)
	assert.Len(t, result.Steps, 5)
}

func TestPublishController_Pipeline_PendingReview(t *testing.T) {
	f := setupPublishRouter(t)
	f.connect(t)

	req := dto.PipelineReq{Listing: testPublishReq("SKU-PIPE").Listing}
	req.Listing.Price = 450 // 偏离参考价，触发护栏

	w := performJSON(f.router, http.MethodPost, "/api/amazon/pipeline", req)
	assert.Equal(t, http.StatusOK, w.Code)

	var result service.PipelineResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, service.PipelineStatusPendingReview, result.Status)
	assert.Equal(t, 0, f.feedClient.submitCalls)
}

func TestPublishController_Prerequisites(t *testing.T) {
	f := setupPublishRouter(t)

	// 未连接: 缺一项
	w := performJSON(f.router, http.MethodGet, "/api/amazon/pipeline/prerequisites", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.PrerequisitesResp
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
	assert.Len(t, resp.Missing, 1)

	// 连接后全绿
	f.connect(t)
	w = performJSON(f.router, http.MethodGet, "/api/amazon/pipeline/prerequisites", nil)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.Empty(t, resp.Missing)
}

// ==================== 历史与状态 ====================

func TestPublishController_PublicationsAndFeedStatus(t *testing.T) {
	f := setupPublishRouter(t)
	f.connect(t)

	w := performJSON(f.router, http.MethodPost, "/api/amazon/publish", testPublishReq("SKU-1"))
	assert.Equal(t, http.StatusOK, w.Code)

	// 历史列表
	w = performJSON(f.router, http.MethodGet, "/api/amazon/publications", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var list dto.PublicationListResp
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, "SKU-1", list.Items[0].SKU)

	// 单条状态
	w = performJSON(f.router, http.MethodGet, "/api/amazon/feeds/FEED-001", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 不存在的 feed: 404
	w = performJSON(f.router, http.MethodGet, "/api/amazon/feeds/FEED-MISSING", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
