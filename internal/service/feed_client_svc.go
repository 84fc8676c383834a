package service

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/go-resty/resty/v2"

	"ecomsimply_v1_202608/pkg/spapi"
)

// ==================== SP-API Feed 客户端 ====================

// feedsAPIPath Feeds API 版本路径
const feedsAPIPath = "/feeds/2021-06-30"

// FeedClientInterface SP-API Feeds 接口 (实现: SPAPIFeedClient)
type FeedClientInterface interface {
	// SubmitListing 走完 createFeedDocument -> 上传 -> createFeed 全程
	SubmitListing(ctx context.Context, apiBase, accessToken, marketplaceID string, feed *spapi.ListingsFeed) (feedID, feedDocID string, err error)

	// GetFeedStatus 查 Feed 处理状态
	GetFeedStatus(ctx context.Context, apiBase, accessToken, feedID string) (*spapi.GetFeedResp, error)
}

// SPAPIFeedClient resty 实现
type SPAPIFeedClient struct {
	client *resty.Client
}

// NewSPAPIFeedClient 创建 Feed 客户端
func NewSPAPIFeedClient(timeout time.Duration) *SPAPIFeedClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &SPAPIFeedClient{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "Ecomsimply-Go-App/1.0"),
	}
}

// SubmitListing 三步提交
// 任何一步的非 2xx 都经 ClassifyResponse 归类后返回 *spapi.APIError
func (c *SPAPIFeedClient) SubmitListing(ctx context.Context, apiBase, accessToken, marketplaceID string, feed *spapi.ListingsFeed) (string, string, error) {
	// 1. 创建 Feed 文档，拿预签名上传地址
	var docResp spapi.CreateFeedDocumentResp
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("x-amz-access-token", accessToken).
		SetBody(&spapi.CreateFeedDocumentReq{ContentType: "application/json; charset=UTF-8"}).
		SetResult(&docResp).
		Post(apiBase + feedsAPIPath + "/documents")
	if err != nil {
		return "", "", classifyTransport(err)
	}
	if resp.IsError() {
		return "", "", spapi.ClassifyResponse(resp.StatusCode(), resp.Body())
	}

	// 2. 把 Feed JSON 传到预签名地址
	payload, err := json.Marshal(feed)
	if err != nil {
		return "", "", err
	}
	resp, err = c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json; charset=UTF-8").
		SetBody(payload).
		Put(docResp.URL)
	if err != nil {
		return "", "", classifyTransport(err)
	}
	if resp.IsError() {
		return "", "", spapi.ClassifyResponse(resp.StatusCode(), resp.Body())
	}

	// 3. 提交 Feed
	var feedResp spapi.CreateFeedResp
	resp, err = c.client.R().
		SetContext(ctx).
		SetHeader("x-amz-access-token", accessToken).
		SetBody(&spapi.CreateFeedReq{
			FeedType:            "JSON_LISTINGS_FEED",
			MarketplaceIDs:      []string{marketplaceID},
			InputFeedDocumentID: docResp.FeedDocumentID,
		}).
		SetResult(&feedResp).
		Post(apiBase + feedsAPIPath + "/feeds")
	if err != nil {
		return "", "", classifyTransport(err)
	}
	if resp.IsError() {
		return "", "", spapi.ClassifyResponse(resp.StatusCode(), resp.Body())
	}

	return feedResp.FeedID, docResp.FeedDocumentID, nil
}

func (c *SPAPIFeedClient) GetFeedStatus(ctx context.Context, apiBase, accessToken, feedID string) (*spapi.GetFeedResp, error) {
	var feedResp spapi.GetFeedResp
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("x-amz-access-token", accessToken).
		SetResult(&feedResp).
		Get(apiBase + feedsAPIPath + "/feeds/" + feedID)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.IsError() {
		return nil, spapi.ClassifyResponse(resp.StatusCode(), resp.Body())
	}
	return &feedResp, nil
}

// classifyTransport 网络层错误归类: 超时类单独标出来，其余算 generic
func classifyTransport(err error) *spapi.APIError {
	kind := spapi.ErrKindGeneric
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = spapi.ErrKindTimeout
	}
	return &spapi.APIError{Kind: kind, Message: err.Error()}
}
