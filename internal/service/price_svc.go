package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ecomsimply_v1_202608/internal/model"
)

// ==================== 配置 ====================

type PriceConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string        // 比价网关地址
	Timeout   time.Duration // 默认 20s
	MaxQuotes int           // 单次最多取多少条报价, 默认 10
}

// ==================== 数据结构 ====================

// PriceQuote 单条来源报价
type PriceQuote struct {
	Source   string  `json:"source"` // google_shopping | amazon | ebay ...
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	URL      string  `json:"url"`
}

// PriceSummary 多来源聚合结果
type PriceSummary struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Avg      float64 `json:"avg"`
	Count    int     `json:"count"`
	Currency string  `json:"currency"`
}

// PriceServiceInterface 比价接口 (便于测试 mock)
type PriceServiceInterface interface {
	FetchReferencePrices(ctx context.Context, productName, marketplaceID string) ([]PriceQuote, error)
}

// ==================== 服务实现 ====================

type PriceService struct {
	Config     *PriceConfig
	HttpClient *http.Client
}

func NewPriceService(cfg *PriceConfig) *PriceService {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxQuotes == 0 {
		cfg.MaxQuotes = 10
	}
	return &PriceService{
		Config:     cfg,
		HttpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchReferencePrices 按商品名抓取多来源参考价
// 网关聚合了 Google Shopping / 各站点电商的搜索结果，这里只做一次查询 + 清洗
func (s *PriceService) FetchReferencePrices(ctx context.Context, productName, marketplaceID string) ([]PriceQuote, error) {
	if s.Config.APIKey == "" {
		return nil, fmt.Errorf("比价 API Key 未配置")
	}

	// 1. 拼查询参数
	params := url.Values{}
	params.Set("q", productName)
	params.Set("market", marketplaceID)
	params.Set("key", s.Config.APIKey)
	params.Set("secret", s.Config.APISecret)
	params.Set("limit", fmt.Sprintf("%d", s.Config.MaxQuotes))

	reqURL := fmt.Sprintf("%s/api/price/search?%s", s.Config.BaseURL, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.HttpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("比价请求失败: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("比价 API 错误 [%d]: %s", resp.StatusCode, truncateText(string(body), 200))
	}

	// 2. 解析 + 清洗: 丢掉零价和负价
	var searchResp struct {
		Items []PriceQuote `json:"items"`
		Error string       `json:"error"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("解析比价结果失败: %v", err)
	}
	if searchResp.Error != "" {
		return nil, fmt.Errorf("比价 API 返回错误: %s", searchResp.Error)
	}

	quotes := make([]PriceQuote, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		if item.Price <= 0 {
			continue
		}
		quotes = append(quotes, item)
	}
	return quotes, nil
}

// ==================== 纯函数: 聚合与护栏 ====================

// AggregateQuotes 多来源报价聚合成统计摘要
func AggregateQuotes(quotes []PriceQuote) PriceSummary {
	summary := PriceSummary{}
	if len(quotes) == 0 {
		return summary
	}

	summary.Min = quotes[0].Price
	summary.Max = quotes[0].Price
	summary.Currency = quotes[0].Currency
	var total float64
	for _, q := range quotes {
		if q.Price < summary.Min {
			summary.Min = q.Price
		}
		if q.Price > summary.Max {
			summary.Max = q.Price
		}
		total += q.Price
	}
	summary.Count = len(quotes)
	summary.Avg = total / float64(len(quotes))
	return summary
}

// CheckPriceGuards 校验目标价是否落在用户配置的护栏内
// 返回违规列表而不是布尔值，pending_review 时要把原因列给用户看
func CheckPriceGuards(price float64, summary PriceSummary, settings *model.UserSettings) []string {
	var violations []string

	if settings.MinPrice > 0 && price < settings.MinPrice {
		violations = append(violations, fmt.Sprintf("价格 %.2f 低于护栏下限 %.2f", price, settings.MinPrice))
	}
	if settings.MaxPrice > 0 && price > settings.MaxPrice {
		violations = append(violations, fmt.Sprintf("价格 %.2f 高于护栏上限 %.2f", price, settings.MaxPrice))
	}

	// 偏离市场均价太远也拦下来人工确认
	if settings.MaxVariancePct > 0 && summary.Count > 0 && summary.Avg > 0 {
		variance := (price - summary.Avg) / summary.Avg * 100
		if variance < 0 {
			variance = -variance
		}
		if variance > settings.MaxVariancePct {
			violations = append(violations, fmt.Sprintf("价格 %.2f 偏离市场均价 %.2f 达 %.1f%%, 超过允许的 %.1f%%",
				price, summary.Avg, variance, settings.MaxVariancePct))
		}
	}

	return violations
}
