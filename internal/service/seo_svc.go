package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ecomsimply_v1_202608/pkg/spapi"
)

// ==================== 配置 ====================

type SEOConfig struct {
	ApiKey  string
	Model   string        // 默认 gemini-2.0-flash
	BaseURL string        // 默认 https://generativelanguage.googleapis.com
	Timeout time.Duration // 默认 60s
}

// ==================== 数据结构 ====================

// SEOContent 生成的 Amazon 文案
type SEOContent struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Bullets        []string `json:"bullets"`
	BackendKeyword string   `json:"backend_keyword"`
	A9Compliant    bool     `json:"a9_compliant"` // 是否满足 A9/A10 硬性规则
}

// SEOServiceInterface 文案生成接口 (便于测试 mock)
type SEOServiceInterface interface {
	GenerateContent(ctx context.Context, productName, category, features string) (*SEOContent, error)
}

// ==================== 服务实现 ====================

type SEOService struct {
	Config     *SEOConfig
	HttpClient *http.Client
}

func NewSEOService(cfg *SEOConfig) *SEOService {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &SEOService{
		Config:     cfg,
		HttpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// GenerateContent 生成一套 Amazon listing 文案
// 生成后会做一轮本地规整，保证标题/五点/后台关键词满足 A9/A10 的硬性长度规则
func (s *SEOService) GenerateContent(ctx context.Context, productName, category, features string) (*SEOContent, error) {
	if s.Config.ApiKey == "" {
		return nil, fmt.Errorf("SEO API Key 未配置")
	}

	prompt := fmt.Sprintf(`You are an Amazon SEO expert (A9/A10 algorithm). Generate optimized listing content for:

Product: %s
Category: %s
Key Features: %s

Requirements:
1. Title: max 200 characters, keyword-first, no promotional words (best, cheapest, free shipping, guarantee, hot sale)
2. Description: persuasive sales copy, 200-400 words
3. Bullets: exactly 5 bullet points, each max 255 characters, benefit-driven
4. Backend keyword: search terms string, max 250 bytes, space separated, no commas, no repetition of title words

Output Format (JSON only, no markdown):
{
  "title": "...",
  "description": "...",
  "bullets": ["...", "...", "...", "...", "..."],
  "backend_keyword": "..."
}`, productName, category, features)

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		s.Config.BaseURL, s.Config.Model, s.Config.ApiKey)

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]interface{}{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	bodyBytes, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.HttpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("文案生成 API 错误 [%d]: %s", resp.StatusCode, string(respBody))
	}

	// 解析响应
	var genResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %v", err)
	}
	if len(genResp.Candidates) == 0 {
		return nil, fmt.Errorf("无生成结果")
	}

	var jsonText string
	for _, candidate := range genResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				jsonText = part.Text
				break
			}
		}
	}

	var content SEOContent
	if err := json.Unmarshal([]byte(jsonText), &content); err != nil {
		return nil, fmt.Errorf("解析生成结果失败: %v, raw: %s", err, truncateText(jsonText, 200))
	}

	NormalizeSEOContent(&content)
	return &content, nil
}

// ==================== 本地规整 ====================

// NormalizeSEOContent 把生成结果修剪到 Amazon 的硬性限制内
// 模型偶尔超长或少给一条 bullet，这里兜底而不是打回重新生成
func NormalizeSEOContent(content *SEOContent) {
	content.Title = strings.TrimSpace(content.Title)
	if len([]rune(content.Title)) > spapi.MaxTitleLength {
		content.Title = string([]rune(content.Title)[:spapi.MaxTitleLength])
	}

	// 1. 五点描述: 多截少补
	for i := range content.Bullets {
		content.Bullets[i] = strings.TrimSpace(content.Bullets[i])
		if len([]rune(content.Bullets[i])) > spapi.MaxBulletLength {
			content.Bullets[i] = string([]rune(content.Bullets[i])[:spapi.MaxBulletLength])
		}
	}
	if len(content.Bullets) > spapi.RequiredBulletCount {
		content.Bullets = content.Bullets[:spapi.RequiredBulletCount]
	}
	for len(content.Bullets) < spapi.RequiredBulletCount {
		content.Bullets = append(content.Bullets, content.Title)
	}

	// 2. 后台关键词按字节截断 (Amazon 限制是字节数不是字符数)
	content.BackendKeyword = strings.ReplaceAll(strings.TrimSpace(content.BackendKeyword), ",", " ")
	for len(content.BackendKeyword) > spapi.MaxBackendKeywordBytes {
		if idx := strings.LastIndex(content.BackendKeyword[:spapi.MaxBackendKeywordBytes], " "); idx > 0 {
			content.BackendKeyword = content.BackendKeyword[:idx]
		} else {
			content.BackendKeyword = content.BackendKeyword[:spapi.MaxBackendKeywordBytes]
		}
	}

	content.A9Compliant = checkA9Compliance(content)
}

// checkA9Compliance 校验硬性规则是否全部满足
func checkA9Compliance(content *SEOContent) bool {
	if content.Title == "" || len([]rune(content.Title)) > spapi.MaxTitleLength {
		return false
	}
	lower := strings.ToLower(content.Title)
	for _, word := range spapi.ForbiddenTitleWords() {
		if strings.Contains(lower, word) {
			return false
		}
	}
	if len(content.Bullets) != spapi.RequiredBulletCount {
		return false
	}
	for _, bullet := range content.Bullets {
		if bullet == "" || len([]rune(bullet)) > spapi.MaxBulletLength {
			return false
		}
	}
	return len(content.BackendKeyword) <= spapi.MaxBackendKeywordBytes
}

// ApplyToListing 把文案写进商品，打上 SEO 来源标记
func (content *SEOContent) ApplyToListing(listing *spapi.ProductListing) {
	listing.Title = content.Title
	listing.Description = content.Description
	listing.Bullets = append([]string(nil), content.Bullets...)
	listing.BackendKeyword = content.BackendKeyword
	listing.SEOOptimized = content.A9Compliant
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
