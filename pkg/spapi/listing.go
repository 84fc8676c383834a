package spapi

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ==================== 规范商品表示 ====================

// ProductListing 发布到 Amazon 前的统一商品表示
// 流水线把 SEO 文案 + 验证后的价格合并成这个结构，再交给 Publisher 映射成 Feed
type ProductListing struct {
	SKU         string   `json:"sku" binding:"required,max=40"`
	Title       string   `json:"title" binding:"required,max=200"`
	Brand       string   `json:"brand" binding:"required,max=50"`
	Description string   `json:"description" binding:"required"`
	Bullets     []string `json:"bullets" binding:"required,len=5"` // 正好 5 条卖点

	// 价格与库存
	Price     float64 `json:"price" binding:"required,gt=0"`
	Currency  string  `json:"currency" binding:"required,len=3"`
	Quantity  int     `json:"quantity" binding:"min=0"`
	Condition string  `json:"condition"` // new_new / used_good ...

	// 商品标识，至少要有一个才能过 Amazon 校验
	EAN  string `json:"ean,omitempty"`
	UPC  string `json:"upc,omitempty"`
	GTIN string `json:"gtin,omitempty"`
	MPN  string `json:"mpn,omitempty"`

	// 图片，第一张为主图
	Images []ListingImage `json:"images"`

	// 分类与搜索
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	BackendKeyword string   `json:"backend_keyword"` // 后台搜索词，<=250 字节

	// 来源标记（流水线合并时写入）
	SEOOptimized bool `json:"seo_optimized"` // 文案是否过了 A9/A10 校验
	PriceScraped bool `json:"price_scraped"` // 价格是否来自真实抓取
}

// ListingImage 商品图片
type ListingImage struct {
	URL    string `json:"url" binding:"required"`
	Alt    string `json:"alt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	IsMain bool   `json:"is_main"`
}

// ==================== A9/A10 文案约束 ====================

const (
	MaxTitleLength         = 200
	MaxBulletLength        = 255
	RequiredBulletCount    = 5
	MaxBackendKeywordBytes = 250
)

// 标题里禁止出现的推广词（Amazon 审核会直接驳回）
var forbiddenTitleWords = []string{
	"best seller", "bestseller", "promotion", "promo",
	"free shipping", "sale", "discount", "cheapest",
	"#1", "hot item", "limited offer",
}

// ForbiddenTitleWords 返回推广禁词表 (调用方只读)
func ForbiddenTitleWords() []string {
	return forbiddenTitleWords
}

// Validate 按 Amazon 站点约束校验文案
// 返回问题列表而不是单个 error，前端需要一次性展示所有问题
func (l *ProductListing) Validate() []string {
	var problems []string

	// 1. 标题，按字符数算 (法语重音/日文标题一个字符多个字节)
	if l.Title == "" {
		problems = append(problems, "标题为空")
	} else if n := utf8.RuneCountInString(l.Title); n > MaxTitleLength {
		problems = append(problems, fmt.Sprintf("标题超长: %d > %d", n, MaxTitleLength))
	}
	lowerTitle := strings.ToLower(l.Title)
	for _, word := range forbiddenTitleWords {
		if strings.Contains(lowerTitle, word) {
			problems = append(problems, fmt.Sprintf("标题包含推广禁用词: %q", word))
		}
	}

	// 2. 卖点，正好 5 条，每条不超过 255 字符
	if len(l.Bullets) != RequiredBulletCount {
		problems = append(problems, fmt.Sprintf("卖点数量应为 %d，实际 %d", RequiredBulletCount, len(l.Bullets)))
	}
	for i, b := range l.Bullets {
		if n := utf8.RuneCountInString(b); n > MaxBulletLength {
			problems = append(problems, fmt.Sprintf("卖点 %d 超长: %d > %d", i+1, n, MaxBulletLength))
		}
	}

	// 3. 后台搜索词，字节数限制且不允许逗号
	if len(l.BackendKeyword) > MaxBackendKeywordBytes {
		problems = append(problems, fmt.Sprintf("后台搜索词超出 %d 字节", MaxBackendKeywordBytes))
	}
	if strings.Contains(l.BackendKeyword, ",") {
		problems = append(problems, "后台搜索词不允许包含逗号")
	}

	// 4. 标识符，至少一个
	if l.EAN == "" && l.UPC == "" && l.GTIN == "" && l.MPN == "" {
		problems = append(problems, "缺少商品标识 (EAN/UPC/GTIN/MPN 至少一个)")
	}

	return problems
}

// MainImage 返回主图 URL，未显式标记时取第一张
func (l *ProductListing) MainImage() string {
	for _, img := range l.Images {
		if img.IsMain {
			return img.URL
		}
	}
	if len(l.Images) > 0 {
		return l.Images[0].URL
	}
	return ""
}
