package spapi

import (
	"strings"
	"testing"
)

func validListing() *ProductListing {
	return &ProductListing{
		SKU:         "ECOM-001",
		Title:       "Ceramic Coffee Mug 350ml",
		Brand:       "Ecomsimply",
		Description: "Hand glazed ceramic mug.",
		Bullets: []string{
			"350ml capacity", "Dishwasher safe", "Lead free glaze",
			"Comfortable handle", "Gift box included",
		},
		Price:    19.99,
		Currency: "EUR",
		Quantity: 10,
		EAN:      "4006381333931",
		Images: []ListingImage{
			{URL: "https://cdn.example.com/mug-main.jpg", IsMain: true},
			{URL: "https://cdn.example.com/mug-side.jpg"},
		},
	}
}

func TestProductListing_Validate_OK(t *testing.T) {
	if problems := validListing().Validate(); len(problems) != 0 {
		t.Errorf("Validate() = %v, want 空", problems)
	}
}

func TestProductListing_Validate_Problems(t *testing.T) {
	l := validListing()
	l.Title = "BEST SELLER " + strings.Repeat("x", 200) // 超长 + 禁用词
	l.Bullets = l.Bullets[:3]                           // 卖点数量不对
	l.BackendKeyword = "mug,ceramic"                    // 逗号
	l.EAN = ""                                          // 无标识

	problems := l.Validate()
	if len(problems) < 4 {
		t.Fatalf("Validate() 应返回至少 4 个问题，实际 %d: %v", len(problems), problems)
	}
}

func TestProductListing_Validate_MultibyteLength(t *testing.T) {
	// 法语/日语标题按字符数算，不按字节数
	l := validListing()
	l.Title = strings.Repeat("é", 200) // 200 字符 = 400 字节
	l.Bullets[0] = strings.Repeat("プ", 255)
	if problems := l.Validate(); len(problems) != 0 {
		t.Errorf("多字节文案在字符限制内不应报错: %v", problems)
	}

	l.Title = strings.Repeat("é", 201)
	problems := l.Validate()
	if len(problems) != 1 || !strings.Contains(problems[0], "标题超长") {
		t.Errorf("201 字符标题应恰好报标题超长: %v", problems)
	}
}

func TestClassifyResponse(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{"429 限流", 429, `{"errors":[{"code":"QuotaExceeded","message":"too many requests"}]}`, ErrKindQuota},
		{"401 授权", 401, `{"errors":[{"code":"Unauthorized","message":"access token expired"}]}`, ErrKindAuth},
		{"403 权限", 403, `{}`, ErrKindPermission},
		{"404", 404, `{}`, ErrKindNotFound},
		{"400 校验", 400, `{"errors":[{"code":"InvalidInput","message":"missing brand"}]}`, ErrKindValidation},
		{"400 伪装限流", 400, `{"errors":[{"code":"QuotaExceeded","message":"quota exceeded"}]}`, ErrKindQuota},
		{"503 文本限流", 503, `rate limit reached`, ErrKindQuota},
		{"500 其他", 500, `internal`, ErrKindGeneric},
	}

	for _, c := range cases {
		got := ClassifyResponse(c.status, []byte(c.body))
		if got.Kind != c.want {
			t.Errorf("%s: Kind = %v, want %v", c.name, got.Kind, c.want)
		}
		if got.StatusCode != c.status {
			t.Errorf("%s: StatusCode = %d, want %d", c.name, got.StatusCode, c.status)
		}
	}
}

func TestAPIError_Retryable(t *testing.T) {
	if !(&APIError{Kind: ErrKindQuota}).Retryable() {
		t.Error("quota 错误应可重试")
	}
	if (&APIError{Kind: ErrKindValidation}).Retryable() {
		t.Error("validation 错误不应重试")
	}
}

func TestBuildListingsFeed(t *testing.T) {
	feed := BuildListingsFeed("SELLER123", "A13V1IB3VIYZZH", validListing())

	if feed.Header.SellerID != "SELLER123" {
		t.Errorf("SellerID = %s", feed.Header.SellerID)
	}
	if len(feed.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(feed.Messages))
	}

	msg := feed.Messages[0]
	if msg.SKU != "ECOM-001" || msg.OperationType != "UPDATE" {
		t.Errorf("msg = %+v", msg)
	}

	// 主图 + 1 张附图
	if _, ok := msg.Attributes["main_product_image_locator"]; !ok {
		t.Error("缺少主图属性")
	}
	if _, ok := msg.Attributes["other_product_image_locator_1"]; !ok {
		t.Error("缺少附图属性")
	}
	if _, ok := msg.Attributes["externally_assigned_product_identifier"]; !ok {
		t.Error("缺少商品标识属性")
	}
}

func TestRegionForMarketplace(t *testing.T) {
	r, ok := RegionForMarketplace("A13V1IB3VIYZZH")
	if !ok || r.Code != "EU" {
		t.Errorf("A13V1IB3VIYZZH => %v, %v, want EU", r.Code, ok)
	}

	if _, ok := RegionForMarketplace("UNKNOWN"); ok {
		t.Error("未知站点不应匹配区域")
	}
}
