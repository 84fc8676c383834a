package spapi

// ==================== 区域端点 ====================

// Region SP-API 区域端点配置
// Amazon 把全球站点分为三个固定区域 (NA / EU / FE)，
// 每个区域有独立的授权页、LWA Token 端点和 SP-API 网关
type Region struct {
	Code     string // NA / EU / FE
	AuthURL  string // Seller Central 授权同意页
	TokenURL string // LWA Token 交换端点
	APIBase  string // SP-API 网关
}

// 三个固定区域，端点不会变动
var regions = map[string]Region{
	"NA": {
		Code:     "NA",
		AuthURL:  "https://sellercentral.amazon.com/apps/authorize/consent",
		TokenURL: "https://api.amazon.com/auth/o2/token",
		APIBase:  "https://sellingpartnerapi-na.amazon.com",
	},
	"EU": {
		Code:     "EU",
		AuthURL:  "https://sellercentral-europe.amazon.com/apps/authorize/consent",
		TokenURL: "https://api.amazon.co.uk/auth/o2/token",
		APIBase:  "https://sellingpartnerapi-eu.amazon.com",
	},
	"FE": {
		Code:     "FE",
		AuthURL:  "https://sellercentral-japan.amazon.com/apps/authorize/consent",
		TokenURL: "https://api.amazon.co.jp/auth/o2/token",
		APIBase:  "https://sellingpartnerapi-fe.amazon.com",
	},
}

// marketplace_id -> 区域归属
var marketplaceRegions = map[string]string{
	// NA
	"ATVPDKIKX0DER":  "NA", // amazon.com
	"A2EUQ1WTGCTBG2": "NA", // amazon.ca
	"A1AM78C64UM0Y8": "NA", // amazon.com.mx
	// EU
	"A13V1IB3VIYZZH": "EU", // amazon.fr
	"A1PA6795UKMFR9": "EU", // amazon.de
	"A1RKKUPIHCS9HS": "EU", // amazon.es
	"APJ6JRA9NG5V4":  "EU", // amazon.it
	"A1F83G8C2ARO7P": "EU", // amazon.co.uk
	// FE
	"A1VC38T7YXB528": "FE", // amazon.co.jp
	"A39IBJ37TRP1C6": "FE", // amazon.com.au
}

// GetRegion 按区域代码查端点配置
func GetRegion(code string) (Region, bool) {
	r, ok := regions[code]
	return r, ok
}

// RegionForMarketplace 按 marketplace_id 推导所属区域
// 未知的 marketplace 返回 false，调用方必须显式传 region
func RegionForMarketplace(marketplaceID string) (Region, bool) {
	code, ok := marketplaceRegions[marketplaceID]
	if !ok {
		return Region{}, false
	}
	return regions[code], true
}

// IsKnownMarketplace 是否是已知站点
func IsKnownMarketplace(marketplaceID string) bool {
	_, ok := marketplaceRegions[marketplaceID]
	return ok
}
