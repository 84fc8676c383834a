package spapi

import "fmt"

// ==================== Feed 提交 DTO ====================
// JSON_LISTINGS_FEED 的请求/响应结构
// 流程: createFeedDocument -> 上传 JSON -> createFeed -> getFeed 轮询

// CreateFeedDocumentReq 创建 Feed 文档
type CreateFeedDocumentReq struct {
	ContentType string `json:"contentType"`
}

// CreateFeedDocumentResp 返回预签名上传地址
type CreateFeedDocumentResp struct {
	FeedDocumentID string `json:"feedDocumentId"`
	URL            string `json:"url"`
}

// CreateFeedReq 提交 Feed
type CreateFeedReq struct {
	FeedType            string   `json:"feedType"`
	MarketplaceIDs      []string `json:"marketplaceIds"`
	InputFeedDocumentID string   `json:"inputFeedDocumentId"`
}

// CreateFeedResp 提交结果
type CreateFeedResp struct {
	FeedID string `json:"feedId"`
}

// GetFeedResp Feed 处理状态
// processingStatus: IN_QUEUE / IN_PROGRESS / DONE / CANCELLED / FATAL
type GetFeedResp struct {
	FeedID               string `json:"feedId"`
	FeedType             string `json:"feedType"`
	ProcessingStatus     string `json:"processingStatus"`
	ResultFeedDocumentID string `json:"resultFeedDocumentId,omitempty"`
	ProcessingStartTime  string `json:"processingStartTime,omitempty"`
	ProcessingEndTime    string `json:"processingEndTime,omitempty"`
}

// ==================== Feed 内容 ====================

// ListingsFeed JSON_LISTINGS_FEED 顶层结构
type ListingsFeed struct {
	Header   FeedHeader    `json:"header"`
	Messages []FeedMessage `json:"messages"`
}

// FeedHeader Feed 头
type FeedHeader struct {
	SellerID string `json:"sellerId"`
	Version  string `json:"version"`
}

// FeedMessage 单条商品消息
type FeedMessage struct {
	MessageID     int                    `json:"messageId"`
	SKU           string                 `json:"sku"`
	OperationType string                 `json:"operationType"` // UPDATE
	ProductType   string                 `json:"productType"`
	Requirements  string                 `json:"requirements"`
	Attributes    map[string]interface{} `json:"attributes"`
}

// ==================== 错误响应 ====================

// ErrorList SP-API 标准错误包
type ErrorList struct {
	Errors []APIErrorDetail `json:"errors"`
}

// APIErrorDetail 单条错误
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// BuildListingsFeed 把规范商品表示映射为 JSON_LISTINGS_FEED
// 第一张 main_image 落在 main_product_image_locator，其余依次 other_product_image_locator_N
func BuildListingsFeed(sellerID, marketplaceID string, listing *ProductListing) *ListingsFeed {
	attrs := map[string]interface{}{
		"item_name": []map[string]interface{}{
			{"value": listing.Title, "marketplace_id": marketplaceID},
		},
		"brand": []map[string]interface{}{
			{"value": listing.Brand, "marketplace_id": marketplaceID},
		},
		"product_description": []map[string]interface{}{
			{"value": listing.Description, "marketplace_id": marketplaceID},
		},
		"condition_type": []map[string]interface{}{
			{"value": conditionOrDefault(listing.Condition), "marketplace_id": marketplaceID},
		},
		"fulfillment_availability": []map[string]interface{}{
			{"fulfillment_channel_code": "DEFAULT", "quantity": listing.Quantity},
		},
		"purchasable_offer": []map[string]interface{}{
			{
				"currency":       listing.Currency,
				"marketplace_id": marketplaceID,
				"our_price": []map[string]interface{}{
					{"schedule": []map[string]interface{}{{"value_with_tax": listing.Price}}},
				},
			},
		},
	}

	// 卖点
	var bullets []map[string]interface{}
	for _, b := range listing.Bullets {
		bullets = append(bullets, map[string]interface{}{
			"value": b, "marketplace_id": marketplaceID,
		})
	}
	if len(bullets) > 0 {
		attrs["bullet_point"] = bullets
	}

	// 商品标识
	if id, idType := listing.primaryIdentifier(); id != "" {
		attrs["externally_assigned_product_identifier"] = []map[string]interface{}{
			{"type": idType, "value": id, "marketplace_id": marketplaceID},
		}
	}
	if listing.MPN != "" {
		attrs["part_number"] = []map[string]interface{}{
			{"value": listing.MPN, "marketplace_id": marketplaceID},
		}
	}

	// 后台搜索词
	if listing.BackendKeyword != "" {
		attrs["generic_keyword"] = []map[string]interface{}{
			{"value": listing.BackendKeyword, "marketplace_id": marketplaceID},
		}
	}

	// 图片
	if main := listing.MainImage(); main != "" {
		attrs["main_product_image_locator"] = []map[string]interface{}{
			{"media_location": main, "marketplace_id": marketplaceID},
		}
	}
	other := 0
	for _, img := range listing.Images {
		if img.URL == listing.MainImage() {
			continue
		}
		other++
		key := fmt.Sprintf("other_product_image_locator_%d", other)
		attrs[key] = []map[string]interface{}{
			{"media_location": img.URL, "marketplace_id": marketplaceID},
		}
		if other >= 8 {
			break // Amazon 最多 8 张附图
		}
	}

	return &ListingsFeed{
		Header: FeedHeader{SellerID: sellerID, Version: "2.0"},
		Messages: []FeedMessage{
			{
				MessageID:     1,
				SKU:           listing.SKU,
				OperationType: "UPDATE",
				ProductType:   productTypeOrDefault(listing.Category),
				Requirements:  "LISTING",
				Attributes:    attrs,
			},
		},
	}
}

// primaryIdentifier 按优先级取一个外部商品标识
func (l *ProductListing) primaryIdentifier() (value, idType string) {
	switch {
	case l.EAN != "":
		return l.EAN, "ean"
	case l.UPC != "":
		return l.UPC, "upc"
	case l.GTIN != "":
		return l.GTIN, "gtin"
	}
	return "", ""
}

func conditionOrDefault(cond string) string {
	if cond == "" {
		return "new_new"
	}
	return cond
}

func productTypeOrDefault(category string) string {
	if category == "" {
		return "PRODUCT"
	}
	return category
}
