package spapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ==================== 错误分类 ====================

// ErrorKind SP-API 调用失败的分类
// 在解析响应的地方一次性分好类，业务层只做 switch，不再到处扫错误文本
type ErrorKind int

const (
	ErrKindGeneric    ErrorKind = iota // 未识别的 API 错误
	ErrKindQuota                       // 限流/配额，可重试
	ErrKindAuth                        // 401，Token 失效，需要重新授权
	ErrKindPermission                  // 403，应用无权限
	ErrKindNotFound                    // 404
	ErrKindValidation                  // 400，商品数据不合规，展示给用户
	ErrKindTimeout                     // 网络超时
)

// String 用于日志输出
func (k ErrorKind) String() string {
	switch k {
	case ErrKindQuota:
		return "quota"
	case ErrKindAuth:
		return "auth"
	case ErrKindPermission:
		return "permission"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindValidation:
		return "validation"
	case ErrKindTimeout:
		return "timeout"
	}
	return "api_error"
}

// APIError 携带分类的 SP-API 错误
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Code       string // SP-API 错误码，如 QuotaExceeded
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spapi %s [%d %s]: %s", e.Kind, e.StatusCode, e.Code, e.Message)
}

// Retryable 只有配额类错误允许重试
func (e *APIError) Retryable() bool {
	return e.Kind == ErrKindQuota
}

// ==================== 分类入口 ====================

// 限流相关的错误码/文本特征
var quotaMarkers = []string{"quotaexceeded", "rate limit", "rate exceeded", "throttl", "quota exceeded"}

// ClassifyResponse 解析非 2xx 响应并分类
// 这里是全系统唯一做字符串匹配的地方
func ClassifyResponse(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Kind: ErrKindGeneric}

	// 1. 先解析标准错误包
	var list ErrorList
	if err := json.Unmarshal(body, &list); err == nil && len(list.Errors) > 0 {
		apiErr.Code = list.Errors[0].Code
		apiErr.Message = list.Errors[0].Message
	} else {
		apiErr.Message = truncate(string(body), 200)
	}

	// 2. 按状态码定类
	switch statusCode {
	case http.StatusTooManyRequests:
		apiErr.Kind = ErrKindQuota
		return apiErr
	case http.StatusUnauthorized:
		apiErr.Kind = ErrKindAuth
		return apiErr
	case http.StatusForbidden:
		apiErr.Kind = ErrKindPermission
		return apiErr
	case http.StatusNotFound:
		apiErr.Kind = ErrKindNotFound
		return apiErr
	case http.StatusBadRequest:
		apiErr.Kind = ErrKindValidation
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		apiErr.Kind = ErrKindTimeout
		return apiErr
	}

	// 3. 部分限流错误走 400/503 返回，按错误码和文本兜底识别
	probe := strings.ToLower(apiErr.Code + " " + apiErr.Message)
	for _, marker := range quotaMarkers {
		if strings.Contains(probe, marker) {
			apiErr.Kind = ErrKindQuota
			return apiErr
		}
	}

	return apiErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
