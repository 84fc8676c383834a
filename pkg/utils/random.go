package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateNonce 生成 URL 安全的随机串 (用于 OAuth state 的 nonce 部分)
func GenerateNonce(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// RawURLEncoding 不带填充符，可以直接塞进 query string
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MaskSecret 日志脱敏: 只保留前几位，其余打码
// Token / state 这类敏感串不允许整串进日志
func MaskSecret(s string, keep int) string {
	if len(s) <= keep {
		return "***"
	}
	return s[:keep] + "***"
}
