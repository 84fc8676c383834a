package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ecomsimply_v1_202608/pkg/utils"
)

// ==================== CSRF State 编解码 ====================

// StateMaxAge state 的默认有效期
const StateMaxAge = 60 * time.Minute

// StateCodec 签发/校验 OAuth CSRF state
// state 把 (用户, 连接, 签发时间) 绑死在一起，服务端不用存 session
type StateCodec struct {
	key []byte
}

// NewStateCodec 创建 state 编解码器
func NewStateCodec(secret string) *StateCodec {
	sum := sha256.Sum256([]byte(secret))
	return &StateCodec{key: sum[:]}
}

// Generate 签发 state
// payload = userID|connectionID|nonce|issuedAt，HMAC-SHA256 签名后整体 base64
// 只会因编码问题失败，那属于致命错误 (500)
func (c *StateCodec) Generate(userID int64, connectionID string) (string, error) {
	nonce, err := utils.GenerateNonce(16)
	if err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%d|%s|%s|%d", userID, connectionID, nonce, time.Now().Unix())
	mac := c.sign(payload)

	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." +
		base64.RawURLEncoding.EncodeToString(mac), nil
}

// Verify 校验 state
// 故意设计成只返回 bool: CSRF 校验路径上任何畸形输入都不允许抛异常，
// 统一按校验失败处理 (fail closed)
func (c *StateCodec) Verify(state string, expectedUserID int64, expectedConnectionID string, maxAge time.Duration) bool {
	parts := strings.Split(state, ".")
	if len(parts) != 2 {
		return false
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	gotMAC, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	// 常数时间比较，避免时序侧信道
	if !hmac.Equal(gotMAC, c.sign(string(payloadBytes))) {
		return false
	}

	fields := strings.Split(string(payloadBytes), "|")
	if len(fields) != 4 {
		return false
	}

	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || userID != expectedUserID {
		return false
	}
	if fields[1] != expectedConnectionID {
		return false
	}

	issuedAt, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return false
	}
	if maxAge <= 0 {
		maxAge = StateMaxAge
	}
	age := time.Since(time.Unix(issuedAt, 0))
	if age < 0 || age > maxAge {
		return false
	}

	return true
}

func (c *StateCodec) sign(payload string) []byte {
	h := hmac.New(sha256.New, c.key)
	h.Write([]byte(payload))
	return h.Sum(nil)
}
