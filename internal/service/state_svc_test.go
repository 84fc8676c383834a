package service

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestStateCodec_VerifyAfterGenerate(t *testing.T) {
	codec := NewStateCodec("state-signing-secret")

	state, err := codec.Generate(42, "conn-abc")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !codec.Verify(state, 42, "conn-abc", StateMaxAge) {
		t.Error("刚签发的 state 校验应当通过")
	}
	if codec.Verify(state, 43, "conn-abc", StateMaxAge) {
		t.Error("换用户校验应当失败")
	}
	if codec.Verify(state, 42, "conn-other", StateMaxAge) {
		t.Error("换连接校验应当失败")
	}
}

func TestStateCodec_Expired(t *testing.T) {
	codec := NewStateCodec("state-signing-secret")

	// 手工构造一个 10 分钟前签发的 state
	payload := fmt.Sprintf("%d|%s|%s|%d", int64(42), "conn-abc", "nonce1234", time.Now().Add(-10*time.Minute).Unix())
	state := base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." +
		base64.RawURLEncoding.EncodeToString(codec.sign(payload))

	if !codec.Verify(state, 42, "conn-abc", time.Hour) {
		t.Error("有效期内的 state 校验应当通过")
	}
	if codec.Verify(state, 42, "conn-abc", 5*time.Minute) {
		t.Error("超过 maxAge 的 state 校验应当失败")
	}
}

func TestStateCodec_TamperedNeverPanics(t *testing.T) {
	codec := NewStateCodec("state-signing-secret")

	state, err := codec.Generate(42, "conn-abc")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	parts := strings.Split(state, ".")

	// 翻转 payload 和签名里各一个比特，外加各种畸形输入
	flipBit := func(s string, idx int) string {
		raw, _ := base64.RawURLEncoding.DecodeString(s)
		raw[idx%len(raw)] ^= 0x01
		return base64.RawURLEncoding.EncodeToString(raw)
	}

	cases := []struct {
		name  string
		state string
	}{
		{"payload翻一位", flipBit(parts[0], 3) + "." + parts[1]},
		{"签名翻一位", parts[0] + "." + flipBit(parts[1], 5)},
		{"没有分隔符", parts[0] + parts[1]},
		{"多个分隔符", state + ".extra"},
		{"非法base64", "!!!." + parts[1]},
		{"空字符串", ""},
		{"纯垃圾", "garbage-state-value"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// 只允许返回 false，任何 panic 都会让测试失败
			if codec.Verify(tc.state, 42, "conn-abc", StateMaxAge) {
				t.Error("被篡改的 state 校验应当失败")
			}
		})
	}
}

func TestStateCodec_DifferentKeyRejects(t *testing.T) {
	state, err := NewStateCodec("secret-a").Generate(42, "conn-abc")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if NewStateCodec("secret-b").Verify(state, 42, "conn-abc", StateMaxAge) {
		t.Error("换签名密钥校验应当失败")
	}
}
