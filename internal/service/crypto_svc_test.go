package service

import (
	"errors"
	"testing"
	"time"
)

func testBundle() *TokenBundle {
	return &TokenBundle{
		AccessToken:  "Atza|access-token-value",
		RefreshToken: "Atzr|refresh-token-value",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
	}
}

func TestCryptoService_RoundTrip(t *testing.T) {
	svc, err := NewCryptoService("test-encryption-secret", "")
	if err != nil {
		t.Fatalf("NewCryptoService() error = %v", err)
	}
	if svc.KeyID() != "v1" {
		t.Errorf("KeyID() = %s, want v1", svc.KeyID())
	}

	bundle := testBundle()
	ciphertext, nonce, err := svc.Encrypt(bundle, 42)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if ciphertext == "" || nonce == "" {
		t.Fatal("Encrypt() 返回了空密文或空 nonce")
	}

	got, err := svc.Decrypt(ciphertext, nonce, 42)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got.AccessToken != bundle.AccessToken {
		t.Errorf("AccessToken = %s, want %s", got.AccessToken, bundle.AccessToken)
	}
	if got.RefreshToken != bundle.RefreshToken {
		t.Errorf("RefreshToken = %s, want %s", got.RefreshToken, bundle.RefreshToken)
	}
	if !got.ExpiresAt.Equal(bundle.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, bundle.ExpiresAt)
	}
}

func TestCryptoService_WrongUserFails(t *testing.T) {
	svc, _ := NewCryptoService("test-encryption-secret", "v1")

	ciphertext, nonce, err := svc.Encrypt(testBundle(), 42)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// 密文整行挪到别的用户名下，AAD 不匹配必须解不开
	if _, err := svc.Decrypt(ciphertext, nonce, 43); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt(其他用户) error = %v, want ErrDecryptionFailed", err)
	}
}

func TestCryptoService_TamperedCiphertextFails(t *testing.T) {
	svc, _ := NewCryptoService("test-encryption-secret", "v1")

	ciphertext, nonce, err := svc.Encrypt(testBundle(), 42)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	flipChar := func(s string) string {
		if s[0] == 'A' {
			return "B" + s[1:]
		}
		return "A" + s[1:]
	}

	cases := []struct {
		name       string
		ciphertext string
		nonce      string
	}{
		{"篡改密文", flipChar(ciphertext), nonce},
		{"篡改nonce", ciphertext, flipChar(nonce)},
		{"非法base64密文", "not base64!!", nonce},
		{"非法base64nonce", ciphertext, "not base64!!"},
		{"空密文", "", nonce},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Decrypt(tc.ciphertext, tc.nonce, 42); !errors.Is(err, ErrDecryptionFailed) {
				t.Errorf("Decrypt() error = %v, want ErrDecryptionFailed", err)
			}
		})
	}
}

func TestCryptoService_DifferentKeyFails(t *testing.T) {
	svcA, _ := NewCryptoService("secret-a", "v1")
	svcB, _ := NewCryptoService("secret-b", "v1")

	ciphertext, nonce, _ := svcA.Encrypt(testBundle(), 42)
	if _, err := svcB.Decrypt(ciphertext, nonce, 42); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("换密钥解密 error = %v, want ErrDecryptionFailed", err)
	}
}

func TestCryptoService_EmptySecret(t *testing.T) {
	if _, err := NewCryptoService("", "v1"); err == nil {
		t.Error("NewCryptoService(空密钥) 应当报错")
	}
}

func TestTokenBundle_Expired(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"还有1小时", now.Add(time.Hour), false},
		{"还有10分钟", now.Add(10 * time.Minute), false},
		{"还有3分钟(临期)", now.Add(3 * time.Minute), true},
		{"已经过期", now.Add(-time.Minute), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &TokenBundle{ExpiresAt: tc.expiresAt}
			if got := b.Expired(now); got != tc.want {
				t.Errorf("Expired() = %v, want %v", got, tc.want)
			}
		})
	}
}
