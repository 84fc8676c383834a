package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ==================== Token 加密服务 ====================

// ErrDecryptionFailed 解密失败 (被篡改 / 换了用户 / 密钥不对)
// 必须硬失败，绝不返回解了一半的数据
var ErrDecryptionFailed = errors.New("token decryption failed")

// CryptoService 刷新 Token 入库前的对称加密
// AES-256-GCM，把所属用户 ID 绑定为 AAD:
// 密文即使被整行拷到别的用户记录下，解密也会失败
type CryptoService struct {
	key   []byte // 32 字节
	keyID string // 记录在连接上，方便以后换钥
}

// NewCryptoService 从环境密钥派生 256-bit 加密钥
// secret 长度不限，SHA-256 拉齐到 32 字节
func NewCryptoService(secret, keyID string) (*CryptoService, error) {
	if secret == "" {
		return nil, errors.New("encryption secret 为空")
	}
	if keyID == "" {
		keyID = "v1"
	}

	sum := sha256.Sum256([]byte(secret))
	return &CryptoService{key: sum[:], keyID: keyID}, nil
}

// KeyID 当前使用的密钥版本
func (s *CryptoService) KeyID() string {
	return s.keyID
}

// aad 把用户 ID 编成附加认证数据
func (s *CryptoService) aad(userID int64) []byte {
	return []byte(fmt.Sprintf("user:%d", userID))
}

// Encrypt 加密整个 Token 包，返回 base64 的密文和 nonce
func (s *CryptoService) Encrypt(bundle *TokenBundle, userID int64) (ciphertext, nonce string, err error) {
	plaintext, err := json.Marshal(bundle)
	if err != nil {
		return "", "", err
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", err
	}

	nonceBytes := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", "", err
	}

	sealed := gcm.Seal(nil, nonceBytes, plaintext, s.aad(userID))

	return base64.StdEncoding.EncodeToString(sealed),
		base64.StdEncoding.EncodeToString(nonceBytes), nil
}

// Decrypt 解密 Token 包
// 任何一步失败都归一成 ErrDecryptionFailed，不向上层泄露密码学细节
func (s *CryptoService) Decrypt(ciphertext, nonce string, userID int64) (*TokenBundle, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	nonceBytes, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(nonceBytes) != gcm.NonceSize() {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := gcm.Open(nil, nonceBytes, sealed, s.aad(userID))
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	var bundle TokenBundle
	if err := json.Unmarshal(plaintext, &bundle); err != nil {
		return nil, ErrDecryptionFailed
	}
	return &bundle, nil
}
