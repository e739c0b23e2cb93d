package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adnanh27/postbridge/internal/errs"
)

// TokenData is the plaintext stored inside an encrypted token blob.
type TokenData struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	UsageCount   int       `json:"usage_count"`
	Scopes       []string  `json:"scopes,omitempty"`
}

var placeholderPatterns = []string{"your-", "demo-", "example", "changeme", "placeholder"}

// Vault encrypts and decrypts token blobs with AES-256-GCM. The wire
// format is ivHex:ciphertextHex:authTagHex. Encryption draws a fresh
// random IV per call, so identical plaintext never produces identical
// ciphertext.
type Vault struct {
	aead cipher.AEAD
}

// NewVault validates the key and builds the cipher once. The key must
// be exactly 32 bytes and must not be a leftover template value;
// violations are configuration errors and the process should not start.
func NewVault(key string) (*Vault, error) {
	if len(key) != 32 {
		return nil, errs.NewConfiguration(fmt.Sprintf("encryption key must be 32 bytes, got %d", len(key)))
	}
	lower := strings.ToLower(key)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(lower, pattern) {
			return nil, errs.NewConfiguration(fmt.Sprintf("encryption key matches placeholder pattern %q", pattern))
		}
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, errs.NewConfiguration(err.Error())
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.NewConfiguration(err.Error())
	}

	return &Vault{aead: aead}, nil
}

func (v *Vault) Encrypt(plaintext []byte) (string, error) {
	iv := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	sealed := v.aead.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - v.aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(ciphertext),
		hex.EncodeToString(tag),
	), nil
}

// Decrypt reverses Encrypt. Any malformed wire string, wrong key or
// flipped byte fails with an EncryptionError; a blob that does not
// authenticate is never partially returned.
func (v *Vault) Decrypt(wire string) ([]byte, error) {
	parts := strings.Split(wire, ":")
	if len(parts) != 3 {
		return nil, errs.NewEncryption("wire string is not an iv:ciphertext:tag triple")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, errs.NewEncryption("iv is not valid hex")
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, errs.NewEncryption("ciphertext is not valid hex")
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, errs.NewEncryption("auth tag is not valid hex")
	}

	if len(iv) != v.aead.NonceSize() || len(tag) != v.aead.Overhead() {
		return nil, errs.NewEncryption("iv or auth tag has wrong length")
	}

	plaintext, err := v.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, errs.NewEncryption("authentication tag mismatch")
	}

	return plaintext, nil
}

// EncryptTokens serializes token data and encrypts it.
func (v *Vault) EncryptTokens(td *TokenData) (string, error) {
	payload, err := json.Marshal(td)
	if err != nil {
		return "", err
	}
	return v.Encrypt(payload)
}

func (v *Vault) DecryptTokens(wire string) (*TokenData, error) {
	plaintext, err := v.Decrypt(wire)
	if err != nil {
		return nil, err
	}

	var td TokenData
	if err := json.Unmarshal(plaintext, &td); err != nil {
		return nil, errs.NewEncryption("decrypted blob is not a token payload")
	}
	return &td, nil
}
