package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/ports"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// envelopePrefix marks an encrypted field.
const envelopePrefix = "enc:v1:"

var (
	// ErrInvalidKey is returned for keys that are not KeySize bytes long.
	ErrInvalidKey = errors.New("encryption key must be 32 bytes (AES-256)")

	// ErrNotEncrypted is returned when a stored field lacks the envelope.
	ErrNotEncrypted = errors.New("field is missing encrypted data envelope")

	// ErrDecrypt is returned when no configured key opens a field.
	ErrDecrypt = errors.New("decryption failed with all available keys")
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new data. Must be KeySize bytes.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt,
	// which allows rotating keys without rewriting stored results.
	FallbackKeys [][]byte
}

// ParseKeys decodes base64 keys as found in configuration. The first key is
// the active one.
func ParseKeys(active string, previous ...string) (EncryptionConfig, error) {
	var cfg EncryptionConfig
	key, err := decodeKey(active)
	if err != nil {
		return cfg, fmt.Errorf("active key: %w", err)
	}
	cfg.ActiveKey = key
	for i, p := range previous {
		if strings.TrimSpace(p) == "" {
			continue
		}
		key, err := decodeKey(p)
		if err != nil {
			return cfg, fmt.Errorf("previous key %d: %w", i, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return cfg, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

type encryptionMiddleware struct {
	next   ports.ResultStore
	config EncryptionConfig
}

// NewEncryptionMiddleware encrypts every variable value and log message with
// AES-GCM before they reach the wrapped store. Identities, names and levels
// stay in the clear so results remain listable and inspectable.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != KeySize {
		return nil, ErrInvalidKey
	}
	for _, k := range config.FallbackKeys {
		if len(k) != KeySize {
			return nil, ErrInvalidKey
		}
	}
	return func(next ports.ResultStore) ports.ResultStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, result *domain.EvaluationResult) error {
	if result == nil {
		return fmt.Errorf("%w: result is nil", domain.ErrInvalidArgument)
	}
	sealed := clone(result)
	for i := range sealed.State {
		v, err := m.seal(sealed.State[i].Value)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", sealed.State[i].Key(), err)
		}
		sealed.State[i].Value = v
	}
	for i := range sealed.Logs {
		msg, err := m.seal(sealed.Logs[i].Message)
		if err != nil {
			return fmt.Errorf("failed to encrypt log line %d: %w", i, err)
		}
		sealed.Logs[i].Message = msg
	}
	return m.next.Save(ctx, sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.EvaluationResult, error) {
	result, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	opened := clone(result)
	for i := range opened.State {
		v, err := m.open(opened.State[i].Value)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt %s: %w", opened.State[i].Key(), err)
		}
		opened.State[i].Value = v
	}
	for i := range opened.Logs {
		msg, err := m.open(opened.Logs[i].Message)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt log line %d: %w", i, err)
		}
		opened.Logs[i].Message = msg
	}
	return opened, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *encryptionMiddleware) seal(plain string) (string, error) {
	ciphertext, err := encrypt([]byte(plain), m.config.ActiveKey)
	if err != nil {
		return "", err
	}
	return envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (m *encryptionMiddleware) open(field string) (string, error) {
	encoded, ok := strings.CutPrefix(field, envelopePrefix)
	if !ok {
		return "", ErrNotEncrypted
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, ErrDecrypt
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
