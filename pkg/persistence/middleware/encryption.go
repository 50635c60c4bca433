package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
)

const envelopeField = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte

	// AllowPlaintext lets Read return values written before encryption was
	// enabled. They are encrypted on their next write.
	AllowPlaintext bool
}

// DeriveKey stretches a passphrase into a 32-byte AES-256 key with HKDF-SHA256.
func DeriveKey(secret []byte, salt, info string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty secret")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, []byte(salt), []byte(info)), key); err != nil {
		return nil, err
	}
	return key, nil
}

type encryptionMiddleware struct {
	next   ports.Storage
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts every stored
// value using AES-GCM. Etags pass through untouched, so compare-and-swap
// semantics of the wrapped store are preserved.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.Storage) ports.Storage {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) keys() [][]byte {
	return append([][]byte{m.config.ActiveKey}, m.config.FallbackKeys...)
}

func (m *encryptionMiddleware) Write(ctx context.Context, changes map[string]ports.StoreItem) (map[string]string, error) {
	sealed := make(map[string]ports.StoreItem, len(changes))
	for key, item := range changes {
		ciphertext, err := seal(m.config.ActiveKey, key, item.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt %s: %w", key, err)
		}
		// The envelope stays JSON so every backend can store it.
		envelope, err := json.Marshal(map[string]string{
			envelopeField: base64.StdEncoding.EncodeToString(ciphertext),
		})
		if err != nil {
			return nil, err
		}
		sealed[key] = ports.StoreItem{Value: envelope, ETag: item.ETag}
	}
	return m.next.Write(ctx, sealed)
}

func (m *encryptionMiddleware) Read(ctx context.Context, keys []string) (map[string]ports.StoreItem, error) {
	items, err := m.next.Read(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make(map[string]ports.StoreItem, len(items))
	for key, item := range items {
		encoded, ok := unwrap(item.Value)
		if !ok {
			if m.config.AllowPlaintext {
				out[key] = item
				continue
			}
			return nil, fmt.Errorf("%s is not encrypted", key)
		}

		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ciphertext base64 for %s: %w", key, err)
		}
		plain, err := open(m.keys(), key, ciphertext)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt %s: %w", key, err)
		}
		out[key] = ports.StoreItem{Value: plain, ETag: item.ETag}
	}
	return out, nil
}

// unwrap extracts the base64 ciphertext of an envelope.
func unwrap(value []byte) (string, bool) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(value, &envelope); err != nil || len(envelope) != 1 {
		return "", false
	}
	var encoded string
	if err := json.Unmarshal(envelope[envelopeField], &encoded); err != nil {
		return "", false
	}
	return encoded, true
}

func (m *encryptionMiddleware) Delete(ctx context.Context, keys []string) error {
	return m.next.Delete(ctx, keys)
}

func (m *encryptionMiddleware) List(ctx context.Context, prefix string) ([]string, error) {
	return list(ctx, m.next, prefix)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext under key with the storage key as additional
// data, so a ciphertext cannot be replayed under another key.
func seal(key []byte, storageKey string, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, []byte(storageKey)), nil
}

// open tries the active key first, then each fallback key in order.
func open(keys [][]byte, storageKey string, sealed []byte) ([]byte, error) {
	for _, key := range keys {
		gcm, err := newGCM(key)
		if err != nil {
			return nil, err
		}
		if len(sealed) < gcm.NonceSize() {
			return nil, errors.New("ciphertext too short")
		}
		nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
		if plain, err := gcm.Open(nil, nonce, body, []byte(storageKey)); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}
