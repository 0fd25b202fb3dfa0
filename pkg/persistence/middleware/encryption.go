package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/ivy/pkg/ports"
)

// envelopeKey marks a stored value as an encrypted envelope.
const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	ports.Datastore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts every record field and
// sequence element with AES-GCM. Ids and field names stay in clear text so the
// underlying store can still index them.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.Datastore) ports.Datastore {
		return &encryptionMiddleware{
			Datastore: next,
			config:    config,
		}
	}
}

func (m *encryptionMiddleware) seal(value any) (any, error) {
	plainText, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt value: %w", err)
	}
	return map[string]any{envelopeKey: base64.StdEncoding.EncodeToString(ciphertext)}, nil
}

func (m *encryptionMiddleware) open(stored any) (any, error) {
	envelope, _ := stored.(map[string]any)
	encoded, ok := envelope[envelopeKey].(string)
	if !ok {
		// Fail secure: a configured key means every value must be encrypted.
		return nil, errors.New("value is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt value: %w", err)
	}

	var value any
	if err := json.Unmarshal(plainText, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted value: %w", err)
	}
	return value, nil
}

func (m *encryptionMiddleware) LoadRecord(ctx context.Context, id string) (map[string]any, error) {
	stored, err := m.Datastore.LoadRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any, len(stored))
	for k, v := range stored {
		if fields[k], err = m.open(v); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", id, k, err)
		}
	}
	return fields, nil
}

func (m *encryptionMiddleware) PutField(ctx context.Context, id, key string, value any) error {
	sealed, err := m.seal(value)
	if err != nil {
		return err
	}
	return m.Datastore.PutField(ctx, id, key, sealed)
}

func (m *encryptionMiddleware) LoadSequence(ctx context.Context, id string) ([]any, error) {
	stored, err := m.Datastore.LoadSequence(ctx, id)
	if err != nil {
		return nil, err
	}
	elems := make([]any, len(stored))
	for i, v := range stored {
		if elems[i], err = m.open(v); err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", id, i, err)
		}
	}
	return elems, nil
}

func (m *encryptionMiddleware) InsertAt(ctx context.Context, id string, offset int, value any) error {
	sealed, err := m.seal(value)
	if err != nil {
		return err
	}
	return m.Datastore.InsertAt(ctx, id, offset, sealed)
}

func (m *encryptionMiddleware) SetAt(ctx context.Context, id string, offset int, value any) error {
	sealed, err := m.seal(value)
	if err != nil {
		return err
	}
	return m.Datastore.SetAt(ctx, id, offset, sealed)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
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
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
