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
	"strings"

	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/ports"
)

// envelopePrefix marks an encrypted record input.
const envelopePrefix = "enc:v1:"

// ErrNotEncrypted is returned when a stored record carries no envelope.
var ErrNotEncrypted = errors.New("record is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new records.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables key rotation without rewriting the history.
	FallbackKeys [][]byte
}

// payload is the sealed part of a record.
type payload struct {
	Input    string              `json:"input"`
	Value    string              `json:"value,omitempty"`
	Output   string              `json:"output,omitempty"`
	Error    string              `json:"error,omitempty"`
	Bindings *domain.BindingDiff `json:"bindings,omitempty"`
}

type encryptionMiddleware struct {
	next   ports.HistoryStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals the content of
// records with AES-GCM. IDs, shape, timing and the reset flag stay readable.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Append(ctx context.Context, rec *domain.Record) error {
	plainText, err := json.Marshal(payload{
		Input:    rec.Input,
		Value:    rec.Value,
		Output:   rec.Output,
		Error:    rec.Error,
		Bindings: rec.Bindings,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt record: %w", err)
	}

	envelope := *rec
	envelope.Input = envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext)
	envelope.Value, envelope.Output, envelope.Error = "", "", ""
	envelope.Bindings = nil

	return m.next.Append(ctx, &envelope)
}

func (m *encryptionMiddleware) List(ctx context.Context, sessionID string) ([]*domain.Record, error) {
	records, err := m.next.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Record, 0, len(records))
	for _, rec := range records {
		opened, err := m.open(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, opened)
	}
	return out, nil
}

func (m *encryptionMiddleware) Get(ctx context.Context, sessionID, recordID string) (*domain.Record, error) {
	rec, err := m.next.Get(ctx, sessionID, recordID)
	if err != nil {
		return nil, err
	}
	return m.open(rec)
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) Sessions(ctx context.Context) ([]string, error) {
	return m.next.Sessions(ctx)
}

func (m *encryptionMiddleware) open(envelope *domain.Record) (*domain.Record, error) {
	encoded, ok := strings.CutPrefix(envelope.Input, envelopePrefix)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotEncrypted, envelope.ID)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt record %s: %w", envelope.ID, err)
	}

	var p payload
	if err := json.Unmarshal(plainText, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted record: %w", err)
	}

	rec := *envelope
	rec.Input, rec.Value, rec.Output, rec.Error = p.Input, p.Value, p.Output, p.Error
	rec.Bindings = p.Bindings
	return &rec, nil
}

// Helpers

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
	for _, key := range append([][]byte{activeKey}, fallbackKeys...) {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
