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

	"github.com/aretw0/spectate/pkg/domain"
	"github.com/aretw0/spectate/pkg/ports"
)

// EnvelopeKey is the only field of the event that replaces an encrypted batch.
const EnvelopeKey = "__encrypted__"

// ErrKeySize is returned for keys that are not 32 bytes long.
var ErrKeySize = errors.New("encryption key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new records.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt a
	// record, so keys can be rotated without losing history.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.Journal
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that stores each batch as a
// single envelope event holding the AES-GCM ciphertext of its JSON form.
// Sequence numbers, model labels and timestamps stay in the clear.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrKeySize
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d: %w", i, ErrKeySize)
		}
	}
	return func(next ports.Journal) ports.Journal {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Append(ctx context.Context, rec domain.Record) (domain.Record, error) {
	plain, err := json.Marshal(rec.Batch)
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to marshal batch: %w", err)
	}
	ciphertext, err := encrypt(plain, m.config.ActiveKey)
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to encrypt batch: %w", err)
	}

	envelope := rec
	envelope.Batch = domain.NewBatch(domain.NewEvent(EnvelopeKey, base64.StdEncoding.EncodeToString(ciphertext)))

	stored, err := m.next.Append(ctx, envelope)
	if err != nil {
		return domain.Record{}, err
	}
	stored.Batch = rec.Batch
	return stored, nil
}

func (m *encryptionMiddleware) Recent(ctx context.Context, limit int) ([]domain.Record, error) {
	recs, err := m.next.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i], err = m.open(recs[i]); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func (m *encryptionMiddleware) Get(ctx context.Context, seq uint64) (domain.Record, error) {
	rec, err := m.next.Get(ctx, seq)
	if err != nil {
		return domain.Record{}, err
	}
	return m.open(rec)
}

func (m *encryptionMiddleware) open(rec domain.Record) (domain.Record, error) {
	if rec.Batch.Len() != 1 {
		return domain.Record{}, fmt.Errorf("record %d is missing encrypted data envelope", rec.Seq)
	}
	encoded, ok := rec.Batch.At(0).Value(EnvelopeKey).(string)
	if !ok {
		return domain.Record{}, fmt.Errorf("record %d is missing encrypted data envelope", rec.Seq)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return domain.Record{}, fmt.Errorf("record %d: %w", rec.Seq, err)
	}
	var batch domain.Batch
	if err := json.Unmarshal(plain, &batch); err != nil {
		return domain.Record{}, fmt.Errorf("failed to unmarshal decrypted batch: %w", err)
	}
	rec.Batch = batch
	return rec, nil
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
