package audit

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/mindcastle/warden/pkg/errs"
)

// EncryptedEntry is a sensitive payload at rest: the AEAD nonce and
// ciphertext plus the entry's identity. The plaintext never lands in the
// store.
type EncryptedEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Timestamp  time.Time `json:"timestamp"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
}

// EncryptedLog stores audit payloads that require confidentiality at
// rest, sealed with XChaCha20-Poly1305. The key belongs to the
// deployment and arrives through configuration; it is never embedded in
// source. The entry's ID and user are bound into the AEAD as associated
// data, so a ciphertext cannot be replayed under another entry.
type EncryptedLog struct {
	mu      sync.RWMutex
	entries []EncryptedEntry
	aead    interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
	}
	clock clockwork.Clock
}

// NewEncryptedLog creates an encrypted log sealed with the given
// 32-byte key.
func NewEncryptedLog(key []byte, clock clockwork.Clock) (*EncryptedLog, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", errs.ErrInvalidRequest)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EncryptedLog{aead: aead, clock: clock}, nil
}

// LogSensitive seals the payload and appends the resulting entry.
func (l *EncryptedLog) LogSensitive(userID string, payload []byte) (EncryptedEntry, error) {
	if userID == "" {
		return EncryptedEntry{}, fmt.Errorf("user id is required: %w", errs.ErrInvalidRequest)
	}

	entry := EncryptedEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Timestamp: l.clock.Now().UTC(),
		Nonce:     make([]byte, l.aead.NonceSize()),
	}
	if _, err := io.ReadFull(rand.Reader, entry.Nonce); err != nil {
		return EncryptedEntry{}, fmt.Errorf("failed to generate nonce: %w", err)
	}
	entry.Ciphertext = l.aead.Seal(nil, entry.Nonce, payload, l.associatedData(entry))

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return entry, nil
}

// Decrypt opens an entry and returns the original payload. A tampered
// entry fails authentication.
func (l *EncryptedLog) Decrypt(entry EncryptedEntry) ([]byte, error) {
	payload, err := l.aead.Open(nil, entry.Nonce, entry.Ciphertext, l.associatedData(entry))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt entry %s: %w", entry.ID, err)
	}
	return payload, nil
}

// Get returns the stored entry with the given id.
func (l *EncryptedLog) Get(id string) (EncryptedEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return EncryptedEntry{}, fmt.Errorf("encrypted entry %s: %w", id, errs.ErrNotFound)
}

// ByUser returns the user's encrypted entries, oldest first. Payloads
// stay sealed.
func (l *EncryptedLog) ByUser(userID string) []EncryptedEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []EncryptedEntry
	for _, e := range l.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (l *EncryptedLog) associatedData(entry EncryptedEntry) []byte {
	return []byte(entry.ID + "\x00" + entry.UserID)
}
