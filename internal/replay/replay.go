// Package replay detects batches that were already submitted recently.
package replay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

// Store remembers batch fingerprints for a limited time.
type Store interface {
	// Claim records fingerprint for ttl. It reports false when the fingerprint
	// is already held by an earlier, unexpired claim.
	Claim(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error)
	Close() error
}

// Fingerprint is the hex SHA-256 of the batch in submission order. Two
// batches share a fingerprint only if every record matches field by field.
func Fingerprint(records []txgraph.Record) string {
	h := sha256.New()
	buf := make([]byte, 0, 128)
	for _, r := range records {
		buf = buf[:0]
		buf = strconv.AppendQuote(buf, r.Sender)
		buf = append(buf, 0x1f)
		buf = strconv.AppendQuote(buf, r.Receiver)
		buf = append(buf, 0x1f)
		buf = strconv.AppendFloat(buf, r.Amount, 'g', -1, 64)
		buf = append(buf, 0x1f)
		buf = strconv.AppendQuote(buf, r.Timestamp)
		buf = append(buf, 0x1e)
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryStore keeps fingerprints in process memory. Expired entries are swept
// lazily on Claim.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) Claim(_ context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > time.Minute {
		for fp, exp := range s.entries {
			if !now.Before(exp) {
				delete(s.entries, fp)
			}
		}
		s.lastSweep = now
	}

	if exp, ok := s.entries[fingerprint]; ok && now.Before(exp) {
		return false, nil
	}
	s.entries[fingerprint] = now.Add(ttl)
	return true, nil
}

// Len reports the number of tracked fingerprints, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error { return nil }
