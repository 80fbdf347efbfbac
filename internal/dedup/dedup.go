package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Deduper suppresses repeat sends of identical text inside a sliding time
// window. State is bounded: expired entries are evicted on every call, and
// when the live count exceeds the cap the oldest half is dropped in one
// amortised sweep. Content-based on purpose; the producer may legitimately
// resend the same text.
type Deduper struct {
	window     time.Duration
	maxEntries int
	logger     zerolog.Logger

	mu      sync.Mutex
	entries map[string]time.Time

	now func() time.Time
}

// New constructs a Deduper with the given window and entry cap.
func New(window time.Duration, maxEntries int, logger zerolog.Logger) *Deduper {
	return &Deduper{
		window:     window,
		maxEntries: maxEntries,
		logger:     logger.With().Str("component", "dedup").Logger(),
		entries:    make(map[string]time.Time),
		now:        time.Now,
	}
}

// Fingerprint hashes the exact bytes of text; texts differing by a single
// character are distinct.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ShouldSend reports whether text may be delivered now. Evict, look up,
// and reserve happen under one lock as a single atomic step; a true return
// reserves the fingerprint immediately, before the send is attempted, so
// an abandoned delivery still counts as recently sent. A suppressed hit
// does not refresh the existing entry's timestamp.
func (d *Deduper) ShouldSend(text string) bool {
	fp := Fingerprint(text)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.evictExpired(now)
	if len(d.entries) > d.maxEntries {
		d.evictOldestHalf()
	}

	if sentAt, ok := d.entries[fp]; ok && now.Sub(sentAt) < d.window {
		d.logger.Debug().Str("fingerprint", fp[:12]).Msg("duplicate suppressed")
		return false
	}

	d.entries[fp] = now
	return true
}

// Len returns the live entry count.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *Deduper) evictExpired(now time.Time) {
	for fp, sentAt := range d.entries {
		if now.Sub(sentAt) >= d.window {
			delete(d.entries, fp)
		}
	}
}

func (d *Deduper) evictOldestHalf() {
	type entry struct {
		fp     string
		sentAt time.Time
	}
	all := make([]entry, 0, len(d.entries))
	for fp, sentAt := range d.entries {
		all = append(all, entry{fp, sentAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].sentAt.Before(all[j].sentAt) })

	for _, e := range all[:len(all)/2] {
		delete(d.entries, e.fp)
	}
	d.logger.Debug().Int("remaining", len(d.entries)).Msg("evicted oldest half of dedup entries")
}
