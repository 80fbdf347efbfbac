package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Header is the fixed field order of every bucket file. A bucket never
// changes its ordering once the header row is written.
var Header = []string{
	"received_at", "event", "version", "symbol", "tf", "htf",
	"bar_time", "price", "rsi", "atr", "raw",
}

var bucketNameRe = regexp.MustCompile(`^telemetry_\d{4}-\d{2}-\d{2}\.csv$`)

// Store appends telemetry records to date-bucketed CSV files under one
// directory. One mutex guards bucket resolution, lazy creation, and the
// append as a single step so concurrent requests cannot interleave rows
// or duplicate the header.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewStore wires a bucket directory into a Store. The directory is
// created on first append, not here.
func NewStore(dir string, logger zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "telemetry_store").Logger(),
	}
}

// BucketStart resolves the first UTC day of the 2-day period containing t.
// Periods begin on odd days of the year, so the mapping depends only on
// (year, month, day).
func BucketStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (t.YearDay() - 1) % 2
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}

// BucketName returns the bucket filename for the period containing t.
func BucketName(t time.Time) string {
	return fmt.Sprintf("telemetry_%s.csv", BucketStart(t).Format("2006-01-02"))
}

// Append writes one row for rec into the bucket derived from its
// ReceivedAt instant, creating the bucket with the fixed header first if
// it does not exist yet. Rows are never rewritten or reordered.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create telemetry dir: %w", err)
	}

	path := filepath.Join(s.dir, BucketName(rec.ReceivedAt))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open bucket: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat bucket: %w", err)
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(Header); err != nil {
			return fmt.Errorf("write bucket header: %w", err)
		}
		s.logger.Info().Str("bucket", filepath.Base(path)).Msg("created telemetry bucket")
	}

	if err := writer.Write(rowFor(rec)); err != nil {
		return fmt.Errorf("append telemetry row: %w", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush telemetry row: %w", err)
	}
	return nil
}

// ListBuckets returns the bucket filenames currently on disk, sorted.
func (s *Store) ListBuckets() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read telemetry dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !bucketNameRe.MatchString(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// BucketPath resolves a bucket filename to its on-disk path. Names that do
// not match the bucket filename shape are rejected, which also rules out
// path traversal.
func (s *Store) BucketPath(name string) (string, error) {
	if !bucketNameRe.MatchString(name) {
		return "", fmt.Errorf("invalid bucket name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

func rowFor(rec Record) []string {
	return []string{
		rec.ReceivedAt.Format(time.RFC3339),
		rec.Event,
		rec.Version,
		rec.Symbol,
		rec.TF,
		rec.HTF,
		rec.BarTime,
		nullDecimalCell(rec.Price),
		nullDecimalCell(rec.RSI),
		nullDecimalCell(rec.ATR),
		string(rec.Raw),
	}
}

func nullDecimalCell(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
