package telemetry

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestBucketDeterminism(t *testing.T) {
	jan1 := time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)
	jan2 := time.Date(2026, time.January, 2, 23, 59, 0, 0, time.UTC)
	jan3 := time.Date(2026, time.January, 3, 0, 0, 1, 0, time.UTC)

	if BucketName(jan1) != BucketName(jan2) {
		t.Fatalf("Jan 1 and Jan 2 must share a bucket: %s vs %s", BucketName(jan1), BucketName(jan2))
	}
	if BucketName(jan2) == BucketName(jan3) {
		t.Fatalf("Jan 3 must start a new bucket, got %s", BucketName(jan3))
	}
	if BucketName(jan1) != "telemetry_2026-01-01.csv" {
		t.Fatalf("unexpected bucket name %s", BucketName(jan1))
	}

	// Same day always resolves to the same bucket.
	for i := 0; i < 5; i++ {
		if BucketName(jan1) != "telemetry_2026-01-01.csv" {
			t.Fatal("bucket resolution must be deterministic")
		}
	}
}

func TestStoreAppendCreatesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	at := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	rec := Record{
		ReceivedAt: at,
		Event:      "entry",
		Symbol:     "EURUSD",
		TF:         "15",
		Price:      decimal.NewNullDecimal(decimal.RequireFromString("1.084")),
		Raw:        []byte(`{"event":"entry"}`),
	}

	if err := store.Append(rec); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := store.Append(rec); err != nil {
		t.Fatalf("second append: %v", err)
	}

	file, err := os.Open(filepath.Join(dir, BucketName(at)))
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read bucket: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("want header + 2 rows, got %d rows", len(rows))
	}
	if rows[0][0] != "received_at" || rows[0][len(rows[0])-1] != "raw" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][1] != "entry" || rows[1][3] != "EURUSD" {
		t.Fatalf("unexpected data row %v", rows[1])
	}
	if rows[1][7] != "1.084" {
		t.Fatalf("price cell = %q", rows[1][7])
	}
	if rows[1][len(rows[1])-1] != `{"event":"entry"}` {
		t.Fatalf("raw cell = %q", rows[1][len(rows[1])-1])
	}
}

func TestStoreAppendAbsentFieldsRenderEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	at := time.Date(2026, time.March, 6, 12, 0, 0, 0, time.UTC)
	if err := store.Append(Record{ReceivedAt: at, Event: "HB15", Raw: []byte(`{"event":"HB15"}`)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	file, err := os.Open(filepath.Join(dir, BucketName(at)))
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read bucket: %v", err)
	}
	row := rows[1]
	if len(row) != len(Header) {
		t.Fatalf("row has %d cells, header has %d", len(row), len(Header))
	}
	for _, idx := range []int{2, 3, 4, 5, 6, 7, 8, 9} {
		if row[idx] != "" {
			t.Fatalf("cell %s should be empty, got %q", Header[idx], row[idx])
		}
	}
}

func TestStoreListAndPath(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	names, err := store.ListBuckets()
	if err != nil || len(names) != 0 {
		t.Fatalf("empty dir should list nothing: %v %v", names, err)
	}

	at := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	if err := store.Append(Record{ReceivedAt: at, Event: "entry"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	names, err = store.ListBuckets()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 || names[0] != BucketName(at) {
		t.Fatalf("buckets = %v", names)
	}

	if _, err := store.BucketPath("../../etc/passwd"); err == nil {
		t.Fatal("traversal name must be rejected")
	}
	if _, err := store.BucketPath("telemetry_2026-03-05.csv"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
}

func TestNewRecordFieldMapping(t *testing.T) {
	_, frag, ok := Split(`LOG:{"event":"entry","version":"3.1","symbol":"XAUUSD","tf":"15","htf":"240","time":"2026-03-05T12:00:00Z","price":2411.5,"rsi":"61.2"}`)
	if !ok {
		t.Fatal("fragment should parse")
	}

	now := time.Date(2026, time.March, 5, 12, 0, 1, 0, time.UTC)
	rec := NewRecord(frag, now)

	if rec.Event != "entry" || rec.Version != "3.1" || rec.Symbol != "XAUUSD" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.TF != "15" || rec.HTF != "240" || rec.BarTime != "2026-03-05T12:00:00Z" {
		t.Fatalf("timeframe fields = %+v", rec)
	}
	if !rec.Price.Valid || rec.Price.Decimal.String() != "2411.5" {
		t.Fatalf("price = %+v", rec.Price)
	}
	if !rec.RSI.Valid || rec.RSI.Decimal.String() != "61.2" {
		t.Fatalf("rsi = %+v", rec.RSI)
	}
	if rec.ATR.Valid {
		t.Fatal("atr should be absent")
	}
	if rec.IsHeartbeat() {
		t.Fatal("entry is not a heartbeat")
	}

	hb := NewRecord(Fragment{Fields: map[string]any{"event": "HB15"}}, now)
	if !hb.IsHeartbeat() {
		t.Fatal("HB15 must classify as heartbeat")
	}
}
