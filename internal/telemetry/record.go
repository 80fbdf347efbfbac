package telemetry

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one immutable telemetry observation. Every header field is
// always present in the record shape; fields the fragment did not carry
// stay at their empty value and render as empty CSV cells.
type Record struct {
	ReceivedAt time.Time
	Event      string
	Version    string
	Symbol     string
	TF         string
	HTF        string
	BarTime    string
	Price      decimal.NullDecimal
	RSI        decimal.NullDecimal
	ATR        decimal.NullDecimal
	Raw        json.RawMessage
}

// heartbeatPrefix marks operational keep-alive events (HB, HB15, ...)
// that are never relayed to the recipient.
const heartbeatPrefix = "HB"

// NewRecord builds a Record from a parsed fragment. Unknown fragment keys
// survive only through the verbatim Raw copy.
func NewRecord(frag Fragment, receivedAt time.Time) Record {
	return Record{
		ReceivedAt: receivedAt.UTC(),
		Event:      stringField(frag.Fields, "event"),
		Version:    stringField(frag.Fields, "version"),
		Symbol:     stringField(frag.Fields, "symbol"),
		TF:         stringField(frag.Fields, "tf"),
		HTF:        stringField(frag.Fields, "htf"),
		BarTime:    stringField(frag.Fields, "time"),
		Price:      decimalField(frag.Fields, "price"),
		RSI:        decimalField(frag.Fields, "rsi"),
		ATR:        decimalField(frag.Fields, "atr"),
		Raw:        frag.Raw,
	}
}

// IsHeartbeat reports whether the record is a keep-alive event.
func (r Record) IsHeartbeat() bool {
	return strings.HasPrefix(r.Event, heartbeatPrefix)
}

func stringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return decimal.NewFromFloat(t).String()
	default:
		return ""
	}
}

func decimalField(fields map[string]any, key string) decimal.NullDecimal {
	v, ok := fields[key]
	if !ok {
		return decimal.NullDecimal{}
	}
	switch t := v.(type) {
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(t))
	case string:
		if d, err := decimal.NewFromString(t); err == nil {
			return decimal.NewNullDecimal(d)
		}
	case json.Number:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return decimal.NewNullDecimal(d)
		}
	}
	return decimal.NullDecimal{}
}
