package storage

import (
	"time"
)

// DeliveryRecord captures one coordinator outcome for auditing.
type DeliveryRecord struct {
	ID          int64
	Fingerprint string
	Outcome     string
	Detail      string
	Attempts    int
	TextChars   int
	CreatedAt   time.Time
}
