package alerting

import (
	"time"

	"github.com/google/uuid"
)

// AlertRecord is a durable, human-directed notification. Records are
// append-only: this subsystem never mutates or deletes them.
type AlertRecord struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
	Reason      string    `json:"reason"`
}

// NewAlertRecord creates an alert record with a fresh ID
func NewAlertRecord(timestamp time.Time, serviceName, reason string) AlertRecord {
	return AlertRecord{
		ID:          uuid.NewString(),
		Timestamp:   timestamp,
		ServiceName: serviceName,
		Reason:      reason,
	}
}

// Sink accepts alert records. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(record AlertRecord) error
}
