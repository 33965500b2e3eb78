package models

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedEvent is the dedup record for one marketplace event. Insertion is
// the dedup gate: a unique violation on (merchant_id, event_id) means the
// event was already handled.
type ProcessedEvent struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID  string    `gorm:"column:merchant_id;uniqueIndex:uq_processed_events_event;not null"`
	EventID     string    `gorm:"column:event_id;uniqueIndex:uq_processed_events_event;not null"`
	Code        string    `gorm:"column:code;not null"`
	OrderID     *string   `gorm:"column:order_id"`
	PayloadHash string    `gorm:"column:payload_hash;not null"`
	Source      string    `gorm:"column:source;not null"`
	ReceivedAt  time.Time `gorm:"column:received_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
