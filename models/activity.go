package models

import "time"

// Activity types written to the audit trail
const (
	ActivityUpdate         = "update"
	ActivityDelete         = "delete"
	ActivityClaim          = "claim"
	ActivitySequenceStatus = "sequence_status"
	ActivitySend           = "send"
	ActivityWebhookSend    = "webhook_send"
)

// ActivityLog is an append-only audit record
type ActivityLog struct {
	ID      uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Ts      time.Time `gorm:"not null;index" json:"ts"`
	Type    string    `gorm:"not null;index" json:"type"`
	Details string    `gorm:"type:text" json:"details"`
}

// TableName keeps the singular table name used by existing databases
func (ActivityLog) TableName() string {
	return "activity_log"
}
