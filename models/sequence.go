package models

import "time"

// Sequence statuses. Sent is terminal for the dispatcher.
const (
	SequenceStatusScheduled = "scheduled"
	SequenceStatusPaused    = "paused"
	SequenceStatusSent      = "sent"
)

// Sequence represents a scheduled outreach campaign targeting a set of leads
type Sequence struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at"`
	Status      string     `gorm:"not null;index;default:'scheduled'" json:"status"`
	CreatedBy   *string    `json:"created_by"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	SentAt      *time.Time `json:"sent_at"`

	// Relations
	Steps   []SequenceStep `gorm:"foreignKey:SequenceID" json:"steps"`
	LeadIDs []uint         `gorm:"-" json:"lead_ids"`
}

// IsDue reports whether the dispatcher should fire the sequence at now
func (s Sequence) IsDue(now time.Time) bool {
	return s.Status == SequenceStatusScheduled && s.ScheduledAt != nil && !s.ScheduledAt.After(now)
}

// SequenceStep is one templated email within a sequence.
// DelayHours is kept for the UI; the dispatcher sends every step at once.
type SequenceStep struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	SequenceID uint   `gorm:"not null;index" json:"-"`
	StepIndex  int    `gorm:"not null" json:"step_index"`
	DelayHours int    `gorm:"not null;default:0" json:"delay_hours"`
	Subject    string `json:"subject"`
	Body       string `gorm:"type:text" json:"body"`
}

// SequenceLead joins sequences to leads. Duplicate pairs are allowed.
type SequenceLead struct {
	ID         uint `gorm:"primaryKey;autoIncrement" json:"id"`
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`
	LeadID     uint `gorm:"not null;index" json:"lead_id"`
}
