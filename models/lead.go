package models

import "time"

// Lead represents a single prospective contact that one user can claim
type Lead struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string     `json:"name"`
	Email     string     `gorm:"not null;uniqueIndex" json:"email"`
	ClaimedBy *string    `json:"claimed_by"`
	ClaimedAt *time.Time `json:"claimed_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

