package store

import (
	"context"
	"fmt"

	"leadflow/models"
)

// LogActivity appends an audit entry
func (s *Store) LogActivity(ctx context.Context, activityType, details string) error {
	entry, err := s.appendActivity(s.db.WithContext(ctx), activityType, details)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	s.publish(entry)
	return nil
}

// ListActivity returns the most recent entries, newest first
func (s *Store) ListActivity(ctx context.Context) ([]models.ActivityLog, error) {
	entries := []models.ActivityLog{}
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(ActivityLimit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}

// Stats holds the dashboard counters
type Stats struct {
	TotalLeads   int64            `json:"total_leads"`
	ClaimedLeads int64            `json:"claimed_leads"`
	Sequences    map[string]int64 `json:"sequences"`
	Sends        int64            `json:"sends"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	db := s.db.WithContext(ctx)
	stats := Stats{Sequences: map[string]int64{
		models.SequenceStatusScheduled: 0,
		models.SequenceStatusPaused:    0,
		models.SequenceStatusSent:      0,
	}}

	if err := db.Model(&models.Lead{}).Count(&stats.TotalLeads).Error; err != nil {
		return Stats{}, fmt.Errorf("count leads: %w", err)
	}
	if err := db.Model(&models.Lead{}).
		Where("claimed_by IS NOT NULL AND claimed_by <> ''").
		Count(&stats.ClaimedLeads).Error; err != nil {
		return Stats{}, fmt.Errorf("count claimed leads: %w", err)
	}

	var byStatus []struct {
		Status string
		Total  int64
	}
	if err := db.Model(&models.Sequence{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return Stats{}, fmt.Errorf("count sequences: %w", err)
	}
	for _, row := range byStatus {
		stats.Sequences[row.Status] = row.Total
	}

	if err := db.Model(&models.ActivityLog{}).
		Where("type = ?", models.ActivitySend).
		Count(&stats.Sends).Error; err != nil {
		return Stats{}, fmt.Errorf("count sends: %w", err)
	}
	return stats, nil
}
