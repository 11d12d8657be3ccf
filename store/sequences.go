package store

import (
	"context"
	"fmt"
	"time"

	"leadflow/models"

	"gorm.io/gorm"
)

// StepInput describes one email step of a new sequence
type StepInput struct {
	StepIndex  int
	DelayHours int
	Subject    string
	Body       string
}

// SequenceInput is everything needed to create a sequence with its steps and initial members
type SequenceInput struct {
	Name        string
	ScheduledAt *time.Time
	CreatedBy   *string
	Steps       []StepInput
	LeadIDs     []uint
}

// DispatchResult reports what DispatchSequence did
type DispatchResult struct {
	SequenceID uint
	LeadIDs    []uint
	// Sent is false when the sequence was no longer due, e.g. paused or already sent
	Sent bool
}

func (s *Store) createSequence(db *gorm.DB, name string, scheduledAt *time.Time, createdBy *string) (uint, error) {
	seq := models.Sequence{
		Name:      name,
		Status:    models.SequenceStatusScheduled,
		CreatedBy: createdBy,
	}
	if scheduledAt != nil {
		at := scheduledAt.UTC()
		seq.ScheduledAt = &at
	}
	if err := db.Omit("Steps").Create(&seq).Error; err != nil {
		return 0, fmt.Errorf("create sequence: %w", err)
	}
	return seq.ID, nil
}

func addSequenceStep(db *gorm.DB, sequenceID uint, step StepInput) error {
	row := models.SequenceStep{
		SequenceID: sequenceID,
		StepIndex:  step.StepIndex,
		DelayHours: step.DelayHours,
		Subject:    step.Subject,
		Body:       step.Body,
	}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("add sequence step: %w", err)
	}
	return nil
}

func addSequenceLead(db *gorm.DB, sequenceID, leadID uint) error {
	row := models.SequenceLead{SequenceID: sequenceID, LeadID: leadID}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("add sequence lead: %w", err)
	}
	return nil
}

// CreateSequence inserts a sequence in scheduled status
func (s *Store) CreateSequence(ctx context.Context, name string, scheduledAt *time.Time, createdBy *string) (uint, error) {
	return s.createSequence(s.db.WithContext(ctx), name, scheduledAt, createdBy)
}

// AddSequenceStep inserts a step without checking the index
func (s *Store) AddSequenceStep(ctx context.Context, sequenceID uint, step StepInput) error {
	return addSequenceStep(s.db.WithContext(ctx), sequenceID, step)
}

// AddSequenceLead inserts a membership row. Duplicates are not prevented.
func (s *Store) AddSequenceLead(ctx context.Context, sequenceID, leadID uint) error {
	return addSequenceLead(s.db.WithContext(ctx), sequenceID, leadID)
}

// CreateSequenceWithMembers creates the sequence, its steps and its initial members atomically
func (s *Store) CreateSequenceWithMembers(ctx context.Context, in SequenceInput) (uint, error) {
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if id, err = s.createSequence(tx, in.Name, in.ScheduledAt, in.CreatedBy); err != nil {
			return err
		}
		for _, step := range in.Steps {
			if err := addSequenceStep(tx, id, step); err != nil {
				return err
			}
		}
		for _, leadID := range in.LeadIDs {
			if err := addSequenceLead(tx, id, leadID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func orderedSteps(db *gorm.DB) *gorm.DB {
	return db.Order("step_index ASC, id ASC")
}

// attachLeadIDs fills LeadIDs for every sequence with a single membership query
func attachLeadIDs(db *gorm.DB, seqs []models.Sequence) error {
	if len(seqs) == 0 {
		return nil
	}

	ids := make([]uint, len(seqs))
	index := make(map[uint]int, len(seqs))
	for i := range seqs {
		ids[i] = seqs[i].ID
		index[seqs[i].ID] = i
		seqs[i].LeadIDs = []uint{}
		if seqs[i].Steps == nil {
			seqs[i].Steps = []models.SequenceStep{}
		}
	}

	var links []models.SequenceLead
	if err := db.Where("sequence_id IN ?", ids).Order("id ASC").Find(&links).Error; err != nil {
		return fmt.Errorf("load sequence leads: %w", err)
	}
	for _, link := range links {
		i := index[link.SequenceID]
		seqs[i].LeadIDs = append(seqs[i].LeadIDs, link.LeadID)
	}
	return nil
}

// ListSequences returns all sequences with ordered steps and member lead ids, newest first
func (s *Store) ListSequences(ctx context.Context) ([]models.Sequence, error) {
	db := s.db.WithContext(ctx)

	seqs := []models.Sequence{}
	if err := db.Preload("Steps", orderedSteps).Order("id DESC").Find(&seqs).Error; err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	if err := attachLeadIDs(db, seqs); err != nil {
		return nil, err
	}
	return seqs, nil
}

func (s *Store) GetSequence(ctx context.Context, id uint) (*models.Sequence, error) {
	db := s.db.WithContext(ctx)

	var seq models.Sequence
	if err := db.Preload("Steps", orderedSteps).First(&seq, id).Error; err != nil {
		return nil, notFound(err)
	}

	seqs := []models.Sequence{seq}
	if err := attachLeadIDs(db, seqs); err != nil {
		return nil, err
	}
	return &seqs[0], nil
}

// UpdateSequenceStatus overwrites the status without checking the transition
func (s *Store) UpdateSequenceStatus(ctx context.Context, id uint, status string) (bool, error) {
	var (
		changed bool
		entry   models.ActivityLog
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Sequence{}).Where("id = ?", id).Update("status", status)
		if result.Error != nil {
			return fmt.Errorf("update sequence status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		changed = true

		var err error
		entry, err = s.appendActivity(tx, models.ActivitySequenceStatus, fmt.Sprintf("sequence:%d status:%s", id, status))
		return err
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.publish(entry)
	}
	return changed, nil
}

// AddLeadsToSequence appends one membership per lead id, in order, without dedup
func (s *Store) AddLeadsToSequence(ctx context.Context, id uint, leadIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, leadID := range leadIDs {
			if err := addSequenceLead(tx, id, leadID); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDueSequences returns scheduled sequences whose scheduled_at is set and not after now
func (s *Store) GetDueSequences(ctx context.Context, now time.Time) ([]models.Sequence, error) {
	seqs := []models.Sequence{}
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", models.SequenceStatusScheduled, now.UTC()).
		Order("scheduled_at ASC, id ASC").
		Find(&seqs).Error
	if err != nil {
		return nil, fmt.Errorf("get due sequences: %w", err)
	}
	return seqs, nil
}

// MarkSequenceSent flips the sequence to sent and stamps sent_at, whatever its current status
func (s *Store) MarkSequenceSent(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Model(&models.Sequence{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  models.SequenceStatusSent,
			"sent_at": s.timestamp(),
		}).Error
	if err != nil {
		return fmt.Errorf("mark sequence sent: %w", err)
	}
	return nil
}

func sequenceLeadIDs(db *gorm.DB, id uint) ([]uint, error) {
	ids := []uint{}
	err := db.Model(&models.SequenceLead{}).
		Where("sequence_id = ?", id).
		Order("id ASC").
		Pluck("lead_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("get sequence leads: %w", err)
	}
	return ids, nil
}

func (s *Store) GetSequenceLeads(ctx context.Context, id uint) ([]uint, error) {
	return sequenceLeadIDs(s.db.WithContext(ctx), id)
}

// DispatchSequence marks a due sequence sent and records one send per member
// lead in the same transaction. The status flip is conditional, so a sequence
// that was paused or already sent since it was fetched is left alone.
func (s *Store) DispatchSequence(ctx context.Context, id uint, now time.Time) (DispatchResult, error) {
	result := DispatchResult{SequenceID: id}
	var entries []models.ActivityLog

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flip := tx.Model(&models.Sequence{}).
			Where("id = ? AND status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
				id, models.SequenceStatusScheduled, now.UTC()).
			Updates(map[string]interface{}{
				"status":  models.SequenceStatusSent,
				"sent_at": s.timestamp(),
			})
		if flip.Error != nil {
			return fmt.Errorf("mark sequence sent: %w", flip.Error)
		}
		if flip.RowsAffected == 0 {
			return nil
		}

		leadIDs, err := sequenceLeadIDs(tx, id)
		if err != nil {
			return err
		}
		for _, leadID := range leadIDs {
			entry, err := s.appendActivity(tx, models.ActivitySend, fmt.Sprintf("sequence:%d lead:%d", id, leadID))
			if err != nil {
				return fmt.Errorf("log send: %w", err)
			}
			entries = append(entries, entry)
		}

		result.LeadIDs = leadIDs
		result.Sent = true
		return nil
	})
	if err != nil {
		return DispatchResult{SequenceID: id}, err
	}

	s.publish(entries...)
	return result, nil
}

// DeleteSequence removes the sequence together with its steps and memberships
func (s *Store) DeleteSequence(ctx context.Context, id uint) (bool, error) {
	var (
		removed bool
		entry   models.ActivityLog
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sequence_id = ?", id).Delete(&models.SequenceStep{}).Error; err != nil {
			return fmt.Errorf("delete sequence steps: %w", err)
		}
		if err := tx.Where("sequence_id = ?", id).Delete(&models.SequenceLead{}).Error; err != nil {
			return fmt.Errorf("delete sequence leads: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&models.Sequence{})
		if result.Error != nil {
			return fmt.Errorf("delete sequence: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true

		var err error
		entry, err = s.appendActivity(tx, models.ActivityDelete, fmt.Sprintf("sequence:%d deleted", id))
		return err
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.publish(entry)
	}
	return removed, nil
}
