package store

import (
	"context"
	"fmt"

	"leadflow/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeadUpdate lists the updatable lead columns. Nil fields are left untouched.
type LeadUpdate struct {
	Name  *string
	Email *string
}

func (u LeadUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil
}

func (u LeadUpdate) columns() map[string]interface{} {
	cols := make(map[string]interface{}, 2)
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Email != nil {
		cols["email"] = *u.Email
	}
	return cols
}

// InsertLead creates a lead unless the email is already known and returns the id of the row holding that email
func (s *Store) InsertLead(ctx context.Context, name, email string) (uint, error) {
	db := s.db.WithContext(ctx)

	lead := models.Lead{Name: name, Email: email}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&lead).Error; err != nil {
		return 0, fmt.Errorf("insert lead: %w", err)
	}

	var existing models.Lead
	if err := db.Select("id").Where("email = ?", email).Take(&existing).Error; err != nil {
		return 0, fmt.Errorf("resolve lead by email: %w", notFound(err))
	}
	return existing.ID, nil
}

// ListLeads returns every lead, most recently created first
func (s *Store) ListLeads(ctx context.Context) ([]models.Lead, error) {
	leads := []models.Lead{}
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

func (s *Store) GetLead(ctx context.Context, id uint) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).First(&lead, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &lead, nil
}

// UpdateLead applies a partial update. An empty update returns the current row
// without touching it. Constraint violations come back wrapped in ErrUpdateFailed.
func (s *Store) UpdateLead(ctx context.Context, id uint, update LeadUpdate) (*models.Lead, error) {
	if update.IsEmpty() {
		return s.GetLead(ctx, id)
	}

	var (
		lead  models.Lead
		entry models.ActivityLog
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Lead{}).Where("id = ?", id).Updates(update.columns())
		if result.Error != nil {
			return fmt.Errorf("%w: %w", ErrUpdateFailed, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.First(&lead, id).Error; err != nil {
			return notFound(err)
		}

		var err error
		entry, err = s.appendActivity(tx, models.ActivityUpdate, fmt.Sprintf("lead:%d updated", id))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(entry)
	return &lead, nil
}

// DeleteLead removes the lead's sequence memberships and then the lead itself.
// Activity history referencing the lead is kept.
func (s *Store) DeleteLead(ctx context.Context, id uint) (bool, error) {
	var (
		removed bool
		entry   models.ActivityLog
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lead_id = ?", id).Delete(&models.SequenceLead{}).Error; err != nil {
			return fmt.Errorf("delete lead memberships: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&models.Lead{})
		if result.Error != nil {
			return fmt.Errorf("delete lead: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true

		var err error
		entry, err = s.appendActivity(tx, models.ActivityDelete, fmt.Sprintf("lead:%d deleted", id))
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

// ClaimLead assigns the lead to claimer only if nobody holds it yet
func (s *Store) ClaimLead(ctx context.Context, id uint, claimer string) (bool, error) {
	var (
		claimed bool
		entry   models.ActivityLog
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Lead{}).
			Where("id = ? AND (claimed_by IS NULL OR claimed_by = '')", id).
			Updates(map[string]interface{}{
				"claimed_by": claimer,
				"claimed_at": s.timestamp(),
			})
		if result.Error != nil {
			return fmt.Errorf("claim lead: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		claimed = true

		var err error
		entry, err = s.appendActivity(tx, models.ActivityClaim, fmt.Sprintf("lead:%d claimed_by:%s", id, claimer))
		return err
	})
	if err != nil {
		return false, err
	}

	if claimed {
		s.publish(entry)
	}
	return claimed, nil
}
