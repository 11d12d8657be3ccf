// Package store is the storage layer shared by the API handlers and the
// dispatch worker. Multi-statement operations run inside a single
// transaction; activity entries are published only after commit.
package store

import (
	"errors"
	"time"

	"leadflow/models"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrUpdateFailed wraps storage faults raised while updating a lead, e.g. a duplicate email
	ErrUpdateFailed = errors.New("update failed")
)

// ActivityLimit caps ListActivity
const ActivityLimit = 200

// ActivityHook receives every committed activity entry
type ActivityHook func(entry models.ActivityLog)

type Option func(*Store)

// WithClock overrides the time source, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithActivityHook registers a subscriber for committed activity entries
func WithActivityHook(hook ActivityHook) Option {
	return func(s *Store) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

type Store struct {
	db    *gorm.DB
	now   func() time.Time
	hooks []ActivityHook
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for health checks
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// appendActivity writes one audit entry on db, which may be a transaction
func (s *Store) appendActivity(db *gorm.DB, activityType, details string) (models.ActivityLog, error) {
	entry := models.ActivityLog{
		Ts:      s.timestamp(),
		Type:    activityType,
		Details: details,
	}
	if err := db.Create(&entry).Error; err != nil {
		return models.ActivityLog{}, err
	}
	return entry, nil
}

func (s *Store) publish(entries ...models.ActivityLog) {
	for _, entry := range entries {
		for _, hook := range s.hooks {
			hook(entry)
		}
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
