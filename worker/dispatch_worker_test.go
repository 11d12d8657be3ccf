package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"leadflow/config"
	"leadflow/models"
	"leadflow/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSequenceStore struct {
	mu         sync.Mutex
	due        []models.Sequence
	failing    map[uint]bool
	scans      int
	dispatched []uint
}

func (f *fakeSequenceStore) GetDueSequences(ctx context.Context, now time.Time) ([]models.Sequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	return f.due, nil
}

func (f *fakeSequenceStore) DispatchSequence(ctx context.Context, id uint, now time.Time) (store.DispatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[id] {
		return store.DispatchResult{SequenceID: id}, errors.New("disk full")
	}
	f.dispatched = append(f.dispatched, id)
	return store.DispatchResult{SequenceID: id, LeadIDs: []uint{1, 2}, Sent: true}, nil
}

func (f *fakeSequenceStore) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

func dueSequence(id uint, at time.Time) models.Sequence {
	return models.Sequence{ID: id, Status: models.SequenceStatusScheduled, ScheduledAt: &at}
}

func TestTickContinuesPastFailures(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	fake := &fakeSequenceStore{
		due:     []models.Sequence{dueSequence(1, past), dueSequence(2, past), dueSequence(3, past)},
		failing: map[uint]bool{2: true},
	}
	dw := NewDispatchWorker(fake, nil, time.Second)

	res, err := dw.Tick(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, TickResult{Due: 3, Sent: 2, Sends: 4, Failed: 1}, res)
	assert.Equal(t, []uint{1, 3}, fake.dispatched)
}

func TestTickSkipsRowsThatAreNotDue(t *testing.T) {
	now := time.Now()
	paused := dueSequence(2, now.Add(-time.Minute))
	paused.Status = models.SequenceStatusPaused
	fake := &fakeSequenceStore{
		due: []models.Sequence{
			dueSequence(1, now.Add(-time.Minute)),
			paused,
			dueSequence(3, now.Add(time.Hour)),
			{ID: 4, Status: models.SequenceStatusScheduled},
		},
	}
	dw := NewDispatchWorker(fake, nil, time.Second)

	res, err := dw.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, TickResult{Due: 4, Sent: 1, Sends: 2, Skipped: 3}, res)
	assert.Equal(t, []uint{1}, fake.dispatched)
}

func TestTickStopsWhenCancelled(t *testing.T) {
	fake := &fakeSequenceStore{due: []models.Sequence{dueSequence(1, time.Now().Add(-time.Minute))}}
	dw := NewDispatchWorker(fake, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := dw.Tick(ctx, time.Now())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.dispatched)
}

func TestStartRunsUntilCancelled(t *testing.T) {
	fake := &fakeSequenceStore{}
	dw := NewDispatchWorker(fake, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		dw.Start(ctx)
	}()

	require.Eventually(t, func() bool { return fake.scanCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestNewDispatchWorkerDefaults(t *testing.T) {
	dw := NewDispatchWorker(&fakeSequenceStore{}, nil, 0)
	assert.Equal(t, DefaultDispatchInterval, dw.Interval)
	assert.NotNil(t, dw.Logger)
}

func TestTickSendsDueSequencesOnce(t *testing.T) {
	db, err := config.OpenDatabase(config.Config{
		DBDriver: config.DriverSQLite,
		DBPath:   filepath.Join(t.TempDir(), "leadflow.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	st := store.New(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	var leads []uint
	for i := 0; i < 3; i++ {
		id, err := st.InsertLead(ctx, fmt.Sprintf("Lead %d", i), fmt.Sprintf("lead%d@example.com", i))
		require.NoError(t, err)
		leads = append(leads, id)
	}

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	due, err := st.CreateSequenceWithMembers(ctx, store.SequenceInput{
		Name:        "due",
		ScheduledAt: &past,
		Steps: []store.StepInput{
			{StepIndex: 0, Subject: "Hello", Body: "first"},
			{StepIndex: 1, DelayHours: 48, Subject: "Again", Body: "second"},
		},
		LeadIDs: leads,
	})
	require.NoError(t, err)
	_, err = st.CreateSequenceWithMembers(ctx, store.SequenceInput{Name: "later", ScheduledAt: &future, LeadIDs: leads})
	require.NoError(t, err)

	dw := NewDispatchWorker(st, nil, time.Second)

	res, err := dw.Tick(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, TickResult{Due: 1, Sent: 1, Sends: 3}, res)

	seq, err := st.GetSequence(ctx, due)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusSent, seq.Status)

	// a second scan finds nothing left to send
	res, err = dw.Tick(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, TickResult{}, res)

	entries, err := st.ListActivity(ctx)
	require.NoError(t, err)
	sends := 0
	for _, e := range entries {
		if e.Type == models.ActivitySend {
			sends++
		}
	}
	assert.Equal(t, 3, sends)
}
