package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"leadflow/models"
	"leadflow/store"
	"leadflow/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSequenceWithMembers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := mustInsertLead(t, st, "A", "a@example.com")
	b := mustInsertLead(t, st, "B", "b@example.com")
	at := fixedNow.Add(time.Hour)

	id := mustCreateSequence(t, st, store.SequenceInput{
		Name:        "Onboarding",
		ScheduledAt: &at,
		CreatedBy:   utils.Pointer("alice"),
		Steps: []store.StepInput{
			{StepIndex: 1, DelayHours: 24, Subject: "Follow up", Body: "Any news?"},
			{StepIndex: 0, DelayHours: 0, Subject: "Hello", Body: "Hi there"},
		},
		LeadIDs: []uint{b, a},
	})

	seq, err := st.GetSequence(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Onboarding", seq.Name)
	assert.Equal(t, models.SequenceStatusScheduled, seq.Status)
	assert.Equal(t, "alice", *seq.CreatedBy)
	require.NotNil(t, seq.ScheduledAt)
	assert.True(t, seq.ScheduledAt.Equal(at))
	assert.Nil(t, seq.SentAt)
	assert.Equal(t, []uint{b, a}, seq.LeadIDs)

	require.Len(t, seq.Steps, 2)
	assert.Equal(t, 0, seq.Steps[0].StepIndex)
	assert.Equal(t, "Hello", seq.Steps[0].Subject)
	assert.Equal(t, 1, seq.Steps[1].StepIndex)
	assert.Equal(t, 24, seq.Steps[1].DelayHours)
}

func TestListSequencesNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := mustCreateSequence(t, st, store.SequenceInput{Name: "first"})
	second := mustCreateSequence(t, st, store.SequenceInput{Name: "second"})
	require.NoError(t, st.AddSequenceStep(ctx, first, store.StepInput{StepIndex: 0, Subject: "s", Body: "b"}))

	seqs, err := st.ListSequences(ctx)
	require.NoError(t, err)
	require.Len(t, seqs, 2)

	assert.Equal(t, second, seqs[0].ID)
	assert.NotNil(t, seqs[0].Steps)
	assert.Empty(t, seqs[0].Steps)
	assert.Equal(t, []uint{}, seqs[0].LeadIDs)

	assert.Equal(t, first, seqs[1].ID)
	assert.Len(t, seqs[1].Steps, 1)
}

func TestGetSequenceMissing(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetSequence(context.Background(), 3)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddLeadsToSequenceKeepsDuplicates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := mustInsertLead(t, st, "A", "a@example.com")
	id := mustCreateSequence(t, st, store.SequenceInput{Name: "dupes", LeadIDs: []uint{a}})

	require.NoError(t, st.AddLeadsToSequence(ctx, id, []uint{a, 99}))

	leadIDs, err := st.GetSequenceLeads(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []uint{a, a, 99}, leadIDs)
}

func TestPauseAndResumePreserveSequence(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := mustInsertLead(t, st, "A", "a@example.com")
	id := mustCreateSequence(t, st, store.SequenceInput{
		Name:    "pausable",
		Steps:   []store.StepInput{{StepIndex: 0, Subject: "s", Body: "b"}},
		LeadIDs: []uint{lead},
	})

	changed, err := st.UpdateSequenceStatus(ctx, id, models.SequenceStatusPaused)
	require.NoError(t, err)
	require.True(t, changed)

	seq, err := st.GetSequence(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusPaused, seq.Status)

	changed, err = st.UpdateSequenceStatus(ctx, id, models.SequenceStatusScheduled)
	require.NoError(t, err)
	require.True(t, changed)

	seq, err = st.GetSequence(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusScheduled, seq.Status)
	assert.Equal(t, "pausable", seq.Name)
	assert.Len(t, seq.Steps, 1)
	assert.Equal(t, []uint{lead}, seq.LeadIDs)

	statuses := activityOfType(t, st, models.ActivitySequenceStatus)
	require.Len(t, statuses, 2)
	assert.Equal(t, fmt.Sprintf("sequence:%d status:scheduled", id), statuses[0].Details)
	assert.Equal(t, fmt.Sprintf("sequence:%d status:paused", id), statuses[1].Details)

	changed, err = st.UpdateSequenceStatus(ctx, 404, models.SequenceStatusPaused)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestGetDueSequences(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	past := fixedNow.Add(-time.Minute)
	future := fixedNow.Add(time.Hour)

	due := mustCreateSequence(t, st, store.SequenceInput{Name: "due", ScheduledAt: &past})
	onTheDot := mustCreateSequence(t, st, store.SequenceInput{Name: "now", ScheduledAt: &fixedNow})
	mustCreateSequence(t, st, store.SequenceInput{Name: "later", ScheduledAt: &future})
	mustCreateSequence(t, st, store.SequenceInput{Name: "unscheduled"})
	paused := mustCreateSequence(t, st, store.SequenceInput{Name: "paused", ScheduledAt: &past})
	_, err := st.UpdateSequenceStatus(ctx, paused, models.SequenceStatusPaused)
	require.NoError(t, err)

	seqs, err := st.GetDueSequences(ctx, fixedNow)
	require.NoError(t, err)

	var ids []uint
	for _, s := range seqs {
		ids = append(ids, s.ID)
		assert.True(t, s.IsDue(fixedNow))
	}
	assert.Equal(t, []uint{due, onTheDot}, ids)
}

func TestMarkSequenceSent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := mustCreateSequence(t, st, store.SequenceInput{Name: "manual"})
	require.NoError(t, st.MarkSequenceSent(ctx, id))

	seq, err := st.GetSequence(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusSent, seq.Status)
	require.NotNil(t, seq.SentAt)
	assert.True(t, seq.SentAt.Equal(fixedNow))

	due, err := st.GetDueSequences(ctx, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDispatchSequence(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := mustInsertLead(t, st, "A", "a@example.com")
	b := mustInsertLead(t, st, "B", "b@example.com")
	past := fixedNow.Add(-time.Minute)
	id := mustCreateSequence(t, st, store.SequenceInput{
		Name:        "launch",
		ScheduledAt: &past,
		Steps:       []store.StepInput{{StepIndex: 0, Subject: "s", Body: "b"}},
		LeadIDs:     []uint{a, b},
	})

	res, err := st.DispatchSequence(ctx, id, fixedNow)
	require.NoError(t, err)
	require.True(t, res.Sent)
	assert.Equal(t, []uint{a, b}, res.LeadIDs)

	sends := activityOfType(t, st, models.ActivitySend)
	require.Len(t, sends, 2)
	assert.Equal(t, fmt.Sprintf("sequence:%d lead:%d", id, b), sends[0].Details)
	assert.Equal(t, fmt.Sprintf("sequence:%d lead:%d", id, a), sends[1].Details)

	seq, err := st.GetSequence(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusSent, seq.Status)
	require.NotNil(t, seq.SentAt)

	t.Run("already sent writes nothing", func(t *testing.T) {
		res, err := st.DispatchSequence(ctx, id, fixedNow)
		require.NoError(t, err)
		assert.False(t, res.Sent)
		assert.Len(t, activityOfType(t, st, models.ActivitySend), 2)
	})
}

func TestDispatchSkipsPausedAndFutureSequences(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := mustInsertLead(t, st, "A", "a@example.com")
	past := fixedNow.Add(-time.Minute)
	future := fixedNow.Add(time.Minute)

	paused := mustCreateSequence(t, st, store.SequenceInput{Name: "paused", ScheduledAt: &past, LeadIDs: []uint{lead}})
	_, err := st.UpdateSequenceStatus(ctx, paused, models.SequenceStatusPaused)
	require.NoError(t, err)
	later := mustCreateSequence(t, st, store.SequenceInput{Name: "later", ScheduledAt: &future, LeadIDs: []uint{lead}})

	for _, id := range []uint{paused, later} {
		res, err := st.DispatchSequence(ctx, id, fixedNow)
		require.NoError(t, err)
		assert.False(t, res.Sent)
	}
	assert.Empty(t, activityOfType(t, st, models.ActivitySend))

	seq, err := st.GetSequence(ctx, paused)
	require.NoError(t, err)
	assert.Equal(t, models.SequenceStatusPaused, seq.Status)
}

func TestDeleteSequenceCascades(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := mustInsertLead(t, st, "A", "a@example.com")
	id := mustCreateSequence(t, st, store.SequenceInput{
		Name:    "doomed",
		Steps:   []store.StepInput{{StepIndex: 0, Subject: "s", Body: "b"}},
		LeadIDs: []uint{lead},
	})

	removed, err := st.DeleteSequence(ctx, id)
	require.NoError(t, err)
	require.True(t, removed)

	var steps, members int64
	require.NoError(t, st.DB().Model(&models.SequenceStep{}).Where("sequence_id = ?", id).Count(&steps).Error)
	require.NoError(t, st.DB().Model(&models.SequenceLead{}).Where("sequence_id = ?", id).Count(&members).Error)
	assert.Zero(t, steps)
	assert.Zero(t, members)

	_, err = st.GetLead(ctx, lead)
	require.NoError(t, err)

	removed, err = st.DeleteSequence(ctx, id)
	require.NoError(t, err)
	assert.False(t, removed)

	deletes := activityOfType(t, st, models.ActivityDelete)
	require.Len(t, deletes, 1)
	assert.Equal(t, fmt.Sprintf("sequence:%d deleted", id), deletes[0].Details)
}
