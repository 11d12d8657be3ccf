package worker

import (
	"context"
	"errors"
	"time"

	"leadflow/models"
	"leadflow/store"
	"leadflow/utils"

	"github.com/sirupsen/logrus"
)

const DefaultDispatchInterval = 5 * time.Second

// SequenceStore is the part of the store the dispatcher needs
type SequenceStore interface {
	GetDueSequences(ctx context.Context, now time.Time) ([]models.Sequence, error)
	DispatchSequence(ctx context.Context, id uint, now time.Time) (store.DispatchResult, error)
}

// TickResult summarises one scan
type TickResult struct {
	Due    int
	Sent   int
	Sends  int
	Failed int

	// Skipped counts rows the store returned that were not due at now
	Skipped int
}

// DispatchWorker periodically fires every due sequence at once: one send
// activity per member lead, then the sequence is marked sent. Step delays
// are not honoured.
type DispatchWorker struct {
	Store    SequenceStore
	Logger   *logrus.Entry
	Interval time.Duration
	Now      func() time.Time
}

func NewDispatchWorker(st SequenceStore, logger *logrus.Entry, interval time.Duration) *DispatchWorker {
	if logger == nil {
		logger = utils.Component("dispatch")
	}
	if interval <= 0 {
		interval = DefaultDispatchInterval
	}
	return &DispatchWorker{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
	}
}

// Start scans once right away and then on every tick until ctx is cancelled
func (dw *DispatchWorker) Start(ctx context.Context) {
	dw.Logger.WithField("interval", dw.Interval.String()).Info("Dispatch worker started")

	ticker := time.NewTicker(dw.Interval)
	defer ticker.Stop()

	dw.runTick(ctx)
	for {
		select {
		case <-ctx.Done():
			dw.Logger.Info("Dispatch worker shutting down...")
			return
		case <-ticker.C:
			dw.runTick(ctx)
		}
	}
}

func (dw *DispatchWorker) runTick(ctx context.Context) {
	res, err := dw.Tick(ctx, dw.Now())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		utils.LogError("dispatch_scan_failed", err, nil)
		return
	}
	if res.Due > 0 {
		dw.Logger.WithFields(logrus.Fields{
			"due":     res.Due,
			"sent":    res.Sent,
			"sends":   res.Sends,
			"failed":  res.Failed,
			"skipped": res.Skipped,
		}).Info("Dispatch tick completed")
	}
}

// Tick dispatches every sequence due at now. Each sequence commits on its own,
// so one failure does not hold back the rest.
func (dw *DispatchWorker) Tick(ctx context.Context, now time.Time) (TickResult, error) {
	due, err := dw.Store.GetDueSequences(ctx, now)
	if err != nil {
		return TickResult{}, err
	}

	res := TickResult{Due: len(due)}
	for _, seq := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if !seq.IsDue(now) {
			res.Skipped++
			continue
		}

		out, err := dw.Store.DispatchSequence(ctx, seq.ID, now)
		if err != nil {
			res.Failed++
			utils.LogError("dispatch_sequence_failed", err, map[string]interface{}{
				"sequence_id": seq.ID,
			})
			continue
		}
		if !out.Sent {
			dw.Logger.WithField("sequence_id", seq.ID).Debug("Sequence no longer due, skipped")
			continue
		}

		res.Sent++
		res.Sends += len(out.LeadIDs)
		utils.LogEvent("sequence_sent", map[string]interface{}{
			"sequence_id": seq.ID,
			"name":        seq.Name,
			"leads":       len(out.LeadIDs),
		})
	}
	return res, nil
}
