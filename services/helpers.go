package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Dosada05/tournament-engine/metrics"
	"github.com/Dosada05/tournament-engine/models"
)

const DefaultRepositoryTimeout = 5 * time.Second

// keyedMutex serializes work per tournament id. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int]*keyedEntry)}
}

func (k *keyedMutex) Lock(id int) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &keyedEntry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultRepositoryTimeout
	}
	return context.WithTimeout(ctx, d)
}

// retryOnConflict runs fn again once when it fails with a state conflict.
// fn must reload everything it reads.
func retryOnConflict(rec *metrics.Recorder, operation string, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, models.ErrStateConflict) {
		return err
	}
	rec.RecordConflict(operation)
	err = fn()
	if err != nil && errors.Is(err, models.ErrStateConflict) {
		rec.RecordConflict(operation)
	}
	return err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, models.ErrStateConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrRuleViolation), errors.Is(err, models.ErrNotFound):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}
