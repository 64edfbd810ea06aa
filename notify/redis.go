package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrQueueFull = errors.New("event queue is full")

const (
	DefaultStreamMaxLen = 1000
	DefaultQueueSize    = 256
	publishTimeout      = 2 * time.Second
)

// StreamAdder is the part of a redis client the publisher needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type RedisStreamOptions struct {
	// StreamPrefix is followed by the tournament id, e.g. "tournament.events.42".
	StreamPrefix string
	MaxLen       int64
	QueueSize    int
}

type queuedEvent struct {
	tournamentID int
	event        Event
}

// RedisStreamPublisher appends events to a per-tournament Redis stream from a single
// worker. Publish only enqueues; a full queue drops the event.
type RedisStreamPublisher struct {
	client  StreamAdder
	opts    RedisStreamOptions
	queue   chan queuedEvent
	logger  *slog.Logger
	metrics Recorder

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewRedisStreamPublisher(client StreamAdder, opts RedisStreamOptions, logger *slog.Logger, metrics Recorder) *RedisStreamPublisher {
	if opts.StreamPrefix == "" {
		opts.StreamPrefix = "tournament.events."
	}
	if opts.MaxLen <= 0 {
		opts.MaxLen = DefaultStreamMaxLen
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &RedisStreamPublisher{
		client:  client,
		opts:    opts,
		queue:   make(chan queuedEvent, opts.QueueSize),
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

func (p *RedisStreamPublisher) Stream(tournamentID int) string {
	return p.opts.StreamPrefix + strconv.Itoa(tournamentID)
}

func (p *RedisStreamPublisher) Publish(_ context.Context, tournamentID int, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.RecordEventDropped("redis")
		return fmt.Errorf("redis publisher closed: %w", ErrQueueFull)
	}
	select {
	case p.queue <- queuedEvent{tournamentID: tournamentID, event: ev}:
		return nil
	default:
		p.metrics.RecordEventDropped("redis")
		return ErrQueueFull
	}
}

// Run drains the queue until Close is called and the queue is empty.
func (p *RedisStreamPublisher) Run() {
	defer close(p.done)
	for q := range p.queue {
		if err := p.write(q); err != nil {
			p.metrics.RecordEventDropped("redis")
			p.logger.Warn("failed to append event to redis stream",
				slog.Int("tournament_id", q.tournamentID),
				slog.String("event_id", q.event.ID),
				slog.Any("error", err))
			continue
		}
		p.metrics.RecordEventPublished("redis")
	}
}

func (p *RedisStreamPublisher) write(q queuedEvent) error {
	data, err := json.Marshal(q.event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.Stream(q.tournamentID),
		MaxLen: p.opts.MaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":          string(data),
			"type":          string(q.event.Type),
			"tournament_id": q.tournamentID,
			"phase":         string(q.event.State.Phase),
		},
	}).Err()
}

// Close stops accepting events and waits for the queued ones to be written.
func (p *RedisStreamPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
