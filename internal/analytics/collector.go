package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/kafka"
)

const defaultBufferSize = 10000

// Publisher is the part of *kafka.Producer the collector needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector decouples request handling from Kafka: Track never blocks and
// drops the event when the buffer is full.
type Collector struct {
	publisher Publisher
	eventCh   chan SearchEvent
	onDrop    func()
	logger    *slog.Logger

	// eventCh is never closed; Close signals through quit so a late Track
	// cannot panic.
	quit      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewCollector creates a collector with room for bufferSize pending events.
// onDrop, if non-nil, is called for every event dropped on a full buffer.
func NewCollector(publisher Publisher, bufferSize int, onDrop func()) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan SearchEvent, bufferSize),
		onDrop:    onDrop,
		logger:    slog.Default().With("component", "analytics-collector"),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. It stops when ctx is cancelled or Close
// is called, flushing buffered events in one batch.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event := <-c.eventCh:
				if err := c.publisher.Publish(ctx, eventMessage(event)); err != nil {
					c.logger.Error("failed to publish analytics event", "type", event.Type, "error", err)
				}
			case <-ctx.Done():
				c.drainRemaining()
				return
			case <-c.quit:
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track queues event for publishing. Events tracked after Close are
// dropped.
func (c *Collector) Track(event SearchEvent) {
	if c.closed.Load() {
		c.drop(event)
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case c.eventCh <- event:
	default:
		c.drop(event)
	}
}

func (c *Collector) drop(event SearchEvent) {
	if c.onDrop != nil {
		c.onDrop()
	}
	c.logger.Warn("analytics event dropped", "type", event.Type, "closed", c.closed.Load())
}

// Close stops accepting events, flushes what is buffered and waits for the
// publish loop to exit. It is safe to call more than once.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.quit)
	})
	<-c.done
}

func (c *Collector) drainRemaining() {
	var batch []kafka.Event
	for {
		select {
		case event := <-c.eventCh:
			batch = append(batch, eventMessage(event))
		default:
			c.flush(batch)
			return
		}
	}
}

func (c *Collector) flush(batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish remaining events", "count", len(batch), "error", err)
		return
	}
	c.logger.Info("flushed remaining analytics events", "count", len(batch))
}

// Events are keyed by query so all events of one query land on one partition.
func eventMessage(event SearchEvent) kafka.Event {
	return kafka.Event{Key: event.Query, Type: string(event.Type), Value: event}
}
