package events

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/librarian/internal/shared/id"
	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber queue length
const DefaultBuffer = 256

// TerminalWait bounds how long Emit waits on a full queue for an event
// that ends an install session
const TerminalWait = 500 * time.Millisecond

// reserved is the tail of a queue only terminal events may use
func reserved(buffer int) int {
	if buffer <= 1 {
		return 0
	}
	return max(buffer/8, 1)
}

// Bus fans events out to subscribers
type Bus struct {
	mu     sync.RWMutex
	subs   map[id.SubscriptionID]chan Event
	closed bool

	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// Subscription is a live registration on the bus. C is closed on Cancel
// or when the bus closes.
type Subscription struct {
	ID     id.SubscriptionID
	C      <-chan Event
	cancel func()
}

// Cancel removes the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancel()
}

// NewBus creates an event bus
func NewBus(metrics *monitoring.Metrics, logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bus{
		subs:    make(map[id.SubscriptionID]chan Event),
		metrics: metrics,
		logger:  logger.Named("events"),
	}
}

// Subscribe registers a subscriber with the given queue length
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)
	subID := id.NewSubscriptionID()

	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs[subID] = ch
	}
	b.mu.Unlock()

	var once sync.Once
	return &Subscription{
		ID: subID,
		C:  ch,
		cancel: func() {
			once.Do(func() { b.unsubscribe(subID) })
		},
	}
}

func (b *Bus) unsubscribe(subID id.SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[subID]; ok {
		delete(b.subs, subID)
		close(ch)
	}
}

// Emit delivers e to every subscriber. Ordinary events never block and
// leave the reserved tail of each queue free; terminal install events may
// use the whole queue and wait up to TerminalWait for room.
func (b *Bus) Emit(e Event) {
	b.metrics.RecordEvent(string(e.Type))

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	terminal := e.Type.Terminal()
	for subID, ch := range b.subs {
		if terminal {
			if b.sendTerminal(ch, e) {
				continue
			}
		} else if len(ch) < cap(ch)-reserved(cap(ch)) {
			select {
			case ch <- e:
				continue
			default:
			}
		}

		b.metrics.IncEventsDropped()
		b.logger.Warn("Dropping event for slow subscriber",
			zap.String("subscription", subID.String()),
			zap.String("type", string(e.Type)),
			zap.String("app_id", e.AppID))
	}
}

func (b *Bus) sendTerminal(ch chan Event, e Event) bool {
	select {
	case ch <- e:
		return true
	default:
	}

	timer := time.NewTimer(TerminalWait)
	defer timer.Stop()
	select {
	case ch <- e:
		return true
	case <-timer.C:
		return false
	}
}

// Subscribers returns the number of live subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription and drops later events
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for subID, ch := range b.subs {
		delete(b.subs, subID)
		close(ch)
	}
}

// Multi emits to several emitters in order
type Multi []Emitter

// Emit implements Emitter
func (m Multi) Emit(e Event) {
	for _, em := range m {
		em.Emit(e)
	}
}
