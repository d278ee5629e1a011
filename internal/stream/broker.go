package stream

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vofas/vofas-backend/domain/entities"
)

const (
	// subscriberBuffer is the per-subscriber channel capacity. Delivery to
	// slow subscribers is best effort, events past this buffer are dropped.
	subscriberBuffer = 64

	// replayCapacity bounds the ring of recently completed feedback kept
	// for replay-at-subscribe.
	replayCapacity = 32
)

// Subscription is one reader's view of the completed-feedback stream.
type Subscription struct {
	id int
	ch chan *entities.Feedback
}

// Events returns the channel events are delivered on. It is closed when the
// subscription is cancelled or the broker shuts down.
func (s *Subscription) Events() <-chan *entities.Feedback {
	return s.ch
}

// Broker is a process-wide multicast channel over "feedback became COMPLETED"
// events. Subscribers attached at different times each receive every event
// published after they attach; a subscriber may additionally request a replay
// of the most recently completed items.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]*Subscription
	nextID int
	replay []*entities.Feedback
	closed bool
	logger *zap.Logger
}

// NewBroker creates an empty broker.
func NewBroker(logger *zap.Logger) *Broker {
	return &Broker{
		subs:   make(map[int]*Subscription),
		logger: logger,
	}
}

// Publish fans a completed feedback out to every current subscriber and
// records it in the replay ring. Publish never blocks: a subscriber whose
// buffer is full misses the event.
func (b *Broker) Publish(feedback *entities.Feedback) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.replay = append(b.replay, feedback)
	if len(b.replay) > replayCapacity {
		b.replay = b.replay[len(b.replay)-replayCapacity:]
	}

	for _, sub := range b.subs {
		select {
		case sub.ch <- feedback:
		default:
			b.logger.Warn("Subscriber buffer full, dropping event",
				zap.Int("subscriber", sub.id),
				zap.String("feedbackID", feedback.ID))
		}
	}
}

// Subscribe attaches a new reader. When replay > 0, up to that many of the
// most recently completed items are delivered first, in arrival order, before
// any live event. Replay snapshot and registration happen under the same lock
// that Publish takes, so there is no gap or duplicate at the switchover.
func (b *Broker) Subscribe(replay int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if replay < 0 {
		replay = 0
	}
	if replay > len(b.replay) {
		replay = len(b.replay)
	}
	sub := &Subscription{
		ch: make(chan *entities.Feedback, subscriberBuffer+replay),
	}
	if b.closed {
		close(sub.ch)
		return sub
	}

	for _, feedback := range b.replay[len(b.replay)-replay:] {
		sub.ch <- feedback
	}

	sub.id = b.nextID
	b.nextID++
	b.subs[sub.id] = sub

	b.logger.Info("Feedback stream subscriber attached",
		zap.Int("subscriber", sub.id),
		zap.Int("replayed", replay))

	return sub
}

// Unsubscribe detaches a reader and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)

	b.logger.Info("Feedback stream subscriber detached", zap.Int("subscriber", sub.id))
}

// Close tears the broker down at shutdown, closing every subscriber channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
