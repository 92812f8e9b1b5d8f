package memory

import (
	"context"
	"sync"

	"pubgame-service/internal/domain"
)

const subscriberBuffer = 64

// Broker is the in-process bus.Channel: one status and one answer topic per
// game id, fanned out over buffered subscriber channels. Good for tests and
// single-instance deployments.
type Broker struct {
	mu     sync.Mutex
	closed bool
	status map[string]*topic[domain.StatusEvent]
	answer map[string]*topic[domain.PlayerAnswer]
}

func NewBroker() *Broker {
	return &Broker{
		status: make(map[string]*topic[domain.StatusEvent]),
		answer: make(map[string]*topic[domain.PlayerAnswer]),
	}
}

// Close shuts the broker down: every subscriber channel is closed and later
// publishes or subscribes fail with ErrChannelClosed.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, t := range b.status {
		t.closeAll()
	}
	for _, t := range b.answer {
		t.closeAll()
	}
}

func (b *Broker) statusTopic(gameID string) (*topic[domain.StatusEvent], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, domain.ErrChannelClosed
	}
	t, ok := b.status[gameID]
	if !ok {
		t = newTopic[domain.StatusEvent]()
		b.status[gameID] = t
	}
	return t, nil
}

func (b *Broker) answerTopic(gameID string) (*topic[domain.PlayerAnswer], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, domain.ErrChannelClosed
	}
	t, ok := b.answer[gameID]
	if !ok {
		t = newTopic[domain.PlayerAnswer]()
		b.answer[gameID] = t
	}
	return t, nil
}

func (b *Broker) PublishStatus(_ context.Context, gameID string, evt domain.StatusEvent) error {
	t, err := b.statusTopic(gameID)
	if err != nil {
		return err
	}
	t.publish(evt)
	return nil
}

func (b *Broker) PublishAnswer(_ context.Context, gameID string, ans domain.PlayerAnswer) error {
	t, err := b.answerTopic(gameID)
	if err != nil {
		return err
	}
	t.publish(ans)
	return nil
}

func (b *Broker) SubscribeStatus(_ context.Context, gameID string) (<-chan domain.StatusEvent, func(), error) {
	t, err := b.statusTopic(gameID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := t.subscribe()
	return ch, cancel, nil
}

func (b *Broker) SubscribeAnswer(_ context.Context, gameID string) (<-chan domain.PlayerAnswer, func(), error) {
	t, err := b.answerTopic(gameID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := t.subscribe()
	return ch, cancel, nil
}

type topic[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

func newTopic[T any]() *topic[T] {
	return &topic[T]{subs: make(map[chan T]struct{})}
}

func (t *topic[T]) subscribe() (<-chan T, func()) {
	ch := make(chan T, subscriberBuffer)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		if _, ok := t.subs[ch]; ok {
			delete(t.subs, ch)
			close(ch)
		}
		t.mu.Unlock()
	}
	return ch, cancel
}

func (t *topic[T]) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ch := range t.subs {
		delete(t.subs, ch)
		close(ch)
	}
}

// publish delivers v to every subscriber in order. A subscriber more than
// subscriberBuffer events behind loses its oldest event rather than
// blocking the publisher.
func (t *topic[T]) publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ch := range t.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}
