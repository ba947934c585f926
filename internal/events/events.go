// Package events is the subscribe/notify channel between the core
// components and their front ends (TUI, HTTP API). It wraps
// asaskevich/EventBus with typed helpers.
package events

import (
	"fmt"
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// Topics. The payload type for each is noted alongside.
const (
	CatalogUpdated   = "catalog.updated"   // []ttypes.Voice
	SynthesisFailed  = "synthesis.failed"  // error
	PlaybackState    = "playback.state"    // audio.Snapshot
	PlaybackProgress = "playback.progress" // audio.Snapshot
	PlaybackFinished = "playback.finished" // audio.Snapshot
	BatchProgress    = "batch.progress"    // batch.Snapshot
	BatchLog         = "batch.log"         // batch.LogEntry
	BatchDone        = "batch.done"        // batch.Snapshot
)

// Bus is an in-process event bus. A nil *Bus discards publications.
//
// The underlying bus holds one dispatcher per topic; subscribers are kept
// in a registry keyed by an id so that removing one never affects another
// handler built from the same function literal.
type Bus struct {
	bus evbus.Bus

	mu     sync.RWMutex
	topics map[string][]*subscriber
	nextID uint64
	async  sync.WaitGroup
}

type subscriber struct {
	id      uint64
	deliver func(interface{})
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{bus: evbus.New(), topics: make(map[string][]*subscriber)}
}

// Publish delivers v to every handler of topic.
func (b *Bus) Publish(topic string, v interface{}) {
	if b == nil {
		return
	}
	b.bus.Publish(topic, v)
}

// WaitAsync blocks until asynchronous handlers have returned.
func (b *Bus) WaitAsync() {
	if b == nil {
		return
	}
	b.bus.WaitAsync()
	b.async.Wait()
}

// subscribe registers deliver under topic and returns a function that
// removes exactly that registration.
func (b *Bus) subscribe(topic string, deliver func(interface{})) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.topics[topic]; !ok {
		if err := b.bus.Subscribe(topic, func(v interface{}) { b.dispatch(topic, v) }); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], &subscriber{id: id, deliver: deliver})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}, nil
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[topic]
	for i, s := range subs {
		if s.id == id {
			// Copy so a dispatch in progress keeps its snapshot.
			next := make([]*subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			b.topics[topic] = append(next, subs[i+1:]...)
			return
		}
	}
}

// dispatch calls the topic's subscribers in subscription order.
func (b *Bus) dispatch(topic string, v interface{}) {
	b.mu.RLock()
	subs := b.topics[topic]
	b.mu.RUnlock()

	for _, s := range subs {
		s.deliver(v)
	}
}

// typed adapts fn to an untyped payload. Payloads of another type are
// ignored; a nil payload is delivered as the zero value.
func typed[T any](fn func(T)) func(interface{}) (func(), bool) {
	return func(v interface{}) (func(), bool) {
		if v == nil {
			var zero T
			return func() { fn(zero) }, true
		}
		t, ok := v.(T)
		if !ok {
			return nil, false
		}
		return func() { fn(t) }, true
	}
}

// On subscribes fn to topic and returns a function that removes it.
// Handlers run synchronously on the publisher's goroutine.
func On[T any](b *Bus, topic string, fn func(T)) (func(), error) {
	if b == nil {
		return func() {}, nil
	}
	bind := typed(fn)
	return b.subscribe(topic, func(v interface{}) {
		if call, ok := bind(v); ok {
			call()
		}
	})
}

// OnAsync is like On but runs fn on its own goroutine. Deliveries for the
// same handler are serialized in publication order.
func OnAsync[T any](b *Bus, topic string, fn func(T)) (func(), error) {
	if b == nil {
		return func() {}, nil
	}
	bind := typed(fn)
	var serial sync.Mutex
	return b.subscribe(topic, func(v interface{}) {
		call, ok := bind(v)
		if !ok {
			return
		}
		b.async.Add(1)
		serial.Lock()
		go func() {
			defer b.async.Done()
			defer serial.Unlock()
			call()
		}()
	})
}

// Chan forwards publications of topic into a buffered channel. Events are
// dropped when the channel is full so publishers never block.
func Chan[T any](b *Bus, topic string, size int) (<-chan T, func(), error) {
	ch := make(chan T, size)
	unsubscribe, err := On(b, topic, func(v T) {
		select {
		case ch <- v:
		default:
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return ch, unsubscribe, nil
}
