// Package events fans the posted-today signal out to in-process subscribers and,
// when Redis is configured, to other instances of the service.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PostedTodayChannel is the Redis channel carrying PostedToday between instances.
const PostedTodayChannel = "spotme:events:posted-today"

// PostedToday is emitted after a check-in has been stored and the streak updated.
type PostedToday struct {
	UserID  string `json:"userId"`
	DateISO string `json:"dateISO"`
	PostID  string `json:"postId"`
}

// Handler receives events. It runs on the publisher's goroutine and must not block.
type Handler func(PostedToday)

type envelope struct {
	Origin string      `json:"origin"`
	Event  PostedToday `json:"event"`
}

// Broadcaster is safe for concurrent use. The zero value is not usable; call New.
type Broadcaster struct {
	rdb    *redis.Client
	origin string

	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
	order  []int
}

// New returns a Broadcaster. rdb may be nil, in which case delivery is local only.
func New(rdb *redis.Client) *Broadcaster {
	return &Broadcaster{
		rdb:    rdb,
		origin: uuid.NewString(),
		subs:   map[int]Handler{},
	}
}

// Subscribe registers h and returns a function that removes it.
func (b *Broadcaster) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers ev to local subscribers in registration order, then forwards it
// to Redis when configured. A Redis failure is returned but local delivery has
// already happened.
func (b *Broadcaster) Publish(ctx context.Context, ev PostedToday) error {
	b.deliver(ev)

	if b.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(envelope{Origin: b.origin, Event: ev})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, PostedTodayChannel, payload).Err()
}

// Relay subscribes to PostedTodayChannel and delivers events published by other
// instances until ctx is done. It returns immediately when Redis is not configured.
func (b *Broadcaster) Relay(ctx context.Context, onError func(error)) error {
	if b.rdb == nil {
		return nil
	}
	sub := b.rdb.Subscribe(ctx, PostedTodayChannel)
	// wait for the subscription to be confirmed so callers can publish right after
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				if env.Origin == b.origin {
					continue
				}
				b.deliver(env.Event)
			}
		}
	}()
	return nil
}

func (b *Broadcaster) deliver(ev PostedToday) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
