// Package events carries domain notifications emitted after successful writes.
package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Event is a notification with a routing name such as "rating.submitted".
type Event interface {
	Name() string
}

// RatingSubmitted is emitted once a rating write and its store recompute commit.
type RatingSubmitted struct {
	RatingID          string    `json:"ratingId"`
	UserID            string    `json:"userId"`
	StoreID           string    `json:"storeId"`
	Rating            int       `json:"rating"`
	PreviousRating    *int      `json:"previousRating,omitempty"`
	Inserted          bool      `json:"inserted"`
	StoreRating       float64   `json:"storeRating"`
	StoreTotalRatings int       `json:"storeTotalRatings"`
	OccurredAt        time.Time `json:"occurredAt"`
}

func (RatingSubmitted) Name() string { return "rating.submitted" }

// StoreAggregateRecomputed is emitted when an aggregate is rebuilt on request.
type StoreAggregateRecomputed struct {
	StoreID      string    `json:"storeId"`
	Rating       float64   `json:"rating"`
	TotalRatings int       `json:"totalRatings"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func (StoreAggregateRecomputed) Name() string { return "store.recomputed" }

// StoreCreated is emitted when a store is provisioned.
type StoreCreated struct {
	StoreID    string    `json:"storeId"`
	OwnerID    string    `json:"ownerId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (StoreCreated) Name() string { return "store.created" }

// StoreDeleted is emitted when a store without ratings is removed.
type StoreDeleted struct {
	StoreID    string    `json:"storeId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (StoreDeleted) Name() string { return "store.deleted" }

// UserCreated is emitted on signup and admin provisioning.
type UserCreated struct {
	UserID     string    `json:"userId"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (UserCreated) Name() string { return "user.created" }

// UserDeleted is emitted when an account is removed.
type UserDeleted struct {
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (UserDeleted) Name() string { return "user.deleted" }

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Func adapts a function to Publisher.
type Func func(ctx context.Context, event Event) error

func (f Func) Publish(ctx context.Context, event Event) error { return f(ctx, event) }

// Fanout delivers each event to every publisher, joining their errors.
func Fanout(publishers ...Publisher) Publisher {
	return fanout(publishers)
}

type fanout []Publisher

func (f fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory, for tests and diagnostics.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
