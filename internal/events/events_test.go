package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	first := &Recorder{}
	second := &Recorder{}
	boom := errors.New("boom")
	failing := Func(func(context.Context, Event) error { return boom })

	pub := Fanout(first, nil, failing, second)
	err := pub.Publish(context.Background(), StoreCreated{StoreID: "s1"})
	if !errors.Is(err, boom) {
		t.Fatalf("Publish error = %v, want boom", err)
	}
	if len(first.Events()) != 1 || len(second.Events()) != 1 {
		t.Fatalf("fanout skipped a publisher: %d, %d", len(first.Events()), len(second.Events()))
	}
}

func TestRatingSubmittedPayload(t *testing.T) {
	prev := 5
	evt := RatingSubmitted{
		RatingID:          "r1",
		UserID:            "u1",
		StoreID:           "s1",
		Rating:            3,
		PreviousRating:    &prev,
		StoreRating:       3.5,
		StoreTotalRatings: 2,
		OccurredAt:        time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
	if evt.Name() != "rating.submitted" {
		t.Fatalf("Name() = %s", evt.Name())
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["previousRating"].(float64) != 5 || decoded["inserted"].(bool) {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestNopPublisher(t *testing.T) {
	if err := (Nop{}).Publish(context.Background(), UserCreated{UserID: "u1"}); err != nil {
		t.Fatalf("Nop.Publish error: %v", err)
	}
}
