package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []*Event
	done   chan struct{}
}

func (c *captureEmitter) Emit(ctx context.Context, event *Event) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	if c.done != nil {
		close(c.done)
	}
	return nil
}

func TestEmitAsync_NilEmitterAndEvent(t *testing.T) {
	// Must not panic or spawn goroutines.
	EmitAsync(nil, context.Background(), &Event{EventType: "auth.login_success"})
	EmitAsync(&captureEmitter{}, context.Background(), nil)
}

func TestEmitAsync_DeliversEvent(t *testing.T) {
	em := &captureEmitter{done: make(chan struct{})}
	EmitAsync(em, context.Background(), &Event{Subject: "acct1", EventType: "auth.logout"})

	select {
	case <-em.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not emitted")
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.events) != 1 || em.events[0].Subject != "acct1" {
		t.Fatalf("unexpected events: %+v", em.events)
	}
}

func TestEmitAsync_SurvivesCancelledRequestContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	em := &captureEmitter{done: make(chan struct{})}
	EmitAsync(em, ctx, &Event{EventType: "auth.login_failure"})

	select {
	case <-em.done:
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled request context must not abort the emit")
	}
}
