package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHub_PublishByIntent(t *testing.T) {
	hub := NewHub(4)

	ch, cancel := hub.SubscribeIntent("intent-1")
	defer cancel()

	hub.Publish(Event{Kind: KindMatchFound, IntentID: "intent-1", Timestamp: time.Now()})
	hub.Publish(Event{Kind: KindMatchFound, IntentID: "intent-2", Timestamp: time.Now()})

	select {
	case ev := <-ch:
		assert.Equal(t, KindMatchFound, ev.Kind)
		assert.Equal(t, "intent-1", ev.IntentID)
	default:
		t.Fatal("expected event for intent-1")
	}

	// Nothing else queued: intent-2 is not ours.
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

func TestHub_PublishByWallet(t *testing.T) {
	hub := NewHub(4)

	ch, cancel := hub.SubscribeWallet("wallet-a")
	defer cancel()

	hub.Publish(Event{Kind: KindNoMatch, IntentID: "i1", RequesterWallet: "wallet-a"})
	hub.Publish(Event{Kind: KindLeaseExpired, RequesterWallet: "wallet-a"})

	assert.Equal(t, KindNoMatch, (<-ch).Kind)
	assert.Equal(t, KindLeaseExpired, (<-ch).Kind)
}

func TestHub_PublishDoesNotBlockOnFullBuffer(t *testing.T) {
	hub := NewHub(1)

	ch, cancel := hub.SubscribeIntent("intent-1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(Event{Kind: KindNoMatch, IntentID: "intent-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// At least the first event made it through.
	assert.Equal(t, KindNoMatch, (<-ch).Kind)
}

func TestHub_CancelRemovesSubscription(t *testing.T) {
	hub := NewHub(4)

	ch, cancel := hub.SubscribeIntent("intent-1")
	cancel()

	hub.Publish(Event{Kind: KindMatchFound, IntentID: "intent-1"})

	select {
	case ev := <-ch:
		t.Fatalf("received event after cancel: %+v", ev)
	default:
	}
}
