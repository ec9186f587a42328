package events

import "testing"

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventGameUpdated)
	other := bus.Subscribe(EventGameDeleted)

	bus.Publish(EventGameUpdated, Payload{"game": "zelda-42"})

	select {
	case got := <-sub:
		if got["game"] != "zelda-42" {
			t.Fatalf("unexpected payload: %v", got)
		}
	default:
		t.Fatal("expected payload for subscriber")
	}

	select {
	case got := <-other:
		t.Fatalf("unrelated subscriber received %v", got)
	default:
	}
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventMigrationProgress)

	for i := 0; i < cap(sub)+4; i++ {
		bus.Publish(EventMigrationProgress, Payload{"done": i})
	}
	if len(sub) != cap(sub) {
		t.Fatalf("buffer holds %d payloads, want %d", len(sub), cap(sub))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventConsoleAdded)
	bus.Unsubscribe(EventConsoleAdded, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel")
	}
	// Unknown subscriber is ignored.
	bus.Unsubscribe(EventConsoleAdded, make(Subscriber))
	bus.Publish(EventConsoleAdded, Payload{})
}
