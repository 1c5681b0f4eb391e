package eventbus

import (
	"testing"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()
	b := New()
	ch1, unsub1 := b.Subscribe(4)
	ch2, unsub2 := b.Subscribe(4)
	defer unsub2()

	b.Publish(Event{Type: ReminderSent, Recipient: "acme"})
	for i, ch := range []<-chan Event{ch1, ch2} {
		e := <-ch
		if e.Type != ReminderSent || e.Recipient != "acme" || e.Time.IsZero() {
			t.Fatalf("subscriber %d got %+v", i, e)
		}
	}

	unsub1()
	unsub1()
	if _, ok := <-ch1; ok {
		t.Fatal("unsubscribed channel must be closed")
	}
	b.Publish(Event{Type: TickDone})
	if e := <-ch2; e.Type != TickDone {
		t.Fatalf("got %+v, want tick.done", e)
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "first"})
	b.Publish(Event{Type: "second"})
	if e := <-ch; e.Type != "first" {
		t.Fatalf("got %q, want first", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %+v", e)
	default:
	}
}
