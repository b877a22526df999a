package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan SessionStartedEvent, 1)

	unsub := bus.Subscribe(func(e SessionStartedEvent) {
		received <- e
	})
	defer unsub()

	ev := SessionStartedEvent{SessionID: "s1", Destination: "out.mp4", Duration: 5}
	bus.Publish(ev)

	select {
	case got := <-received:
		if got.Destination != ev.Destination {
			t.Errorf("Expected destination %s, got %s", ev.Destination, got.Destination)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CaptureErrorEvent, 1)

	unsub := bus.Subscribe(func(e CaptureErrorEvent) {
		received <- e
	})

	bus.Publish(CaptureErrorEvent{Stage: "write"})
	<-received

	unsub()

	bus.Publish(CaptureErrorEvent{Stage: "decode"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	flushed := make(chan bool, 1)
	finished := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ StreamFlushedEvent) { flushed <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(_ SessionFinishedEvent) { finished <- true })
	defer unsub2()

	bus.Publish(StreamFlushedEvent{Index: 0})
	<-flushed

	select {
	case <-finished:
		t.Fatal("Finished subscriber should NOT have received StreamFlushedEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)
	unsub := bus.Subscribe(func(_ StreamOpenedEvent) { receivedCh <- true })
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range eventsPerGoroutine {
				bus.Publish(StreamOpenedEvent{Index: i, Kind: "video"})
			}
		}()
	}
	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"SessionStarted", SessionStartedEvent{SessionID: "s"}},
		{"StreamOpened", StreamOpenedEvent{Kind: "audio"}},
		{"CaptureError", CaptureErrorEvent{Stage: "encode"}},
		{"StreamFlushed", StreamFlushedEvent{Packets: 3}},
		{"SessionFinished", SessionFinishedEvent{Status: "succeeded"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan any, 1)
			var unsub func()
			switch tt.event.(type) {
			case SessionStartedEvent:
				unsub = SubscribeToChannel[SessionStartedEvent](bus, received)
			case StreamOpenedEvent:
				unsub = SubscribeToChannel[StreamOpenedEvent](bus, received)
			case CaptureErrorEvent:
				unsub = SubscribeToChannel[CaptureErrorEvent](bus, received)
			case StreamFlushedEvent:
				unsub = SubscribeToChannel[StreamFlushedEvent](bus, received)
			case SessionFinishedEvent:
				unsub = SubscribeToChannel[SessionFinishedEvent](bus, received)
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestBus_NilPublish(_ *testing.T) {
	var bus *Bus
	bus.Publish(SessionFinishedEvent{Status: "failed"})
}

func TestBus_UnknownHandler(_ *testing.T) {
	unsub := New().Subscribe(func(string) {})
	unsub()
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any)

	unsub := SubscribeToChannel[SessionFinishedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(SessionFinishedEvent{Status: "succeeded"})
		done <- true
	}()
	<-done
}

func TestSessionFinishedEventJSON(t *testing.T) {
	data, err := json.Marshal(SessionFinishedEvent{SessionID: "s1", Status: "failed", Error: "write", Elapsed: 2.5})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if result["status"] != "failed" || result["elapsed_seconds"] != 2.5 {
		t.Errorf("Unexpected JSON: %s", data)
	}
}
