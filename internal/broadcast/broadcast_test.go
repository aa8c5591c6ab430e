package broadcast

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/nickbreaton/video-slug/internal/event"
	"github.com/nickbreaton/video-slug/internal/testutil"
)

func progressAt(n int64) event.Progress {
	return event.Progress{ID: "vid", DownloadedBytes: n}
}

func collect(ch <-chan event.Event) []event.Event {
	var out []event.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestSingleSubscriberOrder(t *testing.T) {
	s := New()
	ch, cancel := s.Subscribe()
	defer cancel()

	go func() {
		for i := int64(1); i <= 100; i++ {
			s.Publish(progressAt(i))
		}
		s.Close()
	}()

	events := collect(ch)
	if len(events) != 100 {
		t.Fatalf("expected 100 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.(event.Progress).DownloadedBytes != int64(i+1) {
			t.Fatalf("event %d out of order: %+v", i, ev)
		}
	}
}

func TestMultipleSubscribersSeeIdenticalSequence(t *testing.T) {
	s := New()

	const subscribers = 5
	chans := make([]<-chan event.Event, subscribers)
	for i := range chans {
		ch, cancel := s.Subscribe()
		defer cancel()
		chans[i] = ch
	}

	go func() {
		for i := int64(1); i <= 50; i++ {
			s.Publish(progressAt(i))
		}
		s.Close()
	}()

	var wg sync.WaitGroup
	results := make([][]event.Event, subscribers)
	for i := range chans {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = collect(chans[i])
		}(i)
	}
	wg.Wait()

	for i, events := range results {
		if len(events) != 50 {
			t.Fatalf("subscriber %d: expected 50 events, got %d", i, len(events))
		}
		for j, ev := range events {
			if ev.(event.Progress).DownloadedBytes != int64(j+1) {
				t.Fatalf("subscriber %d: event %d out of order", i, j)
			}
		}
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	s := New()
	s.Publish(progressAt(1))
	s.Publish(progressAt(2))

	ch, cancel := s.Subscribe()
	defer cancel()

	s.Publish(progressAt(3))
	s.Close()

	events := collect(ch)
	if len(events) != 1 {
		t.Fatalf("expected 1 event after subscription point, got %d", len(events))
	}
	if events[0].(event.Progress).DownloadedBytes != 3 {
		t.Errorf("expected event 3, got %+v", events[0])
	}
}

func TestSlowSubscriberDoesNotBlockProducer(t *testing.T) {
	s := New()
	_, cancelSlow := s.Subscribe() // never read from
	defer cancelSlow()

	published := make(chan struct{})
	go func() {
		for i := int64(0); i < 1000; i++ {
			s.Publish(progressAt(i))
		}
		close(published)
	}()

	select {
	case <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("producer blocked by an unread subscriber")
	}
	s.Close()
}

func TestFailSurfacesTerminalError(t *testing.T) {
	s := New()
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Publish(event.Message{Text: "ERROR: something"})
	wantErr := errors.New("boom")
	s.Fail(wantErr)
	s.Fail(errors.New("second failure ignored"))
	s.Close()

	events := collect(ch)
	if len(events) != 1 {
		t.Fatalf("expected buffered event before failure, got %d events", len(events))
	}
	if !errors.Is(s.Err(), wantErr) {
		t.Errorf("expected first terminal error to win, got %v", s.Err())
	}
}

func TestPublishAfterCloseDropped(t *testing.T) {
	s := New()
	s.Close()
	s.Publish(progressAt(1))

	ch, cancel := s.Subscribe()
	defer cancel()
	if events := collect(ch); len(events) != 0 {
		t.Errorf("expected no events on closed stream, got %d", len(events))
	}
	if s.Err() != nil {
		t.Errorf("expected nil terminal error, got %v", s.Err())
	}
}

func TestCancelReleasesSubscriberGoroutines(t *testing.T) {
	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	baseline := runtime.NumGoroutine()

	s := New()
	for i := 0; i < 20; i++ {
		_, cancel := s.Subscribe()
		cancel()
		cancel() // idempotent
	}
	// stream intentionally never terminated

	testutil.AssertNoGoroutineLeaks(t, baseline, 2)
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, cancel := s.Subscribe()
			defer cancel()
			last := int64(-1)
			for ev := range ch {
				n := ev.(event.Progress).DownloadedBytes
				if n <= last {
					panic(fmt.Sprintf("reordered or duplicated event: %d after %d", n, last))
				}
				last = n
			}
		}()
	}

	for i := int64(0); i < 200; i++ {
		s.Publish(progressAt(i))
	}
	s.Close()
	wg.Wait()
}
