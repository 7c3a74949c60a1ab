package netmon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetOnlineBroadcastsTransitions(t *testing.T) {
	m := New(func(ctx context.Context) bool { return true }, time.Minute, time.Second)

	sub := m.Subscribe()
	defer sub.Unsubscribe()

	m.SetOnline(true)

	select {
	case ev := <-sub.C:
		if !ev.Online || !ev.WasOffline {
			t.Errorf("event = %+v, want online after offline", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	if !m.Online() {
		t.Error("Online() = false after SetOnline(true)")
	}
}

func TestSetOnlineSameStateIsSilent(t *testing.T) {
	m := New(func(ctx context.Context) bool { return false }, time.Minute, time.Second)

	sub := m.Subscribe()
	defer sub.Unsubscribe()

	// Already offline; no transition, no event.
	m.SetOnline(false)

	select {
	case ev := <-sub.C:
		t.Errorf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOfflineTransition(t *testing.T) {
	m := New(func(ctx context.Context) bool { return true }, time.Minute, time.Second)
	m.SetOnline(true)

	sub := m.Subscribe()
	defer sub.Unsubscribe()

	m.SetOnline(false)

	select {
	case ev := <-sub.C:
		if ev.Online {
			t.Errorf("event = %+v, want offline", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	m := New(func(ctx context.Context) bool { return true }, time.Minute, time.Second)

	sub := m.Subscribe()
	sub.Unsubscribe()
	sub.Unsubscribe() // safe to repeat

	m.SetOnline(true)

	select {
	case ev := <-sub.C:
		t.Errorf("unexpected event %+v after unsubscribe", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHTTPProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A 404 still proves reachability.
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	prober := HTTPProber(srv.Client(), srv.URL)
	if !prober(context.Background()) {
		t.Error("prober = false for reachable server")
	}

	srv.Close()
	down := HTTPProber(&http.Client{Timeout: time.Second}, srv.URL)
	if down(context.Background()) {
		t.Error("prober = true for closed server")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	m := New(func(ctx context.Context) bool { return true }, time.Minute, time.Second)

	sub := m.Subscribe() // never read
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		// More transitions than the channel buffers; must not hang.
		for i := 0; i < 20; i++ {
			m.SetOnline(i%2 == 0)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SetOnline blocked on a slow subscriber")
	}
}
