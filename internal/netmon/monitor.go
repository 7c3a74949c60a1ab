// Package netmon tracks connectivity to the remote backend and
// broadcasts online/offline transitions to subscribers.
package netmon

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// Event is a connectivity transition.
type Event struct {
	Online     bool
	WasOffline bool
}

// Prober reports whether the remote is currently reachable.
type Prober func(ctx context.Context) bool

// HTTPProber probes url with a HEAD request; any response counts as
// reachable (a 404 still proves the network path works).
func HTTPProber(client *http.Client, url string) Prober {
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}

// Subscription is a handle to a stream of connectivity events.
// Unsubscribe must be called on teardown.
type Subscription struct {
	C chan Event

	once    sync.Once
	monitor *Monitor
}

// Unsubscribe releases the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.monitor.remove(s)
	})
}

// Monitor polls a Prober and publishes transitions.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration

	mu       sync.Mutex
	online   bool
	subs     map[*Subscription]struct{}
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	running  bool
}

// New creates a monitor. The initial state is offline until the first
// probe (or SetOnline) says otherwise.
func New(prober Prober, interval, timeout time.Duration) *Monitor {
	return &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		subs:     make(map[*Subscription]struct{}),
		stopCh:   make(chan struct{}),
	}
}

// Start probes once immediately, then on every tick.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.ticker = time.NewTicker(m.interval)
	m.mu.Unlock()

	m.probe()

	go m.run()
	log.Printf("[Netmon] Started - interval: %v", m.interval)
}

func (m *Monitor) run() {
	for {
		select {
		case <-m.ticker.C:
			m.probe()
		case <-m.stopCh:
			log.Printf("[Netmon] Stopped")
			return
		}
	}
}

func (m *Monitor) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	m.SetOnline(m.prober(ctx))
}

// SetOnline forces the connectivity state. Transitions are broadcast;
// a no-op when the state is unchanged.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	wasOffline := !m.online
	m.online = online

	ev := Event{Online: online, WasOffline: wasOffline}
	var chans []chan Event
	for sub := range m.subs {
		chans = append(chans, sub.C)
	}
	m.mu.Unlock()

	if online {
		log.Printf("[Netmon] Network status changed: online")
	} else {
		log.Printf("[Netmon] Network status changed: offline")
	}

	for _, ch := range chans {
		// Drop rather than block a slow subscriber; only the latest
		// transition matters.
		select {
		case ch <- ev:
		default:
		}
	}
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers for connectivity events.
func (m *Monitor) Subscribe() *Subscription {
	sub := &Subscription{
		C:       make(chan Event, 4),
		monitor: m,
	}
	m.mu.Lock()
	m.subs[sub] = struct{}{}
	m.mu.Unlock()
	return sub
}

func (m *Monitor) remove(sub *Subscription) {
	m.mu.Lock()
	delete(m.subs, sub)
	m.mu.Unlock()
}

// Stop halts probing. Subscriptions remain valid but receive no more
// events.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.ticker != nil {
			m.ticker.Stop()
		}
		close(m.stopCh)
		m.running = false
	})
}
