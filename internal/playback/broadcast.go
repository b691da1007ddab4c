package playback

import "sync"

// Broadcast actions.
const (
	ActionStateUpdated = "playback_state_updated"
	ActionTokenUpdated = "token_updated"
	ActionError        = "error"
)

// View is the full state as broadcast to UI surfaces.
type View struct {
	CurrentIndex  int         `json:"currentIndex"`
	IsPlaying     bool        `json:"isPlaying"`
	TrackList     []string    `json:"trackList"`
	FullTrackInfo []TrackInfo `json:"fullTrackInfo"`
	PlaylistID    string      `json:"playlistId"`
	CurrentTime   float64     `json:"currentTime"`
	Duration      float64     `json:"duration"`
}

// Message is one broadcast. State updates embed the complete View.
type Message struct {
	Action string `json:"action"`
	*View
	Operation string `json:"operation,omitempty"`
	Error     string `json:"message,omitempty"`
}

const subscriptionBufferSize = 32

// Subscription receives broadcasts until Done is closed.
type Subscription struct {
	C    <-chan Message
	Done <-chan struct{}

	ch   chan Message
	done chan struct{}
	once sync.Once
}

func newSubscription() *Subscription {
	s := &Subscription{
		ch:   make(chan Message, subscriptionBufferSize),
		done: make(chan struct{}),
	}
	s.C = s.ch
	s.Done = s.done
	return s
}

// send delivers m without blocking. Slow subscribers lose messages.
func (s *Subscription) send(m Message) {
	select {
	case <-s.done:
	case s.ch <- m:
	default:
	}
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans messages out to subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscription {
	sub := newSubscription()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.close()
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its Done channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	sub.close()
}

// Publish sends m to every subscriber.
func (h *Hub) Publish(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		sub.send(m)
	}
}

// Close closes every subscription. Later subscriptions are closed on
// creation.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		sub.close()
	}
	h.subs = nil
}
