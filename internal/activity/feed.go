package activity

import (
	"sync"

	"github.com/nidhogg/spritedash/internal/events"
)

// FeedSize is how many recent events the dashboard shows.
const FeedSize = 5

// Feed keeps the most recent office events and fans new ones out to
// live subscribers.
type Feed struct {
	mu      sync.RWMutex
	size    int
	entries []*events.Event
	subs    map[chan *events.Event]struct{}
}

// NewFeed creates a feed holding up to size events.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = FeedSize
	}
	return &Feed{
		size: size,
		subs: make(map[chan *events.Event]struct{}),
	}
}

// Add appends an event, dropping the oldest once full. Subscribers that
// are not keeping up miss the event.
func (f *Feed) Add(e *events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	if len(f.entries) > f.size {
		f.entries = f.entries[len(f.entries)-f.size:]
	}
	for ch := range f.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Recent returns the retained events, oldest first.
func (f *Feed) Recent() []*events.Event {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*events.Event, len(f.entries))
	copy(out, f.entries)
	return out
}

// Subscribe registers a live listener. Call the returned func to release it.
func (f *Feed) Subscribe() (<-chan *events.Event, func()) {
	_, ch, release := f.SubscribeWithRecent()
	return ch, release
}

// SubscribeWithRecent registers a live listener and returns the events
// retained at that moment. Every event is in exactly one of the two.
func (f *Feed) SubscribeWithRecent() ([]*events.Event, <-chan *events.Event, func()) {
	ch := make(chan *events.Event, 16)
	f.mu.Lock()
	recent := make([]*events.Event, len(f.entries))
	copy(recent, f.entries)
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return recent, ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}
