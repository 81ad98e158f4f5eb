package progress

import (
	"sync"
	"time"
)

// Stage identifies where in a sync run an event was emitted.
type Stage string

const (
	StageStarted   Stage = "STARTED"
	StageFetching  Stage = "FETCHING"
	StageIngesting Stage = "INGESTING"
	StageCompleted Stage = "COMPLETED"
	StageFailed    Stage = "FAILED"
)

// Event is one progress update for a linked account's sync run.
type Event struct {
	AccountID  Topic     `json:"accountId"`
	Stage      Stage     `json:"stage"`
	Message    string    `json:"message,omitempty"`
	Fetched    int       `json:"fetched,omitempty"`
	Processed  int       `json:"processed,omitempty"`
	Duplicates int       `json:"duplicates,omitempty"`
	Failed     int       `json:"failed,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Topic is the subscription key, one per linked account.
type Topic = string

const subscriberBuffer = 16

// Broadcaster fans sync progress events out to any number of subscribers.
// Slow subscribers lose events rather than blocking the publisher.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[Topic]map[chan Event]struct{}
}

// NewBroadcaster creates a new progress broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[Topic]map[chan Event]struct{}),
	}
}

// Subscribe returns a channel of events for the topic and a cancel
// function. Cancel must be called to release the subscription; it closes
// the channel.
func (b *Broadcaster) Subscribe(topic Topic) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan Event]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], ch)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of its account's topic.
// Full subscriber buffers drop the event.
func (b *Broadcaster) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[event.AccountID] {
		select {
		case ch <- event:
		default:
		}
	}
}
