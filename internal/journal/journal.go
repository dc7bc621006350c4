// Package journal records the actions dispatched to an appstate.Store so a
// session can be inspected, replayed, or streamed to analytics.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/storefront/internal/appstate"
	"github.com/google/uuid"
)

const (
	// SnapshotThreshold defines the number of events after which a snapshot is taken
	SnapshotThreshold = 10
	// PublishBuffer is how many events may wait for the publisher; events
	// beyond it are recorded but not published
	PublishBuffer = 256

	publishTimeout = 10 * time.Second
)

// Event is one recorded action
type Event struct {
	ID        string              `json:"id"`
	StreamID  string              `json:"stream_id"`
	Type      appstate.ActionType `json:"type"`
	Data      json.RawMessage     `json:"data"`
	Version   int                 `json:"version"`
	Timestamp time.Time           `json:"timestamp"`
}

// Action decodes the recorded payload
func (e Event) Action() (appstate.Action, error) {
	return appstate.DecodeAction(e.Type, e.Data)
}

// Snapshot is the store state as of Version
type Snapshot struct {
	StreamID  string          `json:"stream_id"`
	Version   int             `json:"version"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// Publisher forwards events outside the process (Kafka in production)
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Journal is an append-only, in-memory log for one store instance. Events
// are published from a background goroutine so recording never waits on
// the broker.
type Journal struct {
	mu       sync.RWMutex
	streamID string
	events   []Event
	snapshot *Snapshot

	publisher Publisher
	queue     chan Event
	done      chan struct{}
	closed    bool
	dropped   int
}

// New creates a journal for streamID; publisher may be nil. Call Close to
// flush pending events when a publisher is set.
func New(streamID string, publisher Publisher) *Journal {
	if streamID == "" {
		streamID = uuid.New().String()
	}
	j := &Journal{
		streamID:  streamID,
		publisher: publisher,
	}
	if publisher != nil {
		j.queue = make(chan Event, PublishBuffer)
		j.done = make(chan struct{})
		go j.publishLoop()
	}
	return j
}

func (j *Journal) publishLoop() {
	defer close(j.done)
	for event := range j.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := j.publisher.Publish(ctx, j.streamID, event)
		cancel()
		if err != nil {
			log.Printf("[Journal] Failed to publish event %s: %v", event.ID, err)
		}
	}
}

// Close stops accepting events for publishing and waits until the queued
// ones have been handed to the publisher. Recording continues after Close.
func (j *Journal) Close() {
	j.mu.Lock()
	if j.queue == nil || j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()
	<-j.done
}

// Dropped reports how many events were not published because the queue
// was full.
func (j *Journal) Dropped() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.dropped
}

func (j *Journal) StreamID() string {
	return j.streamID
}

// Append records a, whose application produced resulting, and queues it
// for publishing. A snapshot of resulting is kept every SnapshotThreshold
// events.
func (j *Journal) Append(a appstate.Action, resulting appstate.State) (*Event, error) {
	actionType, data, err := appstate.EncodeAction(a)
	if err != nil {
		return nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	event := Event{
		ID:        uuid.New().String(),
		StreamID:  j.streamID,
		Type:      actionType,
		Data:      data,
		Version:   len(j.events) + 1,
		Timestamp: time.Now(),
	}
	j.events = append(j.events, event)

	if event.Version%SnapshotThreshold == 0 {
		if err := j.takeSnapshot(event.Version, resulting); err != nil {
			log.Printf("[Journal] Failed to snapshot stream %s at version %d: %v", j.streamID, event.Version, err)
		}
	}

	if j.queue != nil && !j.closed {
		select {
		case j.queue <- event:
		default:
			j.dropped++
			log.Printf("[Journal] Publish queue full, event %s not published", event.ID)
		}
	}
	return &event, nil
}

// takeSnapshot stores the state at version. Caller holds mu.
func (j *Journal) takeSnapshot(version int, state appstate.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	j.snapshot = &Snapshot{
		StreamID:  j.streamID,
		Version:   version,
		State:     data,
		CreatedAt: time.Now(),
	}
	return nil
}

// Events returns all recorded events
func (j *Journal) Events() []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Event, len(j.events))
	copy(out, j.events)
	return out
}

// EventsFromVersion returns events with Version greater than version
func (j *Journal) EventsFromVersion(version int) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if version >= len(j.events) {
		return nil
	}
	if version < 0 {
		version = 0
	}
	out := make([]Event, len(j.events)-version)
	copy(out, j.events[version:])
	return out
}

// LatestSnapshot returns the most recent snapshot, or nil
func (j *Journal) LatestSnapshot() *Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.snapshot == nil {
		return nil
	}
	s := *j.snapshot
	return &s
}

// Replay rebuilds state from the latest snapshot plus later events
func (j *Journal) Replay() (appstate.State, error) {
	state := appstate.InitialState()
	from := 0

	if snap := j.LatestSnapshot(); snap != nil {
		if err := json.Unmarshal(snap.State, &state); err != nil {
			return appstate.State{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		from = snap.Version
	}

	for _, event := range j.EventsFromVersion(from) {
		a, err := event.Action()
		if err != nil {
			return appstate.State{}, fmt.Errorf("failed to decode event %d: %w", event.Version, err)
		}
		state = appstate.Reduce(state, a)
	}
	return state.Clone(), nil
}

// Attach records every transition of store until the returned function is
// called. Publishing happens off the dispatch path; the store is never
// affected by the broker.
func (j *Journal) Attach(store *appstate.Store) func() {
	return store.Subscribe(func(a appstate.Action, _, next appstate.State) {
		if _, err := j.Append(a, next); err != nil {
			log.Printf("[Journal] %v", err)
		}
	})
}
