package main

import (
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Event types for usage tracking. Telemetry only: nothing here is ever
// read back to rebuild runtime state.
const (
	EvtSpaceCreated    = "space_created"
	EvtSpaceJoined     = "space_joined"
	EvtSpaceLeft       = "space_left"
	EvtChatSent        = "chat_sent"
	EvtProximityFormed = "proximity_formed"
	EvtProximityEnded  = "proximity_ended"
)

// AnalyticsEvent represents a single trackable event. Meta is a
// msgpack-encoded blob of event-specific details.
type AnalyticsEvent struct {
	Type      string
	UserID    string
	SpaceID   string
	Meta      []byte
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes.
// A nil *Analytics is valid and drops everything, so call sites never
// need to guard.
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, userID, spaceID string, meta interface{}) {
	if a == nil {
		return
	}
	var blob []byte
	if meta != nil {
		b, err := msgpack.Marshal(meta)
		if err != nil {
			Log.Debugf("analytics meta encode: %v", err)
		} else {
			blob = b
		}
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		UserID:    userID,
		SpaceID:   spaceID,
		Meta:      blob,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Channel full — drop the event rather than blocking a space
	}
}

// Stop gracefully shuts down the analytics writer
func (a *Analytics) Stop() {
	if a == nil {
		return
	}
	close(a.stop)
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			// Drain whatever is queued before exiting
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					if len(batch) > 0 {
						a.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (a *Analytics) flush(batch []AnalyticsEvent) {
	if err := a.db.InsertEvents(batch); err != nil {
		Log.Warnf("analytics flush failed (%d events): %v", len(batch), err)
	}
}
