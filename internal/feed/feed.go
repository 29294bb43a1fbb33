// Package feed publishes simulator snapshots as a stream of encoded records
// to UDP, serial and pcap sinks on a fixed interval.
package feed

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/phoenix.tracksim/internal/monitoring"
	"github.com/banshee-data/phoenix.tracksim/internal/sim"
	"github.com/banshee-data/phoenix.tracksim/internal/timeutil"
)

// Source produces the snapshot published each interval. *sim.Simulator
// satisfies it.
type Source interface {
	Snapshot() sim.MasterTable
}

// Stats counts what a Feed has published.
type Stats struct {
	Frames  uint64 `json:"frames"`
	Records uint64 `json:"records"`
	Errors  uint64 `json:"errors"`
	Sinks   int    `json:"sinks"`
}

type Feed struct {
	src      Source
	clock    timeutil.Clock
	interval time.Duration
	sinks    []Sink

	frames  atomic.Uint64
	records atomic.Uint64
	errs    atomic.Uint64

	subscriberMu sync.Mutex
	subscribers  map[string]chan string
	closed       bool
}

// New creates a feed publishing src every interval. A nil clock uses the
// wall clock.
func New(src Source, clock timeutil.Clock, interval time.Duration, sinks ...Sink) (*Feed, error) {
	if interval <= 0 {
		return nil, errors.New("feed interval must be positive")
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Feed{
		src:         src,
		clock:       clock,
		interval:    interval,
		sinks:       sinks,
		subscribers: make(map[string]chan string),
	}, nil
}

// Run publishes on every tick until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	ticker := f.clock.NewTicker(f.interval)
	defer ticker.Stop()

	for _, s := range f.sinks {
		monitoring.Logf("feed: publishing to %s every %s", s, f.interval)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			f.Publish()
		}
	}
}

// Publish takes one snapshot and sends its records, primary tracks first, to
// every sink. A failing sink is logged and skipped for the rest of the frame.
// It returns the number of records taken from the snapshot.
func (f *Feed) Publish() int {
	table := f.src.Snapshot()
	records := table.Records()
	f.frames.Add(1)

	for _, s := range f.sinks {
		for i, rec := range records {
			if err := s.Send(rec); err != nil {
				f.errs.Add(1)
				monitoring.Logf("feed: frame %d: %s: record %d of %d: %v", table.FrameIndex, s, i+1, len(records), err)
				break
			}
			f.records.Add(1)
		}
	}
	f.broadcast(records)
	return len(records)
}

func (f *Feed) broadcast(records [][]byte) {
	f.subscriberMu.Lock()
	defer f.subscriberMu.Unlock()
	if len(f.subscribers) == 0 {
		return
	}
	for _, rec := range records {
		line := hex.EncodeToString(rec)
		for _, ch := range f.subscribers {
			select {
			case ch <- line:
			default:
			}
		}
	}
}

// Stats returns the running counters.
func (f *Feed) Stats() Stats {
	return Stats{
		Frames:  f.frames.Load(),
		Records: f.records.Load(),
		Errors:  f.errs.Load(),
		Sinks:   len(f.sinks),
	}
}

// Subscribe returns a channel receiving every published record as hex. Slow
// subscribers miss records rather than stalling the feed.
func (f *Feed) Subscribe() (string, chan string) {
	f.subscriberMu.Lock()
	defer f.subscriberMu.Unlock()

	id := uuid.NewString()
	ch := make(chan string, 256)
	if f.closed {
		close(ch)
		return id, ch
	}
	f.subscribers[id] = ch
	return id, ch
}

// Unsubscribe closes and removes the channel registered under id.
func (f *Feed) Unsubscribe(id string) {
	f.subscriberMu.Lock()
	defer f.subscriberMu.Unlock()
	if ch, ok := f.subscribers[id]; ok {
		close(ch)
		delete(f.subscribers, id)
	}
}

// Close closes every subscriber and every sink.
func (f *Feed) Close() error {
	f.subscriberMu.Lock()
	for id, ch := range f.subscribers {
		close(ch)
		delete(f.subscribers, id)
	}
	f.closed = true
	f.subscriberMu.Unlock()

	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
