package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"waterguard/internal/models"

	"github.com/google/uuid"
)

const DefaultTickInterval = 1500 * time.Millisecond

// ReadingStore is the rolling window the aggregator writes into.
type ReadingStore interface {
	Append(reading models.SensorReading)
	Latest() (models.SensorReading, bool)
	Snapshot() []models.SensorReading
	Capacity() int
}

// ReadingNotifier is told about every accepted reading. Errors are logged by
// the aggregator and never reach the producer.
type ReadingNotifier interface {
	NotifyReading(ctx context.Context, reading models.SensorReading) error
}

// StreamAggregator is the single producer in front of the reading store. In
// simulated mode it also owns the random-walk generator.
type StreamAggregator struct {
	mode         models.StreamMode
	store        ReadingStore
	tickInterval time.Duration
	notifiers    []ReadingNotifier
	now          func() time.Time

	simMu sync.Mutex
	state models.SimulationState
	rnd   RandomSource

	subMu sync.RWMutex
	subs  map[uuid.UUID]chan models.SensorReading
}

func NewStreamAggregator(mode models.StreamMode, store ReadingStore, tickInterval time.Duration) *StreamAggregator {
	if !models.IsValidStreamMode(mode) {
		slog.Warn("Unknown stream mode, falling back to simulated", "mode", mode)
		mode = models.StreamModeSimulated
	}
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	return &StreamAggregator{
		mode:         mode,
		store:        store,
		tickInterval: tickInterval,
		now:          time.Now,
		state:        SeedState,
		rnd:          newUnseededSource(),
		subs:         make(map[uuid.UUID]chan models.SensorReading),
	}
}

// SetRandomSource replaces the generator's source, mainly for tests.
func (a *StreamAggregator) SetRandomSource(rnd RandomSource) {
	a.simMu.Lock()
	defer a.simMu.Unlock()
	a.rnd = rnd
}

func (a *StreamAggregator) SetClock(now func() time.Time) {
	a.now = now
}

// AddNotifier must be called before the aggregator starts receiving readings.
func (a *StreamAggregator) AddNotifier(n ReadingNotifier) {
	a.notifiers = append(a.notifiers, n)
}

func (a *StreamAggregator) Mode() models.StreamMode {
	return a.mode
}

func (a *StreamAggregator) TickInterval() time.Duration {
	return a.tickInterval
}

// Accept appends a validated reading and fans it out.
func (a *StreamAggregator) Accept(ctx context.Context, reading models.SensorReading) {
	a.store.Append(reading)

	a.subMu.RLock()
	for id, ch := range a.subs {
		select {
		case ch <- reading:
		default:
			slog.Debug("Subscriber buffer full, dropping reading",
				"subscriber_id", id,
				"reading_id", reading.ID)
		}
	}
	a.subMu.RUnlock()

	for _, n := range a.notifiers {
		if err := n.NotifyReading(ctx, reading); err != nil {
			slog.Warn("Reading notifier failed",
				"reading_id", reading.ID,
				"notifier", notifierName(n),
				"error", err)
		}
	}
}

// Subscribe registers a channel that receives every accepted reading. The
// returned function unsubscribes and closes the channel.
func (a *StreamAggregator) Subscribe(buffer int) (<-chan models.SensorReading, func()) {
	if buffer < 1 {
		buffer = 1
	}
	id := uuid.New()
	ch := make(chan models.SensorReading, buffer)

	a.subMu.Lock()
	a.subs[id] = ch
	a.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.subs, id)
			a.subMu.Unlock()
			close(ch)
		})
	}
}

func (a *StreamAggregator) SubscriberCount() int {
	a.subMu.RLock()
	defer a.subMu.RUnlock()
	return len(a.subs)
}

func (a *StreamAggregator) Latest() (models.SensorReading, bool) {
	return a.store.Latest()
}

func (a *StreamAggregator) Snapshot() []models.SensorReading {
	return a.store.Snapshot()
}

func (a *StreamAggregator) Capacity() int {
	return a.store.Capacity()
}

// Tick produces one simulated reading. It is a no-op in live mode.
func (a *StreamAggregator) Tick(ctx context.Context) error {
	if a.mode != models.StreamModeSimulated {
		return nil
	}

	a.simMu.Lock()
	defer a.simMu.Unlock()

	a.state = StepSimulation(a.state, a.rnd, LiveBands)
	a.Accept(ctx, a.readingFromState(a.now()))
	return nil
}

// Backfill fills the window with warm-up points spaced one tick apart and
// ending at now, so charts start full. Notifiers are not called.
func (a *StreamAggregator) Backfill(now time.Time) {
	if a.mode != models.StreamModeSimulated {
		return
	}

	a.simMu.Lock()
	defer a.simMu.Unlock()

	n := a.store.Capacity()
	start := now.Add(-time.Duration(n-1) * a.tickInterval)
	for i := 0; i < n; i++ {
		a.state = StepSimulation(a.state, a.rnd, WarmupBands)
		a.store.Append(a.readingFromState(start.Add(time.Duration(i) * a.tickInterval)))
	}

	slog.Info("Simulated stream backfilled", "points", n, "tick_interval", a.tickInterval)
}

// State returns the current walk position.
func (a *StreamAggregator) State() models.SimulationState {
	a.simMu.Lock()
	defer a.simMu.Unlock()
	return a.state
}

func (a *StreamAggregator) readingFromState(ts time.Time) models.SensorReading {
	return models.SensorReading{
		ID:           uuid.New(),
		PH:           a.state.PH,
		Turbidity:    a.state.Turbidity,
		TDS:          a.state.TDS,
		Temperature:  a.state.Temperature,
		Conductivity: a.state.Conductivity,
		Timestamp:    ts,
		Source:       models.SourceSimulator,
	}
}

func notifierName(v any) string {
	return fmt.Sprintf("%T", v)
}
