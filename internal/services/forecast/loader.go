package forecast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"weather-forecast/internal/models"
	"weather-forecast/internal/repositories"
	"weather-forecast/pkg/observe"
)

// State is one published snapshot. Status and Forecast always change together.
type State struct {
	Status     models.LoadStatus
	Forecast   *models.FiveDayForecast
	Err        error
	Query      string
	LoadID     string
	Generation uint64
	// Seq is the position of this state in publication order, starting at 1.
	Seq        uint64
	UpdatedAt  time.Time
}

// Observer receives every published State exactly once, in Seq order. Observers run without
// any loader lock held, so they may call Current or start another load. Current can already
// be ahead of the state being delivered.
type Observer func(State)

type Option func(*Loader)

// WithSingleFlight makes a resolving load discard its result when a newer load has started
// since, so only the most recent call is ever published.
func WithSingleFlight() Option {
	return func(l *Loader) {
		l.singleFlight = true
	}
}

// WithLoadTimeout bounds each fetch. Zero or negative means no bound.
func WithLoadTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.timeout = d
	}
}

// Loader drives the Idle -> Loading -> Success/Error state machine for forecast fetches.
// Loads are never canceled by a newer one; without WithSingleFlight they race and the one
// that resolves last is what observers see last.
type Loader struct {
	source       repositories.ForecastSource
	units        models.Units
	timeout      time.Duration
	singleFlight bool
	l            *observe.Logger

	mu         sync.RWMutex
	state      State
	generation uint64
	seq        uint64
	observers  map[int]Observer
	nextID     int

	// pending holds published states not yet delivered; one goroutine at a time drains it.
	pending   []State
	notifying bool
}

func NewLoader(
	source repositories.ForecastSource,
	units models.Units,
	l *observe.Logger,
	opts ...Option,
) (*Loader, error) {
	if source == nil {
		return nil, errors.New("forecast source is required")
	}
	if l == nil {
		l = observe.NewNopLogger()
	}

	loader := &Loader{
		source:    source,
		units:     units,
		l:         l,
		state:     State{Status: models.StatusIdle},
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(loader)
	}

	return loader, nil
}

// Current returns the latest published state.
func (l *Loader) Current() State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state
}

// Subscribe registers o and returns a function that removes it.
func (l *Loader) Subscribe(o Observer) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.observers[id] = o
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.observers, id)
			l.mu.Unlock()
		})
	}
}

// LoadForecast publishes Loading before it returns and then fetches query in the background.
// The fetch outlives ctx: only its values are kept, never its cancellation.
func (l *Loader) LoadForecast(ctx context.Context, query string) *Task {
	loadID := uuid.NewString()

	var task *Task
	l.publish(func(prev State) (State, bool) {
		l.generation++
		task = newTask(loadID, l.generation)

		return State{
			Status:     models.StatusLoading,
			Forecast:   prev.Forecast,
			Err:        nil,
			Query:      query,
			LoadID:     loadID,
			Generation: l.generation,
			UpdatedAt:  time.Now(),
		}, true
	})

	l.l.Info("forecast load started", map[string]any{
		"load_id":    loadID,
		"generation": task.Generation,
		"query":      query,
		"source":     l.source.Name(),
	})

	go l.run(context.WithoutCancel(ctx), task, query)

	return task
}

func (l *Loader) run(ctx context.Context, task *Task, query string) {
	started := time.Now()

	forecast, err := l.fetch(ctx, query)

	result := Result{
		LoadID:     task.LoadID,
		Generation: task.Generation,
		Forecast:   forecast,
		Err:        err,
	}

	l.publish(func(State) (State, bool) {
		if l.singleFlight && task.Generation != l.generation {
			result.Stale = true
			return State{}, false
		}

		next := State{
			Query:      query,
			LoadID:     task.LoadID,
			Generation: task.Generation,
			UpdatedAt:  time.Now(),
		}
		if err != nil {
			next.Status = models.StatusError
			next.Err = err
		} else {
			next.Status = models.StatusSuccess
			next.Forecast = forecast
		}
		return next, true
	})

	fields := map[string]any{
		"load_id":    task.LoadID,
		"generation": task.Generation,
		"query":      query,
		"duration":   time.Since(started).String(),
	}
	switch {
	case result.Stale:
		l.l.Debug("discarded stale forecast load", fields)
	case err != nil:
		fields["error"] = err.Error()
		l.l.Warning("forecast load failed", fields)
	default:
		fields["city"] = forecast.City.String()
		fields["periods"] = len(forecast.Periods)
		l.l.Info("forecast load succeeded", fields)
	}

	task.finish(result)
}

// fetch never panics: a panicking source becomes an error.
func (l *Loader) fetch(ctx context.Context, query string) (forecast *models.FiveDayForecast, err error) {
	defer func() {
		if r := recover(); r != nil {
			forecast = nil
			err = &models.NetworkError{Message: fmt.Sprintf("forecast source %s panicked: %v", l.source.Name(), r)}
			l.l.Error(errors.WithStack(err), map[string]any{"query": query})
		}
	}()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	forecast, err = l.source.FetchForecast(ctx, query, l.units)
	if err != nil {
		return nil, classify(err)
	}
	if forecast == nil {
		return nil, &models.MalformedResponseError{Reason: fmt.Sprintf("forecast source %s returned no forecast", l.source.Name())}
	}

	return forecast, nil
}

// classify keeps the two provider error kinds as they are and reports anything else,
// timeouts included, as a NetworkError.
func classify(err error) error {
	var netErr *models.NetworkError
	var malformed *models.MalformedResponseError
	if errors.As(err, &netErr) || errors.As(err, &malformed) {
		return err
	}
	return &models.NetworkError{Message: err.Error()}
}

// publish applies change and queues the new state for observers. The first publisher to find
// the queue idle delivers it, including states queued meanwhile, outside the lock.
func (l *Loader) publish(change func(prev State) (State, bool)) {
	l.mu.Lock()
	next, ok := change(l.state)
	if !ok {
		l.mu.Unlock()
		return
	}
	l.seq++
	next.Seq = l.seq
	l.state = next
	l.pending = append(l.pending, next)

	if l.notifying {
		l.mu.Unlock()
		return
	}
	l.notifying = true
	delivered := false
	defer func() {
		if !delivered {
			// a panicking observer must not leave the queue claimed
			l.mu.Lock()
			l.notifying = false
			l.mu.Unlock()
		}
	}()

	for len(l.pending) > 0 {
		batch := l.pending
		l.pending = nil
		observers := l.subscribed()
		l.mu.Unlock()

		for _, s := range batch {
			for _, o := range observers {
				o(s)
			}
		}

		l.mu.Lock()
	}
	l.notifying = false
	delivered = true
	l.mu.Unlock()
}

// subscribed lists observers in subscription order. Callers hold mu.
func (l *Loader) subscribed() []Observer {
	observers := make([]Observer, 0, len(l.observers))
	for id := 0; id < l.nextID; id++ {
		if o, found := l.observers[id]; found {
			observers = append(observers, o)
		}
	}
	return observers
}
