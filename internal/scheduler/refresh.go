package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"weather-forecast/internal/services/forecast"
	"weather-forecast/pkg/observe"
)

type ForecastLoader interface {
	LoadForecast(ctx context.Context, query string) *forecast.Task
}

// RefreshScheduler reloads one query on a cron schedule. A tick that fires while the previous
// load is still pending is skipped; failed loads are not retried.
type RefreshScheduler struct {
	cron   *cron.Cron
	loader ForecastLoader
	spec   string
	query  string
	l      *observe.Logger

	mu      sync.Mutex
	started bool
}

func NewRefreshScheduler(loader ForecastLoader, spec, query string, l *observe.Logger) *RefreshScheduler {
	if l == nil {
		l = observe.NewNopLogger()
	}

	logger := cronLogger{l: l}

	return &RefreshScheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		loader: loader,
		spec:   strings.TrimSpace(spec),
		query:  query,
		l:      l,
	}
}

// Start schedules the refresh job. An empty spec leaves the scheduler disabled.
func (s *RefreshScheduler) Start() error {
	if s.spec == "" {
		s.l.Info("forecast refresh disabled: no cron expression")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("refresh scheduler already started")
	}

	if _, err := s.cron.AddFunc(s.spec, s.Refresh); err != nil {
		return errors.Wrapf(err, "invalid refresh cron expression %q", s.spec)
	}

	s.cron.Start()
	s.started = true

	s.l.Info("forecast refresh scheduler started", map[string]any{
		"cron":  s.spec,
		"query": s.query,
	})

	return nil
}

// Refresh runs one load and waits for it to resolve.
func (s *RefreshScheduler) Refresh() {
	runID := uuid.NewString()

	s.l.Debug("forecast refresh triggered", map[string]any{"run_id": runID, "query": s.query})

	result := s.loader.LoadForecast(context.Background(), s.query).Wait()

	fields := map[string]any{
		"run_id":  runID,
		"load_id": result.LoadID,
		"query":   s.query,
	}
	if result.Err != nil {
		fields["error"] = result.Err.Error()
		s.l.Warning("scheduled forecast refresh failed", fields)
		return
	}

	s.l.Info("scheduled forecast refresh completed", fields)
}

// Stop waits for a running refresh to finish or ctx to end.
func (s *RefreshScheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger routes cron's own messages through observe.Logger.
type cronLogger struct {
	l *observe.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keyValueFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := keyValueFields(keysAndValues)
	fields["cron_msg"] = msg
	c.l.Error(err, fields)
}

func keyValueFields(keysAndValues []interface{}) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
