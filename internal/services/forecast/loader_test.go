package forecast_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-forecast/internal/models"
	"weather-forecast/internal/services/forecast"
	"weather-forecast/pkg/observe"
)

type response struct {
	forecast *models.FiveDayForecast
	err      error
}

// MockSource blocks each fetch until a response for its query is released.
type MockSource struct {
	mu      sync.Mutex
	gates   map[string]chan response
	started chan string
	units   []models.Units
}

func NewMockSource() *MockSource {
	return &MockSource{
		gates:   make(map[string]chan response),
		started: make(chan string, 16),
	}
}

func (m *MockSource) gate(query string) chan response {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.gates[query]
	if !ok {
		g = make(chan response, 1)
		m.gates[query] = g
	}
	return g
}

func (m *MockSource) release(query string, f *models.FiveDayForecast, err error) {
	m.gate(query) <- response{forecast: f, err: err}
}

func (m *MockSource) Name() string {
	return "mock"
}

func (m *MockSource) FetchForecast(ctx context.Context, query string, units models.Units) (*models.FiveDayForecast, error) {
	m.mu.Lock()
	m.units = append(m.units, units)
	m.mu.Unlock()
	m.started <- query

	select {
	case r := <-m.gate(query):
		return r.forecast, r.err
	case <-ctx.Done():
		return nil, &models.NetworkError{Message: ctx.Err().Error()}
	}
}

type panicSource struct{}

func (panicSource) Name() string { return "panicky" }

func (panicSource) FetchForecast(context.Context, string, models.Units) (*models.FiveDayForecast, error) {
	panic("boom")
}

func sampleForecast(city string) *models.FiveDayForecast {
	return &models.FiveDayForecast{
		City: models.ForecastCity{Name: city, Lat: 44.56, Lon: -123.26, TZOffsetSec: -25200},
		Periods: []models.ForecastPeriod{
			{
				Epoch:       1753455600,
				HighTemp:    72,
				LowTemp:     61,
				Pop:         37,
				CloudCover:  75,
				WindSpeed:   8,
				WindDirDeg:  225,
				Description: "light rain",
				IconURL:     "https://openweathermap.org/img/wn/10d@4x.png",
			},
		},
	}
}

func newLoader(t *testing.T, source *MockSource, opts ...forecast.Option) *forecast.Loader {
	t.Helper()
	loader, err := forecast.NewLoader(source, models.UnitsImperial, observe.NewNopLogger(), opts...)
	require.NoError(t, err)
	return loader
}

// recorder collects every published state.
type recorder struct {
	mu     sync.Mutex
	states []forecast.State
}

func (r *recorder) observe(s forecast.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) statuses() []models.LoadStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.LoadStatus, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.Status)
	}
	return out
}

func wait(t *testing.T, task *forecast.Task) forecast.Result {
	t.Helper()
	select {
	case <-task.Done():
		return task.Wait()
	case <-time.After(2 * time.Second):
		t.Fatal("load did not resolve")
		return forecast.Result{}
	}
}

func TestNewLoader_RequiresSource(t *testing.T) {
	loader, err := forecast.NewLoader(nil, models.UnitsImperial, nil)
	assert.Nil(t, loader)
	assert.Error(t, err)
}

func TestLoader_StartsIdle(t *testing.T) {
	loader := newLoader(t, NewMockSource())

	state := loader.Current()
	assert.Equal(t, models.StatusIdle, state.Status)
	assert.Nil(t, state.Forecast)
	assert.NoError(t, state.Err)
}

func TestLoader_LoadingIsPublishedSynchronously(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	rec := &recorder{}
	loader.Subscribe(rec.observe)

	task := loader.LoadForecast(context.Background(), "Corvallis,OR,US")

	// nothing has been released yet, so the fetch is still pending
	state := loader.Current()
	assert.Equal(t, models.StatusLoading, state.Status)
	assert.Equal(t, task.LoadID, state.LoadID)
	assert.Equal(t, "Corvallis,OR,US", state.Query)
	assert.Equal(t, []models.LoadStatus{models.StatusLoading}, rec.statuses())

	source.release("Corvallis,OR,US", sampleForecast("Corvallis"), nil)
	wait(t, task)
}

func TestLoader_Success(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	rec := &recorder{}
	loader.Subscribe(rec.observe)

	want := sampleForecast("Corvallis")
	source.release("Corvallis,OR,US", want, nil)

	result := wait(t, loader.LoadForecast(context.Background(), "Corvallis,OR,US"))
	require.NoError(t, result.Err)
	assert.False(t, result.Stale)
	assert.Equal(t, want, result.Forecast)

	state := loader.Current()
	assert.Equal(t, models.StatusSuccess, state.Status)
	assert.Equal(t, want, state.Forecast)
	assert.Equal(t, result.LoadID, state.LoadID)
	assert.Equal(t, uint64(1), state.Generation)
	assert.False(t, state.UpdatedAt.IsZero())

	assert.Equal(t, []models.LoadStatus{models.StatusLoading, models.StatusSuccess}, rec.statuses())
	assert.Equal(t, []models.Units{models.UnitsImperial}, source.units)
}

func TestLoader_FailureClearsForecast(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	source.release("Corvallis,OR,US", sampleForecast("Corvallis"), nil)
	wait(t, loader.LoadForecast(context.Background(), "Corvallis,OR,US"))

	task := loader.LoadForecast(context.Background(), "Nowhere")

	// the previous forecast stays visible while loading
	loading := loader.Current()
	assert.Equal(t, models.StatusLoading, loading.Status)
	require.NotNil(t, loading.Forecast)
	assert.Equal(t, "Corvallis", loading.Forecast.City.Name)

	source.release("Nowhere", nil, &models.NetworkError{Message: "city not found", StatusCode: 404})
	result := wait(t, task)

	var netErr *models.NetworkError
	require.True(t, errors.As(result.Err, &netErr))
	assert.Equal(t, 404, netErr.StatusCode)

	state := loader.Current()
	assert.Equal(t, models.StatusError, state.Status)
	assert.Nil(t, state.Forecast)
	assert.EqualError(t, state.Err, "network error (status 404): city not found")
}

func TestLoader_MalformedResponse(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	rec := &recorder{}
	loader.Subscribe(rec.observe)

	source.release("Corvallis,OR,US", nil, &models.MalformedResponseError{Reason: "list[0].weather is missing"})
	wait(t, loader.LoadForecast(context.Background(), "Corvallis,OR,US"))

	state := loader.Current()
	assert.Equal(t, models.StatusError, state.Status)
	assert.Nil(t, state.Forecast)

	var malformed *models.MalformedResponseError
	assert.True(t, errors.As(state.Err, &malformed))

	for _, s := range rec.states {
		assert.Nil(t, s.Forecast, "no forecast may be published")
	}
}

func TestLoader_OverlappingLoadsRace(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	first := loader.LoadForecast(context.Background(), "Corvallis,OR,US")
	second := loader.LoadForecast(context.Background(), "Bend,OR,US")

	// the newer load resolves first, the older one last
	source.release("Bend,OR,US", sampleForecast("Bend"), nil)
	wait(t, second)
	source.release("Corvallis,OR,US", sampleForecast("Corvallis"), nil)
	firstResult := wait(t, first)

	assert.False(t, firstResult.Stale)

	state := loader.Current()
	assert.Equal(t, models.StatusSuccess, state.Status)
	assert.Equal(t, "Corvallis", state.Forecast.City.Name)
	assert.Equal(t, first.Generation, state.Generation)
}

func TestLoader_SingleFlightDiscardsStaleResults(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source, forecast.WithSingleFlight())

	rec := &recorder{}
	loader.Subscribe(rec.observe)

	first := loader.LoadForecast(context.Background(), "Corvallis,OR,US")
	second := loader.LoadForecast(context.Background(), "Bend,OR,US")
	assert.Equal(t, first.Generation+1, second.Generation)

	source.release("Bend,OR,US", sampleForecast("Bend"), nil)
	secondResult := wait(t, second)
	source.release("Corvallis,OR,US", nil, errors.New("late failure"))
	firstResult := wait(t, first)

	assert.False(t, secondResult.Stale)
	assert.True(t, firstResult.Stale)
	var netErr *models.NetworkError
	require.True(t, errors.As(firstResult.Err, &netErr))
	assert.EqualError(t, firstResult.Err, "network error: late failure")

	state := loader.Current()
	assert.Equal(t, models.StatusSuccess, state.Status)
	assert.Equal(t, "Bend", state.Forecast.City.Name)
	assert.Equal(t, second.LoadID, state.LoadID)

	assert.Equal(t, []models.LoadStatus{
		models.StatusLoading,
		models.StatusLoading,
		models.StatusSuccess,
	}, rec.statuses())
}

func TestLoader_RecoversFromPanics(t *testing.T) {
	loader, err := forecast.NewLoader(panicSource{}, models.UnitsMetric, observe.NewNopLogger())
	require.NoError(t, err)

	result := wait(t, loader.LoadForecast(context.Background(), "Corvallis,OR,US"))
	var netErr *models.NetworkError
	require.True(t, errors.As(result.Err, &netErr), "got %v", result.Err)
	assert.Contains(t, netErr.Message, "panicked: boom")

	assert.Equal(t, models.StatusError, loader.Current().Status)
}

func TestLoader_NilForecastWithoutError(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	source.release("Corvallis,OR,US", nil, nil)
	result := wait(t, loader.LoadForecast(context.Background(), "Corvallis,OR,US"))

	var malformed *models.MalformedResponseError
	require.True(t, errors.As(result.Err, &malformed), "got %v", result.Err)
	assert.Contains(t, malformed.Reason, "returned no forecast")
	assert.Equal(t, models.StatusError, loader.Current().Status)
}

func TestLoader_LoadTimeout(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source, forecast.WithLoadTimeout(20*time.Millisecond))

	result := wait(t, loader.LoadForecast(context.Background(), "Corvallis,OR,US"))

	var netErr *models.NetworkError
	require.True(t, errors.As(result.Err, &netErr))
	assert.Contains(t, netErr.Message, "deadline exceeded")
}

func TestLoader_CallerContextDoesNotCancelLoad(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	ctx, cancel := context.WithCancel(context.Background())
	task := loader.LoadForecast(ctx, "Corvallis,OR,US")
	<-source.started
	cancel()

	source.release("Corvallis,OR,US", sampleForecast("Corvallis"), nil)
	result := wait(t, task)

	require.NoError(t, result.Err)
	assert.Equal(t, models.StatusSuccess, loader.Current().Status)
}

func TestLoader_Unsubscribe(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	rec := &recorder{}
	unsubscribe := loader.Subscribe(rec.observe)

	source.release("a", sampleForecast("A"), nil)
	wait(t, loader.LoadForecast(context.Background(), "a"))

	unsubscribe()
	unsubscribe()

	source.release("b", sampleForecast("B"), nil)
	wait(t, loader.LoadForecast(context.Background(), "b"))

	assert.Len(t, rec.statuses(), 2)
}

func TestLoader_ObserversNeverSeeMismatchedState(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	var mismatches []string
	var lastSeq uint64
	var mu sync.Mutex
	loader.Subscribe(func(s forecast.State) {
		mu.Lock()
		defer mu.Unlock()

		switch s.Status {
		case models.StatusSuccess:
			if s.Forecast == nil || s.Err != nil {
				mismatches = append(mismatches, "success without forecast")
			}
		case models.StatusError:
			if s.Forecast != nil || s.Err == nil {
				mismatches = append(mismatches, "error with forecast")
			}
		}
		if s.Seq != lastSeq+1 {
			mismatches = append(mismatches, "notified out of order")
		}
		lastSeq = s.Seq
		// observers may read the loader while being notified
		if loader.Current().Seq < s.Seq {
			mismatches = append(mismatches, "notified before applied")
		}
	})

	var tasks []*forecast.Task
	for i, q := range []string{"a", "b", "c", "d"} {
		if i%2 == 0 {
			source.release(q, sampleForecast(q), nil)
		} else {
			source.release(q, nil, errors.New("failed "+q))
		}
		tasks = append(tasks, loader.LoadForecast(context.Background(), q))
	}
	for _, task := range tasks {
		wait(t, task)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, mismatches)
}

func TestLoader_UntypedSourceErrorsBecomeNetworkErrors(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	source.release("Corvallis,OR,US", nil, errors.New("connection reset"))
	result := wait(t, loader.LoadForecast(context.Background(), "Corvallis,OR,US"))

	var netErr *models.NetworkError
	require.True(t, errors.As(result.Err, &netErr))
	assert.Equal(t, "connection reset", netErr.Message)
	assert.Zero(t, netErr.StatusCode)
}

func TestLoader_ObserverMayStartLoad(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	reloaded := make(chan *forecast.Task, 1)
	var once sync.Once
	loader.Subscribe(func(s forecast.State) {
		if s.Status == models.StatusError {
			once.Do(func() {
				reloaded <- loader.LoadForecast(context.Background(), "Bend,OR,US")
			})
		}
	})

	source.release("Nowhere", nil, &models.NetworkError{Message: "city not found", StatusCode: 404})
	source.release("Bend,OR,US", sampleForecast("Bend"), nil)
	wait(t, loader.LoadForecast(context.Background(), "Nowhere"))

	var retry *forecast.Task
	select {
	case retry = <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("observer did not start a load")
	}
	wait(t, retry)

	assert.Eventually(t, func() bool {
		state := loader.Current()
		return state.Status == models.StatusSuccess && state.Forecast.City.Name == "Bend"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoader_StatesCarryIncreasingSeq(t *testing.T) {
	source := NewMockSource()
	loader := newLoader(t, source)

	rec := &recorder{}
	loader.Subscribe(rec.observe)

	source.release("a", sampleForecast("A"), nil)
	wait(t, loader.LoadForecast(context.Background(), "a"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.states, 2)
	assert.Equal(t, uint64(1), rec.states[0].Seq)
	assert.Equal(t, uint64(2), rec.states[1].Seq)
	assert.Equal(t, uint64(2), loader.Current().Seq)
}
