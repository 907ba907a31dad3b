package forecast

import "weather-forecast/internal/models"

// Result is the outcome of one LoadForecast call.
// Stale is set when single-flight discarded the result because a newer load had started.
type Result struct {
	LoadID     string
	Generation uint64
	Forecast   *models.FiveDayForecast
	Err        error
	Stale      bool
}

// Task tracks a load running in the background.
type Task struct {
	LoadID     string
	Generation uint64

	done   chan struct{}
	result Result
}

func newTask(loadID string, generation uint64) *Task {
	return &Task{
		LoadID:     loadID,
		Generation: generation,
		done:       make(chan struct{}),
	}
}

// Done is closed once the load has resolved and its state, if any, was published.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the load resolves.
func (t *Task) Wait() Result {
	<-t.done
	return t.result
}

func (t *Task) finish(r Result) {
	t.result = r
	close(t.done)
}
