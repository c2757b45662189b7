package testutil

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/matrixci/matrixci/internal/registry"
)

// SleeperManifest is the runner manifest matching SleeperModule.
const SleeperManifest = `
runner "sleeper" {
  lifecycle {
    on_run = "OnRunSleeper"
  }
  input "id" {
    type = string
  }
}
`

// ExecutionRecord holds the start and end times of a single job execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// SleeperModule is a shared, self-contained module for concurrency tests. It
// records the execution window of each job that uses it.
type SleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewSleeperModule creates a new sleeper module for testing.
func NewSleeperModule(completionChan chan<- string, sleep time.Duration) *SleeperModule {
	return &SleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

type sleeperInput struct {
	ID string `mci:"id"`
}

// Register registers the "sleeper" runner's Go handler.
func (m *SleeperModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunSleeper", &registry.RegisteredRunner{
		NewInput:  func() any { return new(sleeperInput) },
		InputType: reflect.TypeOf(sleeperInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(_ context.Context, _ any, inputRaw any) (any, error) {
			input := inputRaw.(*sleeperInput)

			startTime := time.Now()
			time.Sleep(m.sleepDuration)
			endTime := time.Now()

			m.mu.Lock()
			m.ExecutionTimes[input.ID] = &ExecutionRecord{Start: startTime, End: endTime}
			m.mu.Unlock()

			if m.completionChan != nil {
				m.completionChan <- input.ID
			}
			return nil, nil
		},
	})
}
