// Package result defines terminal job statuses and the fan-in rule that folds
// every job of a run into a single pass/fail outcome. Like the resolver, the
// aggregation here is pure and free of package state.
package result

import (
	"fmt"
	"time"
)

// Status is the execution state of one job. Success, Failure, Cancelled and
// Skipped are terminal: once recorded they never change.
type Status int

const (
	// StatusPending means the job has not been picked up by a worker yet.
	StatusPending Status = iota
	// StatusRunning means a worker is currently executing the job.
	StatusRunning
	// StatusSuccess means the job ran and succeeded.
	StatusSuccess
	// StatusFailure means the job ran and failed.
	StatusFailure
	// StatusCancelled means the run was aborted before or while the job ran.
	StatusCancelled
	// StatusSkipped means the job was intentionally not run, either because
	// the resolved configuration deselected it or because an upstream
	// dependency did not succeed. Skips are neutral in the aggregate.
	StatusSkipped
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusRunning:   "running",
	StatusSuccess:   "success",
	StatusFailure:   "failure",
	StatusCancelled: "cancelled",
	StatusSkipped:   "skipped",
}

// String returns the canonical name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Terminal reports whether the status will never change again.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusCancelled, StatusSkipped:
		return true
	default:
		return false
	}
}

// JobResult is the finalized outcome of one fanned-out job. It is immutable
// once its status is terminal.
type JobResult struct {
	// Name is the unique job identifier within the run, e.g. "wpt-2020[3]".
	Name string
	// Status is the terminal state the job reached.
	Status Status
	// Err carries the root cause for failure or cancellation, nil otherwise.
	Err error
	// Duration is how long the job body ran, zero for jobs that never ran.
	Duration time.Duration
	// Artifacts lists the names the job published to the artifact store.
	Artifacts []string
}

// Outcome is the single pass/fail signal of a whole run.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

// String returns the canonical name of the outcome.
func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failure"
}

// Aggregate folds job results into a run outcome. The rule is total over
// every possible status multiset: a result that is neither success nor
// skipped — failure, cancellation, or a job somehow left non-terminal —
// makes the run a failure. Skipped results are neutral and an empty result
// set aggregates to success.
func Aggregate(results []JobResult) Outcome {
	for _, r := range results {
		switch r.Status {
		case StatusSuccess, StatusSkipped:
			// Neutral or passing; keeps the outcome untouched.
		default:
			return OutcomeFailure
		}
	}
	return OutcomeSuccess
}

// Tally counts results by status, for run summaries and metrics.
func Tally(results []JobResult) map[Status]int {
	counts := make(map[Status]int, len(results))
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}
