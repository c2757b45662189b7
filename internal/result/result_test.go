package result

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func results(statuses ...Status) []JobResult {
	rs := make([]JobResult, len(statuses))
	for i, s := range statuses {
		rs[i] = JobResult{Name: s.String(), Status: s}
	}
	return rs
}

func TestAggregate(t *testing.T) {
	testCases := []struct {
		name     string
		statuses []Status
		expected Outcome
	}{
		{name: "empty set passes", statuses: nil, expected: OutcomeSuccess},
		{name: "all success", statuses: []Status{StatusSuccess, StatusSuccess}, expected: OutcomeSuccess},
		{name: "skips are neutral", statuses: []Status{StatusSuccess, StatusSkipped, StatusSkipped}, expected: OutcomeSuccess},
		{name: "all skipped passes", statuses: []Status{StatusSkipped, StatusSkipped}, expected: OutcomeSuccess},
		{name: "one failure fails", statuses: []Status{StatusSuccess, StatusFailure}, expected: OutcomeFailure},
		{name: "cancellation counts as failure", statuses: []Status{StatusSuccess, StatusCancelled}, expected: OutcomeFailure},
		{name: "failure among skips", statuses: []Status{StatusSkipped, StatusFailure, StatusSkipped}, expected: OutcomeFailure},
		{name: "every terminal status at once", statuses: []Status{StatusSuccess, StatusFailure, StatusCancelled, StatusSkipped}, expected: OutcomeFailure},
		{name: "stuck pending job cannot pass", statuses: []Status{StatusSuccess, StatusPending}, expected: OutcomeFailure},
		{name: "stuck running job cannot pass", statuses: []Status{StatusRunning}, expected: OutcomeFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Aggregate(results(tc.statuses...)))
		})
	}
}

func TestAggregate_IgnoresEverythingButStatus(t *testing.T) {
	// A recorded error on a successful retry or a long duration must not
	// leak into the outcome; only the terminal status decides.
	rs := []JobResult{
		{Name: "build-linux", Status: StatusSuccess, Err: errors.New("attempt 1 flaked")},
		{Name: "wpt-2020[1]", Status: StatusSkipped},
	}
	assert.Equal(t, OutcomeSuccess, Aggregate(rs))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailure.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusSkipped.Terminal())
}

func TestTally(t *testing.T) {
	counts := Tally(results(StatusSuccess, StatusSuccess, StatusSkipped, StatusFailure))
	assert.Equal(t, 2, counts[StatusSuccess])
	assert.Equal(t, 1, counts[StatusSkipped])
	assert.Equal(t, 1, counts[StatusFailure])
	assert.Equal(t, 0, counts[StatusCancelled])
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "failure", OutcomeFailure.String())
}
