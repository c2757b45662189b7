// Package trigger models the event context a run was started with. The
// resolver treats it as opaque input: nothing here knows about platforms,
// layouts, or pipeline files.
package trigger

import "fmt"

// Event identifies the kind of event that started a run.
type Event int

const (
	// EventPush is a direct push to a tracked branch.
	EventPush Event = iota
	// EventPullRequest is a pull request update.
	EventPullRequest
	// EventMergeQueue is a merge-queue gate check.
	EventMergeQueue
	// EventManual is an operator-initiated dispatch, optionally carrying
	// explicit configuration overrides.
	EventManual
	// EventCall is an invocation by an upstream caller that supplies a fully
	// resolved configuration. The resolver applies no policy to it.
	EventCall
)

var eventNames = map[Event]string{
	EventPush:        "push",
	EventPullRequest: "pull-request",
	EventMergeQueue:  "merge-queue",
	EventManual:      "manual",
	EventCall:        "call",
}

// String returns the canonical wire name of the event kind.
func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ParseEvent maps a wire name to an Event. Unknown names are a configuration
// error and must be rejected before a run is planned.
func ParseEvent(name string) (Event, error) {
	for ev, n := range eventNames {
		if n == name {
			return ev, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", name)
}

// Context is the trigger context of one run.
type Context struct {
	// Event is the kind of event that started the run.
	Event Event
	// Ref is the target branch ref, e.g. "main".
	Ref string
	// PullRequest is the pull request number. Zero means none.
	PullRequest int
}

// Validate rejects combinations that no hosting platform produces.
func (c Context) Validate() error {
	if c.PullRequest != 0 && c.Event != EventPullRequest {
		return fmt.Errorf("pull request number set on %q event", c.Event)
	}
	if c.PullRequest < 0 {
		return fmt.Errorf("negative pull request number %d", c.PullRequest)
	}
	return nil
}
