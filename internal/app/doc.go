// Package app wires the application together: logger, configuration loading,
// module registration, the ops server, and the run loop that takes a trigger
// context to a single pass/fail outcome.
package app
