// Package registry provides the central glue for the module system.
//
// The Registry stores mappings between the string identifiers used in module
// manifests (e.g. "OnRunExec") and the compiled Go functions and types that
// implement them, alongside the parsed, format-agnostic manifest definitions
// themselves.
//
// During application startup the registry is populated and then validated, so
// that a mismatch between the Go code and the public-facing manifests is
// caught before any job is dispatched.
package registry
