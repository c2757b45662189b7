// Package cli parses and validates command-line arguments into an
// application configuration. Every enum value crossing this boundary is
// checked here; anything malformed becomes an ExitError with code 2 before a
// single job is planned.
package cli
