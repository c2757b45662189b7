// Package artifact provides write-once named-blob storage for the files jobs
// hand off to each other. Blobs are keyed by the publishing job's name plus
// the blob's base name; test-shard jobs retrieve a prior build job's artifact
// by that key before they start, turning the data dependency into an explicit
// store lookup.
package artifact

import (
	"context"
	"io"
)

// Store is the write-once blob store shared by all jobs of a run. Publishing
// a name twice is an error, never a silent replacement: a duplicate publish
// means two jobs raced for the same key and the run cannot be trusted.
type Store interface {
	// Publish stores the blob under the given key, reading src to EOF.
	Publish(ctx context.Context, key string, src io.Reader) error

	// Open returns a reader for a previously published blob. The caller
	// closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Keys returns every published key, sorted.
	Keys() []string
}

// Key builds the canonical store key for a blob published by a job.
func Key(jobName, blobName string) string {
	return jobName + "/" + blobName
}
