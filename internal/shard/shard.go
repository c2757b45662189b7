// Package shard partitions a test corpus across independent parallel workers.
// The split is deterministic and order-preserving: every element of the corpus
// lands in exactly one chunk, so running all chunks is exactly equivalent to
// one sequential run.
package shard

import "fmt"

// Chunk identifies one slice of a sharded run. Indexes are 1-based: the first
// chunk of a run split five ways is Chunk{Index: 1, Total: 5}.
type Chunk struct {
	Index int
	Total int
}

// Validate rejects chunk coordinates that cannot describe a partition slice.
func (c Chunk) Validate() error {
	if c.Total < 1 {
		return fmt.Errorf("total chunks must be at least 1, got %d", c.Total)
	}
	if c.Index < 1 || c.Index > c.Total {
		return fmt.Errorf("chunk index %d out of range 1..%d", c.Index, c.Total)
	}
	return nil
}

// String renders the chunk as "index/total".
func (c Chunk) String() string {
	return fmt.Sprintf("%d/%d", c.Index, c.Total)
}

// Partition splits the corpus into total contiguous, near-even chunks. The
// first (len mod total) chunks carry one extra element; chunks past the end of
// a small corpus are empty, which is legal. The concatenation of the returned
// chunks is the corpus in its original order.
func Partition(corpus []string, total int) ([][]string, error) {
	if total < 1 {
		return nil, fmt.Errorf("total chunks must be at least 1, got %d", total)
	}

	base := len(corpus) / total
	extra := len(corpus) % total

	chunks := make([][]string, total)
	offset := 0
	for i := 0; i < total; i++ {
		size := base
		if i < extra {
			size++
		}
		chunks[i] = corpus[offset : offset+size]
		offset += size
	}
	return chunks, nil
}

// Select returns the slice of the corpus assigned to one chunk.
func Select(corpus []string, c Chunk) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	chunks, err := Partition(corpus, c.Total)
	if err != nil {
		return nil, err
	}
	return chunks[c.Index-1], nil
}
