package cluster

import (
	"context"
	"slices"

	"github.com/nao1215/addrcluster/internal/model"
	"golang.org/x/sync/errgroup"
)

// minRecordsPerWorker is the smallest chunk worth handing to a goroutine.
const minRecordsPerWorker = 4096

// InputGroup holds the distinct input addresses of one transaction in the
// order they were first seen.
type InputGroup struct {
	TransactionID string
	Addresses     []string
}

// GroupInputs groups the input records by transaction id. Groups are
// ordered by the first appearance of their transaction.
//
// With workers > 1 the record slice is split into contiguous chunks that are
// grouped concurrently and then merged in chunk order, which yields exactly
// the sequential result.
func GroupInputs(ctx context.Context, records []model.TransactionRecord, workers int) ([]InputGroup, error) {
	chunks := splitChunks(len(records), workers)
	if len(chunks) <= 1 {
		return groupChunk(records), nil
	}

	results := make([][]InputGroup, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(len(chunks))

	for i, c := range chunks {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = groupChunk(records[c.start:c.end])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeChunks(results), nil
}

// chunk is a half-open record range.
type chunk struct {
	start, end int
}

// splitChunks divides n records into at most workers contiguous chunks of
// at least minRecordsPerWorker records.
func splitChunks(n, workers int) []chunk {
	if workers > n/minRecordsPerWorker {
		workers = n / minRecordsPerWorker
	}
	if workers <= 1 {
		return []chunk{{0, n}}
	}

	size := (n + workers - 1) / workers
	chunks := make([]chunk, 0, workers)
	for start := 0; start < n; start += size {
		chunks = append(chunks, chunk{start: start, end: min(start+size, n)})
	}
	return chunks
}

// groupChunk groups the input records of one contiguous range.
func groupChunk(records []model.TransactionRecord) []InputGroup {
	positions := make(map[string]int)
	groups := make([]InputGroup, 0)

	for _, r := range records {
		if !r.IsInput() {
			continue
		}
		pos, ok := positions[r.TransactionID]
		if !ok {
			positions[r.TransactionID] = len(groups)
			groups = append(groups, InputGroup{
				TransactionID: r.TransactionID,
				Addresses:     []string{r.Address},
			})
			continue
		}
		if !slices.Contains(groups[pos].Addresses, r.Address) {
			groups[pos].Addresses = append(groups[pos].Addresses, r.Address)
		}
	}
	return groups
}

// mergeChunks concatenates per-chunk groups, joining groups of the same
// transaction that were split across chunk boundaries.
func mergeChunks(results [][]InputGroup) []InputGroup {
	positions := make(map[string]int)
	merged := make([]InputGroup, 0)

	for _, groups := range results {
		for _, grp := range groups {
			pos, ok := positions[grp.TransactionID]
			if !ok {
				positions[grp.TransactionID] = len(merged)
				merged = append(merged, grp)
				continue
			}
			for _, addr := range grp.Addresses {
				if !slices.Contains(merged[pos].Addresses, addr) {
					merged[pos].Addresses = append(merged[pos].Addresses, addr)
				}
			}
		}
	}
	return merged
}
