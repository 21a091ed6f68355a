// Package chunker splits a corpus into bounded contiguous chunks, runs
// the full clustering pipeline independently per chunk on a worker
// pool, and recombines the outputs into original corpus order.
//
// This is an explicit throughput-for-comparability trade: each chunk's
// cluster-label space is local to that chunk, so label 2 in chunk 0 has
// no relationship to label 2 in chunk 1. Callers who need comparable
// labels must pass one explicit k and still treat the spaces as
// independent, or avoid chunking.
package chunker

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/Kevin6098/thesis-split/internal/corpus"
)

// Chunk is one contiguous slice of the corpus.
type Chunk struct {
	Index int
	Docs  []corpus.Document
}

// ProcessFunc runs the per-chunk pipeline end to end and returns the
// chunk's labeled documents. It must not share mutable state across
// invocations; each call receives its own document slice.
type ProcessFunc func(chunk Chunk) ([]corpus.Document, error)

// Outcome is the result of processing one chunk.
type Outcome struct {
	Index int
	Docs  []corpus.Document
	Err   error
}

// CombineReport summarizes a recombination, including any shortfall
// from dropped chunks.
type CombineReport struct {
	InputDocs    int
	CombinedDocs int
	ChunksTotal  int
	ChunksFailed int
}

// Split cuts the corpus into contiguous chunks of at most size
// documents; the last chunk may be smaller. No document is duplicated
// or dropped.
func Split(docs []corpus.Document, size int) []Chunk {
	if size <= 0 || size >= len(docs) {
		return []Chunk{{Index: 0, Docs: docs}}
	}
	chunks := make([]Chunk, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Docs: docs[start:end]})
	}
	return chunks
}

// ProcessParallel dispatches every chunk to fn over a pool of workers
// and blocks until all return. A chunk failure is isolated: it yields
// an Outcome with Err set and does not abort the other chunks.
func ProcessParallel(chunks []Chunk, workers int, fn ProcessFunc) []Outcome {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}

	jobs := make(chan Chunk)
	results := make(chan Outcome, len(chunks))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for c := range jobs {
				docs, err := fn(c)
				if err != nil {
					results <- Outcome{Index: c.Index, Err: fmt.Errorf("chunk %d: %w", c.Index, err)}
					continue
				}
				results <- Outcome{Index: c.Index, Docs: docs}
			}
		}()
	}

	for _, c := range chunks {
		jobs <- c
	}
	close(jobs)
	wg.Wait()
	close(results)

	outcomes := make([]Outcome, 0, len(chunks))
	for o := range results {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })
	return outcomes
}

// Combine concatenates all successfully processed chunks and restores
// global corpus order by document position. Failed chunks are dropped
// with a warning; partial results beat total failure for exploratory
// batch analysis.
func Combine(outcomes []Outcome, inputDocs int) ([]corpus.Document, CombineReport) {
	report := CombineReport{InputDocs: inputDocs, ChunksTotal: len(outcomes)}

	var merged []corpus.Document
	for _, o := range outcomes {
		if o.Err != nil {
			report.ChunksFailed++
			slog.Warn("dropping failed chunk", "chunk", o.Index, "err", o.Err)
			continue
		}
		merged = append(merged, o.Docs...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Position < merged[j].Position })

	report.CombinedDocs = len(merged)
	if report.CombinedDocs != report.InputDocs {
		slog.Warn("combined document count does not match input",
			"combined", report.CombinedDocs, "input", report.InputDocs,
			"failed_chunks", report.ChunksFailed)
	}
	return merged, report
}
