package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ppiankov/daybrief/internal/logging"
	"github.com/ppiankov/daybrief/internal/worker"
)

// SourceReport is the structured outcome of one source worker.
type SourceReport struct {
	Source     string
	Discovered int
	Collected  int
	Failed     int
	TimedOut   bool
	Err        string
}

// CollectionResult aggregates everything the orchestrator gathered.
type CollectionResult struct {
	Items   []Item
	Reports []SourceReport
}

// Notices renders source failures as reader-facing notice lines for the
// brief. Clean runs produce none.
func (r *CollectionResult) Notices() []string {
	var notices []string
	for _, rep := range r.Reports {
		switch {
		case rep.TimedOut:
			notices = append(notices, fmt.Sprintf(
				"Source %s timed out; %d of %d documents collected.",
				rep.Source, rep.Collected, rep.Discovered))
		case rep.Err != "":
			notices = append(notices, fmt.Sprintf(
				"Source %s unavailable: %s", rep.Source, rep.Err))
		case rep.Failed > 0:
			notices = append(notices, fmt.Sprintf(
				"Source %s: %d of %d documents failed to extract.",
				rep.Source, rep.Failed, rep.Discovered))
		}
	}
	return notices
}

// collector receives items from source workers as they complete, so a
// timed-out source still contributes everything extracted before the box
// closed.
type collector struct {
	mu    sync.Mutex
	items []Item
}

func (c *collector) add(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

func (c *collector) snapshot() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// sourceFetcher adapts one Source to the worker.Fetcher contract so
// descriptors within a source are extracted concurrently.
type sourceFetcher struct {
	source   Source
	sink     *collector
	progress *sourceProgress
}

func (f *sourceFetcher) FetchURL(ctx context.Context, descriptor string) (int, error) {
	item, err := f.source.Extract(ctx, descriptor)
	if err != nil {
		f.progress.failed.Add(1)
		return 0, err
	}
	f.sink.add(*item)
	f.progress.collected.Add(1)
	return 1, nil
}

// Orchestrator runs every configured source under a per-source time box.
// One source never blocks another; a worker that outlives its box is
// abandoned and its partial results kept.
type Orchestrator struct {
	sources       []Source
	sourceTimeout time.Duration
	concurrency   int
}

// NewOrchestrator creates a collection orchestrator.
func NewOrchestrator(sources []Source, sourceTimeout time.Duration, concurrency int) *Orchestrator {
	if sourceTimeout <= 0 {
		sourceTimeout = 3 * time.Minute
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Orchestrator{
		sources:       sources,
		sourceTimeout: sourceTimeout,
		concurrency:   concurrency,
	}
}

// Collect runs all sources and returns whatever they produced.
func (o *Orchestrator) Collect(ctx context.Context) *CollectionResult {
	sink := &collector{}
	reports := make([]SourceReport, len(o.sources))

	var wg sync.WaitGroup
	for i, src := range o.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			reports[i] = o.collectSource(ctx, src, sink)
		}(i, src)
	}
	wg.Wait()

	return &CollectionResult{
		Items:   sink.snapshot(),
		Reports: reports,
	}
}

// collectSource runs one source inside its time box. The inner goroutine is
// abandoned if it is still running when the box closes; items it already
// published stay in the sink and the report carries the partial counts.
func (o *Orchestrator) collectSource(ctx context.Context, src Source, sink *collector) SourceReport {
	boxCtx, cancel := context.WithTimeout(ctx, o.sourceTimeout)
	defer cancel()

	var progress sourceProgress
	done := make(chan SourceReport, 1)
	go func() {
		done <- o.runSource(boxCtx, src, sink, &progress)
	}()

	select {
	case report := <-done:
		return report
	case <-boxCtx.Done():
		logging.Warn("source abandoned on timeout",
			"source", src.Name(), "timeout", o.sourceTimeout)
		return SourceReport{
			Source:     src.Name(),
			Discovered: int(progress.discovered.Load()),
			Collected:  int(progress.collected.Load()),
			Failed:     int(progress.failed.Load()),
			TimedOut:   true,
		}
	}
}

// sourceProgress tracks counts that must survive worker abandonment.
type sourceProgress struct {
	discovered atomic.Int64
	collected  atomic.Int64
	failed     atomic.Int64
}

func (o *Orchestrator) runSource(ctx context.Context, src Source, sink *collector, progress *sourceProgress) SourceReport {
	report := SourceReport{Source: src.Name()}

	if err := src.Authenticate(ctx); err != nil {
		report.Err = fmt.Sprintf("authenticate: %v", err)
		logging.Error("source authentication failed", "source", src.Name(), "error", err)
		return report
	}

	descriptors, err := src.Discover(ctx)
	if err != nil {
		report.Err = fmt.Sprintf("discover: %v", err)
		logging.Error("source discovery failed", "source", src.Name(), "error", err)
		return report
	}
	progress.discovered.Store(int64(len(descriptors)))
	report.Discovered = len(descriptors)
	if len(descriptors) == 0 {
		return report
	}

	fetcher := &sourceFetcher{source: src, sink: sink, progress: progress}
	batch := worker.NewBatchProcessor(fetcher, o.concurrency)
	results := batch.ProcessURLs(ctx, descriptors)

	for _, res := range results {
		if res.Error != nil {
			report.Failed++
			logging.Warn("document extraction failed",
				"source", src.Name(), "descriptor", res.URL, "error", res.Error)
			continue
		}
		report.Collected += res.Documents
	}
	return report
}
