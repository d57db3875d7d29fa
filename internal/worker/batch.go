package worker

import "context"

// Fetcher collects one URL or descriptor and reports how many documents it
// yielded. The ingestion layer adapts each source to this shape.
type Fetcher interface {
	FetchURL(ctx context.Context, url string) (int, error)
}

// FetchResult is the outcome of collecting one descriptor.
type FetchResult struct {
	URL       string
	Documents int
	Error     error
}

// Err reports the collection error, nil on success.
func (r *FetchResult) Err() error {
	return r.Error
}

// fetchTask wraps one descriptor for the pool.
type fetchTask struct {
	url     string
	fetcher Fetcher
}

func (t *fetchTask) Run(ctx context.Context) Outcome {
	count, err := t.fetcher.FetchURL(ctx, t.url)
	return &FetchResult{
		URL:       t.url,
		Documents: count,
		Error:     err,
	}
}

// BatchProcessor fans descriptor collection out over a pool.
type BatchProcessor struct {
	fetcher     Fetcher
	concurrency int
}

// NewBatchProcessor creates a processor over one fetcher.
func NewBatchProcessor(fetcher Fetcher, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		fetcher:     fetcher,
		concurrency: concurrency,
	}
}

// ProcessURLs collects the given descriptors concurrently. Outcome order is
// completion order, not submission order.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*FetchResult {
	if len(urls) == 0 {
		return []*FetchResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, url := range urls {
		pool.Submit(&fetchTask{url: url, fetcher: b.fetcher})
	}

	outcomes := pool.Wait()

	results := make([]*FetchResult, len(outcomes))
	for i, out := range outcomes {
		results[i] = out.(*FetchResult)
	}
	return results
}
