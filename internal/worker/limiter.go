package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests per publisher host so concurrent
// collection workers do not hammer a single research portal.
type Limiter struct {
	mu        sync.RWMutex
	hosts     map[string]*rate.Limiter
	baseRate  rate.Limit
	baseBurst int
}

// NewLimiter builds a limiter with a default rate applied to every
// host that has no override.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		hosts:     make(map[string]*rate.Limiter),
		baseRate:  rate.Limit(requestsPerSecond),
		baseBurst: burst,
	}
}

// Wait blocks until the host serving rawURL has capacity.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.forHost(host).Wait(ctx)
}

// Allow reports whether a request to rawURL may proceed right now.
func (l *Limiter) Allow(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	return l.forHost(host).Allow()
}

// WaitWithDelay waits for host capacity and then sleeps extra, used to
// honor a publisher's robots.txt crawl-delay on top of our own pacing.
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, extra time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}

	if extra > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(extra):
		}
	}

	return nil
}

// SetHostRate overrides the pacing for one host. Sources that declare
// their own requests_per_second land here.
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.baseBurst
	}
	l.hosts[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.hosts[host]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Another goroutine may have registered the host while we waited
	// for the write lock.
	if lim, ok := l.hosts[host]; ok {
		return lim
	}

	lim = rate.NewLimiter(l.baseRate, l.baseBurst)
	l.hosts[host] = lim
	return lim
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}
