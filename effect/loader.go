package effect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pthm-cable/fallingobjects/assets"
)

// fetchResult is a completed background fetch.
type fetchResult struct {
	asset  int
	url    string
	epoch  uint64
	sprite *assets.Sprite
	err    error
}

// loader caches sprites per URL and fetches misses on background
// goroutines. Everything but the fetch itself runs on the driving goroutine.
type loader struct {
	source  AssetSource
	logger  *slog.Logger
	cache   map[string]*assets.Sprite
	results chan fetchResult
	pending map[uint64]int // in-flight fetches per epoch
	wg      sync.WaitGroup
}

func newLoader(source AssetSource, buffer int, logger *slog.Logger) *loader {
	if buffer < 1 {
		buffer = 1
	}
	return &loader{
		source:  source,
		logger:  logger,
		cache:   make(map[string]*assets.Sprite),
		results: make(chan fetchResult, buffer),
		pending: make(map[uint64]int),
	}
}

func (l *loader) lookup(url string) (*assets.Sprite, bool) {
	s, ok := l.cache[url]
	return s, ok
}

// fetch starts a background fetch whose result is delivered through drain.
func (l *loader) fetch(ctx context.Context, asset int, url string, epoch uint64) {
	l.pending[epoch]++
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		sprite, err := l.source.Fetch(ctx, url)
		r := fetchResult{asset: asset, url: url, epoch: epoch, sprite: sprite, err: err}
		select {
		case l.results <- r:
		case <-ctx.Done():
		}
	}()
}

// inFlight returns the number of unfinished fetches started in epoch.
func (l *loader) inFlight(epoch uint64) int {
	return l.pending[epoch]
}

// drain hands every completed fetch to fn without blocking. Successful
// sprites are cached whatever fn decides.
func (l *loader) drain(fn func(r fetchResult)) {
	for {
		select {
		case r := <-l.results:
			if n := l.pending[r.epoch] - 1; n > 0 {
				l.pending[r.epoch] = n
			} else {
				delete(l.pending, r.epoch)
			}
			if r.err == nil && r.sprite != nil {
				if _, ok := l.cache[r.url]; !ok {
					l.cache[r.url] = r.sprite
				}
			}
			fn(r)
		default:
			return
		}
	}
}

// abandon forgets all in-flight fetches. Their results, if any arrive, are
// never drained.
func (l *loader) abandon() {
	clear(l.pending)
}

// wait blocks until every background fetch has returned.
func (l *loader) wait() {
	l.wg.Wait()
}

// preload fetches urls synchronously into the cache. Failures are logged and
// joined into the returned error; the remaining URLs are still fetched.
func (l *loader) preload(ctx context.Context, urls []string) error {
	var errs []error
	for _, url := range urls {
		if _, ok := l.cache[url]; ok {
			continue
		}
		sprite, err := l.source.Fetch(ctx, url)
		if err != nil {
			l.logger.Warn("preload failed", "url", url, "error", err)
			errs = append(errs, fmt.Errorf("preloading %s: %w", url, err))
			continue
		}
		l.cache[url] = sprite
	}
	return errors.Join(errs...)
}
