package ratelimiter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// FixedWindow admits at most limit calls per key in each window. The remote
// client keys it by host so a burst of fan-out fetches cannot flood the server.
type FixedWindow struct {
	counts      sync.Map // string -> *keyData
	limit       int64
	window      time.Duration
	cleanupTick *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

type keyData struct {
	count   int64        // atomic
	resetAt atomic.Value // stores time.Time
	mu      sync.Mutex   // only for reset
}

func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	rl := &FixedWindow{
		limit:       int64(limit),
		window:      window,
		cleanupTick: time.NewTicker(window),
		done:        make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// Allow reports whether a call for key fits in the current window. When it
// does not, the second result is the time until the window resets.
func (rl *FixedWindow) Allow(key string) (bool, time.Duration) {
	now := time.Now()
	nextReset := now.Truncate(rl.window).Add(rl.window)

	val, _ := rl.counts.LoadOrStore(key, &keyData{})
	data := val.(*keyData)

	data.mu.Lock()
	if data.resetAt.Load() == nil {
		data.resetAt.Store(nextReset)
		atomic.StoreInt64(&data.count, 0)
	}
	data.mu.Unlock()

	currentReset := data.resetAt.Load().(time.Time)
	if now.Before(currentReset) {
		return rl.take(data, currentReset)
	}

	data.mu.Lock()
	defer data.mu.Unlock()

	// Double-check after lock
	if currentReset := data.resetAt.Load().(time.Time); now.Before(currentReset) {
		return rl.take(data, currentReset)
	}

	atomic.StoreInt64(&data.count, 1)
	data.resetAt.Store(nextReset)
	return true, 0
}

func (rl *FixedWindow) take(data *keyData, resetAt time.Time) (bool, time.Duration) {
	newCount := atomic.AddInt64(&data.count, 1)
	if newCount > rl.limit {
		atomic.AddInt64(&data.count, -1) // rollback
		return false, time.Until(resetAt)
	}
	return true, 0
}

// Wait blocks until key is admitted or ctx is done.
func (rl *FixedWindow) Wait(ctx context.Context, key string) error {
	for {
		ok, retryAfter := rl.Allow(key)
		if ok {
			return nil
		}
		if retryAfter <= 0 {
			retryAfter = time.Millisecond
		}

		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (rl *FixedWindow) startCleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanup()
		case <-rl.done:
			return
		}
	}
}

func (rl *FixedWindow) cleanup() {
	now := time.Now()
	rl.counts.Range(func(key, value any) bool {
		data := value.(*keyData)
		if resetAt := data.resetAt.Load(); resetAt != nil {
			if now.After(resetAt.(time.Time)) {
				rl.counts.Delete(key)
			}
		}
		return true
	})
}

func (rl *FixedWindow) Close() {
	rl.closeOnce.Do(func() {
		close(rl.done)
		rl.cleanupTick.Stop()
	})
}
