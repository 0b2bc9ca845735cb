// Package playback samples video playback position on a fixed wall-clock
// interval and forwards watch time to the progress engine.
package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"coursectl/internal/progress"
)

// DefaultSampleInterval is the wall-clock sampling cadence.
const DefaultSampleInterval = 5 * time.Second

// Player exposes the active video's playback state. Implementations are
// expected to be cheap to poll.
type Player interface {
	// Position returns the playhead and total duration in seconds. A total
	// of zero or NaN means media metadata has not loaded yet.
	Position() (watchedSeconds, totalSeconds float64)
	Playing() bool
}

// Reporter polls a [Player] on a ticker and forwards samples to the
// progress engine. Samples are skipped while paused and dropped entirely
// when the duration is unusable; stopping the reporter halts the ticker
// immediately so no timer outlives its lesson.
type Reporter struct {
	engine   *progress.Engine
	interval time.Duration
	logger   *log.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewReporter creates a Reporter; a non-positive interval uses
// [DefaultSampleInterval].
func NewReporter(engine *progress.Engine, interval time.Duration, logger *log.Logger) *Reporter {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Reporter{engine: engine, interval: interval, logger: logger}
}

// Start begins sampling the player for one lesson. Any previous sampling
// loop is stopped first; the loop also exits when ctx is cancelled.
func (r *Reporter) Start(ctx context.Context, courseID, lessonID string, player Player) {
	r.Stop()

	stop := make(chan struct{})
	done := make(chan struct{})
	r.mu.Lock()
	r.stop = stop
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.sample(ctx, courseID, lessonID, player)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts sampling and waits for the loop to exit. Safe to call
// repeatedly or without a running loop.
func (r *Reporter) Stop() {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (r *Reporter) sample(ctx context.Context, courseID, lessonID string, player Player) {
	if !player.Playing() {
		return
	}

	watched, total := player.Position()
	if total <= 0 || math.IsNaN(total) || math.IsNaN(watched) {
		return
	}

	if err := r.engine.UpdateWatchTime(ctx, courseID, lessonID, watched, total); err != nil {
		r.logger.Debug("watch time report failed", "course", courseID, "lesson", lessonID, "err", err)
	}
}
