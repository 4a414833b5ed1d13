// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/iliyamo/speaknote/internal/logger"
	"github.com/iliyamo/speaknote/internal/storage"
)

// ReferenceChecker reports whether a stored URL is still used by a note or
// a practice.
type ReferenceChecker interface {
	AudioURLReferenced(ctx context.Context, url string) (bool, error)
}

// Janitor deletes synthesized audio that nothing references any more, for
// example when a user synthesized a note twice. Objects younger than
// Retention are kept so a client has time to save the URL it was handed.
type Janitor struct {
	Store     storage.Store
	Refs      ReferenceChecker
	Retention time.Duration
	Log       *logger.Logger
	Now       func() time.Time

	scheduler *gocron.Scheduler
}

// Sweep runs one pass and returns the number of objects removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	cutoff := now().Add(-j.Retention)

	objs, err := j.Store.List(ctx, storage.PrefixTTS)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, o := range objs {
		if o.ModTime.After(cutoff) {
			continue
		}
		used, err := j.Refs.AudioURLReferenced(ctx, j.Store.URL(o.Key))
		if err != nil {
			return removed, err
		}
		if used {
			continue
		}
		if err := j.Store.Delete(ctx, o.Key); err != nil {
			j.log().Warn("janitor: delete failed", "key", o.Key, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Start schedules Sweep every interval and returns immediately.
func (j *Janitor) Start(interval time.Duration) error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := j.Sweep(ctx)
		if err != nil {
			j.log().Error("janitor: sweep failed", "removed", n, "err", err)
			return
		}
		if n > 0 {
			j.log().Info("janitor: removed unreferenced audio", "count", n)
		}
	})
	if err != nil {
		return err
	}
	j.scheduler = s
	s.StartAsync()
	return nil
}

// Stop terminates the schedule.
func (j *Janitor) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
	}
}

func (j *Janitor) log() *logger.Logger {
	if j.Log == nil {
		return logger.Nop()
	}
	return j.Log
}
