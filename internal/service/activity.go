// Package service holds the operations that span several repositories or
// external collaborators. Single-table CRUD stays in the handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/speaknote/internal/logger"
	"github.com/iliyamo/speaknote/internal/model"
	"github.com/iliyamo/speaknote/internal/queue"
	"github.com/iliyamo/speaknote/internal/repository"
)

const (
	DefaultHeatmapDays = 180
	MaxHeatmapDays     = 366

	dateLayout = "2006-01-02"
)

// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("invalid activity date")

// CacheInvalidator drops cached responses of a user.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID int64) error
}

// ActivityService aggregates per-day activity counters.
type ActivityService struct {
	repo      *repository.ActivityRepo
	loc       *time.Location
	now       func() time.Time
	cache     CacheInvalidator
	publisher Publisher
	log       *logger.Logger
}

// ActivityOption customizes an ActivityService.
type ActivityOption func(*ActivityService)

// WithClock replaces time.Now; tests use it to pin "today".
func WithClock(now func() time.Time) ActivityOption {
	return func(s *ActivityService) { s.now = now }
}

func WithCache(c CacheInvalidator) ActivityOption {
	return func(s *ActivityService) { s.cache = c }
}

func WithPublisher(p Publisher) ActivityOption {
	return func(s *ActivityService) { s.publisher = p }
}

func WithLogger(l *logger.Logger) ActivityOption {
	return func(s *ActivityService) { s.log = l }
}

// NewActivityService buckets activity by calendar day in loc.
func NewActivityService(repo *repository.ActivityRepo, loc *time.Location, opts ...ActivityOption) *ActivityService {
	if loc == nil {
		loc = time.UTC
	}
	s := &ActivityService{
		repo:      repo,
		loc:       loc,
		now:       time.Now,
		publisher: NopPublisher{},
		log:       logger.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Today is the current date in the configured time zone as YYYY-MM-DD.
func (s *ActivityService) Today() string {
	return s.now().In(s.loc).Format(dateLayout)
}

// Recorded is the outcome of Record.
type Recorded struct {
	Date  string             `json:"date"`
	Type  model.ActivityType `json:"type"`
	Count int                `json:"count"`
}

// Record increments the counter of (user, type, date) and returns the new
// count. An empty date means today. Unknown users, notes and types yield
// repository.ErrInvalidReference.
func (s *ActivityService) Record(ctx context.Context, userID int64, typ model.ActivityType, date string, noteID *int64) (Recorded, error) {
	if !typ.Valid() {
		return Recorded{}, repository.ErrInvalidReference
	}
	if date == "" {
		date = s.Today()
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return Recorded{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	typeID, err := s.repo.TypeID(ctx, typ)
	if err != nil {
		return Recorded{}, err
	}
	count, err := s.repo.Upsert(ctx, userID, typeID, date, noteID)
	if err != nil {
		return Recorded{}, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, userID); err != nil {
			s.log.Warn("activity cache invalidation failed", "user_id", userID, "err", err)
		}
	}
	ev := queue.ActivityRecordedEvent{
		UserID:     userID,
		NoteID:     noteID,
		Type:       string(typ),
		Date:       date,
		Count:      count,
		RecordedAt: s.now().UTC().Format(time.RFC3339),
	}
	go s.publish(ev)

	return Recorded{Date: date, Type: typ, Count: count}, nil
}

func (s *ActivityService) publish(ev queue.ActivityRecordedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishActivityRecorded(ctx, ev); err != nil {
		s.log.Warn("publish activity event failed", "user_id", ev.UserID, "type", ev.Type, "err", err)
	}
}

// Window returns the inclusive date range [today-(days-1), today].
func (s *ActivityService) Window(days int) (from, to string) {
	today := s.now().In(s.loc)
	start := today.AddDate(0, 0, -(days - 1))
	return start.Format(dateLayout), today.Format(dateLayout)
}

// Heatmap returns the per-date totals inside the trailing window of days
// (default 180, capped at 366). Dates without activity are omitted.
func (s *ActivityService) Heatmap(ctx context.Context, userID int64, days int) ([]model.HeatmapDay, error) {
	if days <= 0 {
		days = DefaultHeatmapDays
	}
	if days > MaxHeatmapDays {
		days = MaxHeatmapDays
	}
	from, to := s.Window(days)
	return s.repo.Heatmap(ctx, userID, from, to)
}

func (s *ActivityService) Summary(ctx context.Context, userID int64) (model.SummaryStats, error) {
	return s.repo.Summary(ctx, userID)
}
