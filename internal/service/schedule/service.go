package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/GintGld/fizteh-radio-bot/internal/client"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	ptr "github.com/GintGld/fizteh-radio-bot/internal/lib/utils/pointers"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
)

// Schedule keeps per-user snapshots of radio schedule
// and appends new segments at the time horizon.
type Schedule struct {
	log   *slog.Logger
	auth  Authorizer
	radio Radio
	loc   *time.Location
	now   func() time.Time

	mutex     sync.Mutex
	snapshots map[int64]snapshot
}

type snapshot struct {
	segments []models.Segment
	horizon  time.Time
}

type Authorizer interface {
	Do(ctx context.Context, id int64, f func(token string) error) error
}

type Radio interface {
	Schedule(ctx context.Context, token string, start time.Time) ([]models.Segment, error)
	NewSegment(ctx context.Context, token string, segm models.Segment) (int64, error)
	DeleteSegment(ctx context.Context, token string, id int64) error
}

func New(
	log *slog.Logger,
	auth Authorizer,
	radio Radio,
	loc *time.Location,
) *Schedule {
	return &Schedule{
		log:       log,
		auth:      auth,
		radio:     radio,
		loc:       loc,
		now:       time.Now,
		snapshots: make(map[int64]snapshot),
	}
}

// Location returns station time zone.
func (s *Schedule) Location() *time.Location {
	return s.loc
}

// Refresh replaces user's schedule snapshot with
// segments starting from today's midnight in station time zone.
func (s *Schedule) Refresh(ctx context.Context, id int64) error {
	const op = "Schedule.Refresh"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("userId", id),
	)

	now := s.now()
	start := midnight(now, s.loc)

	var segments []models.Segment
	err := s.auth.Do(ctx, id, func(token string) error {
		var err error
		segments, err = s.radio.Schedule(ctx, token, start)
		return err
	})
	if err != nil {
		log.Error("failed to get schedule", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	slices.SortFunc(segments, func(a, b models.Segment) int {
		return a.Start.Compare(*b.Start)
	})

	s.mutex.Lock()
	s.snapshots[id] = snapshot{
		segments: segments,
		horizon:  Horizon(segments, now),
	}
	s.mutex.Unlock()

	log.Debug(
		"schedule refreshed",
		slog.Int("size", len(segments)),
		slog.String("start", start.Format(models.TimeFormat)),
	)

	return nil
}

// Segments returns user's schedule snapshot.
func (s *Schedule) Segments(id int64) []models.Segment {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return slices.Clone(s.snapshots[id].segments)
}

// Actual returns segments that have not finished yet.
func (s *Schedule) Actual(id int64) []models.Segment {
	now := s.now()

	res := make([]models.Segment, 0)
	for _, segm := range s.Segments(id) {
		if segm.End().After(now) {
			res = append(res, segm)
		}
	}

	return res
}

// Horizon returns the moment new segment will start at.
func (s *Schedule) Horizon(id int64) time.Time {
	now := s.now()

	s.mutex.Lock()
	horizon := s.snapshots[id].horizon
	s.mutex.Unlock()

	if horizon.Before(now) {
		return now
	}
	return horizon
}

// NewSegment appends media to the end of schedule.
// Schedule is fetched first if user has no snapshot yet.
func (s *Schedule) NewSegment(ctx context.Context, id int64, media models.Media) (models.Segment, error) {
	const op = "Schedule.NewSegment"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("userId", id),
	)

	if media.ID == nil {
		return models.Segment{}, fmt.Errorf("%s: %w", op, service.ErrMediaNotFound)
	}
	if media.Duration == nil || *media.Duration <= 0 {
		return models.Segment{}, fmt.Errorf("%s: %w", op, service.ErrEmptyMedia)
	}

	s.mutex.Lock()
	_, ok := s.snapshots[id]
	s.mutex.Unlock()

	if !ok {
		if err := s.Refresh(ctx, id); err != nil {
			return models.Segment{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	segm := models.Segment{
		MediaID:   ptr.Ptr(*media.ID),
		Start:     ptr.Ptr(s.Horizon(id)),
		BeginCut:  ptr.Ptr(time.Duration(0)),
		StopCut:   ptr.Ptr(*media.Duration),
		Protected: true,
	}

	var segmID int64
	err := s.auth.Do(ctx, id, func(token string) error {
		var err error
		segmID, err = s.radio.NewSegment(ctx, token, segm)
		return err
	})
	if err != nil {
		if errors.Is(err, client.ErrBadRequest) {
			log.Warn("radio rejected segment", slog.Int64("mediaId", *media.ID), sl.Err(err))
		} else {
			log.Error("failed to create segment", slog.Int64("mediaId", *media.ID), sl.Err(err))
		}
		return models.Segment{}, fmt.Errorf("%s: %w", op, err)
	}
	segm.ID = ptr.Ptr(segmID)

	s.mutex.Lock()
	snap := s.snapshots[id]
	snap.segments = append(slices.Clone(snap.segments), segm)
	snap.horizon = segm.End()
	s.snapshots[id] = snap
	s.mutex.Unlock()

	log.Info(
		"segment created",
		slog.Int64("segmentId", segmID),
		slog.Int64("mediaId", *media.ID),
		slog.String("start", segm.Start.Format(models.TimeFormat)),
	)

	return segm, nil
}

// DeleteSegment removes segment from radio and snapshot.
func (s *Schedule) DeleteSegment(ctx context.Context, id int64, segmentID int64) error {
	const op = "Schedule.DeleteSegment"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("userId", id),
		slog.Int64("segmentId", segmentID),
	)

	err := s.auth.Do(ctx, id, func(token string) error {
		return s.radio.DeleteSegment(ctx, token, segmentID)
	})
	if err != nil {
		log.Error("failed to delete segment", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mutex.Lock()
	snap := s.snapshots[id]
	snap.segments = slices.DeleteFunc(slices.Clone(snap.segments), func(segm models.Segment) bool {
		return *segm.ID == segmentID
	})
	snap.horizon = Horizon(snap.segments, s.now())
	s.snapshots[id] = snap
	s.mutex.Unlock()

	log.Info("segment deleted")

	return nil
}

// Horizon returns the latest end of given segments,
// or now if there are none or all of them are finished.
func Horizon(segments []models.Segment, now time.Time) time.Time {
	horizon := now
	for _, segm := range segments {
		if end := segm.End(); end.After(horizon) {
			horizon = end
		}
	}
	return horizon
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
