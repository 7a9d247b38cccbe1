package onair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zencoder/go-dash/v3/mpd"

	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
)

// startEps is the tolerance of matching period start
// with segment start, manifest keeps milliseconds only.
const startEps = time.Second

// layout radio writes availabilityStartTime with (always UTC).
const startTimeLayout = "2006-01-02T15:04:05"

// OnAir tells what is playing now.
type OnAir struct {
	log      *slog.Logger
	manifest Manifest
	sch      Schedule
	lib      Library
	now      func() time.Time
}

type Manifest interface {
	Manifest(ctx context.Context) (*mpd.MPD, error)
}

type Schedule interface {
	Refresh(ctx context.Context, id int64) error
	Segments(id int64) []models.Segment
}

type Library interface {
	Refresh(ctx context.Context, id int64) error
	Media(id int64, mediaID int64) (models.Media, error)
}

// Status describes period playing now.
// Media is set only when the period is matched with a schedule segment.
type Status struct {
	Start    time.Time
	End      time.Time
	Media    *models.Media
	Upcoming int
}

func New(
	log *slog.Logger,
	manifest Manifest,
	sch Schedule,
	lib Library,
) *OnAir {
	return &OnAir{
		log:      log,
		manifest: manifest,
		sch:      sch,
		lib:      lib,
		now:      time.Now,
	}
}

// Enabled reports whether stream manifest is configured.
func (o *OnAir) Enabled() bool {
	return o.manifest != nil
}

// Now returns status of the stream.
//
// If nothing is playing, returns service.ErrNothingOnAir.
func (o *OnAir) Now(ctx context.Context, id int64) (Status, error) {
	const op = "OnAir.Now"

	log := o.log.With(
		slog.String("op", op),
		slog.Int64("userId", id),
	)

	if !o.Enabled() {
		return Status{}, fmt.Errorf("%s: %w", op, service.ErrNoManifest)
	}

	man, err := o.manifest.Manifest(ctx)
	if err != nil {
		log.Error("failed to get manifest", sl.Err(err))
		return Status{}, fmt.Errorf("%s: %w", op, err)
	}

	now := o.now()

	st, err := playing(man, now)
	if err != nil {
		if errors.Is(err, service.ErrNothingOnAir) {
			log.Debug("nothing on air")
		} else {
			log.Error("bad manifest", sl.Err(err))
		}
		return Status{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := o.sch.Refresh(ctx, id); err != nil {
		return Status{}, fmt.Errorf("%s: %w", op, err)
	}

	segm, ok := match(o.sch.Segments(id), st.Start)
	if !ok {
		log.Warn("playing period not found in schedule", slog.Time("start", st.Start))
		return st, nil
	}

	if err := o.lib.Refresh(ctx, id); err != nil {
		return Status{}, fmt.Errorf("%s: %w", op, err)
	}

	media, err := o.lib.Media(id, *segm.MediaID)
	if err != nil {
		log.Warn("playing media not found in library", slog.Int64("mediaId", *segm.MediaID))
		return st, nil
	}
	st.Media = &media

	return st, nil
}

// playing finds period containing now.
func playing(man *mpd.MPD, now time.Time) (Status, error) {
	if man.AvailabilityStartTime == nil {
		return Status{}, fmt.Errorf("no availabilityStartTime")
	}

	ast, err := parseStartTime(*man.AvailabilityStartTime)
	if err != nil {
		return Status{}, err
	}

	var (
		st    Status
		found bool
	)

	for _, period := range man.Periods {
		if period == nil || period.Start == nil {
			continue
		}

		start := ast.Add(time.Duration(*period.Start))
		end := start.Add(time.Duration(period.Duration))

		switch {
		case !now.Before(start) && now.Before(end):
			st.Start, st.End = start, end
			found = true
		case start.After(now):
			st.Upcoming++
		}
	}

	if !found {
		return Status{}, service.ErrNothingOnAir
	}

	return st, nil
}

func match(segments []models.Segment, start time.Time) (models.Segment, bool) {
	for _, segm := range segments {
		if segm.Start == nil || segm.MediaID == nil {
			continue
		}
		if d := segm.Start.Sub(start); d > -startEps && d < startEps {
			return segm, true
		}
	}
	return models.Segment{}, false
}

func parseStartTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(startTimeLayout, s, time.UTC)
}
