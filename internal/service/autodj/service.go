package autodj

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
)

// AutoDJ fills schedule with random library media.
type AutoDJ struct {
	log      *slog.Logger
	lib      Library
	sch      Schedule
	maxHours int
	timeout  time.Duration
	perm     func(n int) []int
}

type Library interface {
	Refresh(ctx context.Context, id int64) error
	All(id int64) []models.Media
}

type Schedule interface {
	Refresh(ctx context.Context, id int64) error
	NewSegment(ctx context.Context, id int64, media models.Media) (models.Segment, error)
	DeleteSegment(ctx context.Context, id int64, segmentID int64) error
}

// Result describes segments appended by one run.
type Result struct {
	Segments []models.Segment
	Duration time.Duration
}

func New(
	log *slog.Logger,
	lib Library,
	sch Schedule,
	maxHours int,
	timeout time.Duration,
) *AutoDJ {
	return &AutoDJ{
		log:      log,
		lib:      lib,
		sch:      sch,
		maxHours: maxHours,
		timeout:  timeout,
		perm:     rand.Perm,
	}
}

// MaxHours returns the longest allowed fill.
func (a *AutoDJ) MaxHours() int {
	return a.maxHours
}

// validate checks requested duration of the fill.
// Zero is valid and means nothing to do.
func (a *AutoDJ) validate(d time.Duration) error {
	if d < 0 || d > time.Duration(a.maxHours)*time.Hour {
		return fmt.Errorf("%w: %s not in [0, %dh]", service.ErrInvalidHours, d, a.maxHours)
	}
	return nil
}

// Fill appends random media to schedule until
// given duration is covered.
//
// Fill is bounded by its own timeout instead of the
// caller deadline, cancellation of ctx still stops it.
// If any segment can not be created, all segments
// created by this call are deleted and error is returned.
func (a *AutoDJ) Fill(ctx context.Context, id int64, d time.Duration) (Result, error) {
	const op = "AutoDJ.Fill"

	log := a.log.With(
		slog.String("op", op),
		slog.Int64("userId", id),
		slog.Duration("duration", d),
	)

	if err := a.validate(d); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if d == 0 {
		return Result{}, nil
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), a.timeout)
	defer cancel()

	stop := context.AfterFunc(parent, func() {
		if errors.Is(parent.Err(), context.Canceled) {
			cancel()
		}
	})
	defer stop()

	if err := a.lib.Refresh(ctx, id); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := a.sch.Refresh(ctx, id); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	plan, err := Plan(a.lib.All(id), d, a.perm)
	if err != nil {
		log.Warn("nothing to plan", sl.Err(err))
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("filling schedule", slog.Int("planned", len(plan)))

	res := Result{Segments: make([]models.Segment, 0, len(plan))}

	for _, media := range plan {
		segm, err := a.sch.NewSegment(ctx, id, media)
		if err != nil {
			log.Error(
				"failed to create segment, rolling back",
				slog.Int("created", len(res.Segments)),
				sl.Err(err),
			)
			a.rollback(context.WithoutCancel(ctx), id, res.Segments)
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		res.Segments = append(res.Segments, segm)
		res.Duration += *media.Duration
	}

	if err := a.sch.Refresh(ctx, id); err != nil {
		log.Warn("schedule is stale after fill", sl.Err(err))
	}

	log.Info("schedule filled", slog.Int("segments", len(res.Segments)), slog.Duration("duration", res.Duration))

	return res, nil
}

// rollback deletes created segments in reverse order.
// It gets a fresh budget since the fill one may be spent.
func (a *AutoDJ) rollback(ctx context.Context, id int64, created []models.Segment) {
	const op = "AutoDJ.rollback"

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	log := a.log.With(
		slog.String("op", op),
		slog.Int64("userId", id),
	)

	for i := len(created) - 1; i >= 0; i-- {
		segm := created[i]
		if err := a.sch.DeleteSegment(ctx, id, *segm.ID); err != nil {
			log.Error("failed to delete segment", slog.Int64("segmentId", *segm.ID), sl.Err(err))
		}
	}

	if err := a.sch.Refresh(ctx, id); err != nil {
		log.Warn("schedule is stale after rollback", sl.Err(err))
	}
}

// Plan picks media in random order until total duration reaches d.
// Media with zero duration are skipped. The pool is reshuffled
// every time it is exhausted, so total lies in [d, d + longest media).
func Plan(lib []models.Media, d time.Duration, perm func(n int) []int) ([]models.Media, error) {
	pool := make([]models.Media, 0, len(lib))
	for _, media := range lib {
		if media.ID != nil && media.Duration != nil && *media.Duration > 0 {
			pool = append(pool, media)
		}
	}

	if len(pool) == 0 {
		return nil, service.ErrEmptyLibrary
	}

	var (
		plan  []models.Media
		total time.Duration
		queue []int
	)

	for total < d {
		if len(queue) == 0 {
			queue = perm(len(pool))
		}
		media := pool[queue[0]]
		queue = queue[1:]

		plan = append(plan, media)
		total += *media.Duration
	}

	return plan, nil
}
