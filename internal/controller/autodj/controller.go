package autodj

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/GintGld/fizteh-radio-bot/internal/controller"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
	"github.com/GintGld/fizteh-radio-bot/internal/service/autodj"
	"github.com/GintGld/fizteh-radio-bot/internal/session"
)

const (
	replyEmptyLibrary = "Упс, а у меня ничегошеньки нет, чтобы в расписание вставить..."
	replyAskHoursFmt  = "Сколько часов ты хочешь забить в расписании? (не больше %d)"
	replyBadNumber    = "Некорректное число."
	replyNegative     = "Число часов не может быть отрицательным."
	replyTooManyFmt   = "Больше %d часов за раз нельзя. Давай в несколько заходов."
	replyZero         = "Ну, ноль так ноль. Делать ничего не буду."
	replyWorking      = "Работаем, радисты..."
	replyFilledFmt    = "Добавлено композиций: %d (%s).\nРасписание забито до %s"
)

const horizonFormat = "2006-01-02 15:04:05"

var errBadHours = errors.New("bad hours")

type Controller struct {
	dj  AutoDJ
	lib Library
	sch Schedule
}

type AutoDJ interface {
	MaxHours() int
	Fill(ctx context.Context, id int64, d time.Duration) (autodj.Result, error)
}

type Library interface {
	Refresh(ctx context.Context, id int64) error
	All(id int64) []models.Media
}

type Schedule interface {
	Horizon(id int64) time.Time
	Location() *time.Location
}

func New(dj AutoDJ, lib Library, sch Schedule) *Controller {
	return &Controller{
		dj:  dj,
		lib: lib,
		sch: sch,
	}
}

func (a *Controller) Mount(r *controller.Router) {
	r.Callback(controller.CallbackAutoDJ, a.start)
	r.State(session.StateAutoDJHours, a.hours)
}

// start asks for amount of hours unless library has nothing to play.
func (a *Controller) start(c *controller.Context) error {
	const op = "autodj.start"

	if err := a.lib.Refresh(c, c.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !playable(a.lib.All(c.UserID)) {
		return c.Reply(replyEmptyLibrary)
	}

	if err := c.Switch(session.EventAutoDJ); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return c.Reply(fmt.Sprintf(replyAskHoursFmt, a.dj.MaxHours()))
}

func (a *Controller) hours(c *controller.Context) error {
	const op = "autodj.hours"

	log := c.Log.With(
		slog.String("op", op),
	)

	hours, err := parseHours(c.Text)
	if err != nil {
		return c.Reply(replyBadNumber)
	}

	switch {
	case hours < 0:
		return c.Reply(replyNegative)
	case hours > float64(a.dj.MaxHours()):
		return c.Reply(fmt.Sprintf(replyTooManyFmt, a.dj.MaxHours()))
	}

	d := time.Duration(hours * float64(time.Hour))

	if d == 0 {
		if err := c.Fire(session.EventHours); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return c.Menu(replyZero)
	}

	if err := c.Reply(replyWorking); err != nil {
		log.Warn("failed to send reply", sl.Err(err))
	}

	res, err := a.dj.Fill(c, c.UserID, d)
	switch {
	case errors.Is(err, service.ErrEmptyLibrary):
		if err := c.Fire(session.EventHours); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return c.Menu(replyEmptyLibrary)
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.Fire(session.EventHours); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	horizon := a.sch.Horizon(c.UserID).In(a.sch.Location()).Format(horizonFormat)

	return c.Menu(fmt.Sprintf(replyFilledFmt, len(res.Segments), controller.FormatDuration(res.Duration), horizon))
}

// parseHours accepts fractional hours
// with either point or comma.
func parseHours(text string) (float64, error) {
	hours, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return 0, errBadHours
	}
	return hours, nil
}

func playable(lib []models.Media) bool {
	for _, m := range lib {
		if m.ID != nil && m.Duration != nil && *m.Duration > 0 {
			return true
		}
	}
	return false
}
