package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/GintGld/fizteh-radio-bot/internal/controller"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/session"
)

const (
	callbackPrefix = "sch_"
	callbackShow   = "sch_show"
	callbackMain   = "sch_main"
)

const (
	replyChoose  = "Выбери расписание или автодиджея"
	replyEmpty   = "Расписание пусто."
	replyPageFmt = "Расписание (%d/%d):\n\n%s"
	buttonShow   = "Расписание"
	buttonAutoDJ = "Автодиджей"
	buttonPrev   = "🔙"
	buttonNext   = "🔜"
	buttonBack   = "Назад"
)

type Controller struct {
	lib      Library
	sch      Schedule
	pageSize int
}

type Library interface {
	Refresh(ctx context.Context, id int64) error
	Media(id int64, mediaID int64) (models.Media, error)
}

type Schedule interface {
	Refresh(ctx context.Context, id int64) error
	Actual(id int64) []models.Segment
	Location() *time.Location
}

func New(lib Library, sch Schedule, pageSize int) *Controller {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Controller{
		lib:      lib,
		sch:      sch,
		pageSize: pageSize,
	}
}

func (s *Controller) Mount(r *controller.Router) {
	r.Button(controller.ButtonSchedule, s.schedule)
	r.Callback(callbackPrefix, s.callback)
}

func (s *Controller) schedule(c *controller.Context) error {
	const op = "schedule.schedule"

	if err := c.Switch(session.EventSchedule); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return c.Reply(replyChoose, chooser())
}

func (s *Controller) callback(c *controller.Context) error {
	const op = "schedule.callback"

	switch c.Data {
	case callbackMain:
		kb := chooser()
		return c.Edit(replyChoose, &kb)
	case callbackShow:
		if err := s.lib.Refresh(c, c.UserID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.sch.Refresh(c, c.UserID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.Session.Schedule = s.sch.Actual(c.UserID)
		return s.page(c, 0)
	}

	page, err := strconv.Atoi(strings.TrimPrefix(c.Data, callbackPrefix))
	if err != nil {
		return fmt.Errorf("%s: %w: callback %q", op, session.ErrUnexpectedEvent, c.Data)
	}

	return s.page(c, page)
}

// page shows page of schedule cached in session.
func (s *Controller) page(c *controller.Context, page int) error {
	segments := c.Session.Schedule

	back := tgbotapi.NewInlineKeyboardButtonData(buttonBack, callbackMain)

	if len(segments) == 0 {
		kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(back))
		return c.Edit(replyEmpty, &kb)
	}

	pages := (len(segments) + s.pageSize - 1) / s.pageSize
	page = max(0, min(page, pages-1))
	c.Session.Page = page

	from := page * s.pageSize
	to := min(from+s.pageSize, len(segments))

	loc := s.sch.Location()
	lines := make([]string, 0, to-from)
	for _, segm := range segments[from:to] {
		var media *models.Media
		if segm.MediaID != nil {
			if m, err := s.lib.Media(c.UserID, *segm.MediaID); err == nil {
				media = &m
			}
		}
		lines = append(lines, controller.FormatSegment(segm, media, loc))
	}

	row := tgbotapi.NewInlineKeyboardRow()
	if page > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(buttonPrev, callbackPrefix+strconv.Itoa(page-1)))
	}
	if page < pages-1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(buttonNext, callbackPrefix+strconv.Itoa(page+1)))
	}
	row = append(row, back)

	kb := tgbotapi.NewInlineKeyboardMarkup(row)

	return c.Edit(fmt.Sprintf(replyPageFmt, page+1, pages, strings.Join(lines, "\n")), &kb)
}

func chooser() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buttonShow, callbackShow),
			tgbotapi.NewInlineKeyboardButtonData(buttonAutoDJ, controller.CallbackAutoDJ),
		),
	)
}
