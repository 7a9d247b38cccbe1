package library

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/GintGld/fizteh-radio-bot/internal/controller"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
	"github.com/GintGld/fizteh-radio-bot/internal/session"
)

const (
	callbackPick = "lib_pick"

	// maxResults keeps search answer
	// under telegram message limit.
	maxResults     = 30
	maxSuggestions = 5
)

const (
	replyAskQuery     = "Напиши часть названия или автора.\nТеги добавляются через #, список тегов: /tags"
	replyNoTags       = "В радио пока нет тегов."
	replyTagsHeader   = "Теги для поиска:"
	replyEmptyQuery   = "Ключевое слово не может быть пустым"
	replyNotFound     = "К сожалению, ничего не найдено, попробуйте поискать что-то другое."
	replyMaybe        = "Может, ты имел в виду:"
	replyTruncatedFmt = "Показаны первые %d, уточни запрос, чтобы увидеть остальные."
	replyAskNumber    = "Введи номер композиции, которую ты хочешь добавить."
	replyBadNumber    = "Некорректное число."
	replyEmptyMedia   = "У этой композиции нулевая длительность, выбери другую."
	replyAddedFmt     = "Добавлено %s\nМожешь добавить что-то еще."
	buttonAdd         = "Добавить в расписание"
)

type Controller struct {
	lib Library
	sch Schedule
}

type Library interface {
	Refresh(ctx context.Context, id int64) error
	Search(ctx context.Context, id int64, query string) ([]models.Media, error)
	Suggestions(id int64, query string, n int) []models.Media
	Tags(id int64) models.TagList
}

type Schedule interface {
	Refresh(ctx context.Context, id int64) error
	NewSegment(ctx context.Context, id int64, media models.Media) (models.Segment, error)
	Location() *time.Location
}

func New(lib Library, sch Schedule) *Controller {
	return &Controller{
		lib: lib,
		sch: sch,
	}
}

func (l *Controller) Mount(r *controller.Router) {
	r.Button(controller.ButtonLibrary, l.library)
	r.Command(controller.CommandTags, l.tags)
	r.State(session.StateLibrarySearch, l.search)
	r.Callback(callbackPick, l.pick)
	r.State(session.StateSegmentChoice, l.choose)
}

// library opens search with fresh library and schedule.
func (l *Controller) library(c *controller.Context) error {
	const op = "library.library"

	if err := l.lib.Refresh(c, c.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := l.sch.Refresh(c, c.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.Switch(session.EventLibrary); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return c.Reply(replyAskQuery)
}

func (l *Controller) search(c *controller.Context) error {
	const op = "library.search"

	if c.Text == "" {
		return c.Reply(replyEmptyQuery)
	}

	if err := c.Fire(session.EventSearch); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	found, err := l.lib.Search(c, c.UserID, c.Text)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	truncated := len(found) > maxResults
	if truncated {
		found = found[:maxResults]
	}
	c.Session.Results = found

	if len(found) == 0 {
		return c.Reply(l.notFound(c.UserID, c.Text))
	}

	var b strings.Builder
	for i, m := range found {
		fmt.Fprintf(&b, "%d) %s\n", i+1, controller.FormatMedia(m))
	}
	if truncated {
		b.WriteString("\n" + fmt.Sprintf(replyTruncatedFmt, maxResults))
	}

	return c.Reply(
		strings.TrimRight(b.String(), "\n"),
		tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(buttonAdd, callbackPick),
			),
		),
	)
}

func (l *Controller) notFound(id int64, query string) string {
	suggestions := l.lib.Suggestions(id, query, maxSuggestions)
	if len(suggestions) == 0 {
		return replyNotFound
	}

	var b strings.Builder
	b.WriteString(replyNotFound + "\n\n" + replyMaybe)
	for _, m := range suggestions {
		b.WriteString("\n• " + controller.FormatMedia(m))
	}
	return b.String()
}

// tags lists radio tags grouped by type as they are typed in search.
func (l *Controller) tags(c *controller.Context) error {
	const op = "library.tags"

	if err := l.lib.Refresh(c, c.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tags := l.lib.Tags(c.UserID)
	if len(tags) == 0 {
		return c.Reply(replyNoTags)
	}

	slices.SortStableFunc(tags, func(a, b models.Tag) int {
		return cmp.Compare(a.Type.ID, b.Type.ID)
	})

	var b strings.Builder
	b.WriteString(replyTagsHeader)
	for i, tag := range tags {
		if i == 0 || tag.Type.ID != tags[i-1].Type.ID {
			fmt.Fprintf(&b, "\n%s:", tag.Type.Name)
		}
		b.WriteString(" #" + strings.ReplaceAll(tag.Name, " ", "_"))
	}

	return c.Reply(b.String())
}

func (l *Controller) pick(c *controller.Context) error {
	const op = "library.pick"

	if len(c.Session.Results) == 0 {
		return fmt.Errorf("%s: %w: no search results", op, session.ErrUnexpectedEvent)
	}

	if err := c.Fire(session.EventPickSegment); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return c.Reply(replyAskNumber)
}

// choose appends chosen media to the end of schedule.
func (l *Controller) choose(c *controller.Context) error {
	const op = "library.choose"

	n, err := strconv.Atoi(c.Text)
	if err != nil || n < 1 || n > len(c.Session.Results) {
		return c.Reply(replyBadNumber)
	}

	media := c.Session.Results[n-1]

	segm, err := l.sch.NewSegment(c, c.UserID, media)
	switch {
	case errors.Is(err, service.ErrEmptyMedia):
		return c.Reply(replyEmptyMedia)
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.Fire(session.EventSegmentCreated); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return c.Reply(fmt.Sprintf(replyAddedFmt, controller.FormatSegment(segm, &media, l.sch.Location())))
}
