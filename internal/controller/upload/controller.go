package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/GintGld/fizteh-radio-bot/internal/controller"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/download"
	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
	"github.com/GintGld/fizteh-radio-bot/internal/service/library"
	"github.com/GintGld/fizteh-radio-bot/internal/session"
)

const (
	callbackConfirm = "up_ok"
	callbackRename  = "up_rename"

	mimeMP3 = "audio/mpeg"
)

const (
	replyAskFileFmt  = "Хочешь добавить что-то новенькое? Для начала пришли мне файл в формате .mp3 (не более %d МБ)"
	replyOnlyMP3     = "Я могу принять только .mp3 файл."
	replyTooLargeFmt = "Файл слишком большой, я принимаю не более %d МБ."
	replyDownloading = "Качаю..."
	replyConfirmFmt  = "Название песни \"%s\", а автор - \"%s\"?"
	replyAskName     = "Отлично, теперь скажи мне название."
	replyEmptyName   = "Название не может быть пустым"
	replyAskAuthor   = "Отлично, теперь назови автора."
	replyEmptyAuthor = "Имя автора не может быть пустым"
	replySending     = "Отправляю..."
	replyUploaded    = "Загружено!"
	replyStale       = "Загружено! Библиотека обновится чуть позже."
	replyExists      = "Такая композиция уже есть в библиотеке."
	buttonYes        = "Да"
	buttonNo         = "Нет"
)

type Controller struct {
	lib     Library
	client  *http.Client
	tmpDir  string
	maxSize int64
}

type Library interface {
	Upload(ctx context.Context, id int64, upload models.MediaUpload) (library.UploadResult, error)
}

func New(
	lib Library,
	tmpDir string,
	maxSize int64,
) *Controller {
	return &Controller{
		lib:     lib,
		client:  &http.Client{},
		tmpDir:  tmpDir,
		maxSize: maxSize,
	}
}

func (u *Controller) Mount(r *controller.Router) {
	r.Button(controller.ButtonNewMedia, u.newMedia)
	r.File(u.file)
	r.Callback(callbackConfirm, u.confirm)
	r.Callback(callbackRename, u.rename)
	r.State(session.StateUploadName, u.name)
	r.State(session.StateUploadAuthor, u.author)
}

func (u *Controller) newMedia(c *controller.Context) error {
	const op = "upload.newMedia"

	if err := c.Switch(session.EventUpload); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return c.Reply(fmt.Sprintf(replyAskFileFmt, u.maxSize>>20))
}

// file downloads mp3 sent by user and
// guesses its name and author.
func (u *Controller) file(c *controller.Context) error {
	const op = "upload.file"

	log := c.Log.With(
		slog.String("op", op),
	)

	if c.Session.State != session.StateUploadFile {
		return fmt.Errorf("%s: %w: file in state %s", op, session.ErrUnexpectedEvent, c.Session.State)
	}

	f := fileOf(c.Update.Message)

	if f.mime != mimeMP3 {
		log.Debug("rejected file", slog.String("mime", f.mime))
		return c.Reply(replyOnlyMP3)
	}
	if f.size > u.maxSize {
		return c.Reply(fmt.Sprintf(replyTooLargeFmt, u.maxSize>>20))
	}

	if err := c.Reply(replyDownloading); err != nil {
		log.Warn("failed to send reply", sl.Err(err))
	}

	url, err := c.Bot.GetFileDirectURL(f.id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	path, err := download.File(c, u.client, url, u.tmpDir, "upload-*.mp3", u.maxSize)
	switch {
	case errors.Is(err, download.ErrTooLarge):
		return c.Reply(fmt.Sprintf(replyTooLargeFmt, u.maxSize>>20))
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("%s: %w", op, err)
	}
	if !mt.Is(mimeMP3) {
		log.Info("downloaded file is not mp3", slog.String("mime", mt.String()))
		os.Remove(path)
		return c.Reply(replyOnlyMP3)
	}

	c.Session.Upload = session.Upload{Path: path}

	name, author, ok := f.guess()
	if !ok {
		if err := c.Fire(session.EventFile); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return c.Reply(replyAskName)
	}

	if err := c.Fire(session.EventFileNamed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.Session.Upload.Name = name
	c.Session.Upload.Author = author

	return c.Reply(
		fmt.Sprintf(replyConfirmFmt, name, author),
		tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(buttonYes, callbackConfirm),
				tgbotapi.NewInlineKeyboardButtonData(buttonNo, callbackRename),
			),
		),
	)
}

func (u *Controller) confirm(c *controller.Context) error {
	const op = "upload.confirm"

	if err := c.Fire(session.EventConfirm); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := u.send(c); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (u *Controller) rename(c *controller.Context) error {
	const op = "upload.rename"

	if err := c.Fire(session.EventRename); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.Session.Upload.Name = ""
	c.Session.Upload.Author = ""

	return c.Reply(replyAskName)
}

func (u *Controller) name(c *controller.Context) error {
	const op = "upload.name"

	if c.Text == "" {
		return c.Reply(replyEmptyName)
	}

	if err := c.Fire(session.EventName); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.Session.Upload.Name = c.Text

	return c.Reply(replyAskAuthor)
}

func (u *Controller) author(c *controller.Context) error {
	const op = "upload.author"

	if c.Text == "" {
		return c.Reply(replyEmptyAuthor)
	}

	if err := c.Fire(session.EventAuthor); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.Session.Upload.Author = c.Text

	if err := u.send(c); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// send uploads pending media.
// Library removes the source file whatever happens.
func (u *Controller) send(c *controller.Context) error {
	up := c.Session.Upload
	c.Session.Upload = session.Upload{}

	if err := c.Reply(replySending); err != nil {
		c.Log.Warn("failed to send reply", sl.Err(err))
	}

	res, err := u.lib.Upload(c, c.UserID, models.MediaUpload{
		Name:       up.Name,
		Author:     up.Author,
		SourcePath: up.Path,
	})
	switch {
	case errors.Is(err, service.ErrMediaExists):
		return c.Menu(replyExists)
	case err != nil:
		return err
	case res.Stale:
		return c.Menu(replyStale)
	}

	return c.Menu(replyUploaded)
}

type file struct {
	id        string
	name      string
	mime      string
	size      int64
	performer string
	title     string
}

func fileOf(msg *tgbotapi.Message) file {
	switch {
	case msg.Audio != nil:
		return file{
			id:        msg.Audio.FileID,
			name:      msg.Audio.FileName,
			mime:      msg.Audio.MimeType,
			size:      int64(msg.Audio.FileSize),
			performer: msg.Audio.Performer,
			title:     msg.Audio.Title,
		}
	case msg.Document != nil:
		return file{
			id:   msg.Document.FileID,
			name: msg.Document.FileName,
			mime: msg.Document.MimeType,
			size: int64(msg.Document.FileSize),
		}
	}
	return file{}
}

// guess extracts name and author from "Author - Title.mp3"
// file name or, failing that, from audio tags.
func (f file) guess() (name, author string, ok bool) {
	base := f.name
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".mp3") {
		base = strings.TrimSuffix(base, ext)
	}

	if parts := strings.Split(base, " - "); len(parts) == 2 {
		author, name = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if name != "" && author != "" {
			return name, author, true
		}
	}

	name, author = strings.TrimSpace(f.title), strings.TrimSpace(f.performer)
	if name != "" && author != "" {
		return name, author, true
	}

	return "", "", false
}
