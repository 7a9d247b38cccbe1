package help

import (
	"fmt"
	"strings"

	"github.com/GintGld/fizteh-radio-bot/internal/controller"
	"github.com/GintGld/fizteh-radio-bot/internal/session"
)

type Controller struct {
	onAir bool
}

func New(onAir bool) *Controller {
	return &Controller{
		onAir: onAir,
	}
}

func (h *Controller) Mount(r *controller.Router) {
	r.Command(controller.CommandHelp, h.help)
	r.Button(controller.ButtonHelp, h.help)
}

func (h *Controller) help(c *controller.Context) error {
	const op = "help.help"

	if err := c.Switch(session.EventHelp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return c.Menu(h.text())
}

func (h *Controller) text() string {
	var b strings.Builder

	b.WriteString("Сейчас я объясню свой функционал!\n\n")
	b.WriteString(controller.ButtonLibrary + " библиотека: поиск композиций по названию, автору или тегу и добавление их в конец расписания.\n")
	b.WriteString("/" + controller.CommandTags + " список тегов для поиска, например «#рок queen».\n")
	b.WriteString(controller.ButtonSchedule + " расписание: просмотр текущего расписания и автодиджей, который заполнит эфир случайной музыкой на нужное число часов.\n")
	b.WriteString(controller.ButtonNewMedia + " новая композиция: пришли .mp3 файл, и я загружу его на радио.\n")
	if h.onAir {
		b.WriteString(controller.ButtonOnAir + " эфир: что играет прямо сейчас.\n")
	}
	b.WriteString("\n«" + controller.ButtonMainMenu + "» возвращает в начало из любого места.")

	return b.String()
}
