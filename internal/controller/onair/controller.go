package onair

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GintGld/fizteh-radio-bot/internal/controller"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
	"github.com/GintGld/fizteh-radio-bot/internal/service/onair"
)

const (
	replySilence     = "Сейчас в эфире тишина."
	replyPlayingFmt  = "Сейчас в эфире: %s — %s"
	replyUnknown     = "Сейчас в эфире что-то, чего нет в расписании."
	replyUntilFmt    = "Закончится в %s"
	replyUpcomingFmt = "Дальше в очереди: %d"
)

type Controller struct {
	onAir OnAir
	loc   *time.Location
}

type OnAir interface {
	Now(ctx context.Context, id int64) (onair.Status, error)
}

func New(onAir OnAir, loc *time.Location) *Controller {
	return &Controller{
		onAir: onAir,
		loc:   loc,
	}
}

func (o *Controller) Mount(r *controller.Router) {
	r.Button(controller.ButtonOnAir, o.now)
}

func (o *Controller) now(c *controller.Context) error {
	const op = "onair.now"

	st, err := o.onAir.Now(c, c.UserID)
	switch {
	case errors.Is(err, service.ErrNothingOnAir):
		return c.Reply(replySilence)
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}

	lines := make([]string, 0, 3)
	if st.Media != nil && st.Media.Name != nil && st.Media.Author != nil {
		lines = append(lines, fmt.Sprintf(replyPlayingFmt, *st.Media.Name, *st.Media.Author))
	} else {
		lines = append(lines, replyUnknown)
	}
	lines = append(lines, fmt.Sprintf(replyUntilFmt, st.End.In(o.loc).Format("15:04:05")))
	if st.Upcoming > 0 {
		lines = append(lines, fmt.Sprintf(replyUpcomingFmt, st.Upcoming))
	}

	return c.Reply(strings.Join(lines, "\n"))
}
