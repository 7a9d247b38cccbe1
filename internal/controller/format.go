package controller

import (
	"fmt"
	"time"

	"github.com/GintGld/fizteh-radio-bot/internal/models"
)

const clockFormat = "15:04:05"

// FormatMedia renders media as a single line with m:ss duration.
func FormatMedia(m models.Media) string {
	res := fmt.Sprintf("%s — %s", orUnknown(m.Name), orUnknown(m.Author))
	if m.Duration != nil {
		res += " (" + FormatDuration(*m.Duration) + ")"
	}
	return res
}

// FormatSegment renders segment time bounds in given location
// followed by media description when it is known.
func FormatSegment(s models.Segment, m *models.Media, loc *time.Location) string {
	res := "??:??:??-??:??:??"
	if s.Start != nil && s.StopCut != nil && s.BeginCut != nil {
		res = s.Start.In(loc).Format(clockFormat) + "-" + s.End().In(loc).Format(clockFormat)
	}

	if m == nil {
		return res + "  ???"
	}
	return fmt.Sprintf("%s  %s — %s", res, orUnknown(m.Name), orUnknown(m.Author))
}

// FormatDuration renders duration as h:mm:ss or m:ss.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "???"
	}
	return *s
}
