package models

import (
	"encoding/json"
	"time"
)

// User is a telegram user known to the bot.
type User struct {
	ID    int64  `json:"-"`
	Login string `json:"login"`
	Pass  string `json:"pass"`
}

// Token is an access token issued by radio.
type Token struct {
	Raw    string
	Expiry time.Time
}

// Valid reports whether the token is still usable
// at moment now with given safety margin.
func (t Token) Valid(now time.Time, margin time.Duration) bool {
	return t.Raw != "" && now.Add(margin).Before(t.Expiry)
}

type Media struct {
	ID       *int64         `json:"id"`
	Name     *string        `json:"name"`
	Author   *string        `json:"author"`
	Duration *time.Duration `json:"duration"`
	Tags     TagList        `json:"tags"`
}

// MediaUpload describes new media waiting to be sent to radio.
type MediaUpload struct {
	Name       string
	Author     string
	SourcePath string
}

type TagList []Tag

type Tag struct {
	ID   int64             `json:"id"`
	Name string            `json:"name"`
	Type TagType           `json:"type"`
	Meta map[string]string `json:"meta"`
}

type TagType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Segment struct {
	ID        *int64         `json:"id"`
	MediaID   *int64         `json:"mediaID"`
	Start     *time.Time     `json:"start"`
	BeginCut  *time.Duration `json:"beginCut"`
	StopCut   *time.Duration `json:"stopCut"`
	Protected bool           `json:"protected"`
}

// End returns time of segment end.
func (s Segment) End() time.Time {
	return s.Start.Add(*s.StopCut - *s.BeginCut)
}

// specify custom time marshalling since
// radio parses only this layout.
const TimeFormat = "2006-01-02T15:04:05.999999999-07:00"

func (s Segment) MarshalJSON() ([]byte, error) {
	type segmentJSON Segment

	var start *string
	if s.Start != nil {
		str := s.Start.Format(TimeFormat)
		start = &str
	}

	tmp := struct {
		segmentJSON
		Time *string `json:"start"`
	}{
		segmentJSON: segmentJSON(s),
		Time:        start,
	}

	return json.Marshal(tmp)
}
