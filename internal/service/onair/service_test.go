package onair

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zencoder/go-dash/v3/mpd"

	"github.com/GintGld/fizteh-radio-bot/internal/client/dash"
	ptr "github.com/GintGld/fizteh-radio-bot/internal/lib/utils/pointers"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSchedule struct {
	segments []models.Segment
}

func (s *fakeSchedule) Refresh(context.Context, int64) error { return nil }

func (s *fakeSchedule) Segments(int64) []models.Segment { return s.segments }

type fakeLibrary struct {
	media []models.Media
}

func (l *fakeLibrary) Refresh(context.Context, int64) error { return nil }

func (l *fakeLibrary) Media(_ int64, mediaID int64) (models.Media, error) {
	for _, m := range l.media {
		if *m.ID == mediaID {
			return m, nil
		}
	}
	return models.Media{}, service.ErrMediaNotFound
}

// manifest builds dynamic manifest the way radio does.
func manifest(startTime time.Time, segments []models.Segment) *mpd.MPD {
	minBufferTime := mpd.Duration(30 * time.Second)
	minUpdatePeriod := mpd.Duration(10 * time.Second)
	man := mpd.NewDynamicMPD(
		mpd.DASH_PROFILE_LIVE,
		startTime.UTC().Format("2006-01-02T15:04:05"),
		minBufferTime.String(),
		mpd.AttrMinimumUpdatePeriod(minUpdatePeriod.String()),
	)

	man.Periods = make([]*mpd.Period, len(segments))
	for i, segm := range segments {
		man.Periods[i] = &mpd.Period{
			ID:       strconv.Itoa(i + 1),
			Duration: mpd.Duration(*segm.StopCut - *segm.BeginCut),
			Start:    ptr.Ptr(mpd.Duration(segm.Start.Sub(startTime))),
		}
	}

	return man
}

func segment(id, mediaID int64, start time.Time, d time.Duration) models.Segment {
	return models.Segment{
		ID:       ptr.Ptr(id),
		MediaID:  ptr.Ptr(mediaID),
		Start:    ptr.Ptr(start),
		BeginCut: ptr.Ptr(time.Duration(0)),
		StopCut:  ptr.Ptr(d),
	}
}

func TestPlaying(t *testing.T) {
	startTime := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	segments := []models.Segment{
		segment(1, 1, startTime.Add(time.Minute), 3*time.Minute),
		segment(2, 2, startTime.Add(4*time.Minute), 2*time.Minute),
		segment(3, 1, startTime.Add(6*time.Minute), 3*time.Minute),
	}
	man := manifest(startTime, segments)

	testCases := []struct {
		desc     string
		now      time.Time
		start    time.Time
		upcoming int
		expErr   error
	}{
		{
			desc:     "first",
			now:      startTime.Add(2 * time.Minute),
			start:    startTime.Add(time.Minute),
			upcoming: 2,
		},
		{
			desc:     "exact start of second",
			now:      startTime.Add(4 * time.Minute),
			start:    startTime.Add(4 * time.Minute),
			upcoming: 1,
		},
		{
			desc:   "before stream",
			now:    startTime,
			expErr: service.ErrNothingOnAir,
		},
		{
			desc:   "after stream",
			now:    startTime.Add(time.Hour),
			expErr: service.ErrNothingOnAir,
		},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			st, err := playing(man, tC.now)
			if tC.expErr != nil {
				require.ErrorIs(t, err, tC.expErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tC.start.Equal(st.Start))
			assert.Equal(t, tC.upcoming, st.Upcoming)
		})
	}
}

func TestNow(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	startTime := now.Add(-time.Hour)

	segments := []models.Segment{
		segment(1, 10, now.Add(-time.Minute), 3*time.Minute),
		segment(2, 20, now.Add(2*time.Minute), 3*time.Minute),
	}

	body, err := manifest(startTime, segments).WriteToString()
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/dash+xml")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	lib := &fakeLibrary{media: []models.Media{
		{ID: ptr.Ptr[int64](10), Name: ptr.Ptr("Song"), Author: ptr.Ptr("Band")},
	}}

	o := New(discard, dash.New(discard, srv.URL, 5*time.Second), &fakeSchedule{segments: segments}, lib)
	o.now = func() time.Time { return now }

	st, err := o.Now(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, st.Media)
	assert.Equal(t, "Song", *st.Media.Name)
	assert.True(t, now.Add(2*time.Minute).Equal(st.End))
	assert.Equal(t, 1, st.Upcoming)

	// period unknown to schedule
	o.sch = &fakeSchedule{}
	st, err = o.Now(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, st.Media)
}

func TestNowDisabled(t *testing.T) {
	o := New(discard, nil, &fakeSchedule{}, &fakeLibrary{})
	assert.False(t, o.Enabled())

	_, err := o.Now(context.Background(), 1)
	require.ErrorIs(t, err, service.ErrNoManifest)
}
