package models_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ptr "github.com/GintGld/fizteh-radio-bot/internal/lib/utils/pointers"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
)

func TestSegmentMarshal(t *testing.T) {
	ti := time.Now()
	writeFormat := ti.Format(models.TimeFormat)

	testCases := []struct {
		desc   string
		s      models.Segment
		expect string
	}{
		{
			desc: "start set",
			s: models.Segment{
				ID:      ptr.Ptr[int64](10),
				MediaID: ptr.Ptr[int64](1),
				Start:   ptr.Ptr(ti),
			},
			expect: fmt.Sprintf(`{"id":10,"mediaID":1,"start":"%s","beginCut":null,"stopCut":null,"protected":false}`, writeFormat),
		},
		{
			desc: "new protected segment",
			s: models.Segment{
				MediaID:   ptr.Ptr[int64](3),
				Start:     ptr.Ptr(ti),
				BeginCut:  ptr.Ptr(time.Duration(0)),
				StopCut:   ptr.Ptr(time.Minute),
				Protected: true,
			},
			expect: fmt.Sprintf(`{"id":null,"mediaID":3,"start":"%s","beginCut":0,"stopCut":60000000000,"protected":true}`, writeFormat),
		},
		{
			desc:   "start unset",
			s:      models.Segment{},
			expect: `{"id":null,"mediaID":null,"start":null,"beginCut":null,"stopCut":null,"protected":false}`,
		},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			res, err := json.Marshal(tC.s)
			require.NoError(t, err)

			require.JSONEq(t, tC.expect, string(res))
		})
	}
}

func TestSegmentUnmarshal(t *testing.T) {
	ti := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("", 3*3600))

	payload := fmt.Sprintf(`{"id":5,"mediaID":2,"start":"%s","beginCut":0,"stopCut":180000000000,"protected":true}`, ti.Format(models.TimeFormat))

	var s models.Segment
	require.NoError(t, json.Unmarshal([]byte(payload), &s))

	assert.Equal(t, int64(5), *s.ID)
	assert.True(t, ti.Equal(*s.Start))
	assert.True(t, ti.Add(3*time.Minute).Equal(s.End()))
	assert.True(t, s.Protected)
}

func TestSegmentEnd(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		desc   string
		s      models.Segment
		expect time.Time
	}{
		{
			desc: "no begin cut",
			s: models.Segment{
				Start:    ptr.Ptr(start),
				BeginCut: ptr.Ptr(time.Duration(0)),
				StopCut:  ptr.Ptr(90 * time.Second),
			},
			expect: start.Add(90 * time.Second),
		},
		{
			desc: "begin cut",
			s: models.Segment{
				Start:    ptr.Ptr(start),
				BeginCut: ptr.Ptr(10 * time.Second),
				StopCut:  ptr.Ptr(90 * time.Second),
			},
			expect: start.Add(80 * time.Second),
		},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			assert.Equal(t, tC.expect, tC.s.End())
		})
	}
}

func TestTokenValid(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		desc   string
		token  models.Token
		expect bool
	}{
		{"empty", models.Token{}, false},
		{"expired", models.Token{Raw: "x", Expiry: now.Add(-time.Minute)}, false},
		{"inside margin", models.Token{Raw: "x", Expiry: now.Add(3 * time.Second)}, false},
		{"fresh", models.Token{Raw: "x", Expiry: now.Add(time.Hour)}, true},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			assert.Equal(t, tC.expect, tC.token.Valid(now, 5*time.Second))
		})
	}
}
