package library

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ptr "github.com/GintGld/fizteh-radio-bot/internal/lib/utils/pointers"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
)

func media(id int64, name, author string) models.Media {
	return models.Media{
		ID:     ptr.Ptr(id),
		Name:   ptr.Ptr(name),
		Author: ptr.Ptr(author),
	}
}

func TestStringTransform(t *testing.T) {
	testCases := []struct {
		desc   string
		source string
		expect string
	}{
		{"lower", "ABC", "abc"},
		{"diacritics", "Hété", "hete"},
		{"cyrillic", "ПРИВЕТ", "привет"},
		{"cyrillic yo", "Ёлка", "елка"},
		{"empty", "", ""},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			assert.Equal(t, tC.expect, stringTransform(tC.source))
		})
	}
}

func TestFilterContains(t *testing.T) {
	lib := []models.Media{
		media(1, "Yesterday", "The Beatles"),
		media(2, "Bohemian Rhapsody", "Queen"),
		media(3, "Let It Be", "The Beatles"),
		media(4, "Café", "Zaz"),
	}

	testCases := []struct {
		desc   string
		query  string
		expect []int64
	}{
		{"by author keeps order", "beatles", []int64{1, 3}},
		{"by name", "rhapsody", []int64{2}},
		{"case insensitive", "QUEEN", []int64{2}},
		{"diacritics insensitive", "cafe", []int64{4}},
		{"surrounding spaces", "  zaz ", []int64{4}},
		{"nothing", "metallica", []int64{}},
		{"empty query matches all", "", []int64{1, 2, 3, 4}},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			res := filterContains(lib, tC.query)

			ids := make([]int64, 0, len(res))
			for _, m := range res {
				ids = append(ids, *m.ID)
			}
			assert.Equal(t, tC.expect, ids)

			// deterministic
			assert.Equal(t, res, filterContains(lib, tC.query))
		})
	}
}

func TestFilterContainsTags(t *testing.T) {
	rock := models.Tag{ID: 1, Name: "Рок", Type: models.TagType{ID: 2, Name: "genre"}}
	noWords := models.Tag{ID: 2, Name: "без слов", Type: models.TagType{ID: 5, Name: "language"}}

	lib := []models.Media{
		media(1, "Yesterday", "The Beatles"),
		media(2, "Bohemian Rhapsody", "Queen"),
		media(3, "Let It Be", "The Beatles"),
		media(4, "Theme", "Orchestra"),
	}
	lib[1].Tags = models.TagList{rock}
	lib[2].Tags = models.TagList{rock}
	lib[3].Tags = models.TagList{rock, noWords}

	testCases := []struct {
		desc   string
		query  string
		expect []int64
	}{
		{"tag only", "#рок", []int64{2, 3, 4}},
		{"tag case insensitive", "#РОК", []int64{2, 3, 4}},
		{"tag and text", "#рок beatles", []int64{3}},
		{"text before tag", "beatles #рок", []int64{3}},
		{"two tags", "#рок #без_слов", []int64{4}},
		{"unknown tag", "#джаз", []int64{}},
		{"bare prefix is text", "#", []int64{}},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			ids := make([]int64, 0)
			for _, m := range filterContains(lib, tC.query) {
				ids = append(ids, *m.ID)
			}
			assert.Equal(t, tC.expect, ids)
		})
	}
}

func TestFilterRank(t *testing.T) {
	lib := []models.Media{
		media(1, "Yesterday", "The Beatles"),
		media(2, "Bohemian Rhapsody", "Queen"),
		media(3, "Let It Be", "The Beatles"),
	}

	testCases := []struct {
		desc   string
		query  string
		expect []mediaRank
	}{
		{
			desc:  "typo in author word",
			query: "beatls",
			expect: []mediaRank{
				{media: lib[0], rank: 1},
				{media: lib[2], rank: 1},
			},
		},
		{
			desc:  "typo in name",
			query: "rapsody",
			expect: []mediaRank{
				{media: lib[1], rank: 1},
			},
		},
		{
			desc:   "too far",
			query:  "metallica",
			expect: []mediaRank{},
		},
		{
			desc:   "empty",
			query:  " ",
			expect: []mediaRank{},
		},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			assert.Equal(t, tC.expect, filterRank(lib, tC.query))
		})
	}
}
