package library

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/GintGld/fizteh-radio-bot/internal/models"
)

/*
 * Normalization is the one radio uses for its own search,
 * built on top of github.com/lithammer/fuzzysearch/fuzzy.
 */

var (
	normalizeTransformer transform.Transformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	transformer                                = transform.Chain(normalizeTransformer, unicodeFoldTransformer{})
)

type mediaRank struct {
	media models.Media
	rank  int
}

func rankCmp(mr1, mr2 mediaRank) int {
	return mr1.rank - mr2.rank
}

// tagPrefix marks query words selecting media by tag.
// Spaces inside tag names are typed as '_'.
const tagPrefix = "#"

// query is a parsed search request.
type query struct {
	text string
	tags []string
}

func parseQuery(raw string) query {
	var (
		q     query
		words []string
	)

	for _, word := range strings.Fields(raw) {
		if tag, ok := strings.CutPrefix(word, tagPrefix); ok && tag != "" {
			q.tags = append(q.tags, stringTransform(strings.ReplaceAll(tag, "_", " ")))
			continue
		}
		words = append(words, word)
	}
	q.text = stringTransform(strings.Join(words, " "))

	return q
}

// filterContains returns media whose name or author
// contains the query text and which carry every
// queried tag. Library order is kept.
func filterContains(lib []models.Media, raw string) []models.Media {
	q := parseQuery(raw)

	out := make([]models.Media, 0)
	for _, media := range lib {
		if !hasTags(media, q.tags) {
			continue
		}
		if strings.Contains(stringTransform(deref(media.Name)), q.text) ||
			strings.Contains(stringTransform(deref(media.Author)), q.text) {
			out = append(out, media)
		}
	}

	return out
}

func hasTags(media models.Media, tags []string) bool {
	for _, tag := range tags {
		if !slices.ContainsFunc(media.Tags, func(t models.Tag) bool {
			return stringTransform(t.Name) == tag
		}) {
			return false
		}
	}
	return true
}

// filterRank returns media close to the query by Levenshtein distance
// of whole fields or their single words.
// The returned slice it sorted by rank ascending order.
func filterRank(lib []models.Media, raw string) []mediaRank {
	q := parseQuery(raw).text
	if q == "" {
		return []mediaRank{}
	}

	threshold := max(1, utf8.RuneCountInString(q)/3)

	out := make([]mediaRank, 0, len(lib))
	for _, media := range lib {
		rank := min(fieldRank(deref(media.Name), q), fieldRank(deref(media.Author), q))
		if rank <= threshold {
			out = append(out, mediaRank{
				media: media,
				rank:  rank,
			})
		}
	}

	// stable to keep library order for equal ranks
	slices.SortStableFunc(out, rankCmp)

	return out
}

func fieldRank(field, q string) int {
	field = stringTransform(field)

	rank := fuzzy.LevenshteinDistance(field, q)
	for _, word := range strings.Fields(field) {
		rank = min(rank, fuzzy.LevenshteinDistance(word, q))
	}

	return rank
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stringTransform(s string) (transformed string) {
	var err error
	transformed, _, err = transform.String(transformer, s)
	if err != nil {
		transformed = s
	}

	return
}

type unicodeFoldTransformer struct{ transform.NopResetter }

func (unicodeFoldTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && !atEOF && !utf8.FullRune(src[nSrc:]) {
			err = transform.ErrShortSrc
			break
		}
		r = unicode.ToLower(r)
		if utf8.RuneLen(r) > len(dst[nDst:]) {
			err = transform.ErrShortDst
			break
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc += size
	}
	return nDst, nSrc, err
}
