package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	testCases := []struct {
		desc   string
		secret string
		plain  string
	}{
		{"disabled", "", "pass"},
		{"enabled", "secret", "pass"},
		{"enabled empty value", "secret", ""},
		{"enabled unicode", "secret", "пароль"},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			s := New(tC.secret)

			sealed, err := s.Seal(tC.plain)
			require.NoError(t, err)

			if s.Enabled() {
				assert.NotEqual(t, tC.plain, sealed)
			} else {
				assert.Equal(t, tC.plain, sealed)
			}

			plain, err := s.Open(sealed)
			require.NoError(t, err)
			assert.Equal(t, tC.plain, plain)
		})
	}
}

func TestOpenWrongSecret(t *testing.T) {
	sealed, err := New("one").Seal("pass")
	require.NoError(t, err)

	_, err = New("two").Open(sealed)
	require.ErrorIs(t, err, ErrOpen)

	_, err = New("").Open(sealed)
	require.ErrorIs(t, err, ErrOpen)
}

func TestOpenPlain(t *testing.T) {
	plain, err := New("secret").Open("legacy")
	require.NoError(t, err)
	assert.Equal(t, "legacy", plain)
}

func TestSealRandomized(t *testing.T) {
	s := New("secret")

	a, err := s.Seal("pass")
	require.NoError(t, err)
	b, err := s.Seal("pass")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
