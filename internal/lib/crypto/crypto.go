// Package crypto seals short secrets (user passwords) at rest.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	prefix   = "sb:"
	saltLen  = 16
	nonceLen = 24
	keyLen   = 32
)

var ErrOpen = errors.New("cannot open sealed value")

// Sealer encrypts values with a key derived from secret.
// Zero Sealer (empty secret) keeps values as is.
type Sealer struct {
	secret []byte
}

func New(secret string) *Sealer {
	return &Sealer{secret: []byte(secret)}
}

// Enabled reports whether values are actually encrypted.
func (s *Sealer) Enabled() bool {
	return len(s.secret) > 0
}

// Seal returns sealed representation of plain.
func (s *Sealer) Seal(plain string) (string, error) {
	const op = "Sealer.Seal"

	if !s.Enabled() {
		return plain, nil
	}

	var buf [saltLen + nonceLen]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var nonce [nonceLen]byte
	copy(nonce[:], buf[saltLen:])

	key := s.key(buf[:saltLen])
	out := secretbox.Seal(buf[:], []byte(plain), &nonce, key)

	return prefix + base64.RawStdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values stored before
// a secret was configured are returned unchanged.
func (s *Sealer) Open(sealed string) (string, error) {
	const op = "Sealer.Open"

	if !strings.HasPrefix(sealed, prefix) {
		return sealed, nil
	}
	if !s.Enabled() {
		return "", fmt.Errorf("%s: %w: no secret", op, ErrOpen)
	}

	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(sealed, prefix))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(raw) < saltLen+nonceLen+secretbox.Overhead {
		return "", fmt.Errorf("%s: %w: too short", op, ErrOpen)
	}

	var nonce [nonceLen]byte
	copy(nonce[:], raw[saltLen:saltLen+nonceLen])

	plain, ok := secretbox.Open(nil, raw[saltLen+nonceLen:], &nonce, s.key(raw[:saltLen]))
	if !ok {
		return "", fmt.Errorf("%s: %w", op, ErrOpen)
	}

	return string(plain), nil
}

func (s *Sealer) key(salt []byte) *[keyLen]byte {
	var key [keyLen]byte
	copy(key[:], argon2.IDKey(s.secret, salt, 1, 19*1024, 2, keyLen))
	return &key
}
