package jwtService

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
)

// JWT reads tokens issued by radio.
// Signature can not be checked on the bot side,
// radio validates it on every request.
type JWT struct {
	parser *jwt.Parser
}

func New() *JWT {
	return &JWT{
		parser: jwt.NewParser(),
	}
}

// ParseToken returns token with its expiration time.
func (j *JWT) ParseToken(raw string) (models.Token, error) {
	const op = "JWT.ParseToken"

	token, _, err := j.parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return models.Token{}, fmt.Errorf("%s: %w: %w", op, service.ErrInvalidToken, err)
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return models.Token{}, fmt.Errorf("%s: %w: %w", op, service.ErrInvalidToken, err)
	}
	if exp == nil {
		return models.Token{}, fmt.Errorf("%s: %w: no expiration", op, service.ErrInvalidToken)
	}

	return models.Token{
		Raw:    raw,
		Expiry: exp.Time,
	}, nil
}
