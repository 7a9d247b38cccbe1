package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")

	ErrInvalidToken = errors.New("invalid token")

	ErrMediaNotFound = errors.New("media not found")
	ErrMediaExists   = errors.New("media exists")
	ErrEmptyLibrary  = errors.New("empty library")
	ErrEmptyMedia    = errors.New("media has zero duration")

	ErrInvalidHours = errors.New("invalid hours")

	ErrNoManifest   = errors.New("manifest is not configured")
	ErrNothingOnAir = errors.New("nothing on air")
)
