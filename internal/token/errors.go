package token

import "errors"

var (
	ErrExpired         = errors.New("token has expired")
	ErrInvalid         = errors.New("invalid token")
	ErrMissingFields   = errors.New("token missing required fields")
	ErrInvalidPlatform = errors.New("invalid platform")
	ErrPlatformConfig  = errors.New("platform signing secret not configured")
)
