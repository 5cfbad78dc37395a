// Package platform defines the closed set of client platforms.
package platform

import (
	"errors"
	"strings"
)

// Platform identifies which client surface a token was minted for.
type Platform string

const (
	Website   Platform = "WEBSITE"
	App       Platform = "APP"
	Extension Platform = "EXTENSION"
)

var ErrInvalid = errors.New("invalid platform")

// All returns every known platform.
func All() []Platform {
	return []Platform{Website, App, Extension}
}

// Parse normalizes raw and maps it onto the closed enum.
func Parse(raw string) (Platform, error) {
	switch Platform(strings.ToUpper(strings.TrimSpace(raw))) {
	case Website:
		return Website, nil
	case App:
		return App, nil
	case Extension:
		return Extension, nil
	default:
		return "", ErrInvalid
	}
}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case Website, App, Extension:
		return true
	default:
		return false
	}
}

func (p Platform) String() string { return string(p) }
