package googleauth

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"github.com/crewbase/crewbase/internal/config"
)

type googleProvider struct {
	oauth    *oauth2.Config
	clientID string
}

// NewProvider builds a Provider backed by Google's OAuth endpoints.
func NewProvider(cfg config.Config) Provider {
	return &googleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		clientID: cfg.GoogleClientID,
	}
}

func (p *googleProvider) Exchange(ctx context.Context, code string) (Claims, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		if strings.Contains(err.Error(), "invalid_grant") {
			return Claims{}, ErrCodeInvalid
		}
		return Claims{}, ErrAuth
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return Claims{}, ErrTokenMalformed
	}

	payload, err := idtoken.Validate(ctx, raw, p.clientID)
	if err != nil {
		return Claims{}, classifyValidateErr(err)
	}

	return claimsFromPayload(payload), nil
}

func classifyValidateErr(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "expired"):
		return ErrTokenExpired
	case strings.Contains(msg, "audience"):
		return ErrAudience
	case strings.Contains(msg, "malformed") || strings.Contains(msg, "invalid token"):
		return ErrTokenMalformed
	case strings.Contains(msg, "signature"):
		return ErrTokenInvalid
	default:
		return ErrAuth
	}
}

func claimsFromPayload(payload *idtoken.Payload) Claims {
	c := Claims{Subject: payload.Subject}
	if v, ok := payload.Claims["email"].(string); ok {
		c.Email = v
	}
	if v, ok := payload.Claims["given_name"].(string); ok {
		c.GivenName = v
	}
	if v, ok := payload.Claims["family_name"].(string); ok {
		c.FamilyName = v
	}
	if v, ok := payload.Claims["email_verified"].(bool); ok {
		c.EmailVerified = v
	}
	return c
}
