package email

import "context"

// Provider delivers one-time passcodes to an address.
type Provider interface {
	SendOtp(ctx context.Context, to string, code string) error
}

// NoOpProvider drops mail on the floor. Used in tests and in
// environments without SMTP credentials.
type NoOpProvider struct{}

func (p *NoOpProvider) SendOtp(ctx context.Context, to string, code string) error {
	return nil
}
