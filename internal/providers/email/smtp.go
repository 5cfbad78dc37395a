package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

const otpSubject = "Your verification code"

var otpTemplate = template.Must(template.New("otp").Parse(`<html>
<body>
  <p>Your verification code is:</p>
  <h2>{{.Code}}</h2>
  <p>The code expires in 5 minutes. If you did not request it, ignore this mail.</p>
</body>
</html>`))

func (p *SMTPProvider) SendOtp(ctx context.Context, to string, code string) error {
	var body bytes.Buffer
	if err := otpTemplate.Execute(&body, struct{ Code string }{Code: code}); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return p.send(to, otpSubject, body.String())
}

func (p *SMTPProvider) send(to string, subject string, htmlBody string) error {
	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", to, subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, p.cfg.From, []string{to}, msg)
}
