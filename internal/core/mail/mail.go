// Package mail 出站邮件：smtp（go-mail）或仅写日志。
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"adaayien/internal/core/config"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// New 按 mail.provider 选择实现
func New(cfg config.Mail, l *zap.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "smtp":
		return NewSMTP(cfg)
	case "", "log":
		return &LogMailer{l: l.Named("mail")}, nil
	default:
		return nil, fmt.Errorf("mail: unknown provider %q", cfg.Provider)
	}
}

// LogMailer 开发环境用，邮件内容只写日志
type LogMailer struct{ l *zap.Logger }

func NewLogMailer(l *zap.Logger) *LogMailer { return &LogMailer{l: l} }

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.l.Info("mail (not delivered)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}

type SMTP struct {
	client *gomail.Client
	from   string
}

func NewSMTP(cfg config.Mail) (*SMTP, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	c, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: smtp client: %w", err)
	}
	return &SMTP{client: c, from: cfg.From}, nil
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("mail: from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("mail: to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}
	return s.client.DialAndSendWithContext(ctx, m)
}

var verificationTmpl = template.Must(template.New("verify").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>Welcome to Adaayien, {{.Name}}!</h2>
<p>Please confirm your email address to activate your account.</p>
<p><a href="{{.Link}}">Verify my email</a></p>
<p>This link expires in {{.Hours}} hours. If you did not sign up, ignore this email.</p>
</body></html>`))

// VerificationMessage 注册 / 重发验证邮件
func VerificationMessage(to, name, link string, ttlHours int) (Message, error) {
	var buf bytes.Buffer
	err := verificationTmpl.Execute(&buf, struct {
		Name  string
		Link  string
		Hours int
	}{name, link, ttlHours})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Verify your Adaayien account",
		Text:    fmt.Sprintf("Hi %s,\n\nVerify your email: %s\n\nThis link expires in %d hours.", name, link, ttlHours),
		HTML:    buf.String(),
	}, nil
}
