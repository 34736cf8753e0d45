package relay

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/config"
)

// ErrNoRecipients is returned when a broadcast has nobody to go to.
var ErrNoRecipients = errors.New("no recipients")

// SubjectFormat is the subject of release announcements.
const SubjectFormat = "✨ Ada kabar baru dari Admin Cool! (v%s)"

var announcement = template.Must(template.New("announcement").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<style>
body { font-family: 'Segoe UI', Tahoma, sans-serif; line-height: 1.6; color: #334155; background: #f8fafc; margin: 0; }
.container { max-width: 600px; margin: 20px auto; background: #ffffff; border-radius: 16px; overflow: hidden; }
.header { background: linear-gradient(135deg, #10b981, #059669); padding: 36px 20px; text-align: center; color: #ffffff; }
.content { padding: 28px; }
.btn { display: inline-block; padding: 12px 24px; background: #10b981; color: #ffffff; text-decoration: none; border-radius: 8px; font-weight: bold; }
.footer { text-align: center; padding: 18px; font-size: 13px; color: #64748b; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Kabar Hangat dari Admin Cool!</h1>
    <p>Versi {{.Version}} sudah tersedia</p>
  </div>
  <div class="content">
    <p><strong>Halo, Pejuang Kebaikan!</strong></p>
    <p>Super Muslim Assistant baru saja diperbarui ke versi <strong>{{.Version}}</strong>. Buka aplikasinya untuk melihat apa saja yang baru.</p>
    <p>Terima kasih sudah setia beribadah bersama kami. Semoga setiap langkah kebaikanmu dicatat dan diberkahi.</p>
    <p><em>Salam hangat,</em><br><strong>Admin Cool</strong></p>
    {{if .AppURL}}<p style="text-align:center"><a class="btn" href="{{.AppURL}}">Buka Aplikasi Sekarang</a></p>{{end}}
  </div>
  <div class="footer">Super Muslim Assistant</div>
</div>
</body>
</html>
`))

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends release announcements over SMTP.
type Mailer struct {
	cfg    config.MailConfig
	client sender
}

// NewMailer creates an SMTP mailer.
func NewMailer(cfg config.MailConfig) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &Mailer{cfg: cfg, client: client}, nil
}

// SendVersion sends one email announcing version to every recipient via BCC.
func (m *Mailer) SendVersion(ctx context.Context, version string, recipients []string) error {
	msg, err := m.build(version, recipients)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send announcement: %w", err)
	}
	log.Info().Str("version", version).Int("recipients", len(recipients)).Msg("Announcement sent")
	return nil
}

func (m *Mailer) build(version string, recipients []string) (*mail.Msg, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	// The sender also goes in To so servers that reject an empty To accept it.
	if err := msg.To(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := msg.Bcc(recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(fmt.Sprintf(SubjectFormat, version))

	data := struct {
		Version string
		AppURL  string
	}{version, m.cfg.AppURL}
	if err := msg.SetBodyHTMLTemplate(announcement, data); err != nil {
		return nil, fmt.Errorf("failed to render announcement: %w", err)
	}
	return msg, nil
}
