package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/akarpov/contactsbook/internal/logger"
)

const defaultQueueSize = 64

const confirmationSubject = "Confirm your e-mail"

// Message body of the confirmation letter, very plain on purpose
const confirmationBody = `Hello {{.Username}},

Please confirm your e-mail address by opening the link below:

{{.Host}}/api/auth/confirm_email/{{.Token}}

If you did not sign up, just ignore this letter.
`

var confirmationTemplate = template.Must(template.New("confirmation").Parse(confirmationBody))

type Config struct {
	// SMTP server to send through
	Host string
	Port int

	// Credentials, leave empty to send without auth (local relay)
	Username string
	Password string

	// From header, e.g. "Contactsbook <noreply@contactsbook.local>"
	From string

	// Size of the in-memory dispatch queue
	// If not set than default is used
	QueueSize int
}

type confirmation struct {
	To       string
	Username string
	Token    string
	Host     string
}

// Dispatcher sends confirmation mails in background
// Enqueueing never blocks the caller: when the queue is full the letter is
// dropped and logged, signup must not fail because of a mail outage
type Dispatcher struct {
	cfg    Config
	queue  chan confirmation
	logger logger.Logger

	// Send function, replaced in tests
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg Config, l logger.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Dispatcher{
		cfg:      cfg,
		queue:    make(chan confirmation, cfg.QueueSize),
		logger:   l,
		sendMail: smtp.SendMail,
	}
}

// SendConfirmation enqueues a confirmation letter, non blocking
func (d *Dispatcher) SendConfirmation(to string, username string, token string, host string) {
	msg := confirmation{
		To:       to,
		Username: username,
		Token:    token,
		Host:     strings.TrimSuffix(host, "/"),
	}

	select {
	case d.queue <- msg:
	default:
		d.logger.Error("mail queue is full, confirmation letter dropped", "to", to)
	}
}

// Run consumes the queue until the context is cancelled
// Returned channel is closed when the worker is fully stopped
func (d *Dispatcher) Run(ctx context.Context) <-chan struct{} {
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		for {
			select {
			case <-ctx.Done():
				d.logger.Debug("mail dispatcher stopped by context")
				return

			case msg := <-d.queue:
				if err := d.send(msg); err != nil {
					// Mail failures are logged and swallowed
					d.logger.Error("can't send confirmation letter", "to", msg.To, "error", err)
				}
			}
		}
	}()

	return stopped
}

func (d *Dispatcher) send(msg confirmation) error {
	body := &bytes.Buffer{}
	if err := confirmationTemplate.Execute(body, msg); err != nil {
		return fmt.Errorf("can't render letter. Err: %w", err)
	}

	letter := &bytes.Buffer{}
	fmt.Fprintf(letter, "From: %s\r\n", d.cfg.From)
	fmt.Fprintf(letter, "To: %s\r\n", msg.To)
	fmt.Fprintf(letter, "Subject: %s\r\n", confirmationSubject)
	fmt.Fprintf(letter, "MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	letter.Write(body.Bytes())

	var auth smtp.Auth
	if d.cfg.Username != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)

	return d.sendMail(addr, auth, d.cfg.From, []string{msg.To}, letter.Bytes())
}
