package mailer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"hackhub/internal/notify"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer delivers notify.Messages over SMTP.
type Mailer struct {
	cfg      Config
	log      *zerolog.Logger
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log, sendMail: smtp.SendMail}
}

func (m *Mailer) Send(ctx context.Context, msg notify.Message) error {
	if msg.To == "" {
		return errors.New("message has no recipient")
	}
	if m.cfg.Host == "" {
		m.log.Warn().Str("to", msg.To).Str("kind", string(msg.Kind)).Msg("smtp host not configured, skipping email")
		return nil
	}

	subject, body := Render(msg)
	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		headerValue(m.cfg.From), headerValue(msg.To),
		mime.QEncoding.Encode("utf-8", headerValue(subject)),
		strings.ReplaceAll(body, "\n", "\r\n"),
	)

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.sendMail(addr, auth, m.cfg.From, []string{msg.To}, []byte(raw))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}

	m.log.Info().Str("to", msg.To).Str("kind", string(msg.Kind)).Int64("team_id", msg.TeamID).Msg("email sent")
	return nil
}

// headerValue folds line breaks so user text cannot start a new header.
func headerValue(v string) string {
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}

// Render builds the subject and plain-text body for msg.
func Render(msg notify.Message) (subject, body string) {
	var b strings.Builder
	name := msg.RecipientName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)

	switch msg.Kind {
	case notify.KindRegistrationPending:
		subject = fmt.Sprintf("Registration received: %s", msg.EventTitle)
		fmt.Fprintf(&b, "Your team %q is registered for %s. Your payment is pending verification by the organiser.\n", msg.TeamName, msg.EventTitle)
		fmt.Fprintf(&b, "\nTransaction reference: %s\nAmount: %d\n", msg.TransactionReference, msg.Amount)
	case notify.KindRegistrationConfirmed:
		subject = fmt.Sprintf("Registration confirmed: %s", msg.EventTitle)
		fmt.Fprintf(&b, "Your team %q is confirmed for %s.\n", msg.TeamName, msg.EventTitle)
	case notify.KindPaymentVerified:
		subject = fmt.Sprintf("Payment verified: %s", msg.EventTitle)
		fmt.Fprintf(&b, "The payment for team %q has been verified. Your registration for %s is confirmed.\n", msg.TeamName, msg.EventTitle)
		if msg.TransactionReference != "" {
			fmt.Fprintf(&b, "\nTransaction reference: %s\n", msg.TransactionReference)
		}
	case notify.KindPaymentRejected:
		subject = fmt.Sprintf("Payment rejected: %s", msg.EventTitle)
		fmt.Fprintf(&b, "The payment for team %q could not be verified and the registration for %s was rejected.\n", msg.TeamName, msg.EventTitle)
		if msg.Notes != "" {
			fmt.Fprintf(&b, "\nReason: %s\n", msg.Notes)
		}
	default:
		subject = fmt.Sprintf("Update: %s", msg.EventTitle)
		fmt.Fprintf(&b, "There is an update on team %q for %s.\n", msg.TeamName, msg.EventTitle)
	}

	if msg.Notes != "" && msg.Kind != notify.KindPaymentRejected {
		fmt.Fprintf(&b, "\nNotes: %s\n", msg.Notes)
	}
	if !msg.EventStart.IsZero() {
		fmt.Fprintf(&b, "\nEvent starts: %s\n", msg.EventStart.Format("Mon, 02 Jan 2006 15:04 MST"))
	}
	if msg.Venue != "" {
		fmt.Fprintf(&b, "Venue: %s\n", msg.Venue)
	}
	if len(msg.Members) > 0 {
		b.WriteString("\nTeam members:\n")
		for _, mem := range msg.Members {
			leader := ""
			if mem.IsLeader {
				leader = " (leader)"
			}
			fmt.Fprintf(&b, "  - %s <%s>%s\n", mem.Name, mem.Email, leader)
		}
	}
	if msg.ManagerName != "" || msg.ManagerEmail != "" {
		b.WriteString("\nQuestions? Contact the organiser:\n")
		if msg.ManagerName != "" {
			fmt.Fprintf(&b, "  %s\n", msg.ManagerName)
		}
		if msg.ManagerEmail != "" {
			fmt.Fprintf(&b, "  %s\n", msg.ManagerEmail)
		}
		if msg.ManagerPhone != "" {
			fmt.Fprintf(&b, "  %s\n", msg.ManagerPhone)
		}
	}
	return subject, b.String()
}
