// Package mailer handles the contact form: it stores the message and
// sends the sender an auto-reply through SendGrid.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/arteregistrazioni/arte-server/internal/catalog"
)

const (
	maxNameLen    = 80
	maxQuoteLen   = 1000
	maxMessageLen = 5000

	replySubject = "Grazie per averci scritto - Arte Registrazioni"
)

// ErrInvalidEmail is returned for an unparseable sender address.
var ErrInvalidEmail = errors.New("mailer: invalid email address")

// Store is the slice of the repository the mailer needs.
type Store interface {
	CreateContact(ctx context.Context, contact *catalog.Contact) error
}

// Sender sends one composed mail. Satisfied by *sendgrid.Client.
type Sender interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

type Service struct {
	client      Sender
	senderEmail string
	senderName  string
	repo        Store
	logger      *slog.Logger
	now         func() time.Time
}

// New builds the mailer. An empty API key disables sending; messages
// are still persisted.
func New(apiKey, senderEmail, senderName string, repo Store, logger *slog.Logger) *Service {
	var client Sender
	if apiKey != "" {
		client = sendgrid.NewSendClient(apiKey)
	}
	return &Service{
		client:      client,
		senderEmail: senderEmail,
		senderName:  senderName,
		repo:        repo,
		logger:      logger.With(slog.String("component", "mailer")),
		now:         time.Now,
	}
}

// HandleContact validates and stores a contact message, then sends the
// auto-reply when sending is configured. A delivery failure does not
// lose the stored message.
func (s *Service) HandleContact(ctx context.Context, email, name, message string) (*catalog.Contact, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, ErrInvalidEmail
	}

	name = truncate(strings.TrimSpace(name), maxNameLen)
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New("mailer: empty message")
	}

	contact := &catalog.Contact{
		ID:        catalog.NewID(),
		Email:     addr.Address,
		Name:      name,
		Message:   truncate(message, maxMessageLen),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateContact(ctx, contact); err != nil {
		return nil, fmt.Errorf("store contact: %w", err)
	}

	if s.client == nil {
		s.logger.Info("mail delivery not configured, contact stored only",
			slog.String("contact_id", contact.ID))
		return contact, nil
	}

	if err := s.sendAutoReply(ctx, contact); err != nil {
		s.logger.Warn("auto-reply delivery failed",
			slog.String("contact_id", contact.ID),
			slog.String("error", err.Error()))
	}
	return contact, nil
}

func (s *Service) sendAutoReply(ctx context.Context, contact *catalog.Contact) error {
	from := sgmail.NewEmail(s.senderName, s.senderEmail)
	to := sgmail.NewEmail(contact.Name, contact.Email)
	text, htmlBody := composeAutoReply(contact.Name, contact.Message)

	msg := sgmail.NewSingleEmail(from, replySubject, to, text, htmlBody)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

// composeAutoReply builds the plain-text and HTML bodies, quoting the
// start of the original message back to the sender.
func composeAutoReply(name, message string) (text, htmlBody string) {
	if name == "" {
		name = "amico della musica"
	}
	quote := truncate(message, maxQuoteLen)

	text = fmt.Sprintf(
		"Ciao %s,\n\ngrazie per il tuo messaggio! Ti risponderemo al più presto.\n\nIl tuo messaggio:\n%s\n\nNel frattempo scopri gli artisti nella sezione Musica.\n\nArte Registrazioni",
		name, quote)

	htmlBody = fmt.Sprintf(
		`<p>Ciao %s,</p><p>grazie per il tuo messaggio! Ti risponderemo al più presto.</p><blockquote>%s</blockquote><p>Nel frattempo scopri gli artisti nella sezione <strong>Musica</strong>.</p><p>Arte Registrazioni</p>`,
		html.EscapeString(name), html.EscapeString(quote))
	return text, htmlBody
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
