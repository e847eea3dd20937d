package mailer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/arteregistrazioni/arte-server/internal/catalog"
)

type fakeStore struct {
	contacts []*catalog.Contact
	fail     bool
}

func (f *fakeStore) CreateContact(_ context.Context, c *catalog.Contact) error {
	if f.fail {
		return errors.New("db down")
	}
	f.contacts = append(f.contacts, c)
	return nil
}

type fakeSender struct {
	sent   []*sgmail.SGMailV3
	status int
	err    error
}

func (f *fakeSender) SendWithContext(_ context.Context, m *sgmail.SGMailV3) (*rest.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, m)
	status := f.status
	if status == 0 {
		status = 202
	}
	return &rest.Response{StatusCode: status}, nil
}

func testService(store *fakeStore, sender Sender) *Service {
	return &Service{
		client:      sender,
		senderEmail: "info@arteregistrazioni.example",
		senderName:  "Arte Registrazioni",
		repo:        store,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
	}
}

func TestHandleContactStoresAndReplies(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	svc := testService(store, sender)

	contact, err := svc.HandleContact(context.Background(), "fan@example.com", "Giulia", "Quando esce il prossimo album?")
	if err != nil {
		t.Fatalf("HandleContact failed: %v", err)
	}
	if len(store.contacts) != 1 {
		t.Fatalf("expected 1 stored contact, got %d", len(store.contacts))
	}
	if contact.Email != "fan@example.com" || contact.Name != "Giulia" {
		t.Errorf("unexpected contact: %+v", contact)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 auto-reply, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Subject != replySubject {
		t.Errorf("unexpected subject: %q", msg.Subject)
	}
	if len(msg.Personalizations) == 0 || len(msg.Personalizations[0].To) == 0 ||
		msg.Personalizations[0].To[0].Address != "fan@example.com" {
		t.Error("auto-reply not addressed to the sender")
	}
}

func TestHandleContactInvalidEmail(t *testing.T) {
	svc := testService(&fakeStore{}, &fakeSender{})
	_, err := svc.HandleContact(context.Background(), "not-an-address", "X", "ciao")
	if err != ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestHandleContactEmptyMessage(t *testing.T) {
	svc := testService(&fakeStore{}, &fakeSender{})
	if _, err := svc.HandleContact(context.Background(), "a@b.com", "X", "   "); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestHandleContactTruncatesFields(t *testing.T) {
	store := &fakeStore{}
	svc := testService(store, &fakeSender{})

	longName := strings.Repeat("n", maxNameLen+20)
	longMsg := strings.Repeat("m", maxMessageLen+100)
	contact, err := svc.HandleContact(context.Background(), "a@b.com", longName, longMsg)
	if err != nil {
		t.Fatalf("HandleContact failed: %v", err)
	}
	if len([]rune(contact.Name)) != maxNameLen {
		t.Errorf("name not truncated: %d runes", len([]rune(contact.Name)))
	}
	if len([]rune(contact.Message)) != maxMessageLen {
		t.Errorf("message not truncated: %d runes", len([]rune(contact.Message)))
	}
}

func TestHandleContactDeliveryFailureKeepsContact(t *testing.T) {
	store := &fakeStore{}
	svc := testService(store, &fakeSender{err: errors.New("sendgrid down")})

	if _, err := svc.HandleContact(context.Background(), "a@b.com", "X", "ciao"); err != nil {
		t.Fatalf("delivery failure must not fail the request: %v", err)
	}
	if len(store.contacts) != 1 {
		t.Errorf("contact should be stored despite delivery failure")
	}
}

func TestHandleContactWithoutSender(t *testing.T) {
	store := &fakeStore{}
	svc := testService(store, nil)

	if _, err := svc.HandleContact(context.Background(), "a@b.com", "X", "ciao"); err != nil {
		t.Fatalf("HandleContact failed: %v", err)
	}
	if len(store.contacts) != 1 {
		t.Error("contact should be stored when sending is disabled")
	}
}

func TestComposeAutoReplyQuotesAndEscapes(t *testing.T) {
	text, htmlBody := composeAutoReply("", strings.Repeat("q", maxQuoteLen+50)+"<b>")
	if !strings.Contains(text, "amico della musica") {
		t.Error("empty name should fall back to the generic salutation")
	}
	if strings.Contains(htmlBody, "<b>") {
		t.Error("HTML body must escape user content")
	}
	if strings.Count(text, "q") != maxQuoteLen {
		t.Errorf("quote not truncated to %d runes", maxQuoteLen)
	}
}
