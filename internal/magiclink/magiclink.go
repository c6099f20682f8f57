// Package magiclink builds deep upload links and dispatches upload requests
// to clients by text message or email.
package magiclink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/trajector/portal/internal/documents"
	"github.com/trajector/portal/internal/events"
	"github.com/trajector/portal/internal/mailer"
	"github.com/trajector/portal/internal/model"
	"github.com/trajector/portal/internal/notify"
)

type Method string

const (
	MethodEmail     Method = "email"
	MethodMagicLink Method = "magic_link"
)

// Label is the wording used in the confirmation message.
func (m Method) Label() string {
	switch m {
	case MethodEmail:
		return "email reply"
	case MethodMagicLink:
		return "magic link"
	}
	return string(m)
}

var (
	ErrMissingFields = errors.New("magiclink: client email and method are required")
	ErrNoPhone       = errors.New("magiclink: phone number has no digits")
	ErrUnknownMethod = errors.New("magiclink: unknown method")
)

const (
	msgMissingFields = "Please fill in all required fields"
	msgNoPhone       = "A phone number is required to send a magic link"
	msgDispatchError = "Failed to send upload request. Please try again."
)

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// BuildLink returns {base}/upload?name=..&phone=.. with phone reduced to digits.
// Empty values are omitted.
func BuildLink(base, name, phone string) string {
	q := url.Values{}
	if name != "" {
		q.Set("name", name)
	}
	if d := Digits(phone); d != "" {
		q.Set("phone", d)
	}
	link := strings.TrimRight(base, "/") + "/upload"
	if len(q) > 0 {
		link += "?" + q.Encode()
	}
	return link
}

// Request is one upload request from the intake dashboard.
type Request struct {
	ClientName  string
	ClientEmail string
	ClientPhone string
	Method      Method
	Note        string
}

// displayName is what the client is called in the link and greeting.
func (r Request) displayName() string {
	if r.ClientName != "" {
		return r.ClientName
	}
	return r.ClientEmail
}

type Messenger interface {
	SendMessage(ctx context.Context, to, message string) error
}

type LinkMailer interface {
	SendUploadRequest(to, name, link, note string) error
}

type Dispatcher struct {
	baseURL   string
	messenger Messenger
	mailer    LinkMailer
	notifier  notify.Notifier
	events    events.Publisher
}

func NewDispatcher(baseURL string, msg Messenger, m LinkMailer, n notify.Notifier, p events.Publisher) *Dispatcher {
	if p == nil {
		p = events.Nop{}
	}
	return &Dispatcher{baseURL: baseURL, messenger: msg, mailer: m, notifier: n, events: p}
}

// Dispatch validates r, sends the link and reports the outcome as a
// notification.
func (d *Dispatcher) Dispatch(ctx context.Context, r Request) error {
	r.ClientEmail = strings.TrimSpace(r.ClientEmail)
	if r.ClientEmail == "" || r.Method == "" {
		d.notifier.Notify(model.NotifyError, msgMissingFields)
		return ErrMissingFields
	}

	name := r.displayName()
	link := BuildLink(d.baseURL, name, r.ClientPhone)
	attrs := map[string]string{"method": string(r.Method), "to": r.ClientEmail}

	var err error
	switch r.Method {
	case MethodMagicLink:
		phone := Digits(r.ClientPhone)
		if phone == "" {
			d.notifier.Notify(model.NotifyError, msgNoPhone)
			return ErrNoPhone
		}
		text := strings.TrimSpace(mailer.RenderTemplate(mailer.UploadRequestTemplate, map[string]string{
			"name": name,
			"link": link,
			"note": r.Note,
		}))
		err = d.messenger.SendMessage(ctx, phone, text)
	case MethodEmail:
		err = d.mailer.SendUploadRequest(r.ClientEmail, name, link, r.Note)
	default:
		d.notifier.Notify(model.NotifyError, msgMissingFields)
		return fmt.Errorf("%w: %q", ErrUnknownMethod, r.Method)
	}

	if err != nil {
		d.notifier.Notify(model.NotifyError, msgDispatchError)
		attrs["error"] = err.Error()
		events.Emit(ctx, d.events, events.New(events.RequestFailed, attrs))
		return fmt.Errorf("dispatch %s to %s: %w", r.Method.Label(), r.ClientEmail, err)
	}

	d.notifier.Notify(model.NotifySuccess,
		fmt.Sprintf("Upload request sent! Sent %s request to %s", r.Method.Label(), r.ClientEmail))
	events.Emit(ctx, d.events, events.New(events.RequestSent, attrs))
	return nil
}

var _ Messenger = (*documents.Client)(nil)
