package mailer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveengys/connectify-sub000/pkg/config"
)

func TestTemplates(t *testing.T) {
	d := BookingDetails{Name: "Jane <script>", Email: "jane@x.com", BookingID: "b-1", Date: "2024-06-01", StartTime: "09:00"}

	msg, err := BookingApproved(d)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", msg.ToEmail)
	assert.Contains(t, msg.Text, "2024-06-01 at 09:00")
	assert.Contains(t, msg.HTML, "b-1")
	assert.NotContains(t, msg.HTML, "<script>", "names are escaped")

	msg, err = BookingDenied(BookingDetails{Name: "Jane", Email: "jane@x.com"})
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "your requested slot")

	msg, err = ReservationReceived(d)
	require.NoError(t, err)
	assert.Contains(t, msg.Subject, "received")
}

func TestDevMailer(t *testing.T) {
	var out bytes.Buffer
	m := &DevMailer{out: &out}

	require.NoError(t, m.Send(context.Background(), Message{ToEmail: "a@b.co", Subject: "Hello", Text: "body"}))
	assert.True(t, strings.Contains(out.String(), "Subject: Hello"))

	assert.Error(t, m.Send(context.Background(), Message{}))
}

func TestSMTPCompose(t *testing.T) {
	s := NewSMTPMailer(" localhost ", 1025, "noreply@x.com", "", "", false)
	body := string(s.compose(Message{ToEmail: "a@b.co", Subject: "Hi", Text: "plain", HTML: "<p>html</p>"}))

	assert.Contains(t, body, "To: a@b.co\r\n")
	assert.Contains(t, body, "boundary="+mimeBoundary)
	assert.Contains(t, body, "plain")
	assert.Contains(t, body, "<p>html</p>")
	assert.Equal(t, "localhost", s.Host)
}

func TestNewSelectsTransport(t *testing.T) {
	assert.IsType(t, &DevMailer{}, New(config.EmailConfig{DevMode: true}))
	assert.IsType(t, &MailerSendClient{}, New(config.EmailConfig{MailerSendKey: "k", SMTPFrom: "a@b.co"}))
	assert.IsType(t, &SMTPMailer{}, New(config.EmailConfig{}))

	err := NewMailerSend("", "", "").Send(context.Background(), Message{ToEmail: "a@b.co"})
	assert.Error(t, err)
}
