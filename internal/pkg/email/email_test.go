package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	sent   []Message
	sendFn func(ctx context.Context, msg Message) error
}

func (m *mockSender) Send(ctx context.Context, msg Message) error {
	m.sent = append(m.sent, msg)
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return nil
}

func TestNewSender_WithoutKeyLogs(t *testing.T) {
	var buf bytes.Buffer
	s := NewSender(Config{FromEmail: "no-reply@electivepro.app"}, zerolog.New(&buf))

	_, ok := s.(*LogSender)
	require.True(t, ok)

	require.NoError(t, s.Send(context.Background(), Message{ToEmail: "ann@hse.test", Subject: "hi", Text: "body"}))
	assert.Contains(t, buf.String(), "ann@hse.test")
}

func TestNewSender_WithKey(t *testing.T) {
	s := NewSender(Config{SendGridAPIKey: "SG.x", FromEmail: "no-reply@electivepro.app", FromName: "ElectivePRO"}, zerolog.Nop())
	sg, ok := s.(*SendGridSender)
	require.True(t, ok)

	m := sg.prepare(Message{ToEmail: "ann@hse.test", ToName: "Ann", Subject: "Hello", Text: "t", HTML: "<p>h</p>"})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[ElectivePRO] Hello", m.Personalizations[0].Subject)
	assert.Equal(t, "ann@hse.test", m.Personalizations[0].To[0].Address)
	assert.Len(t, m.Content, 2)
}

func TestSendGridSender_CancelledContext(t *testing.T) {
	s := NewSender(Config{SendGridAPIKey: "SG.x"}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, Message{ToEmail: "ann@hse.test"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNotifier_SelectionReviewed(t *testing.T) {
	sender := &mockSender{}
	n := NewNotifier(sender, zerolog.Nop())

	err := n.SelectionReviewed(context.Background(), "ann@hse.test", "Ann <script>", "Data Science Pack", "APPROVED", "See you in class")
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "Selection APPROVED: Data Science Pack", msg.Subject)
	assert.Contains(t, msg.Text, "See you in class")
	assert.Contains(t, msg.HTML, "Ann &lt;script&gt;")
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestNotifier_PropagatesSendError(t *testing.T) {
	boom := errors.New("boom")
	sender := &mockSender{sendFn: func(context.Context, Message) error { return boom }}
	n := NewNotifier(sender, zerolog.Nop())

	err := n.Welcome(context.Background(), "ann@hse.test", "Ann", "HSE", "https://hse.electivepro.app/login", "")
	assert.ErrorIs(t, err, boom)
}

func TestNotifier_WelcomeTemporaryPassword(t *testing.T) {
	sender := &mockSender{}
	n := NewNotifier(sender, zerolog.Nop())

	require.NoError(t, n.Welcome(context.Background(), "ann@hse.test", "Ann", "HSE", "https://hse.electivepro.app/login", "tmp4pass9x"))
	require.NoError(t, n.Welcome(context.Background(), "bob@hse.test", "Bob", "HSE", "https://hse.electivepro.app/login", ""))

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].Text, "Temporary password: tmp4pass9x")
	assert.Contains(t, sender.sent[0].HTML, "tmp4pass9x")
	assert.NotContains(t, sender.sent[1].Text, "Temporary password")
}
