package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/chcemmat/internal/models"
)

type fakeMailer struct {
	sent []models.ContactMessage
	err  error
}

func (m *fakeMailer) SendContact(_ context.Context, msg models.ContactMessage) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return "msg-1", nil
}

func TestContactSubmit(t *testing.T) {
	f := newFixture(t)
	mailer := &fakeMailer{}
	f.svc.Contact.mailer = mailer

	id, err := f.svc.Contact.Submit(context.Background(), models.ContactMessage{
		Name:    " Jana ",
		Email:   "jana@example.com",
		Phone:   strPtr("  "),
		Message: "Hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Jana", mailer.sent[0].Name)
	assert.Nil(t, mailer.sent[0].Phone)
}

func TestContactSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	mailer := &fakeMailer{}
	f.svc.Contact.mailer = mailer

	tests := []struct {
		name string
		msg  models.ContactMessage
	}{
		{name: "missing name", msg: models.ContactMessage{Email: "a@example.com", Message: "hi"}},
		{name: "missing message", msg: models.ContactMessage{Name: "A", Email: "a@example.com", Message: "   "}},
		{name: "bad email", msg: models.ContactMessage{Name: "A", Email: "not-an-email", Message: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Contact.Submit(context.Background(), tt.msg)
			assert.Equal(t, KindInvalid, KindOf(err))
		})
	}
	assert.Empty(t, mailer.sent)
}

func TestContactSubmit_DeliveryFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.Contact.mailer = &fakeMailer{err: errors.New("sendgrid: 401")}

	_, err := f.svc.Contact.Submit(context.Background(), models.ContactMessage{Name: "A", Email: "a@example.com", Message: "hi"})
	assert.Equal(t, KindStore, KindOf(err))
}

func TestContactSubmit_NotConfigured(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Contact.Submit(context.Background(), models.ContactMessage{Name: "A", Email: "a@example.com", Message: "hi"})
	assert.Equal(t, KindStore, KindOf(err))
}
