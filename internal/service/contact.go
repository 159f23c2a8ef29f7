package service

import (
	"context"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/chcemmat/internal/models"
)

// ContactService forwards contact form submissions by email
type ContactService struct {
	mailer Mailer
	logger *logrus.Logger
}

// Submit validates the message and sends it once. It returns the email id
// reported by the mail provider.
func (s *ContactService) Submit(ctx context.Context, msg models.ContactMessage) (string, error) {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Message = strings.TrimSpace(msg.Message)
	msg.Phone = optional(msg.Phone)

	if msg.Name == "" || msg.Email == "" || msg.Message == "" {
		return "", invalid("name, email and message are required")
	}
	if !govalidator.IsEmail(msg.Email) {
		return "", invalid("invalid email address")
	}
	if s.mailer == nil {
		return "", &Error{Kind: KindStore, Message: "email delivery is not configured"}
	}

	id, err := s.mailer.SendContact(ctx, msg)
	if err != nil {
		s.logger.WithError(err).WithField("from", msg.Email).Error("Failed to send contact email")
		return "", &Error{Kind: KindStore, Message: "failed to send email", Err: err}
	}

	s.logger.WithFields(logrus.Fields{"from": msg.Email, "email_id": id}).Info("Contact email sent")
	return id, nil
}
