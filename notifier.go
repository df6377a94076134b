package authkit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier delivers challenges to users. Implementations are owned by the
// host application (SMS gateway, mailer). Delivery failures are logged by
// the service but never surfaced to the requester, so an attacker cannot
// probe which identifiers are deliverable.
type Notifier interface {
	SendOTP(ctx context.Context, identifier, code string) error
	SendMagicLink(ctx context.Context, email, verificationURL string) error
}

// LogNotifier writes challenges to the log instead of delivering them.
// Development and test use only.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOTP(_ context.Context, identifier, code string) error {
	n.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"code":       code,
	}).Info("otp issued")
	return nil
}

func (n *LogNotifier) SendMagicLink(_ context.Context, email, verificationURL string) error {
	n.logger.WithFields(logrus.Fields{
		"email": email,
		"url":   verificationURL,
	}).Info("magic link issued")
	return nil
}
