package providers

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"reminder-service/internal/config"
	"reminder-service/internal/dispatch"
	"reminder-service/pkg/email"
)

// NewEmailSender picks the outbound transport from configuration: the hosted
// email API when a key is set, SMTP otherwise.
func NewEmailSender(cfg config.Config, logger *logrus.Logger) (dispatch.EmailSender, error) {
	if cfg.Email.APIKey != "" {
		logger.Infof("Email transport: hosted API, from %s", cfg.Email.From)
		return email.NewAPIClient(cfg.Email.APIKey, cfg.Email.From), nil
	}
	if cfg.Email.SMTPServer != "" && cfg.Email.SMTPPort != 0 {
		logger.Infof("Email transport: SMTP via %s:%d, from %s", cfg.Email.SMTPServer, cfg.Email.SMTPPort, cfg.Email.From)
		return email.NewSMTPClient(cfg.Email.SMTPServer, cfg.Email.SMTPPort, cfg.Email.Username, cfg.Email.Password, cfg.Email.From), nil
	}
	return nil, fmt.Errorf("no email transport configured: set EMAIL_API_KEY or EMAIL_SMTP_SERVER/EMAIL_SMTP_PORT")
}
