package notification

import (
	"context"

	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"go.uber.org/zap"
)

// LogSender only logs notifications. It is used when no mail relay is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger.Named("notification")}
}

func (s *LogSender) SendPurchaseOrder(ctx context.Context, n appprocurement.Notification) error {
	s.log("purchase order notification (not sent)", n)
	return nil
}

func (s *LogSender) SendStatusChange(ctx context.Context, n appprocurement.Notification) error {
	s.log("status change notification (not sent)", n)
	return nil
}

func (s *LogSender) log(msg string, n appprocurement.Notification) {
	fields := []zap.Field{
		zap.String("to", n.To),
		zap.String("subject", n.Subject),
		zap.String("order_number", n.OrderNumber),
		zap.String("status", n.Status),
	}
	if n.Attachment != nil {
		fields = append(fields, zap.String("attachment", n.Attachment.FileName), zap.Int("attachment_bytes", len(n.Attachment.Content)))
	}
	if n.DocumentURL != "" {
		fields = append(fields, zap.String("document_url", n.DocumentURL))
	}
	s.logger.Info(msg, fields...)
}

// NewSender returns an SMTP sender when mail is configured and a LogSender otherwise
func NewSender(cfg config.NotificationConfig, logger *zap.Logger) (appprocurement.NotificationSender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Configured() {
		logger.Info("supplier e-mail not configured, notifications are logged only")
		return NewLogSender(logger), nil
	}
	sender, err := NewSMTPSender(cfg, logger)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

var _ appprocurement.NotificationSender = (*LogSender)(nil)
