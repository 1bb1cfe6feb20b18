// Package notification delivers supplier notifications by e-mail.
package notification

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sendFunc has the signature of smtp.SendMail
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends notifications through an SMTP relay
type SMTPSender struct {
	addr   string
	host   string
	from   mail.Address
	auth   smtp.Auth
	send   sendFunc
	now    func() time.Time
	logger *zap.Logger
}

// NewSMTPSender creates a sender for cfg. PLAIN auth is used when a username is set.
func NewSMTPSender(cfg config.NotificationConfig, logger *zap.Logger) (*SMTPSender, error) {
	if cfg.SMTPHost == "" {
		return nil, errors.New("smtp host is required")
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", cfg.From, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	s := &SMTPSender{
		addr:   net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(port)),
		host:   cfg.SMTPHost,
		from:   *from,
		send:   smtp.SendMail,
		now:    time.Now,
		logger: logger.Named("smtp"),
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
	}
	return s, nil
}

// SendPurchaseOrder mails the order with its document attached
func (s *SMTPSender) SendPurchaseOrder(ctx context.Context, n appprocurement.Notification) error {
	return s.deliver(ctx, n)
}

// SendStatusChange mails a status update
func (s *SMTPSender) SendStatusChange(ctx context.Context, n appprocurement.Notification) error {
	return s.deliver(ctx, n)
}

func (s *SMTPSender) deliver(ctx context.Context, n appprocurement.Notification) error {
	to, err := mail.ParseAddress(n.To)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", n.To, err)
	}
	msg, err := s.compose(to, n)
	if err != nil {
		return err
	}

	// net/smtp has no context support; the send runs on its own and the
	// caller stops waiting when ctx ends
	done := make(chan error, 1)
	go func() {
		done <- s.send(s.addr, s.auth, s.from.Address, []string{to.Address}, msg)
	}()
	select {
	case err = <-done:
	case <-ctx.Done():
		return fmt.Errorf("send mail to %s: %w", to.Address, ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("send mail to %s: %w", to.Address, err)
	}

	s.logger.Debug("mail sent",
		zap.String("to", to.Address),
		zap.String("subject", n.Subject),
		zap.String("order_number", n.OrderNumber),
	)
	return nil
}

// compose builds a multipart/mixed RFC 5322 message
func (s *SMTPSender) compose(to *mail.Address, n appprocurement.Notification) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	body := n.Body
	if n.DocumentURL != "" {
		body = strings.TrimRight(body, "\n") + "\n\nDownload: " + n.DocumentURL + "\n"
	}

	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	header("From", s.from.String())
	header("To", to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", n.Subject))
	header("Date", s.now().Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), s.host))
	header("MIME-Version", "1.0")
	header("Content-Type", "multipart/mixed; boundary="+mw.Boundary())
	if n.OrderNumber != "" {
		header("X-Purchase-Order", n.OrderNumber)
	}
	buf.WriteString("\r\n")

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64(text, []byte(body)); err != nil {
		return nil, err
	}

	if doc := n.Attachment; doc != nil && len(doc.Content) > 0 {
		contentType := doc.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {contentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName})},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, doc.Content); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64 writes data base64-encoded in 76 character lines
func writeBase64(w interface{ Write([]byte) (int, error) }, data []byte) error {
	const lineLen = 76
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := min(lineLen, len(encoded))
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:n]); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}

var _ appprocurement.NotificationSender = (*SMTPSender)(nil)
