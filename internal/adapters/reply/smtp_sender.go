// Package reply delivers the best-effort scan report back to the forwarding
// user over SMTP. Failures here never feed back into the pipeline.
package reply

import (
	"context"
	"fmt"
	"mime"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phishing-scanner/internal/core"
	"go.uber.org/zap"
)

// SMTPSender sends scan reports through an outbound relay
type SMTPSender struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
}

// NewSMTPSender creates a new reply sender
func NewSMTPSender(host string, port int, from string, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		host:   host,
		port:   port,
		from:   from,
		logger: logger,
	}
}

// SendScanReport renders and sends the report. The context deadline bounds
// the whole exchange, dial included.
func (s *SMTPSender) SendScanReport(ctx context.Context, to string, report *core.ScanReport) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set connection deadline: %w", err)
		}
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(s.from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(to, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(renderMessage(s.from, to, report)); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send report data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// The report is already queued at this point
		s.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// renderMessage renders the scan report as a plain-text email
func renderMessage(from, to string, report *core.ScanReport) []byte {
	scannedSubject := strings.TrimSpace(report.ScannedSubject)
	if scannedSubject == "" {
		scannedSubject = "(no subject)"
	}

	pct := report.PhishingProbability * 100
	var glyph, verdict, verdictLine, actionLine string
	if report.Label == core.LabelPhishing {
		glyph = "⚠"
		verdict = "PHISHING"
		verdictLine = fmt.Sprintf("⚠  PHISHING detected  (%.0f%% confidence)", pct)
		actionLine = "We recommend you DO NOT click any links or open attachments."
	} else {
		glyph = "✔"
		verdict = "Safe"
		verdictLine = fmt.Sprintf("✔  Safe  (%.0f%% confidence)", 100-pct)
		actionLine = "No threats were detected in this email."
	}

	subject := fmt.Sprintf("[Scan] %s %s – %s", glyph, verdict, scannedSubject)
	rule := strings.Repeat("=", 40)

	body := fmt.Sprintf(
		"Phishing Scan Result\n"+
			"%s\n"+
			"Scanned email : %s\n"+
			"Verdict       : %s\n"+
			"Risk level    : %s\n"+
			"Checked via   : %s\n"+
			"%s\n"+
			"%s\n\n"+
			"-- Phishing Detection System\n",
		rule, scannedSubject, verdictLine, report.RiskLevel, report.Source, rule, actionLine)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return []byte(msg.String())
}

// NoopSender is the reply sender used when replies are disabled
type NoopSender struct {
	logger *zap.Logger
}

// NewNoopSender creates a sender that drops every report
func NewNoopSender(logger *zap.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

// SendScanReport drops the report
func (s *NoopSender) SendScanReport(_ context.Context, to string, _ *core.ScanReport) error {
	s.logger.Debug("Replies disabled, dropping scan report", zap.String("to_domain", core.DomainOf(to)))
	return nil
}
