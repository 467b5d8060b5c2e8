// Package smtpd glues the go-smtp transport to the scanning pipeline. The
// session maps every pipeline outcome to a protocol reply; a connection is
// never dropped without one.
package smtpd

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phishing-scanner/internal/core"
	"github.com/mikey/phishing-scanner/internal/pipeline"
	"go.uber.org/zap"
)

// Config carries the SMTP server settings
type Config struct {
	ListenAddr      string
	Domain          string
	MaxMessageBytes int64
	MaxRecipients   int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ProcessTimeout  time.Duration
}

// Server is the inbound SMTP ingestion server
type Server struct {
	service *pipeline.Service
	logger  *zap.Logger
	cfg     Config
	server  *smtp.Server
}

// NewServer creates a new ingestion server
func NewServer(service *pipeline.Service, cfg Config, logger *zap.Logger) *Server {
	return &Server{
		service: service,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start binds the listener and starts serving. Binding happens here so a
// port conflict fails startup instead of logging from a goroutine.
func (s *Server) Start() error {
	s.server = smtp.NewServer(&backend{server: s})

	s.server.Addr = s.cfg.ListenAddr
	s.server.Domain = s.cfg.Domain
	s.server.ReadTimeout = s.cfg.ReadTimeout
	s.server.WriteTimeout = s.cfg.WriteTimeout
	s.server.MaxMessageBytes = s.cfg.MaxMessageBytes
	s.server.MaxRecipients = s.cfg.MaxRecipients
	s.server.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.cfg.ListenAddr, err)
	}

	s.logger.Info("SMTP ingestion server starting", zap.String("address", s.cfg.ListenAddr))

	go func() {
		if err := s.server.Serve(listener); err != nil {
			if err != smtp.ErrServerClosed {
				s.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP server
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// backend implements the go-smtp Backend interface
type backend struct {
	server *Server
}

// NewSession creates a new SMTP session
func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{
		server:     b.server,
		recipients: make([]string, 0),
	}, nil
}

// session implements the go-smtp Session interface. One session handles one
// message at a time; the transport runs one session per connection.
type session struct {
	server     *Server
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *session) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not used by this server)
func (s *session) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the envelope sender
func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data runs the message through the pipeline and maps the outcome to the
// protocol reply
func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.server.logger.Error("Failed to read message data", zap.Error(err))
		return OutcomeError(core.OutcomeTempFail)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.server.cfg.ProcessTimeout)
	defer cancel()

	outcome := s.server.service.Handle(ctx, &core.InboundMessage{
		EnvelopeFrom: s.sender,
		Recipients:   s.recipients,
		Raw:          raw,
	})

	return OutcomeError(outcome)
}

// Logout handles SMTP logout
func (s *session) Logout() error {
	return nil
}

// OutcomeError converts a pipeline outcome to the go-smtp reply. Accepted
// returns nil so the server emits its 250; the rejection and temp-fail
// texts are carried verbatim.
func OutcomeError(outcome core.Outcome) error {
	switch outcome {
	case core.OutcomeAccepted:
		return nil
	case core.OutcomeRejectedUnregistered:
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      "Rejected - sender not registered",
		}
	case core.OutcomeRejectedUnparseable:
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Rejected - message could not be parsed",
		}
	default:
		return &smtp.SMTPError{
			Code:         421,
			EnhancedCode: smtp.EnhancedCode{4, 4, 2},
			Message:      "Temp fail - try again later",
		}
	}
}
