package factory

import (
	"fmt"
	"time"

	"github.com/mikey/phishing-scanner/internal/adapters/reply"
	"github.com/mikey/phishing-scanner/internal/config"
	"github.com/mikey/phishing-scanner/internal/core"
	"go.uber.org/zap"
)

// ReplyFactory creates the reply sender based on configuration
type ReplyFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewReplyFactory creates a new reply factory
func NewReplyFactory(cfg *config.Config, logger *zap.Logger) *ReplyFactory {
	return &ReplyFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReplySender creates a reply sender; when replies are disabled the
// pipeline gets a sender that drops every report
func (f *ReplyFactory) CreateReplySender() core.ReplySender {
	if !f.cfg.GetBool("reply.enabled") {
		return reply.NewNoopSender(f.logger)
	}

	host := f.cfg.GetString("reply.host")
	port := f.cfg.GetInt("reply.port")
	from := f.cfg.GetString("reply.from_address")

	f.logger.Info("Auto-reply enabled",
		zap.String("relay_host", host),
		zap.Int("relay_port", port),
		zap.String("from_address", from))

	return reply.NewSMTPSender(host, port, from, f.logger)
}

// GetReplyTimeout returns the bounded timeout applied to each reply
func (f *ReplyFactory) GetReplyTimeout() (time.Duration, error) {
	timeout, err := f.cfg.GetDuration("reply.timeout")
	if err != nil {
		return 0, fmt.Errorf("invalid reply timeout: %w", err)
	}
	return timeout, nil
}
