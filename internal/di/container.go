package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishing-scanner/internal/adapters/smtpd"
	"github.com/mikey/phishing-scanner/internal/config"
	"github.com/mikey/phishing-scanner/internal/core"
	"github.com/mikey/phishing-scanner/internal/factory"
	"github.com/mikey/phishing-scanner/internal/forward"
	"github.com/mikey/phishing-scanner/internal/logging"
	"github.com/mikey/phishing-scanner/internal/pipeline"
	"github.com/mikey/phishing-scanner/internal/trust"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewRepositoryFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewReplyFactory); err != nil {
		return nil, err
	}

	// Register classifier and its scoring adapter
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewClassifierAdapter); err != nil {
		return nil, err
	}

	// Register scan repository
	if err := container.Provide(func(f *factory.RepositoryFactory) (core.ScanRepository, error) {
		return f.CreateRepository()
	}); err != nil {
		return nil, err
	}

	// Register reply sender and its timeout
	if err := container.Provide(func(f *factory.ReplyFactory) core.ReplySender {
		return f.CreateReplySender()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.ReplyFactory) (time.Duration, error) {
		return f.GetReplyTimeout()
	}); err != nil {
		return nil, err
	}

	// Register global domain whitelist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *trust.Whitelist {
		return trust.NewWhitelist(cfg.GetStringSlice("trust.whitelisted_domains"), logger)
	}); err != nil {
		return nil, err
	}

	// Register trust resolver; the repository doubles as the per-user
	// domain store
	if err := container.Provide(func(repo core.ScanRepository, wl *trust.Whitelist, logger *zap.Logger) *trust.Resolver {
		return trust.NewResolver(wl, repo, logger)
	}); err != nil {
		return nil, err
	}

	// Register forward extractor
	if err := container.Provide(forward.NewExtractor); err != nil {
		return nil, err
	}

	// Register model version
	if err := container.Provide(func(f *factory.ClassifierFactory) string {
		return f.GetModelVersion()
	}); err != nil {
		return nil, err
	}

	// Register pipeline service
	if err := container.Provide(pipeline.NewService); err != nil {
		return nil, err
	}

	// Register SMTP server
	if err := container.Provide(func(cfg *config.Config) (smtpd.Config, error) {
		readTimeout, err := cfg.GetDuration("server.read_timeout")
		if err != nil {
			return smtpd.Config{}, err
		}
		writeTimeout, err := cfg.GetDuration("server.write_timeout")
		if err != nil {
			return smtpd.Config{}, err
		}
		processTimeout, err := cfg.GetDuration("server.process_timeout")
		if err != nil {
			return smtpd.Config{}, err
		}
		return smtpd.Config{
			ListenAddr:      cfg.GetString("server.listen_address"),
			Domain:          cfg.GetString("server.domain"),
			MaxMessageBytes: int64(cfg.GetInt("server.max_message_bytes")),
			MaxRecipients:   cfg.GetInt("server.max_recipients"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ProcessTimeout:  processTimeout,
		}, nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(smtpd.NewServer); err != nil {
		return nil, err
	}

	return container, nil
}
