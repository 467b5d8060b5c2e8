package factory

import (
	"fmt"

	"github.com/mikey/phishing-scanner/internal/adapters/classifier"
	"github.com/mikey/phishing-scanner/internal/config"
	"github.com/mikey/phishing-scanner/internal/core"
	"go.uber.org/zap"
)

// ClassifierFactory creates classifier backends based on configuration
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates a classifier based on the configuration
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	classifierType := f.cfg.GetString("classifier.type")

	switch classifierType {
	case "http":
		timeout, err := f.cfg.GetDuration("classifier.timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid classifier timeout: %w", err)
		}
		return classifier.NewHTTPClassifier(
			f.cfg.GetString("classifier.endpoint"),
			timeout,
			f.logger,
		), nil
	case "openai":
		return classifier.NewOpenAIClassifier(
			f.cfg.GetString("openai.api_key"),
			f.cfg.GetString("openai.model_name"),
			f.cfg.GetInt("openai.max_tokens"),
			float32(f.cfg.GetFloat64("openai.temperature")),
			float32(f.cfg.GetFloat64("openai.top_p")),
			f.cfg.GetInt("openai.max_body_size"),
			f.logger,
		), nil
	case "static":
		return classifier.NewStaticClassifier(
			f.cfg.GetString("classifier.static_label"),
			f.cfg.GetFloat64("classifier.static_confidence"),
		), nil
	default:
		return nil, fmt.Errorf("unsupported classifier type: %s", classifierType)
	}
}

// GetModelVersion returns the model version recorded on predictions
func (f *ClassifierFactory) GetModelVersion() string {
	return f.cfg.GetString("classifier.model_version")
}
