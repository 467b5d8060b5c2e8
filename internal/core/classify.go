package core

import (
	"context"
	"fmt"
	"strings"
)

// Risk tier thresholds over phishing probability
const (
	riskHighThreshold   = 0.85
	riskMediumThreshold = 0.55
)

// RiskLevelFor maps a phishing probability to its risk tier
func RiskLevelFor(probability float64) RiskLevel {
	switch {
	case probability >= riskHighThreshold:
		return RiskHigh
	case probability >= riskMediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// TrustedVerdict is the classification-free outcome for a trusted sender
func TrustedVerdict() *Verdict {
	return &Verdict{
		Label:               LabelLegitimate,
		PhishingProbability: 0.0,
		RiskLevel:           RiskLow,
		Source:              SourceTrusted,
	}
}

// ClassifierAdapter normalizes the opaque classifier's output into a
// phishing-likelihood verdict. It never retries the classifier and never
// catches its errors.
type ClassifierAdapter struct {
	classifier Classifier
}

// NewClassifierAdapter creates a new classifier adapter
func NewClassifierAdapter(classifier Classifier) *ClassifierAdapter {
	return &ClassifierAdapter{classifier: classifier}
}

// Score classifies the cleaned subject and body and returns a verdict whose
// PhishingProbability always denotes phishing likelihood: a "legitimate"
// result with confidence c is stored as 1-c.
func (a *ClassifierAdapter) Score(ctx context.Context, cleanedSubject, cleanedBody string) (*Verdict, error) {
	text := strings.TrimSpace(cleanedSubject + " " + cleanedBody)

	label, confidence, err := a.classifier.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("classifier failed: %w", err)
	}

	var probability float64
	switch label {
	case LabelPhishing:
		probability = confidence
	case LabelLegitimate:
		probability = 1.0 - confidence
	default:
		return nil, fmt.Errorf("classifier returned unknown label %q", label)
	}

	if probability < 0.0 {
		probability = 0.0
	} else if probability > 1.0 {
		probability = 1.0
	}

	return &Verdict{
		Label:               label,
		PhishingProbability: probability,
		RiskLevel:           RiskLevelFor(probability),
		Source:              SourceModel,
	}, nil
}
