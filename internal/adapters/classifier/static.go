package classifier

import (
	"context"
)

// StaticClassifier returns a fixed verdict for every input. It backs the
// "static" classifier type for local development and the pipeline's tests.
type StaticClassifier struct {
	label      string
	confidence float64
	err        error
}

// NewStaticClassifier creates a classifier with a fixed verdict
func NewStaticClassifier(label string, confidence float64) *StaticClassifier {
	return &StaticClassifier{label: label, confidence: confidence}
}

// NewFailingClassifier creates a classifier that always fails, for tests
// exercising the transient-failure path
func NewFailingClassifier(err error) *StaticClassifier {
	return &StaticClassifier{err: err}
}

// Classify returns the configured verdict
func (c *StaticClassifier) Classify(_ context.Context, _ string) (string, float64, error) {
	if c.err != nil {
		return "", 0, c.err
	}
	return c.label, c.confidence, nil
}
