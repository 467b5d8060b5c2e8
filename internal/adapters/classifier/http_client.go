// Package classifier provides backends for the opaque Classify port: the
// bespoke model server over HTTP, an OpenAI fallback, and a static stub.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPClassifier calls the model server that fronts the trained TF-IDF/SVM
// model. The wire contract is a two-field JSON exchange; the model's
// internals stay opaque to this process.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// NewHTTPClassifier creates a model-server client
func NewHTTPClassifier(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Classify sends the cleaned text to the model server and returns the
// winning label and its confidence. Errors are returned as-is: the pipeline
// treats a classifier failure as transient, never as "legitimate".
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (string, float64, error) {
	payload, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("failed to build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("model server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", 0, fmt.Errorf("model server returned status %d", resp.StatusCode)
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", 0, fmt.Errorf("failed to decode classify response: %w", err)
	}
	if decoded.Label == "" {
		return "", 0, fmt.Errorf("model server returned empty label")
	}
	if decoded.Confidence < 0 || decoded.Confidence > 1 {
		return "", 0, fmt.Errorf("model server returned confidence %f outside [0,1]", decoded.Confidence)
	}

	c.logger.Debug("Model server classification",
		zap.String("label", decoded.Label),
		zap.Float64("confidence", decoded.Confidence),
		zap.Duration("elapsed", time.Since(start)))

	return decoded.Label, decoded.Confidence, nil
}
