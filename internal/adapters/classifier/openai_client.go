package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClassifier is an LLM-backed implementation of the Classify port,
// for deployments that run without the local model server
type OpenAIClassifier struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	maxTextSize int
	logger      *zap.Logger
}

// classifierVerdict is the structured response requested from the LLM
type classifierVerdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

const openaiPromptFormat = `You are a phishing detection system. Analyze the following email text and decide whether it is a phishing attempt.
Respond with a JSON object containing:
- label: "phishing" or "legitimate"
- confidence: number between 0 and 1 (how confident you are in the label)

Email text:
%s

Respond only with the JSON object and nothing else.`

// NewOpenAIClassifier creates a new OpenAI-backed classifier
func NewOpenAIClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
) *OpenAIClassifier {
	return &OpenAIClassifier{
		client:      openai.NewClient(apiKey),
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		maxTextSize: maxTextSize,
		logger:      logger,
	}
}

// truncateText truncates oversized input on a valid UTF-8 boundary
func (c *OpenAIClassifier) truncateText(text string) string {
	if c.maxTextSize <= 0 || len(text) <= c.maxTextSize {
		return text
	}

	truncated := text[:c.maxTextSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	c.logger.Debug("Classifier input truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)))

	return truncated
}

// Classify asks the LLM for a label and confidence
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (string, float64, error) {
	prompt := fmt.Sprintf(openaiPromptFormat, c.truncateText(text))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a phishing detection system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	})
	if err != nil {
		return "", 0, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, fmt.Errorf("openai returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	// Some models wrap the JSON in a code fence
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var verdict classifierVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &verdict); err != nil {
		return "", 0, fmt.Errorf("failed to parse openai response: %w", err)
	}
	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return "", 0, fmt.Errorf("openai returned confidence %f outside [0,1]", verdict.Confidence)
	}

	return strings.ToLower(verdict.Label), verdict.Confidence, nil
}
