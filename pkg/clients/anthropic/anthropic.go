package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	defaultModel = "claude-3-haiku-20240307"
	maxTokens    = 1024
)

// ErrEmptyReply is returned when the model answers without any text block.
var ErrEmptyReply = errors.New("empty response from ai")

// Metrics are the flock figures the model is asked to comment on.
type Metrics struct {
	ProductionRate  float64 `json:"production_rate"`
	FeedConsumption float64 `json:"feed_consumption"`
	MortalityRate   float64 `json:"mortality_rate"`
	BirdCount       int     `json:"bird_count"`
}

// Client defines the interface for AI suggestions.
type Client interface {
	Suggest(ctx context.Context, metrics Metrics) (string, error)
}

// APIClient calls the Messages API once per suggestion, without retries or streaming.
type APIClient struct {
	httpClient *resty.Client
	endpoint   string
	model      string
}

// NewClient creates a configured Anthropic client. An empty model selects the default.
func NewClient(apiKey, model string) *APIClient {
	if model == "" {
		model = defaultModel
	}
	client := resty.New().
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(30 * time.Second)

	return &APIClient{httpClient: client, endpoint: apiURL, model: model}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const systemPrompt = `You are an experienced poultry farm advisor for a commercial layer farm.
You receive the farm's current key metrics as JSON. Reply with 3 to 5 short, concrete, prioritised
recommendations to improve egg production, feed efficiency and flock health. Mention which metric
each recommendation addresses. Use plain text bullet points starting with "- ".`

// Suggest asks the model for recommendations based on metrics.
func (c *APIClient) Suggest(ctx context.Context, metrics Metrics) (string, error) {
	payload, err := json.Marshal(metrics)
	if err != nil {
		return "", fmt.Errorf("encode metrics: %w", err)
	}

	reqBody := messageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []Message{{
			Role:    "user",
			Content: "Current farm metrics:\n" + string(payload),
		}},
	}

	var (
		respBody messageResponse
		apiErr   errorResponse
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		SetError(&apiErr).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		return "", fmt.Errorf("anthropic api error (status %d): %s", resp.StatusCode(), msg)
	}

	var parts []string
	for _, block := range respBody.Content {
		if text := strings.TrimSpace(block.Text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", ErrEmptyReply
	}
	return strings.Join(parts, "\n"), nil
}
