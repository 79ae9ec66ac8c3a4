package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/ratelimit"
)

// Client calls an OpenRouter-compatible chat completions API.
type Client struct {
	APIKey      string
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
	Limiter     *ratelimit.Limiter
}

// NewClient creates a Client using the API key in the named env var.
func NewClient(endpoint, model, keyEnv string) (*Client, error) {
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, apperr.Configf("%s environment variable not set", keyEnv)
	}
	return &Client{
		APIKey:     key,
		Endpoint:   strings.TrimRight(endpoint, "/"),
		Model:      model,
		MaxTokens:  500,
		HTTPClient: &http.Client{},
	}, nil
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	Messages    []Message `json:"messages"`
}

type apiResponse struct {
	ID      string      `json:"id"`
	Choices []apiChoice `json:"choices"`
	Usage   Usage       `json:"usage"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiChoice struct {
	Message Message `json:"message"`
}

// Usage is the token accounting of one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type apiError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}

// Completion is the text and accounting of one chat completion.
type Completion struct {
	ID    string
	Text  string
	Usage Usage
}

// Complete sends the messages and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, model string, messages []Message) (*Completion, error) {
	if model == "" {
		model = c.Model
	}
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(apiRequest{
		Model:       model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Messages:    messages,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.WrapExternal("API request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.WrapExternal("reading response", err)
	}

	if err := statusError(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, apperr.WrapExternal("parsing response", err)
	}
	if apiResp.Error != nil {
		return nil, apperr.Externalf("API error (%v): %s", apiResp.Error.Code, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 || strings.TrimSpace(apiResp.Choices[0].Message.Content) == "" {
		return nil, apperr.Externalf("empty response from API")
	}

	return &Completion{ID: apiResp.ID, Text: apiResp.Choices[0].Message.Content, Usage: apiResp.Usage}, nil
}

type generationResponse struct {
	Data struct {
		TotalCost float64 `json:"total_cost"`
	} `json:"data"`
}

// Cost looks up the billed cost in USD of a finished generation.
func (c *Client) Cost(ctx context.Context, generationID string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.Endpoint+"/generation?id="+url.QueryEscape(generationID), nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, apperr.WrapExternal("cost request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, apperr.WrapExternal("reading cost response", err)
	}
	if err := statusError(resp.StatusCode, body); err != nil {
		return 0, err
	}

	var gen generationResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return 0, apperr.WrapExternal("parsing cost response", err)
	}
	return gen.Data.TotalCost, nil
}

func statusError(code int, body []byte) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperr.Auth(fmt.Sprintf("API rejected credentials (status %d)", code))
	case code == http.StatusPaymentRequired || code == http.StatusTooManyRequests:
		return apperr.ResourceExhausted(fmt.Sprintf("API quota exhausted (status %d): %.200s", code, body))
	case code == http.StatusBadRequest || code == http.StatusNotFound:
		return apperr.Configf("API rejected the request (status %d): %.200s", code, body)
	default:
		return apperr.Externalf("API returned status %d: %.200s", code, body)
	}
}
