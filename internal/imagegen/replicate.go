package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/ratelimit"
)

// Client runs predictions on a Replicate-compatible HTTP API.
type Client struct {
	APIKey       string
	Endpoint     string
	PollInterval time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client
	Limiter      *ratelimit.Limiter
}

// NewClient creates a Client using the API token in the named env var.
func NewClient(endpoint, keyEnv string) (*Client, error) {
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, apperr.Configf("%s environment variable not set", keyEnv)
	}
	return &Client{
		APIKey:       key,
		Endpoint:     strings.TrimRight(endpoint, "/"),
		PollInterval: 2 * time.Second,
		Timeout:      5 * time.Minute,
		HTTPClient:   &http.Client{},
	}, nil
}

// Prediction is the API's view of one model run.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (p *Prediction) done() bool {
	switch p.Status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

type createRequest struct {
	Version string         `json:"version,omitempty"`
	Input   map[string]any `json:"input"`
}

// Run creates a prediction for model with input, waits for it to finish and
// returns the URL of its first output. model is either `owner/name` or
// `owner/name:version`.
func (c *Client) Run(ctx context.Context, model string, input map[string]any) (string, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	pred, err := c.create(ctx, model, input)
	if err != nil {
		return "", err
	}

	for !pred.done() {
		if pred.URLs.Get == "" {
			return "", apperr.Externalf("prediction %s has no polling URL", pred.ID)
		}
		timedOut := func() error {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return apperr.Externalf("prediction %s still %s after %s", pred.ID, pred.Status, c.Timeout)
			}
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return "", timedOut()
		case <-time.After(c.PollInterval):
		}
		next, err := c.get(ctx, pred.URLs.Get)
		if err != nil {
			if ctx.Err() != nil {
				return "", timedOut()
			}
			return "", err
		}
		pred = next
	}

	switch pred.Status {
	case "failed":
		return "", predictionError(pred)
	case "canceled":
		return "", apperr.Externalf("prediction %s was canceled", pred.ID)
	}
	return OutputURL(pred.Output)
}

func (c *Client) create(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	url := c.Endpoint + "/models/" + model + "/predictions"
	body := createRequest{Input: input}
	if name, version, ok := strings.Cut(model, ":"); ok {
		if name == "" || version == "" {
			return nil, apperr.Configf("bad model reference %q", model)
		}
		url = c.Endpoint + "/predictions"
		body.Version = version
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, url string) (*Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Prediction, error) {
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.WrapExternal("API request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.WrapExternal("reading response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperr.Auth(fmt.Sprintf("API rejected the token (status %d)", resp.StatusCode))
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusNotFound:
		return nil, apperr.Configf("API rejected model or input (status %d): %.200s", resp.StatusCode, body)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		return nil, apperr.ResourceExhausted(fmt.Sprintf("API throttled or out of credit (status %d)", resp.StatusCode))
	case resp.StatusCode >= 300:
		return nil, apperr.Externalf("API returned status %d: %.200s", resp.StatusCode, body)
	}

	var pred Prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, apperr.WrapExternal("parsing prediction", err)
	}
	return &pred, nil
}

func predictionError(p *Prediction) error {
	msg := fmt.Sprint(p.Error)
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "out of memory") || strings.Contains(lower, "cuda") {
		return apperr.ResourceExhausted(fmt.Sprintf("prediction %s ran out of memory: %s", p.ID, msg))
	}
	return apperr.Externalf("prediction %s failed: %s", p.ID, msg)
}

// OutputURL extracts the first output URL from a prediction output, which may
// be a string, a list of strings, or objects with a "url" field.
func OutputURL(raw json.RawMessage) (string, error) {
	var url string
	var s string
	var list []json.RawMessage
	var obj struct {
		URL string `json:"url"`
	}

	switch {
	case len(raw) == 0 || string(raw) == "null":
		return "", apperr.Externalf("prediction has no output")
	case json.Unmarshal(raw, &s) == nil:
		url = s
	case json.Unmarshal(raw, &list) == nil:
		if len(list) == 0 {
			return "", apperr.Externalf("prediction output is empty")
		}
		return OutputURL(list[0])
	case json.Unmarshal(raw, &obj) == nil:
		url = obj.URL
	default:
		return "", apperr.Externalf("unrecognised prediction output %.100s", raw)
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", apperr.Externalf("prediction output %q is not an http(s) URL", url)
	}
	return url, nil
}
