package ocr

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"receipt-lens/internal/encoding"
)

const recognizePath = "/api/ocr/base64"

const defaultTimeout = 60 * time.Second

type recognizeRequest struct {
	Image string `json:"image"`
}

// Text is a pointer so a 200 response without the field is distinguishable
// from an empty recognition result.
type recognizeResponse struct {
	Text *string `json:"text"`
}

// ClientOpts configures a Client. BaseURL is resolved once at process start;
// there is no default.
type ClientOpts struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the remote recognition endpoint. It is safe for concurrent
// use and holds no per-request state.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

// NewClient creates a Client for the given endpoint. An empty BaseURL is
// allowed here so callers can construct eagerly, but every Recognize call
// will fail with ErrNotConfigured until one is set.
func NewClient(opts ClientOpts) *Client {
	c := &Client{baseURL: strings.TrimRight(opts.BaseURL, "/")}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	c.httpClient = resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if c.baseURL != "" {
		c.httpClient.SetBaseURL(c.baseURL)
	}

	return c
}

// Recognize submits one capture and returns the recognized text exactly as
// the endpoint produced it.
func (c *Client) Recognize(ctx context.Context, payload encoding.Payload) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}

	resp, err := c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetBody(recognizeRequest{Image: payload.URI()}).
		Post(recognizePath)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	if resp.IsError() {
		return "", &ServerError{StatusCode: resp.StatusCode()}
	}

	var out recognizeResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", &MalformedResponseError{Reason: "body is not valid JSON: " + err.Error()}
	}
	if out.Text == nil {
		return "", &MalformedResponseError{Reason: `response has no "text" field`}
	}

	return *out.Text, nil
}

// Close implements Recognizer. The underlying HTTP client needs no teardown.
func (c *Client) Close() error {
	return nil
}
