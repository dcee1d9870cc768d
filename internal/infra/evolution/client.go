package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client sends outbound messages through an Evolution API instance.
// Messages go to POST {base}/message/sendText/{instance} with the API key in
// the "apikey" header.
type Client struct {
	baseURL    string
	instance   string
	apiKey     string
	delayMS    int
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (used in tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTypingDelay sets the simulated typing delay, in milliseconds, that the
// Evolution API applies before delivering each message.
func WithTypingDelay(ms int) Option {
	return func(c *Client) { c.delayMS = ms }
}

func NewClient(baseURL, instance, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		instance:   instance,
		apiKey:     apiKey,
		delayMS:    1200,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
	Delay  int    `json:"delay,omitempty"`
}

func (c *Client) SendText(ctx context.Context, recipient, text string) error {
	body, err := json.Marshal(sendTextRequest{
		Number: recipient,
		Text:   text,
		Delay:  c.delayMS,
	})
	if err != nil {
		return fmt.Errorf("encode sendText: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendText request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendText to %s: %w", recipient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendText to %s: status %d: %s", recipient, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
