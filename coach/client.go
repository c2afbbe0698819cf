// Package coach talks to an OpenAI-compatible chat-completion endpoint on behalf of a
// user, using the user's own API key.
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrMissingCredentials means the user has not stored an API key.
	ErrMissingCredentials = errors.New("coach: api key not configured")
	// ErrMalformedResponse means the model answered with something that is not a valid routine.
	ErrMalformedResponse = errors.New("coach: malformed model response")
	// ErrUpstream wraps transport failures and non-2xx answers from the provider.
	ErrUpstream = errors.New("coach: upstream request failed")
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Model   string
	// Temperature defaults to 0.7 when nil; 0 is a valid setting.
	Temperature *float64
	Timeout     time.Duration
	// HTTPClient is the base transport; the bearer token is layered on top of it.
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	timeout     time.Duration
	base        *http.Client
}

// NewClient builds a Client. Zero options fall back to the public OpenAI endpoint.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		temperature: 0.7,
		timeout:     opts.Timeout,
		base:        opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = "https://api.openai.com/v1"
	}
	if c.model == "" {
		c.model = "gpt-4o-mini"
	}
	if opts.Temperature != nil {
		c.temperature = *opts.Temperature
	}
	if c.timeout == 0 {
		c.timeout = 60 * time.Second
	}
	if c.base == nil {
		c.base = http.DefaultClient
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// complete sends one chat-completion request and returns the first choice's content,
// which may be empty.
func (c *Client) complete(ctx context.Context, apiKey string, messages []chatMessage, maxTokens int) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", ErrMissingCredentials
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	hc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.base),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"}))

	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
			return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, ae.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(cr.Choices) == 0 {
		return "", nil
	}
	return cr.Choices[0].Message.Content, nil
}
