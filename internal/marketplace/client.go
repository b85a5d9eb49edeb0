// Package marketplace is the HTTP client for the GigWire marketplace API.
// It covers only the surfaces the messaging core needs: listing
// conversations, toggling archive state, and sending messages.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/conversations"
)

// DefaultTimeout bounds every request; callers pass shorter deadlines via
// context when they need them.
const DefaultTimeout = 15 * time.Second

// StatusError is a non-2xx response. Temporary() reports whether the
// request is worth retrying.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("marketplace: server returned %d: %s", e.Code, e.Body)
}

// Temporary reports whether the failure may clear on retry. Server errors
// and throttling are temporary; other 4xx responses are permanent.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Client talks to the marketplace REST API. It implements
// conversations.API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a client for the given API base URL. The token is sent as a
// bearer credential on every request.
func New(baseURL, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  logger,
	}
}

// ListConversations fetches one filter bucket of the conversation list.
func (c *Client) ListConversations(ctx context.Context, f conversations.Filter) (*conversations.ConversationsResponse, error) {
	endpoint := fmt.Sprintf("%s/v1/conversations?filter=%s", c.baseURL, url.QueryEscape(string(f)))
	var resp conversations.ConversationsResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ToggleArchive flips a conversation's archived flag.
func (c *Client) ToggleArchive(ctx context.Context, conversationID string) error {
	endpoint := fmt.Sprintf("%s/v1/conversations/%s/archive", c.baseURL, url.PathEscape(conversationID))
	return c.do(ctx, http.MethodPost, endpoint, nil, nil)
}

// SendRequest is the message-send payload. ClientID doubles as an
// idempotency key: the server deduplicates resends of the same ID.
type SendRequest struct {
	ClientID       string `json:"client_id"`
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	Kind           string `json:"kind"`
	ImageURI       string `json:"image_uri,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

// SendMessage delivers one message and returns the server-assigned message
// ID. A *StatusError result distinguishes retryable failures from
// permanent rejections.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (string, error) {
	endpoint := c.baseURL + "/v1/messages"
	var resp sendResponse
	if err := c.do(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		c.logger.Warn("marketplace request failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode))
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
