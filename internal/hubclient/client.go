// Package hubclient verifies signed frame actions against a hub's
// validateMessage endpoint.
package hubclient

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

var (
	ErrInvalidMessage = errors.New("frame message rejected by hub")
	ErrMalformedBytes = errors.New("message bytes are not hex")
)

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDialer replaces the TCP dialer, e.g. with an in-memory listener.
func WithDialer(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 32},
		defaultTimeout: 5 * time.Second,
		retryMax:       2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Action is a hub-verified frame action.
type Action struct {
	FID         uint64
	ButtonIndex int
	InputText   string
	State       string
	URL         string
}

// IdentityID is the identity string used for seat bindings.
func (a *Action) IdentityID() string {
	return "fid:" + strconv.FormatUint(a.FID, 10)
}

type validateResponse struct {
	Valid   bool `json:"valid"`
	Message struct {
		Data struct {
			FID             uint64 `json:"fid"`
			FrameActionBody struct {
				URL         string `json:"url"`
				ButtonIndex int    `json:"buttonIndex"`
				InputText   string `json:"inputText"`
				State       string `json:"state"`
			} `json:"frameActionBody"`
		} `json:"data"`
	} `json:"message"`
}

// Validate submits the signed message bytes (hex) and returns the verified action.
func (c *Client) Validate(ctx context.Context, messageHex string) (*Action, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(messageHex), "0x"))
	if err != nil || len(raw) == 0 {
		return nil, ErrMalformedBytes
	}
	var resp validateResponse
	if err := c.do(ctx, "/v1/validateMessage", raw, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid {
		return nil, ErrInvalidMessage
	}
	body := resp.Message.Data.FrameActionBody
	return &Action{
		FID:         resp.Message.Data.FID,
		ButtonIndex: body.ButtonIndex,
		InputText:   decodeBytesField(body.InputText),
		State:       decodeBytesField(body.State),
		URL:         body.URL,
	}, nil
}

// decodeBytesField undoes the hub's base64 encoding of byte fields.
func decodeBytesField(v string) string {
	if v == "" {
		return ""
	}
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return string(b)
	}
	return v
}

func (c *Client) do(ctx context.Context, path string, body []byte, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/octet-stream")
	req.SetBody(body)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			lastErr = fmt.Errorf("hub error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
			if !shouldRetryStatus(status) {
				return lastErr
			}
		} else {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}
		if attempt < attempts {
			if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
