// Package api implements the rate-limit-aware HTTP client for the team-chat
// API. All calls carry bearer-token auth; HTTP 429 is the only retryable
// condition, with exponential backoff + jitter honoring Retry-After.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"deskline.app/chatsync/internal/notify"
)

const (
	// rateLimitNotice is shown once per client lifetime, on the first 429.
	rateLimitNotice = "You're sending requests too quickly. We'll retry automatically."

	defaultTimeout      = 15 * time.Second
	defaultMaxRetries   = 3
	defaultBackoffBase  = 2 * time.Second
	defaultJitterCeil   = 500 * time.Millisecond
	sessionExpiredError = "Your session has expired. Please log in again."
)

// TokenSource supplies the bearer token and drops it when the server
// rejects it.
type TokenSource interface {
	Token() string
	Clear()
}

type Config struct {
	BaseURL string
	// Timeout bounds each individual HTTP attempt. Zero means the default.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first 429 attempt.
	MaxRetries int
	// BackoffBase and Jitter shape the fallback delay when the server sends
	// no Retry-After hint. Zero values take the defaults.
	BackoffBase time.Duration
	Jitter      time.Duration
}

type Client struct {
	http     *http.Client
	cfg      Config
	tokens   TokenSource
	notifier notify.Notifier
	rl       rateLimitState
}

func New(cfg Config, tokens TokenSource, notifier notify.Notifier) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.Jitter == 0 {
		cfg.Jitter = defaultJitterCeil
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		tokens:   tokens,
		notifier: notifier,
	}
}

// RateLimitedUntil returns the end of the current rate-limited window (zero
// time when none). The poller consults it to skip refresh cycles instead of
// queueing more requests behind the window.
func (c *Client) RateLimitedUntil() time.Time {
	return c.rl.limitedUntil()
}

// call performs one JSON API call with auth, throttling and retry. body may
// be nil; out may be nil for calls whose response is discarded.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindTransport, Message: fmt.Sprintf("encoding request: %v", err)}
		}
	}
	return c.send(ctx, method, path, "application/json", payload, out)
}

// send runs the request loop. contentType applies only when payload is
// non-nil; multipart uploads come through here too with a pre-built body.
func (c *Client) send(ctx context.Context, method, path, contentType string, payload []byte, out any) error {
	token := c.tokens.Token()
	if token == "" {
		return authError("authentication required")
	}

	for attempt := 0; ; attempt++ {
		// Wait out a live rate-limited window before touching the network,
		// even if this call never saw a 429 itself.
		if wait := c.rl.wait(time.Now()); wait > 0 {
			slog.DebugContext(ctx, "holding for rate limit window", "wait", wait, "path", path)
			if err := sleep(ctx, wait); err != nil {
				return &Error{Kind: KindTransport, Message: err.Error()}
			}
		}

		status, retryAfter, respBody, err := c.doOnce(ctx, method, path, contentType, payload, token)
		if err != nil {
			return &Error{Kind: KindTransport, Message: fmt.Sprintf("request failed: %v", err)}
		}

		switch {
		case status >= 200 && status < 300:
			if out == nil || len(respBody) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return &Error{Kind: KindTransport, Status: status, Message: fmt.Sprintf("decoding response: %v", err)}
			}
			return nil

		case status == http.StatusUnauthorized:
			c.tokens.Clear()
			return authError(sessionExpiredError)

		case status == http.StatusTooManyRequests:
			if c.rl.firstNotice() {
				c.notifier.Notify(ctx, rateLimitNotice)
			}
			if attempt >= c.cfg.MaxRetries {
				msg := errorMessage(respBody, status)
				slog.WarnContext(ctx, "rate limit retries exhausted", "path", path, "attempts", attempt+1)
				return &Error{Kind: KindRateLimit, Status: status, Message: msg}
			}
			delay, hinted := parseRetryAfter(retryAfter, time.Now())
			if !hinted {
				delay = backoffDelay(c.cfg.BackoffBase, c.cfg.Jitter, attempt)
			}
			c.rl.extend(time.Now().Add(delay))
			slog.InfoContext(ctx, "rate limited, retrying", "path", path, "delay", delay, "attempt", attempt+1)
			if err := sleep(ctx, delay); err != nil {
				return &Error{Kind: KindTransport, Message: err.Error()}
			}

		default:
			msg := errorMessage(respBody, status)
			kind := KindTransport
			if hasErrorEnvelope(respBody) {
				kind = KindValidation
			}
			return &Error{Kind: kind, Status: status, Message: msg}
		}
	}
}

func (c *Client) doOnce(ctx context.Context, method, path, contentType string, payload []byte, token string) (int, string, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return 0, "", nil, err
	}
	return resp.StatusCode, resp.Header.Get("Retry-After"), respBody, nil
}

// Upload posts a file as multipart form data to the upload endpoint. The
// bearer token is carried as usual; the JSON content type is not.
func (c *Client) Upload(ctx context.Context, filename string, file io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: fmt.Sprintf("building upload: %v", err)}
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, &Error{Kind: KindTransport, Message: fmt.Sprintf("reading file: %v", err)}
	}
	if err := w.Close(); err != nil {
		return nil, &Error{Kind: KindTransport, Message: fmt.Sprintf("building upload: %v", err)}
	}

	var result UploadResult
	if err := c.send(ctx, http.MethodPost, "/upload", w.FormDataContentType(), buf.Bytes(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// errorMessage extracts the server's error message from a non-2xx body,
// falling back to the HTTP status text.
func errorMessage(body []byte, status int) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return env.Error
	}
	return http.StatusText(status)
}

func hasErrorEnvelope(body []byte) bool {
	var env errorEnvelope
	return json.Unmarshal(body, &env) == nil && env.Error != ""
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
