package spotify

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/zmb3/spotify/v2"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// RateLimitError is returned for HTTP 429 responses.
type RateLimitError struct {
	Method     string
	URL        string
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("spotify: rate limited on %s %s, retry after %ds", e.Method, e.URL, e.RetryAfter)
}

// StatusError is a 400, 401 or 500 response from the Web API. Message is
// Spotify's error message, or the status text when the body carries none.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify: %s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// ErrorTransport turns the responses this package acts on into typed errors:
// 429 becomes *RateLimitError carrying the Retry-After hint, and 400, 401 and
// 500 become *StatusError whether or not the body is valid JSON.
type ErrorTransport struct {
	Base http.RoundTripper
	now  func() time.Time
}

func (t *ErrorTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *ErrorTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		now := time.Now
		if t.now != nil {
			now = t.now
		}
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), now())
		drain(resp)
		return nil, &RateLimitError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			RetryAfter: retryAfter,
		}

	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		drain(resp)
		return nil, &StatusError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body, resp.StatusCode),
		}
	}
	return resp, nil
}

// drain reads what is left of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}

// errorMessage extracts the message of a Web API error object
// ({"error":{"status":401,"message":"..."}}).
func errorMessage(body []byte, status int) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return http.StatusText(status)
}

// parseRetryAfter accepts delay-seconds or an HTTP date. Anything else is 0.
func parseRetryAfter(v string, now time.Time) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(secs, 0)
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(int(at.Sub(now).Seconds()), 0)
	}
	return 0
}

// RetryAfter reports whether err is a rate-limit error and, if so, how many
// seconds the server asked to wait.
func RetryAfter(err error) (int, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	// A 429 decoded by the library without passing through ErrorTransport.
	var se spotify.Error
	if errors.As(err, &se) && se.Status == http.StatusTooManyRequests {
		return 0, true
	}
	return 0, false
}
