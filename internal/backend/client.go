package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"office-action-orchestrator/internal/domain"
)

// CallObserver receives one notification per backend call.
type CallObserver func(endpoint string, outcome string, elapsed time.Duration)

type Option func(*HTTPClient)

func WithObserver(obs CallObserver) Option {
	return func(c *HTTPClient) { c.observe = obs }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// HTTPClient talks to the external analysis backend. A zero timeout leaves
// calls bounded only by the caller's context.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	observe    CallObserver
}

func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestError is a 400 answer; Message is the server's own text.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("backend rejected request (%d): %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

const (
	outcomeOK             = "ok"
	outcomeSessionInvalid = "session_invalid"
	outcomeBadRequest     = "bad_request"
	outcomeUpstream       = "upstream_error"
	outcomeMalformed      = "malformed"
)

func (c *HTTPClient) postJSON(ctx context.Context, path string, authenticated bool, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.exchange(req, path, authenticated, out)
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, endpoint string, authenticated bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.exchange(req, endpoint, authenticated, out)
}

func (c *HTTPClient) postMultipart(ctx context.Context, path string, fields map[string]string, filename string, content []byte, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(content); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.exchange(req, path, true, out)
}

func (c *HTTPClient) exchange(req *http.Request, endpoint string, authenticated bool, out any) (err error) {
	start := time.Now()
	defer func() { c.record(endpoint, err, time.Since(start)) }()

	respBody, status, err := c.roundTrip(req, endpoint)
	if err != nil {
		return err
	}
	if err := classify(status, respBody, authenticated); err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &domain.PayloadError{Kind: endpoint, Err: err}
	}
	if env.Success != nil && !*env.Success {
		return &RequestError{StatusCode: status, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &domain.PayloadError{Kind: endpoint, Err: errors.New("response carries no data")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &domain.PayloadError{Kind: endpoint, Err: err}
	}
	return nil
}

func (c *HTTPClient) roundTrip(req *http.Request, endpoint string) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", domain.ErrUpstream, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read %s: %v", domain.ErrUpstream, endpoint, err)
	}
	log.Debug().Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("backend call")
	return body, resp.StatusCode, nil
}

func (c *HTTPClient) record(endpoint string, err error, elapsed time.Duration) {
	if c.observe == nil {
		return
	}
	c.observe(endpoint, outcomeFor(err), elapsed)
}

func classify(status int, body []byte, authenticated bool) error {
	if status < http.StatusBadRequest {
		return nil
	}
	if authenticated && (status == http.StatusUnauthorized || status == http.StatusNotFound) {
		return fmt.Errorf("%w: backend answered %d", domain.ErrSessionInvalid, status)
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusNotFound {
		var env envelope
		msg := ""
		if err := json.Unmarshal(body, &env); err == nil {
			msg = env.Message
		}
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &RequestError{StatusCode: status, Message: msg}
	}
	return fmt.Errorf("%w: backend answered %d", domain.ErrUpstream, status)
}

func outcomeFor(err error) string {
	var reqErr *RequestError
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, domain.ErrSessionInvalid):
		return outcomeSessionInvalid
	case errors.As(err, &reqErr):
		return outcomeBadRequest
	case errors.Is(err, domain.ErrMalformedPayload):
		return outcomeMalformed
	default:
		return outcomeUpstream
	}
}

type tokenBody struct {
	Token string `json:"token"`
}

type applicationBody struct {
	Token         string `json:"token"`
	ApplicationID string `json:"applicationId"`
}
