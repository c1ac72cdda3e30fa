package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igfeedprobe/pkg/config"
	"igfeedprobe/pkg/errors"
	"igfeedprobe/pkg/logger"
	"igfeedprobe/pkg/ratelimit"
)

// BaseURL is the root of the private mobile API
const BaseURL = "https://i.instagram.com/api/v1/"

// Client talks to the private mobile API on behalf of one account
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	limiter    ratelimit.Limiter
	store      SessionStore
	state      *SessionState
	logger     logger.Logger
}

// RequestOptions controls how PrivateRequest encodes and sends a call
type RequestOptions struct {
	// Method defaults to POST when a payload is given and GET otherwise
	Method string
	// WithSignature wraps the payload as signed_body=SIGNATURE.<json>
	WithSignature bool
	// Headers are added after the default device headers
	Headers map[string]string
	// Query is appended to the endpoint URL
	Query url.Values
}

// NewClient creates a client with a fresh device fingerprint. store may be nil,
// in which case sessions are not persisted.
func NewClient(cfg config.InstagramConfig, store SessionStore, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":           userAgent,
			"Accept-Language":      "en-US",
			"X-IG-App-ID":          AppID,
			"X-IG-Capabilities":    "3brTv10=",
			"X-IG-Connection-Type": "WIFI",
			"X-FB-HTTP-Engine":     "Liger",
		},
		baseURL: BaseURL,
		limiter: ratelimit.PerMinute(rpm),
		store:   store,
		state:   &SessionState{Device: *NewDevice()},
		logger:  log,
	}
}

// SetBaseURL points the client at another API root, e.g. a test server
func (c *Client) SetBaseURL(baseURL string) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c.baseURL = baseURL
}

// SetLimiter replaces the request limiter
func (c *Client) SetLimiter(limiter ratelimit.Limiter) {
	c.limiter = limiter
}

// Device returns the fingerprint in use
func (c *Client) Device() *Device {
	return &c.state.Device
}

// State returns the current session state
func (c *Client) State() *SessionState {
	return c.state
}

// PrivateRequest sends one call to endpoint and decodes the JSON response into
// target when target is non-nil. Failures are returned as *errors.Error.
func (c *Client) PrivateRequest(ctx context.Context, endpoint string, payload map[string]interface{}, opts RequestOptions, target interface{}) error {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
		if payload != nil {
			method = http.MethodPost
		}
	}

	var body io.Reader
	if payload != nil {
		encoded, err := encodePayload(payload, opts.WithSignature)
		if err != nil {
			return errors.New(errors.ErrorTypeParsing, 0, "failed to encode payload for %s: %v", endpoint, err)
		}
		body = strings.NewReader(encoded)
	}

	reqURL := c.baseURL + strings.TrimPrefix(endpoint, "/")
	if len(opts.Query) > 0 {
		reqURL += "?" + opts.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return errors.New(errors.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	c.applyHeaders(req, payload != nil, opts.Headers)

	if !c.limiter.Allow() {
		logger.LogRateLimit(c.logger, endpoint, 0)
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"endpoint": endpoint,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return errors.New(errors.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}
	logger.LogRequest(c.logger, method, endpoint, resp.StatusCode, time.Since(start))

	c.captureSessionHeaders(resp.Header)

	if err := c.checkResponse(endpoint, resp.StatusCode, data); err != nil {
		return err
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint":     endpoint,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview(data, 200),
		})
		return errors.New(errors.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	return nil
}

func (c *Client) applyHeaders(req *http.Request, hasBody bool, extra map[string]string) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	d := c.state.Device
	req.Header.Set("X-IG-Device-ID", d.UUID)
	req.Header.Set("X-IG-Android-ID", d.AndroidDeviceID)
	req.Header.Set("X-IG-Timezone-Offset", d.TimezoneOffsetString())
	req.Header.Set("X-Bloks-Version-Id", d.BloksVersioningID)
	req.Header.Set("X-Pigeon-Session-Id", d.ClientSessionID)

	if c.state.Authorization != "" {
		req.Header.Set("Authorization", c.state.Authorization)
	}
	if c.state.MID != "" {
		req.Header.Set("X-MID", c.state.MID)
	}
	if c.state.UserID != "" {
		req.Header.Set("IG-U-DS-USER-ID", c.state.UserID)
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}

	for key, value := range extra {
		req.Header.Set(key, value)
	}
}

// captureSessionHeaders records tokens the server rotates through response headers
func (c *Client) captureSessionHeaders(h http.Header) {
	if auth := h.Get("ig-set-authorization"); auth != "" && !strings.HasSuffix(auth, ":") {
		c.state.Authorization = auth
	}
	if mid := h.Get("ig-set-x-mid"); mid != "" {
		c.state.MID = mid
	}
}

// apiStatus is the envelope every private API response carries
type apiStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type"`
}

// checkResponse maps HTTP status codes and {"status":"fail"} bodies to typed errors
func (c *Client) checkResponse(endpoint string, statusCode int, data []byte) error {
	var envelope apiStatus
	_ = json.Unmarshal(data, &envelope)

	if statusCode < 400 && envelope.Status != "fail" {
		return nil
	}

	errorType := classifyFailure(statusCode, envelope)
	message := envelope.Message
	if message == "" {
		message = envelope.ErrorType
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	fields := map[string]interface{}{
		"endpoint":   endpoint,
		"status":     statusCode,
		"error_type": string(errorType),
		"message":    message,
	}
	if errorType == errors.ErrorTypeServerError {
		c.logger.ErrorWithFields("API request failed", fields)
	} else {
		c.logger.WarnWithFields("API request failed", fields)
	}

	return errors.New(errorType, statusCode, "%s: %s", endpoint, message)
}

func classifyFailure(statusCode int, envelope apiStatus) errors.ErrorType {
	for _, marker := range []string{envelope.ErrorType, envelope.Message} {
		switch marker {
		case "login_required", "bad_password", "invalid_user", "invalid_credentials":
			return errors.ErrorTypeAuth
		case "challenge_required", "checkpoint_required", "checkpoint_challenge_required":
			return errors.ErrorTypeChallenge
		case "feedback_required", "rate_limit_error", "Please wait a few minutes before you try again.":
			return errors.ErrorTypeRateLimit
		}
	}
	return errors.ErrorTypeForStatus(statusCode)
}

// encodePayload renders a request body. Unsigned payloads are the raw JSON document.
func encodePayload(payload map[string]interface{}, withSignature bool) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", err
	}
	doc := strings.TrimSuffix(buf.String(), "\n")

	if !withSignature {
		return doc, nil
	}
	return "signed_body=SIGNATURE." + url.QueryEscape(doc), nil
}

func preview(data []byte, n int) string {
	s := string(data)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
