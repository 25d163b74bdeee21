// Package backend is the HTTP client for the upstream PAKN case service.
//
// The upstream owns OTP generation and storage; this client only speaks the
// three remote operations of the disclosure flow. All transport and decode
// failures are converted to errors here so callers never see a partial read.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pakngate/internal/disclosure/wire"
)

var callDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "pakngate_backend_call_duration_ms",
	Help:    "Latency of upstream PAKN backend calls in milliseconds",
	Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
}, []string{"operation"})

// Ack is the upstream acknowledgement shared by all three operations.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// envelope is the upstream response wrapper; data is present on verify only.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the upstream PAKN backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (timeouts, transport).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		tracer:  otel.Tracer("pakngate/backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup asks the backend to locate a case; a successful lookup triggers OTP
// issuance to the citizen's registered contact channel as an upstream side effect.
func (c *Client) Lookup(ctx context.Context, caseCode string) (Ack, error) {
	env, err := c.post(ctx, "lookup", "/api/pakn/lookup", map[string]string{
		"caseCode": caseCode,
	})
	if err != nil {
		return Ack{}, err
	}
	return Ack{Success: env.Success, Message: env.Message}, nil
}

// Verify submits an OTP for a case code. On success the returned wire record
// carries the full disclosed case; on upstream rejection the record is nil and
// the Ack carries the server message.
func (c *Client) Verify(ctx context.Context, caseCode, otpCode string) (Ack, *wire.DisclosedCaseWire, error) {
	env, err := c.post(ctx, "verify", "/api/pakn/verify", map[string]string{
		"caseCode": caseCode,
		"otpCode":  otpCode,
	})
	if err != nil {
		return Ack{}, nil, err
	}

	ack := Ack{Success: env.Success, Message: env.Message}
	if !env.Success {
		return ack, nil, nil
	}

	var record wire.DisclosedCaseWire
	if err := json.Unmarshal(env.Data, &record); err != nil {
		return Ack{}, nil, fmt.Errorf("decode disclosed case: %w", err)
	}
	return ack, &record, nil
}

// Resend asks the backend to issue a fresh OTP for an existing case lookup.
func (c *Client) Resend(ctx context.Context, caseCode string) (Ack, error) {
	env, err := c.post(ctx, "resend", "/api/pakn/resend", map[string]string{
		"caseCode": caseCode,
	})
	if err != nil {
		return Ack{}, err
	}
	return Ack{Success: env.Success, Message: env.Message}, nil
}

func (c *Client) post(ctx context.Context, operation, path string, body any) (*envelope, error) {
	ctx, span := c.tracer.Start(ctx, "backend."+operation,
		trace.WithAttributes(attribute.String("pakn.operation", operation)))
	defer span.End()

	start := time.Now()
	defer func() {
		callDurationMs.WithLabelValues(operation).
			Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s call: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s call: upstream status %d", operation, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", operation, err)
	}
	return &env, nil
}
