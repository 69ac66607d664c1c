// Package prediction forwards financial snapshots to the external predictor
// and substitutes a static recommendation payload when it cannot answer.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/log"
)

const (
	DefaultURL     = "http://localhost:5002/predict"
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// Fallback is returned whenever the predictor fails.
type Fallback struct {
	Error           string   `json:"error"`
	Message         string   `json:"message"`
	Recommendations []string `json:"recommendations"`
}

// DefaultFallback is the payload served when no prediction is available.
func DefaultFallback() Fallback {
	return Fallback{
		Error:   "Failed to get prediction",
		Message: "Failed to get prediction",
		Recommendations: []string{
			"Unable to process financial data at this time.",
			"Consider maintaining a savings rate of 20% of your income.",
			"Review your largest expense categories for potential savings.",
		},
	}
}

// Result carries the body to send back. Degraded marks a fallback body.
type Result struct {
	Body     json.RawMessage
	Degraded bool
}

// Gateway is a single-shot client of the predictor service.
type Gateway struct {
	url        string
	httpClient *http.Client
	logger     *log.Logger
	fallback   json.RawMessage
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout bounds each predictor call.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the transport client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l.WithComponent(log.ComponentPrediction)
		}
	}
}

// NewGateway creates a gateway for url. An empty url selects DefaultURL.
func NewGateway(url string, opts ...Option) *Gateway {
	if url == "" {
		url = DefaultURL
	}
	fb, _ := json.Marshal(DefaultFallback())
	g := &Gateway{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     log.Wrap(slog.Default(), log.ComponentPrediction),
		fallback:   fb,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Predict posts snapshot and returns the predictor's JSON verbatim. Any
// failure yields the fallback body with Degraded set.
func (g *Gateway) Predict(ctx context.Context, snapshot []byte) Result {
	body, err := g.call(ctx, snapshot)
	if err != nil {
		g.logger.ErrorContext(ctx, "Prediction failed, serving fallback",
			log.FieldError, err,
			log.FieldDegraded, true)
		return Result{Body: g.fallback, Degraded: true}
	}
	return Result{Body: body}
}

func (g *Gateway) call(ctx context.Context, snapshot []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(snapshot))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call predictor: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read predictor response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("predictor returned status %d", resp.StatusCode)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("predictor returned invalid JSON")
	}

	g.logger.DebugContext(ctx, "Prediction received",
		log.FieldDuration, time.Since(start).Milliseconds(),
		"status", resp.StatusCode)
	return json.RawMessage(data), nil
}
