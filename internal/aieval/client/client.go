// Package client is the HTTP client for the external risk-scoring service.
// Responses are validated against an embedded JSON schema before any field
// is trusted.
package client

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"leaselab/internal/aieval/models"
)

//go:embed schema.json
var responseSchemaJSON []byte

// Client talks to the scoring service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	schema     *gojsonschema.Schema
	tracer     trace.Tracer
}

// New constructs a scoring client. The timeout bounds each call on top of
// whatever deadline the caller's context carries.
func New(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(responseSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile scoring response schema: %w", err)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		schema:     schema,
		tracer:     otel.Tracer("leaselab/aieval"),
	}, nil
}

// Score posts the scoring request and returns the validated response.
func (c *Client) Score(ctx context.Context, req models.ScoringRequest) (*models.ScoringResponse, error) {
	ctx, span := c.tracer.Start(ctx, "scoring.evaluate",
		trace.WithAttributes(attribute.String("application.id", req.ApplicationID)))
	defer span.End()

	resp, err := c.score(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("scoring.score", resp.Score),
		attribute.String("scoring.label", resp.Label),
	)
	return resp, nil
}

func (c *Client) score(ctx context.Context, req models.ScoringRequest) (*models.ScoringResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal scoring request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/evaluations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build scoring request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call scoring service: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read scoring response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoring service returned status %d", httpResp.StatusCode)
	}

	if err := c.validate(raw); err != nil {
		return nil, err
	}

	var resp models.ScoringResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode scoring response: %w", err)
	}
	return &resp, nil
}

func (c *Client) validate(raw []byte) error {
	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate scoring response: %w", err)
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("scoring response failed schema validation: %s", strings.Join(details, "; "))
}
