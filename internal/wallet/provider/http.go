package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"selo/internal/sentinel"
	"selo/internal/wallet/models"
	id "selo/pkg/domain"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPClient talks to the real wallet provider over HTTPS. Each request
// carries a short-lived HS256 JWT so a leaked token is useless within
// minutes.
type HTTPClient struct {
	baseURL   string
	keyID     string
	apiSecret []byte
	client    *http.Client
	tracer    trace.Tracer
}

// HTTPOption configures HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPTimeout overrides the per-request timeout when greater than zero.
func WithHTTPTimeout(timeout time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithTracer allows injecting a pre-configured tracer.
func WithTracer(t trace.Tracer) HTTPOption {
	return func(c *HTTPClient) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewHTTP constructs the network-backed provider client.
func NewHTTP(baseURL, keyID, apiSecret string, opts ...HTTPOption) (*HTTPClient, error) {
	if baseURL == "" || keyID == "" || apiSecret == "" {
		return nil, fmt.Errorf("baseURL, keyID, and apiSecret are required")
	}
	c := &HTTPClient{
		baseURL:   baseURL,
		keyID:     keyID,
		apiSecret: []byte(apiSecret),
		client:    &http.Client{Timeout: defaultRequestTimeout},
		tracer:    otel.Tracer("selo/wallet/provider"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type createPassRequest struct {
	ExternalID     string `json:"external_id"`
	DisplayName    string `json:"display_name"`
	Phone          string `json:"phone"`
	Email          string `json:"email,omitempty"`
	ProgramName    string `json:"program_name"`
	Stamps         int    `json:"stamps"`
	StampsRequired int    `json:"stamps_required"`
}

type createPassResponse struct {
	ID        string `json:"id"`
	AppleURL  string `json:"apple_url"`
	GoogleURL string `json:"google_url"`
	QRCode    string `json:"qr_code"`
}

type updatePassRequest struct {
	Stamps          int  `json:"stamps"`
	StampsRequired  int  `json:"stamps_required"`
	RewardAvailable bool `json:"reward_available"`
}

// CreatePass provisions a new pass. The provider upserts on external_id,
// so repeated creates for the same pseudonymous customer do not produce
// duplicate passes.
func (c *HTTPClient) CreatePass(ctx context.Context, envelope models.PrivacyEnvelope, content PassContent) (*Pass, error) {
	body := createPassRequest{
		ExternalID:     envelope.ExternalID,
		DisplayName:    envelope.DisplayFirstName,
		Phone:          envelope.Phone,
		Email:          envelope.Email,
		ProgramName:    content.ProgramName,
		Stamps:         content.Stamps,
		StampsRequired: content.StampsRequired,
	}
	var out createPassResponse
	err := c.do(ctx, http.MethodPost, "/v1/passes", body, &out,
		attribute.String("wallet.operation", "create"))
	if err != nil {
		return nil, err
	}
	return &Pass{
		ID:        id.PassID(out.ID),
		AppleURL:  out.AppleURL,
		GoogleURL: out.GoogleURL,
		QRCode:    out.QRCode,
	}, nil
}

// UpdatePass pushes the current balance to an existing pass.
func (c *HTTPClient) UpdatePass(ctx context.Context, passID id.PassID, update PassUpdate) error {
	body := updatePassRequest{
		Stamps:          update.Stamps,
		StampsRequired:  update.StampsRequired,
		RewardAvailable: update.RewardAvailable,
	}
	return c.do(ctx, http.MethodPatch, "/v1/passes/"+string(passID), body, nil,
		attribute.String("wallet.operation", "update"))
}

// DeletePass removes a pass from the provider.
func (c *HTTPClient) DeletePass(ctx context.Context, passID id.PassID) error {
	return c.do(ctx, http.MethodDelete, "/v1/passes/"+string(passID), nil, nil,
		attribute.String("wallet.operation", "delete"))
}

// do executes one provider call and classifies the outcome into the
// sentinel error contract.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, attrs ...attribute.KeyValue) error {
	ctx, span := c.tracer.Start(ctx, "wallet.provider"+path, trace.WithAttributes(attrs...))
	var err error
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		payload, merr := json.Marshal(body)
		if merr != nil {
			err = fmt.Errorf("%w: encode request: %v", sentinel.ErrInvalidInput, merr)
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, rerr := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if rerr != nil {
		err = fmt.Errorf("%w: build request: %v", sentinel.ErrInvalidInput, rerr)
		return err
	}
	token, terr := c.requestToken()
	if terr != nil {
		err = terr
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, derr := c.client.Do(req)
	if derr != nil {
		// Network failure: the provider may well be fine on the next try.
		err = fmt.Errorf("%w: %v", sentinel.ErrUnavailable, derr)
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			if derr := json.NewDecoder(resp.Body).Decode(out); derr != nil {
				err = fmt.Errorf("%w: decode response: %v", sentinel.ErrUnavailable, derr)
				return err
			}
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		err = fmt.Errorf("%w: pass not found", sentinel.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		err = fmt.Errorf("%w: provider rejected request (%d)", sentinel.ErrInvalidInput, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		err = fmt.Errorf("%w: provider returned %d", sentinel.ErrUnavailable, resp.StatusCode)
	default:
		err = fmt.Errorf("%w: unexpected provider status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}
	return err
}

// requestToken signs a short-lived JWT identifying this deployment's key.
func (c *HTTPClient) requestToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.keyID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(2 * time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.apiSecret)
	if err != nil {
		return "", fmt.Errorf("%w: sign request token: %v", sentinel.ErrUnavailable, err)
	}
	return token, nil
}

var _ Client = (*HTTPClient)(nil)
