// Package gateway is the client side of the external payment gateway.
// Every call is a blocking request bounded by the configured timeout and
// returns either a result or one error kind: ErrUnreachable or ErrRejected.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const unknownErrorMessage = "unknown gateway error"

type Config struct {
	BaseURL     string
	StartPayURL string
	MerchantID  string
	CallbackURL string
	Description string
	Timeout     time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	logger := log.With().Str("component", "gateway").Logger()
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		log:     logger,
	}
}

// StartPayURL is the hosted payment page the user is redirected to.
func (c *Client) StartPayURL(authority string) string {
	return strings.TrimRight(c.cfg.StartPayURL, "/") + "/" + authority
}

// RequestPayment registers a payment and returns its authority.
func (c *Client) RequestPayment(ctx context.Context, req PaymentRequest) (string, error) {
	payload := requestPayload{
		MerchantID:  c.cfg.MerchantID,
		Amount:      req.Amount,
		CallbackURL: c.cfg.CallbackURL,
		Description: c.cfg.Description,
		Metadata:    req.Metadata,
	}

	data, err := c.call(ctx, "/payment/request.json", payload)
	if err != nil {
		return "", err
	}
	if data.Authority == "" {
		return "", fmt.Errorf("%w: success without authority", ErrUnreachable)
	}
	return data.Authority, nil
}

// VerifyPayment confirms the payment identified by req.Authority for req.Amount.
func (c *Client) VerifyPayment(ctx context.Context, req VerifyRequest) (*Verification, error) {
	payload := verifyPayload{
		MerchantID: c.cfg.MerchantID,
		Amount:     req.Amount,
		Authority:  req.Authority,
	}

	data, err := c.call(ctx, "/payment/verify.json", payload)
	if err != nil {
		return nil, err
	}
	return &Verification{Code: data.Code, RefID: data.RefID, CardPan: data.CardPan}, nil
}

func (c *Client) call(ctx context.Context, path string, payload any) (*responseData, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, path, body)
	})
	c.log.Debug().Str("path", path).Dur("took", time.Since(start)).Err(err).Msg("gateway call")
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return nil, err
	}

	return parse(raw)
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
	return raw, nil
}

// parse maps a gateway envelope onto success data or a single error kind.
// 4xx bodies still carry the business error, so status codes are not inspected here.
func parse(raw []byte) (*responseData, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnreachable, err)
	}

	var data responseData
	if decodeObject(env.Data, &data) && data.Code == CodeSuccess {
		return &data, nil
	}

	var gwErr responseErrors
	if decodeObject(env.Errors, &gwErr) && gwErr.Message != "" {
		return nil, &Error{Code: gwErr.Code, Message: gwErr.Message}
	}
	if data.Code != 0 {
		msg := data.Message
		if msg == "" {
			msg = unknownErrorMessage
		}
		return nil, &Error{Code: data.Code, Message: msg}
	}
	return nil, &Error{Message: unknownErrorMessage}
}
