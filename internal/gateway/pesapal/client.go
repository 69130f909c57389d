package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"launchpad_backend/internal/logger"
)

const (
	pathRequestToken    = "/api/Auth/RequestToken"
	pathRegisterIPN     = "/api/URLSetup/RegisterIPN"
	pathSubmitOrder     = "/api/Transactions/SubmitOrderRequest"
	pathTransactionStat = "/api/Transactions/GetTransactionStatus"
)

// errTokenRefused marks a 401/403 on an authenticated call; callers drop the
// cached token and try once more before reporting ErrAuth.
var errTokenRefused = errors.New("pesapal: bearer token refused")

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	RequestTimeout time.Duration
	RetryBackoff   time.Duration
}

// Client is the raw Pesapal API 3.0 client. Every call is retried once on
// ErrUnavailable.
type Client struct {
	baseURL      string
	key, secret  string
	http         *http.Client
	retryBackoff time.Duration
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		key:          cfg.ConsumerKey,
		secret:       cfg.ConsumerSecret,
		http:         httpClient,
		retryBackoff: cfg.RetryBackoff,
	}
}

func (c *Client) requestToken(ctx context.Context) (*tokenResponse, error) {
	var out tokenResponse
	body := tokenRequest{ConsumerKey: c.key, ConsumerSecret: c.secret}
	if err := c.call(ctx, "request_token", http.MethodPost, pathRequestToken, "", body, &out); err != nil {
		if errors.Is(err, errTokenRefused) {
			return nil, ErrAuth
		}
		return nil, err
	}
	if err := classify(out.Error); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("%w: empty token in response (status %s)", ErrAuth, out.Status)
	}
	return &out, nil
}

func (c *Client) registerIPN(ctx context.Context, token, ipnURL string) (string, error) {
	var out registerIPNResponse
	body := registerIPNRequest{URL: ipnURL, NotificationType: "GET"}
	if err := c.call(ctx, "register_ipn", http.MethodPost, pathRegisterIPN, token, body, &out); err != nil {
		return "", err
	}
	if err := classify(out.Error); err != nil {
		return "", err
	}
	if out.IPNID == "" {
		return "", &RejectedError{Code: out.Status, Message: "gateway returned no notification id"}
	}
	return out.IPNID, nil
}

func (c *Client) submitOrder(ctx context.Context, token string, req OrderRequest) (*OrderResponse, error) {
	var out OrderResponse
	if err := c.call(ctx, "submit_order", http.MethodPost, pathSubmitOrder, token, req, &out); err != nil {
		return nil, err
	}
	if err := classify(out.Error); err != nil {
		return nil, err
	}
	if out.OrderTrackingID == "" || out.RedirectURL == "" {
		return nil, &RejectedError{Code: out.Status, Message: "gateway did not return a tracking id"}
	}
	return &out, nil
}

func (c *Client) transactionStatus(ctx context.Context, token, trackingID string) (*TransactionStatus, error) {
	var out TransactionStatus
	path := pathTransactionStat + "?orderTrackingId=" + url.QueryEscape(trackingID)
	raw, err := c.callRaw(ctx, "transaction_status", http.MethodGet, path, token, nil, &out)
	if err != nil {
		return nil, err
	}
	if err := classify(out.Error); err != nil {
		return nil, err
	}
	out.Raw = raw
	out.ObservedAt = time.Now().UTC()
	return &out, nil
}

func (c *Client) call(ctx context.Context, op, method, path, token string, in, out interface{}) error {
	_, err := c.callRaw(ctx, op, method, path, token, in, out)
	return err
}

// callRaw does one logical request: at most two attempts, the second only
// after ErrUnavailable.
func (c *Client) callRaw(ctx context.Context, op, method, path, token string, in, out interface{}) ([]byte, error) {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", op, err)
		}
		payload = b
	}

	return backoff.Retry(ctx, func() ([]byte, error) {
		raw, err := c.do(ctx, op, method, path, token, payload, out)
		if err != nil && !errors.Is(err, ErrUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return raw, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryBackoff)),
		backoff.WithMaxTries(2),
	)
}

func (c *Client) do(ctx context.Context, op, method, path, token string, payload []byte, out interface{}) ([]byte, error) {
	start := time.Now()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		err = fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
		logger.GatewayLog(op, 0, time.Since(start), err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		err = fmt.Errorf("%w: %s: read body: %v", ErrUnavailable, op, err)
		logger.GatewayLog(op, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		err = errTokenRefused
	case resp.StatusCode >= 500:
		err = fmt.Errorf("%w: %s: http %d", ErrUnavailable, op, resp.StatusCode)
	case resp.StatusCode >= 400:
		err = rejectionFromBody(raw, resp.StatusCode)
	default:
		if uerr := json.Unmarshal(raw, out); uerr != nil {
			err = fmt.Errorf("%w: %s: decode response: %v", ErrUnavailable, op, uerr)
		}
	}

	logger.GatewayLog(op, resp.StatusCode, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func rejectionFromBody(raw []byte, status int) error {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil {
		if err := classify(envelope.Error); err != nil {
			return err
		}
	}
	return &RejectedError{Code: fmt.Sprintf("http_%d", status), Message: http.StatusText(status)}
}

func classify(apiErr *APIError) error {
	if apiErr.empty() {
		return nil
	}
	if apiErr.Code == codeInvalidCredentials {
		return fmt.Errorf("%w: %s", ErrAuth, apiErr.Message)
	}
	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Code
	}
	return &RejectedError{Code: apiErr.Code, Message: msg}
}
