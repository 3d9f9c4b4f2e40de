// Package aa talks to the Account Aggregator FIU API: consent creation and
// status, data-session creation and status. The API is bearer-authenticated
// with a short-lived org token obtained from a separate login endpoint.
package aa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jask/finlink/internal/fault"
)

const (
	callTimeout = 10 * time.Second
	// tokens are valid for ~15 minutes; refresh slightly early
	tokenTTL = 14 * time.Minute
)

// Client implements Provider against the provider's HTTP API.
type Client struct {
	baseURL           string
	loginURL          string
	clientID          string
	clientSecret      string
	productInstanceID string
	http              *http.Client

	// Process-wide bearer token cache. Racing refreshes overwrite each other
	// idempotently; the token is a bearer credential, not a sequenced value.
	token atomic.Pointer[cachedToken]
}

type cachedToken struct {
	value  string
	expiry time.Time
}

func NewClient(baseURL, loginURL, clientID, clientSecret, productInstanceID string) *Client {
	return &Client{
		baseURL:           baseURL,
		loginURL:          loginURL,
		clientID:          clientID,
		clientSecret:      clientSecret,
		productInstanceID: productInstanceID,
		http:              &http.Client{Timeout: callTimeout},
	}
}

func (c *Client) CreateConsent(ctx context.Context, req ConsentRequest) (ConsentResponse, error) {
	months := req.DurationMonths
	if months <= 0 {
		months = 12
	}
	body := map[string]any{
		"consentDuration": map[string]string{"unit": "MONTH", "value": fmt.Sprintf("%d", months)},
		"vua":             req.VUA,
		"dataRange": map[string]string{
			"from": req.Range.From.UTC().Format(time.RFC3339),
			"to":   req.Range.To.UTC().Format(time.RFC3339),
		},
		"context": []any{},
	}
	var out ConsentResponse
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/consents", body, &out); err != nil {
		return ConsentResponse{}, err
	}
	if out.ID == "" {
		return ConsentResponse{}, fault.New(fault.Upstream, "provider returned no consent id")
	}
	return out, nil
}

func (c *Client) GetConsent(ctx context.Context, consentID string) (ConsentResponse, error) {
	var out ConsentResponse
	err := c.call(ctx, http.MethodGet, c.baseURL+"/consents/"+consentID, nil, &out)
	return out, err
}

func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error) {
	body := map[string]any{
		"consentId": req.ConsentID,
		"dataRange": map[string]string{
			"from": req.Range.From.UTC().Format(time.RFC3339),
			"to":   req.Range.To.UTC().Format(time.RFC3339),
		},
		"format": "json",
	}
	var out SessionResponse
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/sessions", body, &out); err != nil {
		return SessionResponse{}, err
	}
	if out.ID == "" {
		return SessionResponse{}, fault.New(fault.Upstream, "provider returned no session id")
	}
	return out, nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (SessionStatus, error) {
	var out SessionStatus
	err := c.call(ctx, http.MethodGet, c.baseURL+"/sessions/"+sessionID, nil, &out)
	return out, err
}

func (c *Client) call(ctx context.Context, method, url string, body any, out any) error {
	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)
	req.Header.Set("x-product-instance-id", c.productInstanceID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fault.Wrap(fault.Upstream, "aa provider call", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fault.Newf(fault.Upstream, "aa provider %s %s: status %d: %s", method, url, resp.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.Wrap(fault.Upstream, "aa provider response decode", err)
	}
	return nil
}

// bearer returns the cached org token, logging in again once it expires.
func (c *Client) bearer(ctx context.Context) (string, error) {
	if t := c.token.Load(); t != nil && time.Now().Before(t.expiry) {
		return t.value, nil
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{
		"clientID":   c.clientID,
		"grant_type": "client_credentials",
		"secret":     c.clientSecret,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("client", "bridge")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fault.Wrap(fault.Upstream, "aa provider login", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fault.Newf(fault.Upstream, "aa provider login: status %d", resp.StatusCode)
	}
	var loginResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", fault.Wrap(fault.Upstream, "aa provider login decode", err)
	}
	if loginResp.AccessToken == "" {
		return "", fault.New(fault.Upstream, "aa provider login: empty token")
	}

	c.token.Store(&cachedToken{value: loginResp.AccessToken, expiry: time.Now().Add(tokenTTL)})
	return loginResp.AccessToken, nil
}
