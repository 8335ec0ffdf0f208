// Package ibmcloud implements the IBM Cloud identity and resource-controller
// calls that precede any Qiskit Runtime request: exchanging an API key for a
// bearer token and locating the account's provisioned service instance.
package ibmcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default IBM Cloud endpoints.
const (
	DefaultTokenURL              = "https://iam.cloud.ibm.com/identity/token"
	DefaultResourceControllerURL = "https://resource-controller.cloud.ibm.com/v2/resource_instances"
)

// QiskitRuntimeResourceID is the well-known resource-type id under which
// Qiskit Runtime instances are provisioned.
const QiskitRuntimeResourceID = "b6049020-80f4-11eb-a0f7-e35ec9b4054f"

const apiKeyGrantType = "urn:ibm:params:oauth:grant-type:apikey"

// Credential is a bearer token obtained from an API key exchange.
// It is never refreshed; a new pipeline run performs a new exchange.
type Credential struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	AcquiredAt  time.Time
}

// ExpiresAt returns the instant the credential stops being valid.
func (c *Credential) ExpiresAt() time.Time {
	return c.AcquiredAt.Add(c.ExpiresIn)
}

// Expired reports whether the credential is past its expiry at the given time.
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt())
}

// ServiceInstance identifies one provisioned Qiskit Runtime instance.
type ServiceInstance struct {
	CRN            string
	Name           string
	RegionID       string
	State          string
	TotalInstances int
}

// Client talks to the IBM Cloud identity and resource-controller services.
type Client struct {
	tokenURL    string
	resourceURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTokenURL overrides the identity token endpoint.
func WithTokenURL(u string) Option {
	return func(cl *Client) { cl.tokenURL = u }
}

// WithResourceControllerURL overrides the resource-controller endpoint.
func WithResourceControllerURL(u string) Option {
	return func(cl *Client) { cl.resourceURL = u }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates an IBM Cloud client with default endpoints and a 30s
// request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		tokenURL:    DefaultTokenURL,
		resourceURL: DefaultResourceControllerURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeAPIKey trades a long-lived API key for a bearer credential.
// Any non-2xx status, and a 2xx response without an access token, yield an
// *AuthError. There is no retry.
func (c *Client) ExchangeAPIKey(ctx context.Context, apiKey string) (*Credential, error) {
	form := url.Values{}
	form.Set("grant_type", apiKeyGrantType)
	form.Set("apikey", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ibmcloud: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ibmcloud: token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ibmcloud: read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AuthError{Op: "token exchange", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("ibmcloud: decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, &AuthError{Op: "token exchange", StatusCode: resp.StatusCode, Body: string(body)}
	}

	expires := tr.ExpiresIn
	if expires <= 0 {
		expires = 3600
	}

	c.logger.Debug("token exchanged", "token_type", tr.TokenType, "expires_in", expires)

	return &Credential{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		ExpiresIn:   time.Duration(expires) * time.Second,
		AcquiredAt:  time.Now(),
	}, nil
}

type resourceListResponse struct {
	Resources []struct {
		CRN      string `json:"crn"`
		Name     string `json:"name"`
		RegionID string `json:"region_id"`
		State    string `json:"state"`
	} `json:"resources"`
}

// LookupInstance resolves the account's Qiskit Runtime service instance for
// the given resource-type id. It deterministically picks the first entry of
// the returned list. An empty list yields a *NotFoundError.
func (c *Client) LookupInstance(ctx context.Context, cred *Credential, resourceTypeID string) (*ServiceInstance, error) {
	if resourceTypeID == "" {
		resourceTypeID = QiskitRuntimeResourceID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resourceURL+"?resource_id="+url.QueryEscape(resourceTypeID), nil)
	if err != nil {
		return nil, fmt.Errorf("ibmcloud: create lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ibmcloud: lookup request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ibmcloud: read lookup response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AuthError{Op: "instance lookup", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var rl resourceListResponse
	if err := json.Unmarshal(body, &rl); err != nil {
		return nil, fmt.Errorf("ibmcloud: decode lookup response: %w", err)
	}
	if len(rl.Resources) == 0 {
		return nil, &NotFoundError{ResourceTypeID: resourceTypeID}
	}

	first := rl.Resources[0]
	c.logger.Debug("instance located", "name", first.Name, "region", first.RegionID, "state", first.State)

	return &ServiceInstance{
		CRN:            first.CRN,
		Name:           first.Name,
		RegionID:       first.RegionID,
		State:          first.State,
		TotalInstances: len(rl.Resources),
	}, nil
}
