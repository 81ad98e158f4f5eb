package bankfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout   = 60 * time.Second
	tokenPath        = "/oauth2/token"
	accountsPath     = "/accounts"
	transactionsPath = "/transactions"
	webhooksPath     = "/webhooks"
)

// APIError is a non-2xx response from the bank feed API. RetryAfter holds
// the raw Retry-After header value when the upstream sent one.
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("bank feed API error (status %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("bank feed API error (status %d)", e.StatusCode)
}

// Client handles communication with the bank feed API
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new bank feed API client
func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// TokenResponse is the bank feed API's OAuth token grant. RefreshToken may
// be empty on refresh grants when the upstream keeps the old one valid.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // seconds until expiry
	TokenType    string `json:"token_type"`
}

// Account represents a bank account visible to the granted consent
type Account struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Currency    string `json:"currency"`
	Institution string `json:"institution"`
	MaskedIBAN  string `json:"maskedIban,omitempty"`
}

// Transaction represents one transaction as reported by the bank feed API
type Transaction struct {
	ID           string  `json:"id"`
	AmountMinor  int64   `json:"amountMinor"` // signed, minor currency units
	Currency     string  `json:"currency"`
	Description  string  `json:"description"`
	Counterparty *string `json:"counterparty"`
	MerchantName *string `json:"merchantName"`
	Reference    *string `json:"reference"`
	BookedAt     string  `json:"bookedAt"`  // RFC 3339
	SettledAt    *string `json:"settledAt"` // RFC 3339, nil while pending
}

// Amount returns the transaction amount in major currency units.
func (t *Transaction) Amount() float64 {
	return float64(t.AmountMinor) / 100
}

// GetBookedAt parses and returns the booking timestamp
func (t *Transaction) GetBookedAt() (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, t.BookedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse bookedAt '%s': %w", t.BookedAt, err)
	}
	return parsed, nil
}

// GetSettledAt parses and returns the settlement timestamp if present
func (t *Transaction) GetSettledAt() (*time.Time, error) {
	if t.SettledAt == nil || *t.SettledAt == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, *t.SettledAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settledAt '%s': %w", *t.SettledAt, err)
	}
	return &parsed, nil
}

// TransactionPage is one page of transaction results. An empty NextCursor
// means the final page.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	NextCursor   string        `json:"nextCursor"`
}

// WebhookRegistration is the upstream's record of a registered callback
type WebhookRegistration struct {
	ID          string `json:"id"`
	CallbackURL string `json:"callbackUrl"`
	Secret      string `json:"secret"`
}

// ExchangeCode trades an authorization code for the initial token pair
func (c *Client) ExchangeCode(ctx context.Context, authorizationCode string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {authorizationCode},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	return c.requestToken(ctx, form)
}

// RefreshToken trades a refresh token for a new token pair
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &tokenResp, nil
}

// GetAccounts fetches the accounts visible to the access token
func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+accountsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req, accessToken)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result struct {
		Accounts []Account `json:"accounts"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accounts response: %w", err)
	}
	return result.Accounts, nil
}

// GetTransactions fetches one page of transactions for an account
func (c *Client) GetTransactions(ctx context.Context, accessToken string, params TransactionQuery) (*TransactionPage, error) {
	query := url.Values{
		"account_id": {params.AccountID},
	}
	if !params.Since.IsZero() {
		query.Set("since", params.Since.Format("2006-01-02"))
	}
	if !params.Before.IsZero() {
		query.Set("before", params.Before.Format("2006-01-02"))
	}
	if params.Cursor != "" {
		query.Set("cursor", params.Cursor)
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+transactionsPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req, accessToken)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var page TransactionPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transactions response: %w", err)
	}
	return &page, nil
}

// RegisterWebhook subscribes the callback URL to transaction events
func (c *Client) RegisterWebhook(ctx context.Context, accessToken, callbackURL string) (*WebhookRegistration, error) {
	payload, err := json.Marshal(map[string]string{"callbackUrl": callbackURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+webhooksPath, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req, accessToken)
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var reg WebhookRegistration
	if err := json.Unmarshal(body, &reg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal webhook response: %w", err)
	}
	return &reg, nil
}

// DeleteWebhook removes a webhook subscription
func (c *Client) DeleteWebhook(ctx context.Context, accessToken, webhookID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+webhooksPath+"/"+url.PathEscape(webhookID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req, accessToken)

	_, err = c.do(req)
	return err
}

func (c *Client) authorize(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
}

// do executes the request and returns the body, converting non-2xx
// responses into *APIError so callers can branch on status.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}
	return body, nil
}
