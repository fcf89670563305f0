// Package backend provides the HTTP client for the Voxa business backend.
//
// Every call is bearer-token authenticated with the shared server credential
// and bounded by a short timeout. Callers that treat the backend as a
// nicety (persistence bridge, tools) convert errors to degraded defaults;
// callers that need the payload (onboarding upsert) inspect the error.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

// DefaultBaseURL points at the hosted backend when no override is supplied.
const DefaultBaseURL = "https://voxa-smoky.vercel.app"

// DefaultTimeout bounds every backend round trip.
const DefaultTimeout = 10 * time.Second

// Opts holds configuration values for the client.
type Opts struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Option configures the client.
type Option func(*Opts)

// WithBaseURL overrides the backend base URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithAPIKey sets the shared server bearer credential.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithHTTPClient injects a custom HTTP client (used in tests).
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client talks to the business backend REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a backend client. A missing API key is allowed and
// degrades to unauthenticated requests; the backend rejects what it must.
func NewClient(opts ...Option) *Client {
	cfg := Opts{BaseURL: DefaultBaseURL, Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.APIKey == "" {
		slog.Warn("backend.NewClient: no API key configured, requests will be unauthenticated")
	}
	slog.Debug("backend.NewClient: client created", "base_url", cfg.BaseURL, "api_key_set", cfg.APIKey != "")
	return &Client{baseURL: cfg.BaseURL, apiKey: cfg.APIKey, http: httpClient}
}

// do performs a JSON request and decodes the response into out (which may be
// nil when the caller ignores the body).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("backend.Client: request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Debug("backend.Client: non-2xx response", "method", method, "path", path, "status", resp.StatusCode)
		return fmt.Errorf("backend returned status %d for %s %s", resp.StatusCode, method, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Debug("backend.Client: failed to decode response", "method", method, "path", path, "error", err)
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}

// GetBusinessContext fetches the description, products and policies for a
// business by id or slug. Returns a zero-value context on any failure.
func (c *Client) GetBusinessContext(ctx context.Context, idOrSlug string) (models.BusinessContext, error) {
	var bc models.BusinessContext
	err := c.do(ctx, http.MethodGet, "/api/business/context/"+url.PathEscape(idOrSlug), nil, nil, &bc)
	return bc, err
}

// GetOwnerProfile fetches the owner profile by business id, slug, or owner
// email.
func (c *Client) GetOwnerProfile(ctx context.Context, key string) (models.OwnerProfile, error) {
	var p models.OwnerProfile
	err := c.do(ctx, http.MethodGet, "/api/business/owner/"+url.PathEscape(key), nil, nil, &p)
	return p, err
}

// UpsertCustomer creates or updates a customer record scoped by business and
// email and returns the persistent record.
func (c *Client) UpsertCustomer(ctx context.Context, cust models.Customer) (models.Customer, error) {
	var out models.Customer
	err := c.do(ctx, http.MethodPost, "/api/crm/customers/upsert", nil, cust, &out)
	return out, err
}

// LookupCustomer fetches a customer by email.
func (c *Client) LookupCustomer(ctx context.Context, email string) (models.Customer, error) {
	var out models.Customer
	err := c.do(ctx, http.MethodGet, "/api/crm/customers/email/"+url.PathEscape(email), nil, nil, &out)
	return out, err
}

// SearchCustomers queries customers by free text within a business.
func (c *Client) SearchCustomers(ctx context.Context, q, businessID string) ([]models.Customer, error) {
	query := url.Values{"q": {q}, "businessId": {businessID}}
	var out []models.Customer
	err := c.do(ctx, http.MethodGet, "/api/crm/customers/search", query, nil, &out)
	return out, err
}

// CreateTicket files a support ticket.
func (c *Client) CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	var out models.Ticket
	err := c.do(ctx, http.MethodPost, "/api/tickets", nil, t, &out)
	return out, err
}

// UpdateTicketStatus changes a ticket's status.
func (c *Client) UpdateTicketStatus(ctx context.Context, ticketID, status string) (models.Ticket, error) {
	var out models.Ticket
	err := c.do(ctx, http.MethodPut, "/api/tickets/"+url.PathEscape(ticketID)+"/status", nil, map[string]string{"status": status}, &out)
	return out, err
}

// AddTicketNote appends a note to a ticket.
func (c *Client) AddTicketNote(ctx context.Context, ticketID, note string) error {
	return c.do(ctx, http.MethodPost, "/api/tickets/"+url.PathEscape(ticketID)+"/notes", nil, map[string]string{"note": note}, nil)
}

// ListTickets returns the tickets for a business.
func (c *Client) ListTickets(ctx context.Context, businessID string) ([]models.Ticket, error) {
	query := url.Values{"businessId": {businessID}}
	var out []models.Ticket
	err := c.do(ctx, http.MethodGet, "/api/tickets", query, nil, &out)
	return out, err
}

// GetAnalytics fetches a metric payload ("overview", "tickets", "customers")
// for a business.
func (c *Client) GetAnalytics(ctx context.Context, metric, businessID string) (models.AnalyticsReport, error) {
	query := url.Values{"businessId": {businessID}}
	report := models.AnalyticsReport{Metric: metric}
	err := c.do(ctx, http.MethodGet, "/api/analytics/"+url.PathEscape(metric), query, nil, &report.Payload)
	return report, err
}

// AppendCustomerConversation forwards one turn to a customer's durable
// conversation log, scoped by email and business.
func (c *Client) AppendCustomerConversation(ctx context.Context, email, businessID string, turn models.Turn) error {
	query := url.Values{"businessId": {businessID}}
	return c.do(ctx, http.MethodPost, "/api/crm/customers/email/"+url.PathEscape(email)+"/conversations", query, turn, nil)
}

// AppendGeneralConversation forwards one turn to a general user's durable
// conversation log, scoped by email.
func (c *Client) AppendGeneralConversation(ctx context.Context, email string, turn models.Turn) error {
	return c.do(ctx, http.MethodPost, "/api/general/users/email/"+url.PathEscape(email)+"/conversations", nil, turn, nil)
}

// RegisterGeneralUser registers a public caller and returns the persistent
// record.
func (c *Client) RegisterGeneralUser(ctx context.Context, u models.GeneralUser) (models.GeneralUser, error) {
	var out models.GeneralUser
	err := c.do(ctx, http.MethodPost, "/api/general/register", nil, u, &out)
	return out, err
}

// GetEmailCredentials fetches the public sending configuration for a
// business (from address only).
func (c *Client) GetEmailCredentials(ctx context.Context, businessID string) (models.EmailCredentials, error) {
	var out models.EmailCredentials
	err := c.do(ctx, http.MethodGet, "/api/email-credentials/"+url.PathEscape(businessID), nil, nil, &out)
	return out, err
}

// GetFullEmailCredentials fetches the sending configuration including the
// decrypted provider API key via the protected endpoint.
func (c *Client) GetFullEmailCredentials(ctx context.Context, businessID string) (models.EmailCredentials, error) {
	var out models.EmailCredentials
	err := c.do(ctx, http.MethodGet, "/api/email-credentials/"+url.PathEscape(businessID)+"/full", nil, nil, &out)
	return out, err
}

// CreateMeeting schedules a meeting.
func (c *Client) CreateMeeting(ctx context.Context, m models.Meeting) (models.Meeting, error) {
	var out models.Meeting
	err := c.do(ctx, http.MethodPost, "/api/meetings", nil, m, &out)
	return out, err
}
