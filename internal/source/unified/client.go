// Package unified is the extraction client for the unified accounting API.
// It only fetches and decodes; windowing parameters are supplied by the
// driver and retries are the driver's responsibility.
package unified

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/accounting-data/ar-aging/internal/interfaces"
	"github.com/accounting-data/ar-aging/internal/models"
)

const (
	defaultTimeout = 30 * time.Second
	defaultLimit   = 50

	dateLayout = "2006-01-02"
)

// Client talks to one connection of the unified accounting API. Resource
// paths are scoped by connection id: <base>/<resource>/<conn_id>/<endpoint>.
type Client struct {
	baseURL string
	connID  string
	apiKey  string
	env     string
	httpc   *http.Client
}

func NewClient(baseURL, connID, apiKey, env string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		connID:  connID,
		apiKey:  apiKey,
		env:     env,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) GetCustomers(ctx context.Context, q interfaces.SourceQuery) ([]models.CustomerRaw, error) {
	var out []models.CustomerRaw
	if err := c.get(ctx, "accounting", "contact", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetInvoices(ctx context.Context, q interfaces.SourceQuery) ([]models.InvoiceRaw, error) {
	var out []models.InvoiceRaw
	if err := c.get(ctx, "accounting", "invoice", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPayments(ctx context.Context, q interfaces.SourceQuery) ([]models.PaymentRaw, error) {
	var out []models.PaymentRaw
	if err := c.get(ctx, "payment", "payment", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, resource, endpoint string, q interfaces.SourceQuery, out any) error {
	u := fmt.Sprintf("%s/%s/%s/%s", c.baseURL, resource, c.connID, endpoint)

	params := url.Values{}
	params.Set("env", c.env)
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	params.Set("limit", strconv.Itoa(limit))
	if q.DueDateFrom != nil {
		params.Set("due_date_from", q.DueDateFrom.Format(dateLayout))
	}
	if q.DueDateTo != nil {
		params.Set("due_date_to", q.DueDateTo.Format(dateLayout))
	}
	if q.UpdatedFrom != nil {
		params.Set("updated_from", q.UpdatedFrom.UTC().Format(time.RFC3339))
	}
	if q.UpdatedTo != nil {
		params.Set("updated_to", q.UpdatedTo.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("unified: build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("unified: fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unified: fetch %s: unexpected status %s", endpoint, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unified: decode %s response: %w", endpoint, err)
	}
	return nil
}

var _ interfaces.AccountingSource = (*Client)(nil)
