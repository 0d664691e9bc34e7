// Copyright (c) 2024 Netskope, Inc. All rights reserved.

// Package servicenow fetches record pages from a ServiceNow instance's
// Table API (/api/now/table/{table}).
package servicenow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/towerofpower256/DavesSNBulkDataExportTool/internal/config"
	"go.uber.org/zap"
)

// HeaderTotalCount carries the total row count of the query. It is surfaced
// for logging only; pagination stops on a short page instead.
const HeaderTotalCount = "X-Total-Count"

// Client issues one Table API GET per page. Requests are synchronous and
// never retried; a failed page aborts the export.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	table        string
	query        string
	fields       []string
	pageSize     int
	displayValue bool
	basicAuth    bool
	username     string
	password     string
	logger       *zap.Logger
}

// NewClient creates a Table API client from a validated config. No timeout
// is set beyond the transport defaults.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{},
		baseURL:      "https://" + cfg.Host(),
		table:        cfg.Table,
		query:        cfg.Query,
		fields:       cfg.Fields,
		pageSize:     cfg.PageSize,
		displayValue: cfg.DisplayValue,
		basicAuth:    cfg.AuthMode == config.AuthBasic,
		username:     cfg.Username,
		password:     cfg.Password,
		logger:       logger,
	}
}

// SetBaseURL overrides the instance URL (for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// FetchPage fetches one page of rows starting at the given offset.
func (c *Client) FetchPage(ctx context.Context, offset int) (*Page, error) {
	url := fmt.Sprintf("%s/api/now/table/%s", c.baseURL, c.table)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("sysparm_limit", strconv.Itoa(c.pageSize))
	q.Set("sysparm_offset", strconv.Itoa(offset))
	// Always exclude reference links, rows carry plain values only.
	q.Set("sysparm_exclude_reference_link", "true")
	q.Set("sysparm_display_value", strconv.FormatBool(c.displayValue))
	q.Set("sysparm_query", c.query)
	if len(c.fields) > 0 {
		q.Set("sysparm_fields", strings.Join(c.fields, ","))
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.basicAuth {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("table API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Table API returned non-success status",
			zap.String("table", c.table),
			zap.Int("offset", offset),
			zap.Int("status", resp.StatusCode))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	page, err := parsePage(body)
	if err != nil {
		return nil, err
	}

	if raw := resp.Header.Get(HeaderTotalCount); raw != "" {
		if total, err := strconv.Atoi(raw); err == nil {
			page.TotalCount = total
		}
	}

	c.logger.Debug("Fetched page",
		zap.String("table", c.table),
		zap.Int("offset", offset),
		zap.Int("rows", page.Count()),
		zap.Int("total_count", page.TotalCount))

	return page, nil
}
