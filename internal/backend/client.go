// Package backend is the HTTP client for the notification backend. The
// console is a pure client: it never persists notification data and never
// drives delivery retries.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avisohq/aviso-console/internal/metrics"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: HTTP %d", e.Status)
	}
	return fmt.Sprintf("backend: %s", e.Message)
}

// Client is a notification backend API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new backend API client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// request performs an HTTP request against the backend API.
func (c *Client) request(ctx context.Context, method, path string, body any, result any) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveBackendRequest(operationLabel(method, path), time.Since(start), err)
	}()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// operationLabel collapses a request path into a low-cardinality metric
// label: query strings dropped, numeric segments replaced.
func operationLabel(method, path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if _, err := strconv.Atoi(part); err == nil {
			parts[i] = "{id}"
		}
	}
	return method + " " + strings.Join(parts, "/")
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return &APIError{Status: resp.StatusCode}
	}
	msg := errResp.Error
	if msg == "" {
		msg = errResp.Detail
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// Dashboard fetches the precomputed dashboard summary.
func (c *Client) Dashboard(ctx context.Context) (*DashboardData, error) {
	var resp DashboardData
	if err := c.request(ctx, http.MethodGet, "/notificacoes/dashboard", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTemplates lists all notification templates.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	var resp []Template
	if err := c.request(ctx, http.MethodGet, "/notificacoes/templates", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateTemplate creates a new template.
func (c *Client) CreateTemplate(ctx context.Context, in TemplateInput) (*Template, error) {
	var resp Template
	if err := c.request(ctx, http.MethodPost, "/notificacoes/templates", in, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateTemplate updates an existing template by id.
func (c *Client) UpdateTemplate(ctx context.Context, id int64, in TemplateInput) (*Template, error) {
	var resp Template
	path := "/notificacoes/templates/" + strconv.FormatInt(id, 10)
	if err := c.request(ctx, http.MethodPut, path, in, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NotificationTypes fetches the notification-type catalog with the variable
// hints for each type.
func (c *Client) NotificationTypes(ctx context.Context) ([]NotificationType, error) {
	var resp []NotificationType
	if err := c.request(ctx, http.MethodGet, "/notificacoes/tipos-disponiveis", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Channels fetches the channel catalog.
func (c *Client) Channels(ctx context.Context) ([]ChannelOption, error) {
	var resp []ChannelOption
	if err := c.request(ctx, http.MethodGet, "/notificacoes/canais-disponiveis", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListEvents fetches the external event catalog.
func (c *Client) ListEvents(ctx context.Context) ([]Event, error) {
	var resp []Event
	if err := c.request(ctx, http.MethodGet, "/eventos", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SendManual submits one ad-hoc dispatch request.
func (c *Client) SendManual(ctx context.Context, req DispatchRequest) error {
	return c.request(ctx, http.MethodPost, "/notificacoes/enviar-manual", req, nil)
}

// History queries the notification history under the given filters.
func (c *Client) History(ctx context.Context, filters HistoryFilters) ([]NotificationRecord, error) {
	path := "/notificacoes/historico"
	if q := filters.query(); q != "" {
		path += "?" + q
	}

	var resp []NotificationRecord
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// query encodes the non-empty filter fields as URL query parameters.
func (f HistoryFilters) query() string {
	params := url.Values{}
	if f.Type != "" {
		params.Set("tipo_notificacao", f.Type)
	}
	if f.Canal != "" {
		params.Set("canal", f.Canal)
	}
	if f.Status != "" {
		params.Set("status", f.Status)
	}
	if f.EventID != "" {
		params.Set("evento_id", f.EventID)
	}
	if f.Recipient != "" {
		params.Set("destinatario", f.Recipient)
	}
	if f.DateFrom != "" {
		params.Set("data_inicio", f.DateFrom)
	}
	if f.DateTo != "" {
		params.Set("data_fim", f.DateTo)
	}
	return params.Encode()
}

// ExportHistory requests a binary export document for the current filter
// set. The payload is passed through untouched.
func (c *Client) ExportHistory(ctx context.Context, format ExportFormat, filters HistoryFilters) (_ *Export, err error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}

	start := time.Now()
	defer func() {
		metrics.ObserveBackendRequest("GET /notificacoes/export", time.Since(start), err)
	}()

	path := "/notificacoes/export/" + string(format)
	if q := filters.query(); q != "" {
		path += "?" + q
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	return &Export{
		Filename:    exportFilename(resp.Header.Get("Content-Disposition"), format),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// exportFilename takes the backend-provided filename when present and falls
// back to the conventional name for the format.
func exportFilename(disposition string, format ExportFormat) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	if format == ExportExcel {
		return "notificacoes.xlsx"
	}
	return "notificacoes.csv"
}

// ChannelConfig fetches the singleton channel configuration aggregate.
func (c *Client) ChannelConfig(ctx context.Context) (*ChannelConfig, error) {
	var resp ChannelConfig
	if err := c.request(ctx, http.MethodGet, "/notificacoes/configuracoes", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateChannelConfig overwrites the whole channel configuration.
func (c *Client) UpdateChannelConfig(ctx context.Context, cfg ChannelConfigUpdate) error {
	return c.request(ctx, http.MethodPut, "/notificacoes/configuracoes", cfg, nil)
}

// TestChannel asks the backend to send a test notification through one
// channel to the given recipient.
func (c *Client) TestChannel(ctx context.Context, canal Canal, recipient string) (*TestResult, error) {
	params := url.Values{}
	params.Set("destinatario", recipient)
	path := "/notificacoes/testar-canal/" + string(canal) + "?" + params.Encode()

	var resp TestResult
	if err := c.request(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChannelStats fetches the detailed per-channel statistics report.
func (c *Client) ChannelStats(ctx context.Context, periodDays int) (*ChannelStatsReport, error) {
	path := "/notificacoes/estatisticas-canais"
	if periodDays > 0 {
		path += "?periodo_dias=" + strconv.Itoa(periodDays)
	}

	var resp ChannelStatsReport
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
