// Package client is a typed HTTP client for the stockroom API. It keeps the
// bearer token and CSRF token for the session and decodes the JSON envelopes
// the server wraps around each entity.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/production"
	"stockroom/internal/report"
	"stockroom/internal/store"
)

const csrfHeader = "X-CSRF-Token"

// APIError is a non-2xx response. Shortages is set when a production run was
// rejected for missing stock.
type APIError struct {
	Status    int
	Message   string
	Shortages []production.Requirement
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Is lets callers compare against the store sentinels.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusBadRequest:
		return target == store.ErrInvalidInput
	case http.StatusNotFound:
		return target == store.ErrNotFound
	case http.StatusConflict:
		return target == store.ErrConflict || target == store.ErrDuplicate
	case http.StatusUnprocessableEntity:
		return target == store.ErrInsufficientStock && len(e.Shortages) > 0
	}
	return false
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	token string
	csrf  string
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Login exchanges credentials for an access token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username string, password string) (domain.LoginResponse, error) {
	var resp domain.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, domain.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return resp, err
	}
	c.SetToken(resp.AccessToken)
	return resp, nil
}

// Logout revokes the token server side and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *Client) Session(ctx context.Context) (domain.SessionResponse, error) {
	var session domain.SessionResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/auth/session", nil, nil, &session)
	return session, err
}

func (c *Client) ChangePassword(ctx context.Context, req domain.PasswordChangeRequest) error {
	return c.do(ctx, http.MethodPut, "/api/v1/auth/password", nil, req, nil)
}

// CheckProduction asks whether a run is feasible without committing it.
func (c *Client) CheckProduction(ctx context.Context, req domain.ProductionCheckRequest) (production.Plan, error) {
	var plan production.Plan
	err := c.do(ctx, http.MethodPost, "/api/v1/production/check", nil, req, &plan)
	return plan, err
}

func (c *Client) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := c.do(ctx, http.MethodGet, "/api/v1/dashboard", nil, nil, &stats)
	return stats, err
}

func (c *Client) Report(ctx context.Context, window store.TimeRange) (report.Summary, error) {
	var summary report.Summary
	err := c.do(ctx, http.MethodGet, "/api/v1/reports/summary", windowQuery(window), nil, &summary)
	return summary, err
}

// DownloadReport streams the csv or xlsx export into w.
func (c *Client) DownloadReport(ctx context.Context, window store.TimeRange, format string, w io.Writer) error {
	query := windowQuery(window)
	query.Set("format", format)

	res, err := c.send(ctx, http.MethodGet, "/api/v1/reports/summary", query, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return decodeError(res)
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		return fmt.Errorf("download report: %w", err)
	}
	return nil
}

func (c *Client) Notifications(ctx context.Context, page store.Page) ([]domain.Notification, error) {
	var rows []domain.Notification
	err := c.do(ctx, http.MethodGet, "/api/v1/notifications", pageQuery(page), nil, envelope("notifications", &rows))
	return rows, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) (domain.Notification, error) {
	var n domain.Notification
	err := c.do(ctx, http.MethodPost, "/api/v1/notifications/"+url.PathEscape(id)+"/read", nil, nil, envelope("notification", &n))
	return n, err
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/notifications/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) AuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var logs []domain.AuditLog
	err := c.do(ctx, http.MethodGet, "/api/v1/audit-logs", query, nil, envelope("logs", &logs))
	return logs, err
}

func (c *Client) Users(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := c.do(ctx, http.MethodGet, "/api/v1/users", nil, nil, envelope("users", &users))
	return users, err
}

func (c *Client) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodPost, "/api/v1/users", nil, req, envelope("user", &user))
	return user, err
}

// do sends one JSON request and decodes the response into out. A CSRF
// rejection refreshes the token and retries once.
func (c *Client) do(ctx context.Context, method string, path string, query url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		res, err := c.send(ctx, method, path, query, payload)
		if err != nil {
			return err
		}
		if res.StatusCode >= http.StatusBadRequest {
			apiErr := decodeError(res)
			res.Body.Close()
			var typed *APIError
			if attempt == 0 && errors.As(apiErr, &typed) && typed.Status == http.StatusForbidden && strings.Contains(typed.Message, "CSRF") {
				c.mu.Lock()
				c.csrf = ""
				c.mu.Unlock()
				continue
			}
			return apiErr
		}

		defer res.Body.Close()
		if out == nil {
			_, _ = io.Copy(io.Discard, res.Body)
			return nil
		}
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, method string, path string, query url.Values, payload []byte) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if mutating(method) {
		csrf, err := c.csrfToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set(csrfHeader, csrf)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return res, nil
}

// csrfToken fetches the token on first use and caches it.
func (c *Client) csrfToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.csrf
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/auth/csrf-token", nil)
	if err != nil {
		return "", err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch csrf token: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", decodeError(res)
	}

	var payload struct {
		Token string `json:"csrf_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode csrf token: %w", err)
	}

	c.mu.Lock()
	c.csrf = payload.Token
	c.mu.Unlock()
	return payload.Token, nil
}

func decodeError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	apiErr := &APIError{Status: res.StatusCode}

	var body struct {
		Error     string                   `json:"error"`
		Shortages []production.Requirement `json:"shortages"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Shortages = body.Shortages
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(res.StatusCode)
	}
	return apiErr
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// envelopeOf unwraps {"key": value} responses.
type envelopeOf struct {
	key  string
	dest any
}

func envelope(key string, dest any) *envelopeOf {
	return &envelopeOf{key: key, dest: dest}
}

func (e *envelopeOf) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	raw, ok := fields[e.key]
	if !ok {
		return fmt.Errorf("response has no %q field", e.key)
	}
	return json.Unmarshal(raw, e.dest)
}

func pageQuery(page store.Page) url.Values {
	query := url.Values{}
	if page.Offset > 0 {
		query.Set("offset", strconv.Itoa(page.Offset))
	}
	if page.Limit > 0 {
		query.Set("limit", strconv.Itoa(page.Limit))
	}
	return query
}

func windowQuery(window store.TimeRange) url.Values {
	query := url.Values{}
	if !window.From.IsZero() {
		query.Set("from", window.From.Format(time.RFC3339))
	}
	if !window.To.IsZero() {
		query.Set("to", window.To.Format(time.RFC3339))
	}
	return query
}
