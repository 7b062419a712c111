package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/cache"
	"stockroom/internal/domain"
	"stockroom/internal/httpapi"
	"stockroom/internal/service"
	"stockroom/internal/state"
	"stockroom/internal/store"
	"stockroom/internal/store/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo := memory.NewSeeded()
	svc := service.New(repo, service.Config{
		DashboardCache:    cache.NewMemoryDashboardCache(),
		DashboardCacheTTL: time.Minute,
		ReportLocation:    time.UTC,
	})
	auth := httpapi.NewAuthManager(context.Background(), "client-test-secret", time.Hour, repo)
	api := httpapi.New(svc, auth, httpapi.Config{AllowedOrigin: "*", Location: time.UTC})

	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	return server
}

func loggedIn(t *testing.T, server *httptest.Server, username string, password string) *Client {
	t.Helper()
	c := New(server.URL, WithHTTPClient(server.Client()))
	resp, err := c.Login(context.Background(), username, password)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AccessToken == "" || c.Token() != resp.AccessToken {
		t.Fatalf("expected token to be kept, got %+v", resp)
	}
	return c
}

func TestLoginAndSession(t *testing.T) {
	server := newTestServer(t)
	c := loggedIn(t, server, "staff", "staff123")

	session, err := c.Session(context.Background())
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if session.Username != "staff" || session.Role != domain.RoleStaff {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestWrongPasswordIsAPIError(t *testing.T) {
	server := newTestServer(t)
	c := New(server.URL, WithHTTPClient(server.Client()))

	_, err := c.Login(context.Background(), "staff", "nope-nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if c.Token() != "" {
		t.Fatalf("token must stay empty after failed login")
	}
}

func TestContainerOverResource(t *testing.T) {
	server := newTestServer(t)
	c := loggedIn(t, server, "staff", "staff123")
	ctx := context.Background()

	categories := state.New[domain.Category, domain.CategoryInput](c.Categories(), func(cat domain.Category) string { return cat.ID }, 10)
	if err := categories.Fetch(ctx); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got := len(categories.Rows()); got != 3 {
		t.Fatalf("expected 3 seeded categories, got %d", got)
	}

	created, err := categories.Add(ctx, domain.CategoryInput{Name: "Packaging"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected server assigned fields, got %+v", created)
	}

	updated, err := categories.Update(ctx, created.ID, domain.CategoryInput{Name: "Boxes", Description: "cardboard"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if row, ok := categories.Find(created.ID); !ok || row.Name != "Boxes" || row.Description != updated.Description {
		t.Fatalf("expected cached row to follow server echo, got %+v", row)
	}

	_, err = categories.Add(ctx, domain.CategoryInput{Name: "Boxes"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if categories.Err() == "" {
		t.Fatalf("expected container to record the failure")
	}
	if got := len(categories.Rows()); got != 4 {
		t.Fatalf("failed add must not change rows, got %d", got)
	}

	if err := categories.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := c.Categories().Get(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestProductionShortageCarriesLines(t *testing.T) {
	server := newTestServer(t)
	c := loggedIn(t, server, "staff", "staff123")
	ctx := context.Background()

	plan, err := c.CheckProduction(ctx, domain.ProductionCheckRequest{ProductID: "prd-sweet-loaf", QuantityProduced: decimal.NewFromInt(45)})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if plan.Feasible {
		t.Fatalf("expected infeasible plan, got %+v", plan)
	}

	_, err = c.ProductionLogs(store.TimeRange{}).Create(ctx, domain.ProductionLogInput{ProductID: "prd-sweet-loaf", QuantityProduced: decimal.NewFromInt(45)})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	if len(apiErr.Shortages) == 0 || !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected shortage lines, got %+v", apiErr)
	}

	log, err := c.ProductionLogs(store.TimeRange{}).Create(ctx, domain.ProductionLogInput{ProductID: "prd-sweet-loaf", QuantityProduced: decimal.NewFromInt(30)})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if !log.TotalCost.Equal(decimal.NewFromInt(81)) {
		t.Fatalf("expected cost 81, got %s", log.TotalCost)
	}

	notes, err := c.Notifications(ctx, store.Page{})
	if err != nil {
		t.Fatalf("notifications failed: %v", err)
	}
	if len(notes) == 0 {
		t.Fatalf("expected low stock notification")
	}
	read, err := c.MarkNotificationRead(ctx, notes[0].ID)
	if err != nil || !read.Read {
		t.Fatalf("mark read failed: %+v %v", read, err)
	}
}

func TestStaleCSRFTokenIsRefreshed(t *testing.T) {
	server := newTestServer(t)
	c := loggedIn(t, server, "staff", "staff123")
	c.csrf = "stale-token"

	_, err := c.FinancialRecords().Create(context.Background(), domain.FinancialRecordInput{Type: "expense", Amount: decimal.NewFromInt(12), Description: "gas"})
	if err != nil {
		t.Fatalf("expected retry with fresh csrf token, got %v", err)
	}
	if c.csrf == "stale-token" {
		t.Fatalf("expected csrf token to be replaced")
	}
}

func TestDownloadReportCSV(t *testing.T) {
	server := newTestServer(t)
	c := loggedIn(t, server, "admin", "admin123")
	ctx := context.Background()

	if _, err := c.Sales(store.TimeRange{}).Create(ctx, domain.SaleInput{ProductID: "prd-butter-cookie", QuantitySold: decimal.NewFromInt(2)}); err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	var buf bytes.Buffer
	if err := c.DownloadReport(ctx, store.TimeRange{}, "csv", &buf); err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if !strings.Contains(buf.String(), "totals,total_revenue,8.00") {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}

	err := c.DownloadReport(ctx, store.TimeRange{}, "pdf", &buf)
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected bad format to be rejected, got %v", err)
	}

	summary, err := c.Report(ctx, store.TimeRange{})
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !summary.TotalRevenue.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected revenue 8, got %s", summary.TotalRevenue)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server := newTestServer(t)
	c := loggedIn(t, server, "staff", "staff123")
	token := c.Token()

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	c.SetToken(token)
	_, err := c.Dashboard(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be refused, got %v", err)
	}
}

func TestDecodeErrorFallsBackToBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	c := New(server.URL, WithHTTPClient(server.Client()))
	_, err := c.Dashboard(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "upstream unavailable" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}
