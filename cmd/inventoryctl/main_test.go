package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stockroom/internal/cache"
	"stockroom/internal/httpapi"
	"stockroom/internal/service"
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
	auth := httpapi.NewAuthManager(context.Background(), "ctl-test-secret", time.Hour, repo)
	server := httptest.NewServer(httpapi.New(svc, auth, httpapi.Config{AllowedOrigin: "*", Location: time.UTC}).Handler())
	t.Cleanup(server.Close)
	return server
}

func run(t *testing.T, server *httptest.Server, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STOCKROOM_TOKEN", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", server.URL, "--username", "staff", "--password", "staff123"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestListCategories(t *testing.T) {
	server := newTestServer(t)

	out, err := run(t, server, "list", "categories")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, name := range []string{"Baking", "Dairy", "Bread"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output:\n%s", name, out)
		}
	}
}

func TestListRecipesByProduct(t *testing.T) {
	server := newTestServer(t)

	out, err := run(t, server, "list", "recipes", "--product-id", "prd-butter-cookie")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "mat-butter") || strings.Contains(out, "mat-sugar") {
		t.Fatalf("expected only cookie recipe lines:\n%s", out)
	}
}

func TestUnknownEntity(t *testing.T) {
	server := newTestServer(t)

	_, err := run(t, server, "list", "widgets")
	if err == nil || !strings.Contains(err.Error(), "unknown entity") {
		t.Fatalf("expected unknown entity error, got %v", err)
	}
}

func TestGetAndDelete(t *testing.T) {
	server := newTestServer(t)

	out, err := run(t, server, "get", "suppliers", "sup-missing")
	if err == nil {
		t.Fatalf("expected missing supplier to fail, output:\n%s", out)
	}

	out, err = run(t, server, "get", "products", "prd-sweet-loaf")
	if err != nil || !strings.Contains(out, `"sale_price": "5.5"`) {
		t.Fatalf("unexpected get output %q (%v)", out, err)
	}
}

func TestCheckProductionExitsWithErrorWhenShort(t *testing.T) {
	server := newTestServer(t)

	out, err := run(t, server, "check-production", "prd-sweet-loaf", "45")
	if !errors.Is(err, errInfeasible) {
		t.Fatalf("expected infeasible error, got %v", err)
	}
	if !strings.Contains(out, `"feasible": false`) {
		t.Fatalf("expected plan in output:\n%s", out)
	}

	if _, err := run(t, server, "check-production", "prd-sweet-loaf", "10"); err != nil {
		t.Fatalf("expected feasible run, got %v", err)
	}
	if _, err := run(t, server, "check-production", "prd-sweet-loaf", "ten"); err == nil {
		t.Fatalf("expected bad quantity to fail")
	}
}

func TestReportCSVToFile(t *testing.T) {
	server := newTestServer(t)
	path := filepath.Join(t.TempDir(), "report.csv")

	if _, err := run(t, server, "report", "--format", "csv", "-o", path); err != nil {
		t.Fatalf("report failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(data), "section,name,value") {
		t.Fatalf("unexpected csv:\n%s", data)
	}

	if _, err := run(t, server, "report", "--from", "yesterday"); err == nil {
		t.Fatalf("expected bad --from to fail")
	}
}

func TestParseWindowDateIsInclusive(t *testing.T) {
	window, err := parseWindow("2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := time.Date(2024, 4, 1, 0, 0, 0, 0, time.Local)
	if !window.To.Equal(want) {
		t.Fatalf("expected to %s, got %s", want, window.To)
	}
}

func TestRequiresCredentials(t *testing.T) {
	t.Setenv("STOCKROOM_TOKEN", "")
	t.Setenv("STOCKROOM_USERNAME", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--server", "http://127.0.0.1:1", "dashboard"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}
