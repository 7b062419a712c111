package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/domain"
	"stockroom/internal/httpapi"
	"stockroom/internal/store/memory"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	if err := validateSecurityConfig(config.Config{AuthSecret: "short"}); err == nil {
		t.Fatalf("expected short AUTH_SECRET to be rejected")
	}
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", SeedAdminPassword: "abc"})
	if err == nil {
		t.Fatalf("expected short SEED_ADMIN_PASSWORD to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestEnsureAdminOnlySeedsEmptyUserTable(t *testing.T) {
	ctx := context.Background()

	empty := memory.New()
	auth := httpapi.NewAuthManager(ctx, "test-secret", time.Hour, empty)
	if err := ensureAdmin(ctx, auth, "bootstrap-pass"); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	resp, err := auth.Login(ctx, domain.LoginRequest{Username: "admin", Password: "bootstrap-pass"})
	if err != nil || resp.Role != domain.RoleAdmin {
		t.Fatalf("expected seeded admin to log in, got %+v %v", resp, err)
	}

	seeded := memory.NewSeeded()
	auth = httpapi.NewAuthManager(ctx, "test-secret", time.Hour, seeded)
	if err := ensureAdmin(ctx, auth, "other-pass"); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	if _, err := auth.Login(ctx, domain.LoginRequest{Username: "admin", Password: "other-pass"}); err == nil {
		t.Fatalf("existing accounts must not be overwritten")
	}
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"migrate", "up"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected migrate without DATABASE_URL to fail")
	}
}

func TestRootHasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, sub := range newRootCmd().Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "migrate"} {
		if !names[want] {
			t.Fatalf("expected %q subcommand", want)
		}
	}
}
