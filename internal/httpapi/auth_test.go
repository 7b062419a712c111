package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/store"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func newStubWithAdmin() *userStoreStub {
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      domain.RoleAdmin,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	stub := newStubWithAdmin()

	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, stub)
	_, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := stub.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestCreateUserStoresPasswordHash(t *testing.T) {
	stub := newStubWithAdmin()

	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, stub)
	user, err := manager.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "Baker01",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if user.Username != "baker01" || user.Role != domain.RoleStaff {
		t.Fatalf("unexpected user %+v", user)
	}

	found, ok := stub.users["baker01"]
	if !ok {
		t.Fatalf("expected user to be saved")
	}
	if !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", found.Password)
	}

	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "baker01", Password: "pass1234"}); err != nil {
		t.Fatalf("login with new user failed: %v", err)
	}

	_, err = manager.CreateUser(context.Background(), domain.UserCreateRequest{Username: "baker01", Password: "pass1234"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate username, got %v", err)
	}
	_, err = manager.CreateUser(context.Background(), domain.UserCreateRequest{Username: "owner", Password: "pass1234", Role: "owner"})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected unknown role to fail, got %v", err)
	}
}

func TestRevokedTokenIsRejected(t *testing.T) {
	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, newStubWithAdmin())
	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	session, err := manager.Session(resp.AccessToken)
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if session.Username != "admin" || session.Role != domain.RoleAdmin {
		t.Fatalf("unexpected session %+v", session)
	}

	if err := manager.Revoke(resp.AccessToken); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := manager.ParseToken(resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}

	// A fresh login is unaffected.
	again, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if _, err := manager.ParseToken(again.AccessToken); err != nil {
		t.Fatalf("expected new token to be valid, got %v", err)
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	manager := NewAuthManager(context.Background(), "test-secret", time.Minute, newStubWithAdmin())
	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	manager.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
	if _, err := manager.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestTokenFromOtherSecretIsRejected(t *testing.T) {
	issuer := NewAuthManager(context.Background(), "secret-one", time.Hour, newStubWithAdmin())
	verifier := NewAuthManager(context.Background(), "secret-two", time.Hour, newStubWithAdmin())

	resp, err := issuer.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected foreign token to fail")
	}
}

func TestChangePassword(t *testing.T) {
	stub := newStubWithAdmin()
	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, stub)
	ctx := context.Background()

	err := manager.ChangePassword(ctx, "admin", domain.PasswordChangeRequest{CurrentPassword: "wrong", NewPassword: "newpass123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected wrong current password to fail, got %v", err)
	}
	err = manager.ChangePassword(ctx, "admin", domain.PasswordChangeRequest{CurrentPassword: "admin123", NewPassword: "abc"})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected short password to fail, got %v", err)
	}
	if err := manager.ChangePassword(ctx, "admin", domain.PasswordChangeRequest{CurrentPassword: "admin123", NewPassword: "newpass123"}); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	if _, err := manager.Login(ctx, domain.LoginRequest{Username: "admin", Password: "newpass123"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if _, err := manager.Login(ctx, domain.LoginRequest{Username: "admin", Password: "admin123"}); err == nil {
		t.Fatalf("expected old password to stop working")
	}
}
