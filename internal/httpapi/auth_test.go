package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"hncstore/backend/internal/domain"
	"hncstore/backend/internal/store/memory"
)

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Fatalf("expected wrong password to be rejected")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "ghost", Password: "admin123"}); err == nil {
		t.Fatalf("expected unknown user to be rejected")
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{Username: "staff", Password: "staff123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "staff" || actor.Role != domain.RoleStaff {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{Username: "staff", Password: "staff123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	tampered := resp.AccessToken[:len(resp.AccessToken)-2] + "xx"
	if _, err := auth.ParseToken(tampered); err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}

	other := NewAuthManager("another-secret-entirely", time.Hour, memory.NewSeeded())
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with different secret to be rejected")
	}
}

func TestCreateStaffValidation(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	cases := []domain.StaffCreateRequest{
		{Username: "ab", Password: "secret123"},
		{Username: "valid name", Password: "secret123"},
		{Username: "validname", Password: "short"},
		{Username: "staff", Password: "secret123"}, // already seeded
	}
	for _, req := range cases {
		if _, err := auth.CreateStaff(req); err == nil {
			t.Fatalf("expected %+v to be rejected", req)
		}
	}

	user, err := auth.CreateStaff(domain.StaffCreateRequest{Username: "Cashier01", Password: "secret123"})
	if err != nil {
		t.Fatalf("create staff failed: %v", err)
	}
	if user.Username != "cashier01" {
		t.Fatalf("expected lowercased username, got %s", user.Username)
	}
	if user.Role != domain.RoleStaff {
		t.Fatalf("expected staff role, got %s", user.Role)
	}
}

func TestLoadUsersUpgradesLegacyPlaintext(t *testing.T) {
	repo := memory.New()
	if err := repo.CreateUser(context.Background(), domain.UserAccount{
		Username:  "legacy",
		Password:  "plaintext-pass",
		Role:      domain.RoleStaff,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed user failed: %v", err)
	}

	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	if _, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "plaintext-pass"}); err != nil {
		t.Fatalf("expected legacy user to log in after upgrade: %v", err)
	}

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	for _, u := range users {
		if u.Username == "legacy" && !strings.HasPrefix(u.Password, "$2") {
			t.Fatalf("expected stored password to be bcrypt hashed, got %q", u.Password)
		}
	}
}
