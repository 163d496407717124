package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/intelvis/intelvis/internal/server/config"
	"github.com/intelvis/intelvis/internal/testutil"
	"github.com/intelvis/intelvis/pkg/utils"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-for-testing"

func setupAuthService(t *testing.T, tdb *testutil.TestDB) *AuthService {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:  testSecret,
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	return NewAuthService(tdb.Repositories().Users, NewEmailService(config.EmailConfig{}, ""), cfg)
}

func TestAuthService_RegisterThenLogin(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	service := setupAuthService(t, tdb)
	ctx := context.Background()

	user, err := service.Register(ctx, "  U@Example.com ", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "u@example.com" {
		t.Errorf("email not normalized: %s", user.Email)
	}
	if user.PasswordHash == "password123" {
		t.Error("password stored in plaintext")
	}

	loggedIn, token, err := service.Login(ctx, "u@example.com", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Errorf("login returned user %s, want %s", loggedIn.ID, user.ID)
	}

	claims, err := utils.ValidateJWT(token, testSecret)
	if err != nil {
		t.Fatalf("token did not validate: %v", err)
	}
	if claims.Subject != user.ID.String() {
		t.Errorf("subject = %s, want %s", claims.Subject, user.ID)
	}

	fromToken, err := service.UserFromToken(ctx, token)
	if err != nil {
		t.Fatalf("UserFromToken failed: %v", err)
	}
	if fromToken.ID != user.ID {
		t.Errorf("UserFromToken returned %s, want %s", fromToken.ID, user.ID)
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	service := setupAuthService(t, tdb)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"bad email", "not-an-email", "password123", ErrInvalidEmail},
		{"short password", "a@example.com", "short", ErrInvalidPassword},
		{"long password", "a@example.com", string(make([]byte, 73)), ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	service := setupAuthService(t, tdb)
	ctx := context.Background()

	if _, err := service.Register(ctx, "dup@example.com", "password123"); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	_, err := service.Register(ctx, "DUP@example.com", "another-password")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("error = %v, want ErrEmailTaken", err)
	}

	// The first password still works.
	if _, _, err := service.Login(ctx, "dup@example.com", "password123"); err != nil {
		t.Errorf("first credentials rejected: %v", err)
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	service := setupAuthService(t, tdb)
	ctx := context.Background()
	tdb.CreateTestUser(ctx, "user@example.com")

	_, _, err := service.Login(ctx, "user@example.com", "wrong-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}

	_, _, err = service.Login(ctx, "nobody@example.com", testutil.TestPassword)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthService_UserFromToken_Invalid(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	service := setupAuthService(t, tdb)
	ctx := context.Background()
	user := tdb.CreateTestUser(ctx, "user@example.com")

	forged, err := utils.GenerateJWT(user.ID, user.Email, "some-other-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}
	expired, err := utils.GenerateJWT(user.ID, user.Email, testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	for name, token := range map[string]string{"empty": "", "garbage": "abc.def.ghi", "forged": forged, "expired": expired} {
		if _, err := service.UserFromToken(ctx, token); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("%s token: error = %v, want ErrInvalidSession", name, err)
		}
	}

	tdb.Exec(ctx, `DELETE FROM users WHERE id = ?`, user.ID)
	valid, err := utils.GenerateJWT(user.ID, user.Email, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}
	if _, err := service.UserFromToken(ctx, valid); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("deleted user: error = %v, want ErrInvalidSession", err)
	}
}
