package authpw

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskflow/api/internal/store"
)

type resetRecord struct {
	userID    string
	expiresAt time.Time
	used      bool
}

// mockUserStore is an in-memory UserStore for testing.
type mockUserStore struct {
	users      map[string]store.User
	emailIndex map[string]string
	resets     map[string]resetRecord
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:      make(map[string]store.User),
		emailIndex: make(map[string]string),
		resets:     make(map[string]resetRecord),
	}
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) CreateUser(ctx context.Context, user store.User) error {
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	return nil
}

func (m *mockUserStore) MarkEmailVerified(ctx context.Context, token string) (store.User, error) {
	for id, user := range m.users {
		if user.VerificationToken == token && token != "" {
			if user.VerificationExpiresAt != nil && user.VerificationExpiresAt.Before(time.Now()) {
				break
			}
			user.IsEmailVerified = true
			user.VerificationToken = ""
			m.users[id] = user
			return user, nil
		}
	}
	return store.User{}, errors.New("invalid token")
}

func (m *mockUserStore) SetUserPassword(ctx context.Context, userID, passwordHash string) error {
	user, ok := m.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	user.PasswordHash = passwordHash
	m.users[userID] = user
	return nil
}

func (m *mockUserStore) SavePasswordReset(ctx context.Context, token, userID string, expiresAt time.Time) error {
	m.resets[token] = resetRecord{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *mockUserStore) ConsumePasswordReset(ctx context.Context, token string) (string, error) {
	rec, ok := m.resets[token]
	if !ok || rec.used || rec.expiresAt.Before(time.Now()) {
		return "", errors.New("invalid token")
	}
	rec.used = true
	m.resets[token] = rec
	return rec.userID, nil
}

func signUpVerified(t *testing.T, svc *Service, m *mockUserStore, email, password string) store.User {
	t.Helper()
	resp, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: "Test User",
	})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	user, err := svc.VerifyEmail(context.Background(), resp.VerificationToken)
	if err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	return user
}

func TestSignUpAndSignIn(t *testing.T) {
	m := newMockUserStore()
	svc := NewService(m)
	ctx := context.Background()

	user := signUpVerified(t, svc, m, "dana@example.com", "correct horse")
	if user.Role != "user" {
		t.Errorf("expected default role user, got %s", user.Role)
	}

	resp, err := svc.SignIn(ctx, SignInRequest{Email: "dana@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if resp.RequiresVerify {
		t.Error("verified user should not require verification")
	}
	if resp.User.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, resp.User.ID)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	m := newMockUserStore()
	svc := NewService(m)

	signUpVerified(t, svc, m, "dana@example.com", "correct horse")

	if _, err := svc.SignIn(context.Background(), SignInRequest{Email: "dana@example.com", Password: "wrong"}); err == nil {
		t.Error("expected error for wrong password")
	}
}

func TestSignInUnverifiedUser(t *testing.T) {
	m := newMockUserStore()
	svc := NewService(m)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{
		Email: "new@example.com", Password: "password123", DisplayName: "New User",
	}); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	resp, err := svc.SignIn(ctx, SignInRequest{Email: "new@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if !resp.RequiresVerify {
		t.Error("unverified user should require verification")
	}
}

func TestSignInDeactivatedUser(t *testing.T) {
	m := newMockUserStore()
	svc := NewService(m)

	user := signUpVerified(t, svc, m, "gone@example.com", "password123")
	user.IsActive = false
	m.users[user.ID] = user

	if _, err := svc.SignIn(context.Background(), SignInRequest{Email: "gone@example.com", Password: "password123"}); err == nil {
		t.Error("expected error for deactivated user")
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	m := newMockUserStore()
	svc := NewService(m)
	ctx := context.Background()

	req := SignUpRequest{Email: "dup@example.com", Password: "password123", DisplayName: "First"}
	if _, err := svc.SignUp(ctx, req); err != nil {
		t.Fatalf("first SignUp failed: %v", err)
	}
	if _, err := svc.SignUp(ctx, req); err == nil {
		t.Error("expected error for duplicate email")
	}
}

func TestSignUpShortPassword(t *testing.T) {
	m := newMockUserStore()
	svc := NewService(m)

	_, err := svc.SignUp(context.Background(), SignUpRequest{
		Email: "x@example.com", Password: "short", DisplayName: "X",
	})
	if err == nil {
		t.Error("expected error for short password")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	m := newMockUserStore()
	svc := NewService(m)
	ctx := context.Background()

	user := signUpVerified(t, svc, m, "dana@example.com", "old password")

	token, _, err := svc.RequestPasswordReset(ctx, "dana@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a reset token for known email")
	}

	if err := svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "new password"}); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	stored := m.users[user.ID]
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("new password")); err != nil {
		t.Error("new password should verify after reset")
	}

	// Token is single use.
	if err := svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "another one"}); err == nil {
		t.Error("expected error reusing a consumed reset token")
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	m := newMockUserStore()
	svc := NewService(m)

	token, _, err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if token != "" {
		t.Error("unknown email should not produce a token")
	}
}
