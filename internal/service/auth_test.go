package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenware/storefront/internal/dto"
	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/session"
)

type authFixture struct {
	svc      *AuthService
	users    *mockUserRepo
	profiles *mockProfileRepo
	roles    *mockRoleRepo
	sessions *session.Store
	notifier *mockNotifier
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		profiles: newMockProfileRepo(),
		sessions: newSessionStore(t),
		notifier: &mockNotifier{},
	}
	f.users = newMockUserRepo(f.profiles)
	f.roles = &mockRoleRepo{profiles: f.profiles}
	f.svc = NewAuthService(f.users, f.profiles, f.roles, f.sessions, f.notifier, AuthConfig{
		Secret:      "test-secret",
		ResetTTL:    time.Hour,
		ShopName:    "Kitchenware",
		FrontendURL: "http://shop.test/",
	}, testLogger())
	return f
}

func (f *authFixture) signUp(t *testing.T, email, password string) *dto.AuthResponse {
	t.Helper()
	resp, err := f.svc.SignUp(context.Background(), dto.SignUpRequest{
		Email:    email,
		Password: password,
		FullName: "Ayesha Khan",
		Phone:    "+923001234567",
	})
	require.NoError(t, err)
	return resp
}

func TestAuthService_SignUp(t *testing.T) {
	f := newAuthFixture(t)

	resp := f.signUp(t, "ayesha@example.com", "secret123")
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ayesha@example.com", resp.User.Email)
	assert.Equal(t, "Ayesha Khan", resp.User.FullName)
	assert.Equal(t, model.RoleCustomer, resp.User.Role)

	sid, userID, err := f.svc.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, userID)

	sess, err := f.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, userID, sess.UserID)
}

func TestAuthService_SignUpDuplicate(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "dup@example.com", "secret123")

	_, err := f.svc.SignUp(context.Background(), dto.SignUpRequest{Email: "dup@example.com", Password: "other123", FullName: "X"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthService_SignIn(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t, "cook@example.com", "secret123")

	resp, err := f.svc.SignIn(context.Background(), dto.SignInRequest{Email: "cook@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = f.svc.SignIn(context.Background(), dto.SignInRequest{Email: "cook@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.SignIn(context.Background(), dto.SignInRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_SignInAdminRole(t *testing.T) {
	f := newAuthFixture(t)
	signed := f.signUp(t, "admin@example.com", "secret123")
	require.NoError(t, f.roles.SetRole(context.Background(), signed.User.ID, model.RoleAdmin, nil))

	resp, err := f.svc.SignIn(context.Background(), dto.SignInRequest{Email: "admin@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, resp.User.Role)
}

func TestAuthService_SignInDeletedProfile(t *testing.T) {
	f := newAuthFixture(t)
	signed := f.signUp(t, "gone@example.com", "secret123")
	delete(f.profiles.profiles, signed.User.ID)

	_, err := f.svc.SignIn(context.Background(), dto.SignInRequest{Email: "gone@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, session.ErrAccountDeleted)
}

func TestAuthService_VerifyTokenRejectsGarbage(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.svc.VerifyToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func resetTokenFrom(t *testing.T, body string) string {
	t.Helper()
	i := strings.Index(body, "token=")
	require.GreaterOrEqual(t, i, 0)
	raw := body[i+len("token="):]
	if j := strings.IndexByte(raw, '\n'); j >= 0 {
		raw = raw[:j]
	}
	token, err := url.QueryUnescape(raw)
	require.NoError(t, err)
	return token
}

func TestAuthService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	signed := f.signUp(t, "reset@example.com", "secret123")
	oldSID, _, err := f.svc.VerifyToken(signed.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "reset@example.com"))
	require.Len(t, f.notifier.sent, 1)
	mail := f.notifier.sent[0]
	assert.Equal(t, model.NotificationPasswordReset, mail.Kind)
	assert.Equal(t, "reset@example.com", mail.To)
	assert.Contains(t, mail.Body, "http://shop.test/reset-password?token=")

	token := resetTokenFrom(t, mail.Body)
	_, _, err = f.svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "reset token must not authenticate requests")

	require.NoError(t, f.svc.ResetPassword(ctx, token, "newsecret456"))

	sess, err := f.sessions.Get(ctx, oldSID)
	require.NoError(t, err)
	assert.Nil(t, sess, "existing sessions are revoked")

	_, err = f.svc.SignIn(ctx, dto.SignInRequest{Email: "reset@example.com", Password: "newsecret456"})
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "again789"), ErrInvalidToken)
}

func TestAuthService_PasswordResetUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.notifier.sent)
}
