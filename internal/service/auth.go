package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kitchenware/storefront/internal/dto"
	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/repository"
	"github.com/kitchenware/storefront/internal/session"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnauthenticated    = errors.New("sign in required")
)

const resetPurpose = "password_reset"

type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, email string) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Revoke(ctx context.Context, id string) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type Notifier interface {
	Publish(ctx context.Context, n model.Notification) error
}

type AuthConfig struct {
	Secret      string
	ResetTTL    time.Duration
	ShopName    string
	FrontendURL string
}

type AuthService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	roleRepo    repository.RoleRepository
	sessions    SessionStore
	notifier    Notifier
	cfg         AuthConfig
	log         *slog.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	roleRepo repository.RoleRepository,
	sessions SessionStore,
	notifier Notifier,
	cfg AuthConfig,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		roleRepo:    roleRepo,
		sessions:    sessions,
		notifier:    notifier,
		cfg:         cfg,
		log:         log,
	}
}

// NewReconciler returns a reconciler wired to this service's stores. One is
// built per request; it is not shared.
func (s *AuthService) NewReconciler() *session.Reconciler {
	return session.NewReconciler(s.profileRepo, s.roleRepo, s.sessions, s.log)
}

func (s *AuthService) SignUp(ctx context.Context, req dto.SignUpRequest) (*dto.AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Email: email, Password: string(hashed)}
	profile := &model.Profile{FullName: strings.TrimSpace(req.FullName), Email: email, Phone: strings.TrimSpace(req.Phone)}
	if err := s.userRepo.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.startSession(ctx, user)
}

func (s *AuthService) SignIn(ctx context.Context, req dto.SignInRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, user)
}

// startSession creates the backend session and runs it through the
// reconciler, so a user whose profile was deleted never receives a token.
func (s *AuthService) startSession(ctx context.Context, user *model.User) (*dto.AuthResponse, error) {
	sess, err := s.sessions.Create(ctx, user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	st := s.NewReconciler().Handle(ctx, session.Event{Kind: session.EventSignedIn, Session: sess})
	if st.Status != session.StatusAuthenticated {
		if st.Notice != "" {
			return nil, session.ErrAccountDeleted
		}
		return nil, ErrUnauthenticated
	}

	token, err := s.generateToken(sess)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	resp := &dto.AuthResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		User:      dto.UserResponse{ID: user.ID, Email: user.Email, Role: st.Role},
	}
	if p, err := s.profileRepo.GetByID(ctx, user.ID); err == nil && p != nil {
		resp.User.FullName = p.FullName
		resp.User.Phone = p.Phone
	}
	return resp, nil
}

func (s *AuthService) generateToken(sess *session.Session) (string, error) {
	claims := jwt.MapClaims{
		"sub": sess.UserID.String(),
		"sid": sess.ID,
		"exp": sess.ExpiresAt.Unix(),
		"iat": time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}

// VerifyToken checks an access token's signature and expiry and returns the
// session id and user it names. It does not consult the session store.
func (s *AuthService) VerifyToken(token string) (string, uuid.UUID, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", uuid.Nil, err
	}
	if _, isReset := claims["purpose"]; isReset {
		return "", uuid.Nil, ErrInvalidToken
	}
	sid, _ := claims["sid"].(string)
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if sid == "" || err != nil {
		return "", uuid.Nil, ErrInvalidToken
	}
	return sid, userID, nil
}

func (s *AuthService) parse(token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// RequestPasswordReset mails a reset link when the address is registered and
// is silent otherwise.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		s.log.Info("password reset requested for unknown email")
		return nil
	}

	claims := jwt.MapClaims{
		"sub":     user.ID.String(),
		"purpose": resetPurpose,
		"pwh":     passwordFingerprint(user.Password),
		"exp":     time.Now().Add(s.cfg.ResetTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	link := strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	err = s.notifier.Publish(ctx, model.Notification{
		Kind:    model.NotificationPasswordReset,
		To:      user.Email,
		Subject: s.cfg.ShopName + ": reset your password",
		Body:    "Follow this link to choose a new password:\n\n" + link + "\n\nThe link expires in " + s.cfg.ResetTTL.String() + ".",
	})
	if err != nil {
		return fmt.Errorf("publish reset email: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token. The token stops working once the
// password changes, and every session of the user is revoked.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if purpose, _ := claims["purpose"].(string); purpose != resetPurpose {
		return ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if fp, _ := claims["pwh"].(string); user == nil || fp != passwordFingerprint(user.Password) {
		return ErrInvalidToken
	}

	if err := s.ChangePassword(ctx, userID, password); err != nil {
		return err
	}
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func passwordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}
