package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"userAuthService/internal/auth"
	"userAuthService/models"
	"userAuthService/repository"
)

var (
	// ErrDuplicateUsername is returned by Register when the username is already stored.
	ErrDuplicateUsername = errors.New("username exists")
	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidInput is returned when a required field is empty.
	ErrInvalidInput = errors.New("invalid input")
)

const tracerName = "userAuthService/internal/service"

// RegisterRequest is the input to Register. Role defaults to models.RoleUser.
type RegisterRequest struct {
	Username string
	Password string
	Role     string
}

// UserSummary is the admin-facing projection of a user record.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// CurrentUser is what a caller learns about itself from its token.
type CurrentUser struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// AuthService orchestrates registration, login and user listing.
type AuthService struct {
	users  repository.UserRepositoryI
	tokens *auth.TokenIssuer
	logger *slog.Logger
	tracer trace.Tracer
}

// NewAuthService wires the service. A nil logger falls back to slog.Default.
func NewAuthService(users repository.UserRepositoryI, tokens *auth.TokenIssuer, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Register creates a new account. The existence check and the insert are not
// atomic; the store's unique index turns a lost race into ErrDuplicateUsername.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) error {
	ctx, span := s.tracer.Start(ctx, "auth.Register", trace.WithAttributes(attribute.String("user.name", req.Username)))
	defer span.End()

	if req.Username == "" || req.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = models.RoleUser
	}

	exists, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return s.fail(span, fmt.Errorf("check username: %w", err))
	}
	if exists {
		return ErrDuplicateUsername
	}

	u, err := s.users.Create(ctx, &models.User{
		Username:     req.Username,
		PasswordHash: auth.HashPassword(req.Password),
		Role:         role,
	})
	if errors.Is(err, repository.ErrUsernameTaken) {
		s.logger.WarnContext(ctx, "concurrent registration lost race", "username", req.Username)
		return ErrDuplicateUsername
	}
	if err != nil {
		return s.fail(span, fmt.Errorf("create user: %w", err))
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID, "role", u.Role)
	return nil
}

// Login verifies the credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Login", trace.WithAttributes(attribute.String("user.name", username)))
	defer span.End()

	u, err := s.users.GetByCredentials(ctx, username, auth.HashPassword(password))
	if err != nil {
		return "", s.fail(span, fmt.Errorf("lookup credentials: %w", err))
	}
	if u == nil {
		s.logger.InfoContext(ctx, "login rejected", "username", username)
		return "", ErrInvalidCredentials
	}
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return "", s.fail(span, err)
	}
	s.logger.InfoContext(ctx, "login succeeded", "user_id", u.ID)
	return tok, nil
}

// CurrentUser returns identity from verified claims without a store round trip.
func (s *AuthService) CurrentUser(p *auth.Principal) (*CurrentUser, error) {
	if p == nil {
		return nil, auth.ErrMissingToken
	}
	return &CurrentUser{UserID: p.UserID, Username: p.Username}, nil
}

// ListUsers returns every stored user. Callers enforce the Admin role.
func (s *AuthService) ListUsers(ctx context.Context) ([]UserSummary, error) {
	ctx, span := s.tracer.Start(ctx, "auth.ListUsers")
	defer span.End()

	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("list users: %w", err))
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, UserSummary{ID: u.ID, Username: u.Username, Role: u.Role})
	}
	span.SetAttributes(attribute.Int("users.count", len(out)))
	return out, nil
}

func (s *AuthService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
