package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type authRepository interface {
	Users(ctx context.Context) models.Users
	UpdateUsers(ctx context.Context, fn func(models.Users) (models.Users, error)) (models.Users, error)
	Session(ctx context.Context) *models.Session
	SaveSession(ctx context.Context, s *models.Session) error
}

const maxPasswordBytes = 72

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret        string
	AccessTokenExpiry        time.Duration
	PasswordTicketExpiry     time.Duration
	Issuer                   string
	StudentTemporaryPassword string
	StaffTemporaryPassword   string
	// BcryptCost falls back to bcrypt.DefaultCost when zero.
	BcryptCost int
}

// AuthService implements the account state machine: accounts start in the
// must-change state and only gain a session after a personal password is set.
type AuthService struct {
	repo      authRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config, now: utcNow}
}

// TemporaryPassword returns the role-wide password handed out at signup.
func (s *AuthService) TemporaryPassword(role models.UserRole) string {
	if role == models.RoleStudent {
		return s.config.StudentTemporaryPassword
	}
	return s.config.StaffTemporaryPassword
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Signup creates an account in the must-change state and returns its temporary password.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid signup payload")
	}

	email := models.NormalizeEmail(req.Email)
	temporary := s.TemporaryPassword(req.Role)
	hash, err := s.HashPassword(temporary)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	_, err = s.repo.UpdateUsers(ctx, func(users models.Users) (models.Users, error) {
		if _, exists := users[email]; exists {
			return users, appErrors.Clone(appErrors.ErrDuplicateAccount, "account already exists, please log in")
		}
		users[email] = models.User{Email: email, Role: req.Role, PasswordHash: hash, MustChange: true}
		return users, nil
	})
	if err != nil {
		return nil, persistError(s.logger, err, "failed to save account")
	}

	s.logger.Info("account created", zap.String("email", email), zap.String("role", string(req.Role)))
	return &models.SignupResponse{Email: email, Role: req.Role, TemporaryPassword: temporary}, nil
}

// Login authenticates against the stored hash, or the role's temporary
// password while the account must still change it.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	email := models.NormalizeEmail(req.Email)
	user, ok := s.repo.Users(ctx)[email]
	if !ok || user.Role != req.Role {
		return nil, appErrors.Clone(appErrors.ErrAccountNotFound, "account not found for this role")
	}

	matchesStored := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) == nil
	usedTemporary := user.MustChange && subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.TemporaryPassword(user.Role))) == 1
	if !matchesStored && !usedTemporary {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredential, "incorrect passkey")
	}

	if user.MustChange {
		s.logger.Info("login requires password change", zap.String("email", email))
		return &models.LoginResult{MustChange: true}, nil
	}

	session, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &models.LoginResult{Session: session}, nil
}

// ChangePassword stores a personal password, leaves the must-change state
// and opens a session. The caller is trusted to have authenticated the user.
func (s *AuthService) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (*models.Session, error) {
	return s.changePassword(ctx, req, false)
}

// RedeemPasswordTicket is ChangePassword for a caller holding a password
// ticket. The ticket only works while the account is still in the
// must-change state, so it cannot be replayed after the first change.
func (s *AuthService) RedeemPasswordTicket(ctx context.Context, req models.ChangePasswordRequest) (*models.Session, error) {
	return s.changePassword(ctx, req, true)
}

func (s *AuthService) changePassword(ctx context.Context, req models.ChangePasswordRequest, requireMustChange bool) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid change password payload")
	}
	// bcrypt only accepts up to 72 bytes; the max tag counts runes.
	if len(req.NewPassword) > maxPasswordBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("new passkey must be at most %d bytes", maxPasswordBytes))
	}

	email := models.NormalizeEmail(req.Email)
	hash, err := s.HashPassword(req.NewPassword)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	var user models.User
	_, err = s.repo.UpdateUsers(ctx, func(users models.Users) (models.Users, error) {
		current, ok := users[email]
		if !ok {
			return users, appErrors.Clone(appErrors.ErrUnknownAccount, "unknown account")
		}
		if requireMustChange && !current.MustChange {
			return users, appErrors.Clone(appErrors.ErrUnauthorized, "password ticket has already been used")
		}
		if req.NewPassword == s.TemporaryPassword(current.Role) {
			return users, appErrors.Clone(appErrors.ErrValidation, "new passkey must differ from the temporary passkey")
		}
		current.PasswordHash = hash
		current.MustChange = false
		users[email] = current
		user = current
		return users, nil
	})
	if err != nil {
		return nil, persistError(s.logger, err, "failed to update password")
	}

	s.logger.Info("password changed", zap.String("email", email))
	return s.startSession(ctx, user)
}

// Logout clears the active session. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.repo.SaveSession(ctx, nil); err != nil {
		return persistError(s.logger, err, "failed to clear session")
	}
	return nil
}

// CurrentSession returns the stored session when it still belongs to an
// existing account with the same role.
func (s *AuthService) CurrentSession(ctx context.Context) *models.Session {
	session := s.repo.Session(ctx)
	if session == nil {
		return nil
	}
	user, ok := s.repo.Users(ctx)[session.Email]
	if !ok || user.Role != session.Role {
		return nil
	}
	return session
}

// IssueAccessToken signs a token bound to session. It returns the token and its expiry.
func (s *AuthService) IssueAccessToken(session *models.Session) (string, time.Time, error) {
	return s.sign(session.Email, session.Role, models.TokenPurposeAccess, session.CreatedAt.UnixNano(), s.config.AccessTokenExpiry)
}

// IssuePasswordTicket signs a short-lived token for the first password
// change. RedeemPasswordTicket rejects it once the change has happened.
func (s *AuthService) IssuePasswordTicket(email string, role models.UserRole) (string, time.Time, error) {
	return s.sign(models.NormalizeEmail(email), role, models.TokenPurposePasswordChange, 0, s.config.PasswordTicketExpiry)
}

// ValidateToken parses a token and checks it was issued for purpose.
func (s *AuthService) ValidateToken(tokenString, purpose string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.Purpose != purpose {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token not valid for this operation")
	}
	return claims, nil
}

// Authenticate accepts an access token only while the session it was issued
// for is still the active one.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.Session, error) {
	claims, err := s.ValidateToken(tokenString, models.TokenPurposeAccess)
	if err != nil {
		return nil, err
	}
	current := s.CurrentSession(ctx)
	if current == nil || current.Email != claims.Email || current.Role != claims.Role || current.CreatedAt.UnixNano() != claims.SessionAt {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has ended")
	}
	return current, nil
}

func (s *AuthService) startSession(ctx context.Context, user models.User) (*models.Session, error) {
	session := &models.Session{Email: user.Email, Role: user.Role, CreatedAt: s.now()}
	if err := s.repo.SaveSession(ctx, session); err != nil {
		return nil, persistError(s.logger, err, "failed to save session")
	}
	s.logger.Info("session started", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	return session, nil
}

func (s *AuthService) sign(email string, role models.UserRole, purpose string, sessionAt int64, ttl time.Duration) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &models.JWTClaims{
		Email:     email,
		Role:      role,
		Purpose:   purpose,
		SessionAt: sessionAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
