package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type authService interface {
	Signup(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (*models.Session, error)
	RedeemPasswordTicket(ctx context.Context, req models.ChangePasswordRequest) (*models.Session, error)
	Logout(ctx context.Context) error
	IssueAccessToken(session *models.Session) (string, time.Time, error)
	IssuePasswordTicket(email string, role models.UserRole) (string, time.Time, error)
	ValidateToken(token, purpose string) (*models.JWTClaims, error)
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	now     func() time.Time
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc, now: time.Now}
}

// Signup godoc
// @Summary Create account
// @Description Create an account in the must-change state and return its temporary passkey
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SignupRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signup payload"))
		return
	}

	res, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email, passkey and role. Accounts that must change their passkey receive a password ticket instead of an access token.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if res.MustChange {
		ticket, expiresAt, err := h.service.IssuePasswordTicket(req.Email, req.Role)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue password ticket"))
			return
		}
		response.OK(c, models.AuthResponse{
			MustChange:     true,
			PasswordTicket: ticket,
			ExpiresIn:      h.secondsUntil(expiresAt),
			IssuedAt:       h.now().UTC(),
		})
		return
	}

	h.respondWithSession(c, res.Session)
}

// ChangePassword godoc
// @Summary Change passkey
// @Description Set a personal passkey using the password ticket returned by login, or an access token of the same account
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "password ticket required"))
		return
	}
	email, viaTicket, err := h.tokenEmail(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if models.NormalizeEmail(req.Email) != email {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "ticket was issued for another account"))
		return
	}

	change := h.service.ChangePassword
	if viaTicket {
		change = h.service.RedeemPasswordTicket
	}
	session, err := change(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithSession(c, session)
}

// Logout godoc
// @Summary Logout current session
// @Description Clear the active session. Tokens issued for it stop working.
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current session
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.OK(c, session)
}

// tokenEmail accepts a password ticket, or an access token of the active
// session. It reports whether the token was a ticket.
func (h *AuthHandler) tokenEmail(ctx context.Context, token string) (string, bool, error) {
	if claims, err := h.service.ValidateToken(token, models.TokenPurposePasswordChange); err == nil {
		return claims.Email, true, nil
	}
	session, err := h.service.Authenticate(ctx, token)
	if err != nil {
		return "", false, err
	}
	return session.Email, false, nil
}

func (h *AuthHandler) respondWithSession(c *gin.Context, session *models.Session) {
	token, expiresAt, err := h.service.IssueAccessToken(session)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue access token"))
		return
	}
	response.OK(c, models.AuthResponse{
		AccessToken: token,
		ExpiresIn:   h.secondsUntil(expiresAt),
		Session:     session,
		IssuedAt:    h.now().UTC(),
	})
}

func (h *AuthHandler) secondsUntil(t time.Time) int64 {
	seconds := int64(t.Sub(h.now()).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
