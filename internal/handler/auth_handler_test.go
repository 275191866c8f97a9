package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
)

func TestSignupReturnsTemporaryPassword(t *testing.T) {
	stack := newTestStack(t, nil)

	w := stack.do(t, http.MethodPost, "/auth/signup", "", models.SignupRequest{Email: " New.Student@College.edu ", Role: models.RoleStudent})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res models.SignupResponse
	decodeData(t, w, &res)
	assert.Equal(t, "new.student@college.edu", res.Email)
	assert.Equal(t, testStudentPassword, res.TemporaryPassword)

	w = stack.do(t, http.MethodPost, "/auth/signup", "", models.SignupRequest{Email: "new.student@college.edu", Role: models.RoleTeacher})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_ACCOUNT", errorCode(t, w))
}

func TestSignupRejectsMalformedBody(t *testing.T) {
	stack := newTestStack(t, nil)
	w := stack.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": "not-an-email", "role": "student"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestLoginErrors(t *testing.T) {
	stack := newTestStack(t, nil)
	stack.signIn(t, "teacher@college.edu", models.RoleTeacher)

	w := stack.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "teacher@college.edu", Password: "personal-teacher", Role: models.RoleStudent})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", errorCode(t, w))

	w = stack.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "teacher@college.edu", Password: testStaffPassword, Role: models.RoleTeacher})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIAL", errorCode(t, w))
}

func TestMustChangeLoginIssuesTicketOnly(t *testing.T) {
	stack := newTestStack(t, nil)
	w := stack.do(t, http.MethodPost, "/auth/signup", "", models.SignupRequest{Email: "fresh@college.edu", Role: models.RoleStudent})
	require.Equal(t, http.StatusCreated, w.Code)

	w = stack.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "fresh@college.edu", Password: testStudentPassword, Role: models.RoleStudent})
	require.Equal(t, http.StatusOK, w.Code)
	var res models.AuthResponse
	decodeData(t, w, &res)
	assert.True(t, res.MustChange)
	assert.NotEmpty(t, res.PasswordTicket)
	assert.Empty(t, res.AccessToken)
	assert.Nil(t, res.Session)

	// a ticket is not an access token
	w = stack.do(t, http.MethodGet, "/auth/me", res.PasswordTicket, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChangePasswordRequiresMatchingTicket(t *testing.T) {
	stack := newTestStack(t, nil)
	for _, email := range []string{"a@college.edu", "b@college.edu"} {
		w := stack.do(t, http.MethodPost, "/auth/signup", "", models.SignupRequest{Email: email, Role: models.RoleStudent})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := stack.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "a@college.edu", Password: testStudentPassword, Role: models.RoleStudent})
	var res models.AuthResponse
	decodeData(t, w, &res)

	w = stack.do(t, http.MethodPost, "/auth/change-password", "", models.ChangePasswordRequest{Email: "a@college.edu", NewPassword: "secret-1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = stack.do(t, http.MethodPost, "/auth/change-password", res.PasswordTicket, models.ChangePasswordRequest{Email: "b@college.edu", NewPassword: "secret-1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = stack.do(t, http.MethodPost, "/auth/change-password", res.PasswordTicket, models.ChangePasswordRequest{Email: "a@college.edu", NewPassword: testStudentPassword})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = stack.do(t, http.MethodPost, "/auth/change-password", res.PasswordTicket, models.ChangePasswordRequest{Email: "a@college.edu", NewPassword: "secret-1"})
	require.Equal(t, http.StatusOK, w.Code)
	var changed models.AuthResponse
	decodeData(t, w, &changed)
	require.NotNil(t, changed.Session)
	assert.Equal(t, "a@college.edu", changed.Session.Email)
	assert.Positive(t, changed.ExpiresIn)
}

func TestPasswordTicketCannotBeReplayed(t *testing.T) {
	stack := newTestStack(t, nil)
	w := stack.do(t, http.MethodPost, "/auth/signup", "", models.SignupRequest{Email: "a@college.edu", Role: models.RoleStudent})
	require.Equal(t, http.StatusCreated, w.Code)
	w = stack.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "a@college.edu", Password: testStudentPassword, Role: models.RoleStudent})
	var res models.AuthResponse
	decodeData(t, w, &res)

	w = stack.do(t, http.MethodPost, "/auth/change-password", res.PasswordTicket, models.ChangePasswordRequest{Email: "a@college.edu", NewPassword: "secret-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var changed models.AuthResponse
	decodeData(t, w, &changed)

	w = stack.do(t, http.MethodPost, "/auth/change-password", res.PasswordTicket, models.ChangePasswordRequest{Email: "a@college.edu", NewPassword: "hijacked"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = stack.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "a@college.edu", Password: "hijacked", Role: models.RoleStudent})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the signed-in owner can still change it with an access token
	w = stack.do(t, http.MethodPost, "/auth/change-password", changed.AccessToken, models.ChangePasswordRequest{Email: "a@college.edu", NewPassword: "secret-2"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChangePasswordOverlongIsValidationError(t *testing.T) {
	stack := newTestStack(t, nil)
	w := stack.do(t, http.MethodPost, "/auth/signup", "", models.SignupRequest{Email: "a@college.edu", Role: models.RoleStudent})
	require.Equal(t, http.StatusCreated, w.Code)
	w = stack.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "a@college.edu", Password: testStudentPassword, Role: models.RoleStudent})
	var res models.AuthResponse
	decodeData(t, w, &res)

	w = stack.do(t, http.MethodPost, "/auth/change-password", res.PasswordTicket, models.ChangePasswordRequest{Email: "a@college.edu", NewPassword: strings.Repeat("x", 80)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestLogoutEndsSession(t *testing.T) {
	stack := newTestStack(t, nil)
	token := stack.signIn(t, "student@college.edu", models.RoleStudent)

	w := stack.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session models.Session
	decodeData(t, w, &session)
	assert.Equal(t, models.RoleStudent, session.Role)

	w = stack.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = stack.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewLoginReplacesActiveSession(t *testing.T) {
	stack := newTestStack(t, nil)
	first := stack.signIn(t, "student@college.edu", models.RoleStudent)
	second := stack.signIn(t, "teacher@college.edu", models.RoleTeacher)

	assert.Equal(t, http.StatusUnauthorized, stack.do(t, http.MethodGet, "/auth/me", first, nil).Code)
	assert.Equal(t, http.StatusOK, stack.do(t, http.MethodGet, "/auth/me", second, nil).Code)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	limiter := middleware.NewTokenBucket(2, 1, nil)
	stack := newTestStack(t, limiter.GinMiddleware())

	for i := 0; i < 2; i++ {
		w := stack.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "nobody@college.edu", Password: "x", Role: models.RoleStudent})
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	w := stack.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "nobody@college.edu", Password: "x", Role: models.RoleStudent})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, w))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	stack := newTestStack(t, nil)
	for _, path := range []string{"/feed", "/announcements", "/tutor/teachers", "/attendance/stats"} {
		w := stack.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := stack.do(t, http.MethodGet, "/feed", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
