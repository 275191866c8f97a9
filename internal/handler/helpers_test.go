package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/service"
)

const (
	testStudentPassword = "RAHUL"
	testStaffPassword   = "TEACHER"
)

type testStack struct {
	engine *gin.Engine
	repo   *repository.CollectionRepository
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestStack(t *testing.T, authLimiter gin.HandlerFunc) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewStore(repository.NewMemoryBackend(), "test:", zap.NewNop(), nil)
	t.Cleanup(func() { _ = store.Close() })
	repo := repository.NewCollectionRepository(store)

	auth := service.NewAuthService(repo, nil, nil, service.AuthConfig{
		AccessTokenSecret:        "test-secret",
		AccessTokenExpiry:        time.Hour,
		PasswordTicketExpiry:     10 * time.Minute,
		Issuer:                   "campus-portal-test",
		StudentTemporaryPassword: testStudentPassword,
		StaffTemporaryPassword:   testStaffPassword,
		BcryptCost:               bcrypt.MinCost,
	})

	engine := gin.New()
	RegisterRoutes(engine.Group("/api/v1"), Handlers{
		Auth:          NewAuthHandler(auth),
		Announcements: NewAnnouncementHandler(service.NewAnnouncementService(repo, nil, nil)),
		Discussions:   NewDiscussionHandler(service.NewDiscussionService(repo, nil, nil)),
		LostFound:     NewLostFoundHandler(service.NewLostFoundService(repo, nil, nil)),
		Feed:          NewFeedHandler(service.NewFeedService(repo)),
		Tutor:         NewTutorHandler(service.NewTutorService(repo, nil, nil, 64)),
		Lectures:      NewLectureHandler(service.NewLectureService(repo, nil, nil)),
		Attendance:    NewAttendanceHandler(service.NewAttendanceService(repo, nil, nil)),
	}, auth, authLimiter)

	return &testStack{engine: engine, repo: repo}
}

func (s *testStack) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decode(t, w)
	require.NoError(t, json.Unmarshal(env.Data, out), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode(t, w)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}

// signIn takes an account through signup, the temporary-password login and
// the password change, and returns an access token for the new session.
func (s *testStack) signIn(t *testing.T, email string, role models.UserRole) string {
	t.Helper()
	temporary := testStaffPassword
	if role == models.RoleStudent {
		temporary = testStudentPassword
	}

	w := s.do(t, http.MethodPost, "/auth/signup", "", models.SignupRequest{Email: email, Role: role})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: email, Password: temporary, Role: role})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login models.AuthResponse
	decodeData(t, w, &login)
	require.True(t, login.MustChange)

	w = s.do(t, http.MethodPost, "/auth/change-password", login.PasswordTicket, models.ChangePasswordRequest{Email: email, NewPassword: "personal-" + string(role)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var changed models.AuthResponse
	decodeData(t, w, &changed)
	require.NotEmpty(t, changed.AccessToken)
	return changed.AccessToken
}

// relogin starts a new session for an account that already has a personal password.
func (s *testStack) relogin(t *testing.T, email string, role models.UserRole) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: email, Password: "personal-" + string(role), Role: role})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res models.AuthResponse
	decodeData(t, w, &res)
	require.False(t, res.MustChange)
	return res.AccessToken
}
