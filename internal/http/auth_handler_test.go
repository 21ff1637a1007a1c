package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"quiz-auth/internal/domain"
	"quiz-auth/internal/email"
	"quiz-auth/internal/modelproxy"
	"quiz-auth/internal/repository"
	"quiz-auth/internal/service"
)

type mockEmailSender struct {
	mu   sync.Mutex
	msgs []email.CodeMessage
	err  error
}

func (m *mockEmailSender) SendCode(_ context.Context, msg email.CodeMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mockEmailSender) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.msgs) == 0 {
		t.Fatalf("expected a code email to be sent")
	}
	return m.msgs[len(m.msgs)-1].Code
}

type testServer struct {
	router http.Handler
	codes  repository.CodeRepository
	sender *mockEmailSender
}

func setupAuthRouter(t *testing.T, tokens service.TokenIssuer, model modelproxy.Client) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	users := repository.NewDocUserRepository(store)
	codes := repository.NewDocCodeRepository(store)
	sender := &mockEmailSender{}

	codeSvc := service.NewCodeService(zap.NewNop(), codes, users, sender)
	credSvc := service.NewCredentialService(zap.NewNop(), users, codeSvc, service.NewBcryptHasher(bcrypt.MinCost), tokens)

	var modelH *ModelHandler
	if model != nil {
		modelH = NewModelHandler(zap.NewNop(), model)
	}
	return &testServer{
		router: NewRouter(zap.NewNop(), NewAuthHandler(zap.NewNop(), credSvc, codeSvc), modelH, nil),
		codes:  codes,
		sender: sender,
	}
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectResponse(t *testing.T, rec *httptest.ResponseRecorder, status int, key, value string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)[key]; got != value {
		t.Fatalf("expected %s=%q, got %q", key, value, got)
	}
}

func signupAndVerify(t *testing.T, srv *testServer, emailAddr, password string) {
	t.Helper()
	rec := performRequest(srv.router, http.MethodPost, "/signup", map[string]string{"email": emailAddr, "password": password})
	expectResponse(t, rec, http.StatusOK, "status", "verification_sent")
	rec = performRequest(srv.router, http.MethodPost, "/verify", map[string]string{"email": emailAddr, "code": srv.sender.lastCode(t)})
	expectResponse(t, rec, http.StatusOK, "status", "verified")
}

func TestRouter_Root(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)
	rec := performRequest(srv.router, http.MethodGet, "/", nil)
	expectResponse(t, rec, http.StatusOK, "message", "Emoji Quiz API running")
}

func TestRouter_Metrics(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)
	rec := performRequest(srv.router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("expected prometheus exposition, got %q", rec.Body.String())
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "https://quiz.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestAuthHandler_SignupValidation(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)
	rec := performRequest(srv.router, http.MethodPost, "/signup", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusBadRequest, "error", "Email & password required.")
}

func TestAuthHandler_SignupVerifyLogin(t *testing.T) {
	srv := setupAuthRouter(t, service.NewJWTService("secret", time.Hour), nil)

	rec := performRequest(srv.router, http.MethodPost, "/signup", map[string]string{"email": "a@x.com", "password": "pw"})
	expectResponse(t, rec, http.StatusOK, "status", "verification_sent")

	rec = performRequest(srv.router, http.MethodPost, "/verify", map[string]string{"email": "a@x.com", "code": "000000"})
	expectResponse(t, rec, http.StatusUnauthorized, "error", "Invalid code.")

	rec = performRequest(srv.router, http.MethodPost, "/verify", map[string]string{"email": "a@x.com", "code": srv.sender.lastCode(t)})
	expectResponse(t, rec, http.StatusOK, "status", "verified")

	rec = performRequest(srv.router, http.MethodPost, "/verify", map[string]string{"email": "a@x.com", "code": srv.sender.lastCode(t)})
	expectResponse(t, rec, http.StatusNotFound, "error", "No pending signup found.")

	rec = performRequest(srv.router, http.MethodPost, "/signup", map[string]string{"email": "a@x.com", "password": "pw"})
	expectResponse(t, rec, http.StatusConflict, "error", "Email already registered.")

	rec = performRequest(srv.router, http.MethodPost, "/login", map[string]string{"email": "a@x.com", "password": "nope"})
	expectResponse(t, rec, http.StatusUnauthorized, "error", "Invalid password.")

	rec = performRequest(srv.router, http.MethodPost, "/login", map[string]string{"email": "a@x.com", "password": "pw"})
	body := decodeBody(t, rec)
	if rec.Code != http.StatusOK || body["status"] != "login_success" || body["token"] == "" {
		t.Fatalf("expected login_success with token, got %d %v", rec.Code, body)
	}
}

func TestAuthHandler_LoginUnknownUser(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)
	rec := performRequest(srv.router, http.MethodPost, "/login", map[string]string{"email": "b@x.com", "password": "pw"})
	expectResponse(t, rec, http.StatusNotFound, "error", "User not found.")
}

func TestAuthHandler_VerifyExpired(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)
	_, err := srv.codes.Put(context.Background(), domain.CodeRecord{
		Purpose:      domain.PurposeSignup,
		Email:        "a@x.com",
		PasswordHash: "hash",
		Code:         "123456",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("seed pending: %v", err)
	}

	rec := performRequest(srv.router, http.MethodPost, "/verify", map[string]string{"email": "a@x.com", "code": "123456"})
	expectResponse(t, rec, http.StatusGone, "error", "Code expired.")
}

func TestAuthHandler_ResendSignup(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)

	rec := performRequest(srv.router, http.MethodPost, "/resend", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusNotFound, "error", "Pending signup not found.")

	rec = performRequest(srv.router, http.MethodPost, "/signup", map[string]string{"email": "a@x.com", "password": "pw"})
	expectResponse(t, rec, http.StatusOK, "status", "verification_sent")
	first := srv.sender.lastCode(t)

	rec = performRequest(srv.router, http.MethodPost, "/resend", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusOK, "status", "verification_resent")
	second := srv.sender.lastCode(t)
	if first == second {
		t.Fatalf("expected a new code after resend")
	}

	rec = performRequest(srv.router, http.MethodPost, "/verify", map[string]string{"email": "a@x.com", "code": second})
	expectResponse(t, rec, http.StatusOK, "status", "verified")
}

func TestAuthHandler_VerificationFlow(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)

	rec := performRequest(srv.router, http.MethodPost, "/send-verification", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusNotFound, "error", "User not found.")

	signupAndVerify(t, srv, "a@x.com", "pw")

	rec = performRequest(srv.router, http.MethodPost, "/resend-verification", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusNotFound, "error", "No verification request found.")

	rec = performRequest(srv.router, http.MethodPost, "/send-verification", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusOK, "status", "verification_sent")

	rec = performRequest(srv.router, http.MethodPost, "/resend-verification", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusOK, "status", "verification_resent")

	rec = performRequest(srv.router, http.MethodPost, "/verify-code", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusBadRequest, "error", "Email & code required.")

	rec = performRequest(srv.router, http.MethodPost, "/verify-code", map[string]string{"email": "a@x.com", "code": srv.sender.lastCode(t)})
	expectResponse(t, rec, http.StatusOK, "status", "code_verified")
}

func TestAuthHandler_ResetFlow(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)

	rec := performRequest(srv.router, http.MethodPost, "/reset-password", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusNotFound, "error", "User not found.")

	signupAndVerify(t, srv, "a@x.com", "old")

	rec = performRequest(srv.router, http.MethodPost, "/resend-reset", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusNotFound, "error", "No active password reset found.")

	rec = performRequest(srv.router, http.MethodPost, "/reset-password/update", map[string]string{"email": "a@x.com", "password": "new"})
	expectResponse(t, rec, http.StatusNotFound, "error", "No active reset request found.")

	rec = performRequest(srv.router, http.MethodPost, "/reset-password", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusOK, "status", "reset_code_sent")

	rec = performRequest(srv.router, http.MethodPost, "/resend-reset", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusOK, "status", "reset_code_resent")

	rec = performRequest(srv.router, http.MethodPost, "/reset-password/verify", map[string]string{"email": "a@x.com", "code": "000000"})
	expectResponse(t, rec, http.StatusUnauthorized, "error", "Invalid reset code.")

	rec = performRequest(srv.router, http.MethodPost, "/reset-password/verify", map[string]string{"email": "a@x.com", "code": srv.sender.lastCode(t)})
	expectResponse(t, rec, http.StatusOK, "status", "code_verified")

	rec = performRequest(srv.router, http.MethodPost, "/reset-password/update", map[string]string{"email": "a@x.com"})
	expectResponse(t, rec, http.StatusBadRequest, "error", "Email and new password required.")

	rec = performRequest(srv.router, http.MethodPost, "/reset-password/update", map[string]string{"email": "a@x.com", "password": "new"})
	expectResponse(t, rec, http.StatusOK, "status", "password_updated")

	rec = performRequest(srv.router, http.MethodPost, "/login", map[string]string{"email": "a@x.com", "password": "old"})
	expectResponse(t, rec, http.StatusUnauthorized, "error", "Invalid password.")

	rec = performRequest(srv.router, http.MethodPost, "/login", map[string]string{"email": "a@x.com", "password": "new"})
	expectResponse(t, rec, http.StatusOK, "status", "login_success")
}

func TestAuthHandler_UpdatePasswordExpired(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)
	signupAndVerify(t, srv, "a@x.com", "old")
	_, err := srv.codes.Put(context.Background(), domain.CodeRecord{
		Purpose:   domain.PurposeReset,
		Email:     "a@x.com",
		Code:      "123456",
		ExpiresAt: time.Now().Add(-time.Second),
	})
	if err != nil {
		t.Fatalf("seed reset: %v", err)
	}

	rec := performRequest(srv.router, http.MethodPost, "/reset-password/update", map[string]string{"email": "a@x.com", "password": "new"})
	expectResponse(t, rec, http.StatusGone, "error", "Reset code expired.")
}

func TestAuthHandler_NotificationFailure(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)
	srv.sender.err = errors.New("smtp down")

	rec := performRequest(srv.router, http.MethodPost, "/signup", map[string]string{"email": "a@x.com", "password": "pw"})
	expectResponse(t, rec, http.StatusInternalServerError, "error", "Internal server error.")
}

func TestAuthHandler_VerifyPendingForConfirmedUser(t *testing.T) {
	srv := setupAuthRouter(t, nil, nil)
	signupAndVerify(t, srv, "a@x.com", "pw")

	_, err := srv.codes.Put(context.Background(), domain.CodeRecord{
		Purpose:      domain.PurposeSignup,
		Email:        "a@x.com",
		PasswordHash: "other-hash",
		Code:         "654321",
		ExpiresAt:    time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("seed pending: %v", err)
	}

	rec := performRequest(srv.router, http.MethodPost, "/verify", map[string]string{"email": "a@x.com", "code": "654321"})
	expectResponse(t, rec, http.StatusConflict, "error", "Email already registered.")

	rec = performRequest(srv.router, http.MethodPost, "/login", map[string]string{"email": "a@x.com", "password": "pw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected original password to keep working, got %d: %s", rec.Code, rec.Body.String())
	}
}
