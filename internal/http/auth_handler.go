package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quiz-auth/internal/domain"
	"quiz-auth/internal/service"
)

const msgInternal = "Internal server error."

// AuthHandler mantiene dependencias para los endpoints de autenticacion.
type AuthHandler struct {
	logger *zap.Logger
	creds  *service.CredentialService
	codes  *service.CodeService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, creds *service.CredentialService, codes *service.CodeService) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		logger: logger,
		creds:  creds,
		codes:  codes,
	}
}

// routeMessages son los textos de error de cada endpoint.
type routeMessages struct {
	op         string
	badRequest string
	notFound   string
	expired    string
	mismatch   string
}

var (
	signupMsgs = routeMessages{
		op:         "signup",
		badRequest: "Email & password required.",
	}
	verifySignupMsgs = routeMessages{
		op:         "verify signup",
		badRequest: "Email & code required.",
		notFound:   "No pending signup found.",
		expired:    "Code expired.",
		mismatch:   "Invalid code.",
	}
	resendSignupMsgs = routeMessages{
		op:         "resend signup code",
		badRequest: "Email required.",
		notFound:   "Pending signup not found.",
	}
	sendVerificationMsgs = routeMessages{
		op:         "send verification",
		badRequest: "Email required.",
	}
	verifyCodeMsgs = routeMessages{
		op:         "verify code",
		badRequest: "Email & code required.",
		notFound:   "No verification request found.",
		expired:    "Code expired.",
		mismatch:   "Invalid code.",
	}
	resendVerificationMsgs = routeMessages{
		op:         "resend verification",
		badRequest: "Email required.",
		notFound:   "No verification request found.",
	}
	loginMsgs = routeMessages{
		op:         "login",
		badRequest: "Email & password required.",
	}
	resetMsgs = routeMessages{
		op:         "reset password",
		badRequest: "Email required.",
	}
	resendResetMsgs = routeMessages{
		op:         "resend reset code",
		badRequest: "Email required.",
		notFound:   "No active password reset found.",
	}
	verifyResetMsgs = routeMessages{
		op:         "verify reset code",
		badRequest: "Email and code required.",
		notFound:   "No reset request found.",
		expired:    "Reset code expired.",
		mismatch:   "Invalid reset code.",
	}
	updatePasswordMsgs = routeMessages{
		op:         "update password",
		badRequest: "Email and new password required.",
		notFound:   "No active reset request found.",
		expired:    "Reset code expired.",
	}
)

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

type emailCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type emailPasswordRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup maneja POST /signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req emailPasswordRequest
	if !h.bind(c, &req, signupMsgs) {
		return
	}
	if err := h.creds.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		h.fail(c, err, signupMsgs)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verification_sent"})
}

// VerifySignup maneja POST /verify.
func (h *AuthHandler) VerifySignup(c *gin.Context) {
	h.verify(c, domain.PurposeSignup, "verified", verifySignupMsgs)
}

// ResendSignup maneja POST /resend.
func (h *AuthHandler) ResendSignup(c *gin.Context) {
	h.resend(c, domain.PurposeSignup, "verification_resent", resendSignupMsgs)
}

// SendVerification maneja POST /send-verification.
func (h *AuthHandler) SendVerification(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req, sendVerificationMsgs) {
		return
	}
	if err := h.creds.RequestVerification(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err, sendVerificationMsgs)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verification_sent"})
}

// VerifyCode maneja POST /verify-code.
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	h.verify(c, domain.PurposeVerify, "code_verified", verifyCodeMsgs)
}

// ResendVerification maneja POST /resend-verification.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	h.resend(c, domain.PurposeVerify, "verification_resent", resendVerificationMsgs)
}

// Login maneja POST /login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req emailPasswordRequest
	if !h.bind(c, &req, loginMsgs) {
		return
	}
	result, err := h.creds.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err, loginMsgs)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "login_success", "token": result.Token})
}

// ResetPassword maneja POST /reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req, resetMsgs) {
		return
	}
	if err := h.creds.BeginReset(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err, resetMsgs)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset_code_sent"})
}

// ResendReset maneja POST /resend-reset.
func (h *AuthHandler) ResendReset(c *gin.Context) {
	h.resend(c, domain.PurposeReset, "reset_code_resent", resendResetMsgs)
}

// VerifyReset maneja POST /reset-password/verify.
func (h *AuthHandler) VerifyReset(c *gin.Context) {
	h.verify(c, domain.PurposeReset, "code_verified", verifyResetMsgs)
}

// UpdatePassword maneja POST /reset-password/update.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req emailPasswordRequest
	if !h.bind(c, &req, updatePasswordMsgs) {
		return
	}
	if err := h.creds.CompleteReset(c.Request.Context(), req.Email, req.Password); err != nil {
		h.fail(c, err, updatePasswordMsgs)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password_updated"})
}

func (h *AuthHandler) verify(c *gin.Context, purpose domain.Purpose, status string, msgs routeMessages) {
	var req emailCodeRequest
	if !h.bind(c, &req, msgs) {
		return
	}
	if err := h.codes.Verify(c.Request.Context(), req.Email, purpose, req.Code); err != nil {
		h.fail(c, err, msgs)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *AuthHandler) resend(c *gin.Context, purpose domain.Purpose, status string, msgs routeMessages) {
	var req emailRequest
	if !h.bind(c, &req, msgs) {
		return
	}
	if err := h.codes.Reissue(c.Request.Context(), req.Email, purpose); err != nil {
		h.fail(c, err, msgs)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *AuthHandler) bind(c *gin.Context, req any, msgs routeMessages) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("invalid request", zap.String("op", msgs.op), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": msgs.badRequest})
		return false
	}
	return true
}

// fail traduce errores de servicio a status y mensaje. Lo no clasificado es 500.
func (h *AuthHandler) fail(c *gin.Context, err error, msgs routeMessages) {
	status, message := http.StatusInternalServerError, msgInternal
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, message = http.StatusBadRequest, msgs.badRequest
	case errors.Is(err, service.ErrUserExists):
		status, message = http.StatusConflict, "Email already registered."
	case errors.Is(err, service.ErrUserNotFound):
		status, message = http.StatusNotFound, "User not found."
	case errors.Is(err, service.ErrCodeNotFound):
		status, message = http.StatusNotFound, msgs.notFound
	case errors.Is(err, service.ErrCodeExpired):
		status, message = http.StatusGone, msgs.expired
	case errors.Is(err, service.ErrCodeMismatch):
		status, message = http.StatusUnauthorized, msgs.mismatch
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid password."
	case errors.Is(err, service.ErrCodeConflict):
		status, message = http.StatusConflict, "Code was updated by another request. Try again."
	}
	if status == http.StatusInternalServerError {
		h.logger.Error(msgs.op+" failed", zap.Error(err))
	}
	if message == "" {
		message = http.StatusText(status)
	}
	c.JSON(status, gin.H{"error": message})
}
