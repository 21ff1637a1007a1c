package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter arma la tabla de rutas. modelH es opcional: sin el, /model no se registra.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	modelH *ModelHandler,
	allowedOrigins []string,
) http.Handler {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Emoji Quiz API running"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/signup", authH.Signup)
	r.POST("/verify", authH.VerifySignup)
	r.POST("/resend", authH.ResendSignup)
	r.POST("/send-verification", authH.SendVerification)
	r.POST("/verify-code", authH.VerifyCode)
	r.POST("/resend-verification", authH.ResendVerification)
	r.POST("/login", authH.Login)

	reset := r.Group("/reset-password")
	reset.POST("", authH.ResetPassword)
	reset.POST("/verify", authH.VerifyReset)
	reset.POST("/update", authH.UpdatePassword)
	r.POST("/resend-reset", authH.ResendReset)

	if modelH != nil {
		model := r.Group("/model")
		model.POST("/create", modelH.CreateRecord)
		model.POST("/train", modelH.Train)
		model.POST("/predict", modelH.Predict)
		model.GET("/records", modelH.ListRecords)
		model.DELETE("/records/:id", modelH.DeleteRecord)
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})(r)
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
