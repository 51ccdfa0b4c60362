package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saasbooks/internal/service"
)

// RouterDeps agrupa lo que el router necesita para montar las rutas.
type RouterDeps struct {
	Logger    *zap.Logger
	Sessions  *service.SessionService
	Cookies   CookieWriter
	Gate      *AccessGate
	LoginPath string
	DB        Pinger

	Auth   *AuthHandler
	OAuth  *OAuthHandler
	Stripe *StripeHandler
	Drive  *DriveHandler
	App    *AppHandler
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery, JSON content-type y el filtro
	// de acceso por prefijo.
	r.Use(zapLoggerMiddleware(d.Logger), gin.Recovery(), jsonContentTypeMiddleware(), d.Gate.Middleware())

	r.GET("/healthz", Healthz(d.DB))

	auth := r.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/logout", d.Auth.LogoutAPI)
	auth.GET("/logout", d.Auth.LogoutRedirect)
	auth.GET("/google", d.OAuth.Start)
	auth.GET("/google/callback", d.OAuth.Callback)

	api := r.Group("/api", RequireSession(d.Logger, d.Sessions, d.Cookies))
	api.GET("/me", d.Auth.Me)

	stripe := api.Group("/stripe")
	stripe.GET("/accounts", d.Stripe.ListAccounts)
	stripe.POST("/accounts", d.Stripe.AddAccount)
	stripe.GET("/accounts/:id", d.Stripe.GetAccount)
	stripe.PATCH("/accounts/:id", d.Stripe.UpdateAccount)
	stripe.DELETE("/accounts/:id", d.Stripe.DeleteAccount)
	stripe.GET("/volume", d.Stripe.Volume)
	stripe.GET("/gross", d.Stripe.Gross)

	api.GET("/drive/verify", d.Drive.Verify)

	app := r.Group("/app", RequirePageSession(d.Logger, d.Sessions, d.Cookies, d.LoginPath))
	app.GET("/dashboard", d.App.Dashboard)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
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
