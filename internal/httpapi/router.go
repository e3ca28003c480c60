package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"userAuthService/internal/auth"
	"userAuthService/internal/config"
	"userAuthService/internal/service"
	"userAuthService/models"
)

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(svc *service.AuthService, tokens *auth.TokenIssuer, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(logger), ErrorBoundary(logger))

	h := NewHandlers(svc)
	r.GET("/", h.root)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)

	userGroup := api.Group("/user")
	userGroup.GET("/boom", h.boom)
	userGroup.GET("/me", RequireAuth(tokens), h.me)

	adminGroup := api.Group("/admin", RequireAuth(tokens), RequireRole(models.RoleAdmin))
	adminGroup.GET("/users", h.listUsers)

	return r
}

// NewHandler wraps the router with CORS when origins are configured.
func NewHandler(r *gin.Engine, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		AllowCredentials: true,
	}).Handler(r)
}

// StartHTTP starts serving on cfg.HTTP.Address and returns a shutdown function.
func StartHTTP(cfg *config.Config, handler http.Handler, logger *slog.Logger) (func(context.Context) error, error) {
	addr := cfg.HTTP.Address
	if addr == "" {
		addr = ":8080"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
		}
	}()
	return srv.Shutdown, nil
}
