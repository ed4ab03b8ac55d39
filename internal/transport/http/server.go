package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "gopherai-chat/internal/app"
	"gopherai-chat/internal/bootstrap"
	"gopherai-chat/internal/cache"
	"gopherai-chat/internal/config"
	"gopherai-chat/internal/repository"
	"gopherai-chat/internal/transport/http/handler"
	"gopherai-chat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS(cfg.App.CORSAllowOrigin))

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	sessionRepo := repository.NewSessionRepository(app.DB)
	turnRepo := repository.NewTurnRepository(app.DB)

	deps := appsvc.SessionDeps{
		Sessions:  sessionRepo,
		Turns:     turnRepo,
		Generator: app.Generator,
		Extractor: app.Extractor,
		Events:    repository.NewSessionEventRepository(app.DB),
	}
	if app.Redis != nil {
		ttl := time.Duration(cfg.Redis.HistoryTTLSeconds) * time.Second
		deps.Cache = cache.NewTurnCache(app.Redis, ttl)
	}
	if app.Publisher != nil {
		deps.Publisher = app.Publisher
	}
	if app.Archive != nil {
		deps.Archive = app.Archive
	}
	sessionService := appsvc.NewSessionService(deps, appsvc.SessionOptions{
		MaxDocumentChars:  cfg.Upload.MaxDocumentChars,
		GenerationTimeout: cfg.GenerationTimeout(),
	})
	sessionHandler := handler.NewSessionHandler(sessionService, cfg.Upload.MaxBytes)

	requireAuth := middleware.AuthBearer(app.Verifier)

	sessions := router.Group("/session", requireAuth)
	sessions.POST("", sessionHandler.CreateSession)
	sessions.GET("", sessionHandler.ListSessions)
	sessions.GET("/:id", sessionHandler.GetSession)
	sessions.GET("/:id/events", sessionHandler.ListEvents)
	sessions.POST("/:id/message", sessionHandler.SendMessage)
	sessions.POST("/:id/upload", sessionHandler.UploadDocument)
	sessions.DELETE("/:id", sessionHandler.DeleteSession)
	router.GET("/sessions", requireAuth, sessionHandler.ListSessions)

	var authService *appsvc.AuthService
	if cfg.Auth.Provider == config.AuthProviderLocal {
		authService = appsvc.NewAuthService(
			repository.NewUserRepository(app.DB),
			cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		)
	}
	authHandler := handler.NewAuthHandler(authService)

	authGroup := router.Group("/api/v1/auth")
	if authService != nil {
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}
	authGroup.GET("/me", requireAuth, authHandler.Me)

	return router
}
