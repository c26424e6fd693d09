package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/TellerWorksLab/teller/pkg/teller"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies carries the wired domain components the facade dispatches
// to. The facade itself holds no business rules: it parses, dispatches,
// and maps statuses to HTTP responses.
type Dependencies struct {
	Logger *zap.Logger
	Store  teller.Store
	Locks  *teller.LockManager
	Writer *teller.LedgerWriter
	Engine *teller.BalanceEngine
}

// Run boots the HTTP facade and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	router := NewRouter(cfg, deps)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Info("tellerd listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			deps.Logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter wires routes and middleware. Account id travels in the path;
// user id, lock token, and idempotency key travel in headers.
func NewRouter(cfg Config, deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "LOCK", "UNLOCK", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "userid", "locktoken", "idempotencykey"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler := &httpHandler{
		logger: deps.Logger,
		store:  deps.Store,
		locks:  deps.Locks,
		writer: deps.Writer,
		engine: deps.Engine,
	}

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/user/create", handler.handleCreateUser)

	accounts := router.Group("/account")
	accounts.Use(handler.requireProfile)

	accounts.POST("", handler.handleCreateAccount)
	accounts.GET("", handler.handleListAccounts)
	accounts.GET("/:id", handler.handleGetAccount)
	accounts.Handle("LOCK", "/:id", handler.handleLockAccount)
	accounts.Handle("UNLOCK", "/:id", handler.handleUnlockAccount)
	accounts.PUT("/:id/close", handler.handleCloseAccount)
	accounts.POST("/:id", handler.handleCreateTransaction)

	return router
}
