package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/convoflow/convoflow-server/internal/audit"
	"github.com/convoflow/convoflow-server/internal/config"
	"github.com/convoflow/convoflow-server/internal/credentials"
	"github.com/convoflow/convoflow-server/internal/db"
	"github.com/convoflow/convoflow-server/internal/guest"
	internalhttp "github.com/convoflow/convoflow-server/internal/http"
	"github.com/convoflow/convoflow-server/internal/quota"
	"github.com/convoflow/convoflow-server/internal/secrets"
	"github.com/convoflow/convoflow-server/internal/settings"
	"github.com/convoflow/convoflow-server/internal/users"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Migrate opens the database and runs migrations, then exits.
func Migrate(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the API server with database-backed components and blocks
// until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		log.WithError(errRefresh).Warn("app: failed to load settings snapshot, using defaults")
	}

	cipher, errCipher := secrets.NewCipher(cfg.CredentialMasterSecret)
	if errCipher != nil {
		return errCipher
	}

	recorder := audit.NewRecorder(conn)
	store := credentials.NewStore(conn, cipher, recorder)
	counter := quota.NewCounter(conn)
	registry := users.NewRegistry(conn)
	validator := guest.NewValidator(conn)

	audit.NewRetentionCleaner(conn).Start(ctx)
	quota.NewMaintainer(counter).Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	internalhttp.RegisterRoutes(engine, internalhttp.RouterDeps{
		Registry:      registry,
		Validator:     validator,
		Store:         store,
		Counter:       counter,
		JWTSecret:     cfg.JWTSecret,
		SessionExpiry: cfg.SessionExpiry(),
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("app: listening on %s", cfg.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}
