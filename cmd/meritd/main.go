package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/meritscore/internal/academicyear"
	"github.com/mind-engage/meritscore/internal/account"
	api "github.com/mind-engage/meritscore/internal/api/http"
	"github.com/mind-engage/meritscore/internal/application"
	"github.com/mind-engage/meritscore/internal/audit"
	"github.com/mind-engage/meritscore/internal/auth"
	"github.com/mind-engage/meritscore/internal/category"
	"github.com/mind-engage/meritscore/internal/config"
	"github.com/mind-engage/meritscore/internal/db"
	"github.com/mind-engage/meritscore/internal/group"
	"github.com/mind-engage/meritscore/internal/ledger"
	"github.com/mind-engage/meritscore/internal/rbac"
	"github.com/mind-engage/meritscore/internal/scoring"
	"github.com/mind-engage/meritscore/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("meritd stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	drv, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return err
	}
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, drv, cfg.DBDSN)
	cancel()
	if err != nil {
		return err
	}
	defer dbh.Close()

	// --- Catalog ---
	catCfg := category.DefaultConfig()
	if cfg.CatalogFile != "" {
		if catCfg, err = category.LoadFile(cfg.CatalogFile); err != nil {
			return err
		}
	}
	cat, err := category.New(catCfg)
	if err != nil {
		return err
	}

	// --- Evidence blobs ---
	var blobs storage.BlobStore
	switch cfg.BlobDriver {
	case "b2":
		blobs, err = storage.NewB2Store(ctx, cfg.B2KeyID, cfg.B2AppKey, cfg.B2Bucket)
	default:
		blobs, err = storage.NewFSStore(cfg.BlobBasePath)
	}
	if err != nil {
		return err
	}

	// --- Group submission throttle ---
	var throttle group.Throttle = group.NewSQLThrottle(dbh, cfg.GroupSubmitCooldown)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		throttle = group.NewRedisThrottle(rdb, cfg.GroupSubmitCooldown)
	}

	checker := rbac.NewChecker(nil)
	guard := ledger.NewGuard()
	accounts := account.NewStore(dbh)
	deps := api.Deps{
		Catalog:      cat,
		Accounts:     accounts,
		Years:        academicyear.NewRegistry(dbh),
		Applications: application.NewService(dbh, cat, guard, checker, logger),
		Groups:       group.NewService(dbh, cat, guard, throttle, checker, logger),
		Scores:       scoring.NewService(dbh, scoring.NewEngine(cat), ledger.NewStore(dbh), accounts, checker),
		Evidence:     storage.NewEvidenceStore(blobs, cfg.EvidenceMaxBytes),
		Events:       audit.NewEventRepo(dbh),
	}
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, accounts))
	}

	// Protected API (JWT → stored role → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc), auth.AttachRoleFromDB(accounts))
		pr.With(rbac.Require(rbac.PermChangePassword)).
			Post("/auth/password", auth.ChangePasswordHandler(accounts))
		api.Mount(pr, deps)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "db", drv, "blob", cfg.BlobDriver, "redis", cfg.RedisAddr != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
