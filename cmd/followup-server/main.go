package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/followup/followup/internal/config"
	"github.com/followup/followup/internal/domain/admin"
	"github.com/followup/followup/internal/domain/appointment"
	"github.com/followup/followup/internal/domain/dashboard"
	"github.com/followup/followup/internal/domain/engagement"
	"github.com/followup/followup/internal/domain/messaging"
	"github.com/followup/followup/internal/domain/patient"
	"github.com/followup/followup/internal/domain/reward"
	"github.com/followup/followup/internal/platform/auth"
	"github.com/followup/followup/internal/platform/cache"
	"github.com/followup/followup/internal/platform/db"
	"github.com/followup/followup/internal/platform/logging"
	"github.com/followup/followup/internal/platform/middleware"
	"github.com/followup/followup/internal/platform/notification"
	"github.com/followup/followup/internal/platform/telemetry"
	"github.com/followup/followup/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "followup-server",
		Short: "Patient follow-up API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// migrationFS returns the embedded migrations unless dir points elsewhere.
func migrationFS(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			target, _ := cmd.Flags().GetInt("to")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationFS(dir))
			var count int
			if target > 0 {
				count, err = migrator.UpTo(ctx, target)
			} else {
				count, err = migrator.Up(ctx)
			}
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to the embedded set)")
	upCmd.Flags().Int("to", 0, "Stop after this version")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationFS(dir)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to the embedded set)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account for the store auth backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := admin.NewService(admin.NewUserRepoPG(pool), admin.NewSettingRepoPG(pool), nil, cfg.CacheTTLDuration())
			user, err := svc.CreateAdmin(ctx, admin.AdminInput{Username: username, Password: password})
			if err != nil {
				return err
			}
			fmt.Printf("Created admin %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Admin username")
	createCmd.Flags().String("password", "", "Admin password")
	_ = createCmd.MarkFlagRequired("username")
	_ = createCmd.MarkFlagRequired("password")

	cmd.AddCommand(createCmd)
	return cmd
}

// newCacheStore returns a Redis-backed store when REDIS_URL is set and an
// in-process one otherwise.
func newCacheStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Store, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info().Msg("using in-memory cache")
		return cache.NewMemoryStore(), func() {}, nil
	}
	rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("connected to redis")
	return cache.NewRedisStore(rdb, "followup:"), func() { _ = rdb.Close() }, nil
}

// notificationRouter builds the delivery router from whichever channels are
// configured. Unconfigured channels stay disabled.
func notificationRouter(cfg *config.Config, logger zerolog.Logger) *notification.Router {
	var email notification.EmailSender
	if cfg.SMTPHost != "" {
		s, err := notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			UseTLS:   cfg.SMTPUseTLS,
			From:     cfg.MailFrom,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("email channel disabled")
		} else {
			email = s
		}
	}

	var sms notification.SMSSender
	if cfg.SMSIRAPIKey != "" {
		s, err := notification.NewSMSIRSender(notification.SMSIRConfig{
			APIKey:        cfg.SMSIRAPIKey,
			SecretKey:     cfg.SMSIRSecretKey,
			TemplateID:    cfg.SMSIRTemplateID,
			DefaultRegion: cfg.DefaultPhoneRegion,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("sms channel disabled")
		} else {
			sms = s
		}
	}

	return notification.NewRouter(email, sms)
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	return rl
}

// authenticator picks the login backend. The store backend checks the
// admin_users table; the static one a single configured account.
func authenticator(cfg *config.Config, admins auth.AdminLookup, sessions *auth.SessionManager) auth.Authenticator {
	if cfg.AuthBackend == "store" {
		return auth.NewStoreAuthenticator(admins, sessions)
	}
	return auth.NewStaticAuthenticator(cfg.AdminUsername, cfg.AdminPassword, sessions)
}

// authMiddleware requires a session on every non-public route. Only an
// explicit DEV_AUTH_BYPASS in development lets tokenless requests through.
func authMiddleware(cfg *config.Config, sessions *auth.SessionManager) []echo.MiddlewareFunc {
	if cfg.AuthBypassed() {
		return []echo.MiddlewareFunc{
			auth.DevAuthMiddleware(),
			auth.SessionMiddleware(auth.SessionConfig{Sessions: sessions, Skipper: auth.DevSkipper}),
		}
	}
	return []echo.MiddlewareFunc{auth.SessionMiddleware(auth.SessionConfig{Sessions: sessions})}
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Logger
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Dev: cfg.IsDev(), File: cfg.LogFile})
	zerolog.DefaultContextLogger = &logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		OTLPInsecure:   !cfg.IsProduction(),
		SamplingRate:   1,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	// Database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Cache
	store, closeStore, err := newCacheStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer closeStore()
	ttl := cfg.CacheTTLDuration()

	// Domain services
	patientSvc := patient.NewService(patient.NewRepo(pool), store, ttl)
	appointmentSvc := appointment.NewService(appointment.NewRepo(pool), patientSvc, store, ttl)
	rewardSvc := reward.NewService(reward.NewRepo(pool), patientSvc, store, ttl)
	engagementSvc := engagement.NewService(
		engagement.NewTrackingRepoPG(pool),
		engagement.NewMedicationRepoPG(pool),
		engagement.NewNotificationRepoPG(pool),
		engagement.NewSurveyRepoPG(pool),
		patientSvc, store, ttl,
	)
	adminSvc := admin.NewService(admin.NewUserRepoPG(pool), admin.NewSettingRepoPG(pool), store, ttl)
	messagingSvc := messaging.NewService(patientSvc)
	dashboardSvc := dashboard.NewService(patientSvc, appointmentSvc, rewardSvc, engagementSvc, adminSvc)

	// Sessions
	var signingKey []byte
	if cfg.SessionSigningKey != "" {
		signingKey = []byte(cfg.SessionSigningKey)
	}
	sessions, err := auth.NewSessionManager(signingKey, cfg.SessionTTL(), store)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(telemetry.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout(), "/metrics"))

	// Auth middleware
	e.Use(authMiddleware(cfg, sessions)...)

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))
	e.GET("/metrics", echo.WrapHandler(tp.MetricsHandler()))

	// API
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))

	auth.NewHandler(authenticator(cfg, adminSvc, sessions), sessions).
		RegisterRoutes(apiV1, middleware.RateLimit(middleware.LoginRateLimitConfig()))
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(apiV1)
	reward.NewHandler(rewardSvc).RegisterRoutes(apiV1)
	engagement.NewHandler(engagementSvc).RegisterRoutes(apiV1)
	messaging.NewHandler(messagingSvc).RegisterRoutes(apiV1)
	admin.NewHandler(adminSvc).RegisterRoutes(apiV1)
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(apiV1)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Notification dispatcher
	if cfg.DispatchEnabled {
		dispatcher := engagement.NewDispatcher(engagementSvc, notificationRouter(cfg, logger), logger)
		dispatcher.Interval = cfg.DispatchInterval()
		g.Go(func() error {
			return dispatcher.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
