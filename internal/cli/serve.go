package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cybermarket/internal/command"
	"cybermarket/internal/config"
	"cybermarket/internal/handler"
	"cybermarket/internal/metrics"
	"cybermarket/internal/middleware"
	"cybermarket/internal/repository"
	"cybermarket/internal/router"
	"cybermarket/internal/seed"
	"cybermarket/internal/server"
	"cybermarket/internal/service"
	"cybermarket/internal/session"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the market server",
		Long: `Start the market's TCP server and, unless ADMIN_ENABLED=false, the admin
HTTP surface (status, health, stats and prometheus metrics).

Example:
  STORE_TYPE=sqlite STORE_PATH=./data/market.db cybermarket serve
  SEED_PATH=./founders.yaml SESSION_BACKEND=redis cybermarket serve --debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if rootOpts.Debug {
				cfg.App.Debug = true
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s %s...", cfg.App.Name, cfg.App.Version)
	log.Printf("Environment: %s", cfg.App.Environment)

	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Seed.Path != "" {
		f, err := seed.Load(cfg.Seed.Path)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(parent, store, f); err != nil {
			return err
		}
	}

	sessions, backend := openSessions(cfg.Session)
	defer sessions.Close()

	m := metrics.New()

	accounts := service.NewAccountService(store, sessions)
	merchants := service.NewMerchantService(store, sessions)
	dispatcher := command.New(command.Services{
		Accounts:    accounts,
		Merchants:   merchants,
		Carts:       service.NewCartService(store, accounts),
		Catalog:     service.NewCatalogService(store, merchants),
		Invitations: service.NewInvitationService(store, merchants, cfg.Invitation.CodeLength),
	}, m, cfg.App.Debug)

	srv := server.New(server.Config{
		Addr:         cfg.Server.Address(),
		MaxLineBytes: cfg.Server.MaxLineBytes,
		IdleTimeout:  cfg.Server.IdleTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		RateLimit:    cfg.Server.RateLimit,
		RateBurst:    cfg.Server.RateBurst,
	}, dispatcher, sessions, m)

	// Bindings left behind by a previous process belong to no live
	// connection; the first prune clears them.
	janitor := session.NewJanitor(sessions, srv.LiveConnections, cfg.Session.PruneInterval)
	if _, err := janitor.RunNow(); err != nil {
		log.Printf("Warning: initial session prune failed: %v", err)
	}
	janitor.Start()
	defer janitor.Stop()

	var admin *http.Server
	if cfg.Admin.Enabled {
		admin = &http.Server{
			Addr: cfg.Admin.Address(),
			Handler: router.New(router.Config{
				Handler:        handler.New(cfg.App.Name, cfg.App.Version, srv, store),
				AdminHandler:   handler.NewAdminHandler(store, sessions, srv, cfg.Store.Type, backend),
				AuthMiddleware: middleware.NewLoginKeyMiddleware(cfg.App.LoginKey),
				Metrics:        promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
			}),
		}
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	if admin != nil {
		g.Go(func() error {
			log.Printf("Admin listening on %s", admin.Addr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Market shutdown error: %v", err)
		}
		if admin != nil {
			if err := admin.Shutdown(shutdownCtx); err != nil {
				log.Printf("Admin shutdown error: %v", err)
			}
		}
		return nil
	})

	err = g.Wait()
	log.Println("Server stopped")
	return err
}

// openStore picks the SQL backend named by cfg.Type.
func openStore(cfg config.StoreConfig) (repository.Store, error) {
	switch cfg.Type {
	case "mysql":
		store, err := repository.NewMySQLStore(cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MySQL: %w", err)
		}
		log.Println("MySQL store initialized")
		return store, nil
	case "postgres", "postgresql":
		store, err := repository.NewPostgresStore(cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		log.Println("PostgreSQL store initialized")
		return store, nil
	case "sqlite", "":
		store, err := repository.NewSQLiteStore(cfg.SQLiteDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		log.Println("SQLite store initialized")
		return store, nil
	}
	return nil, fmt.Errorf("unknown STORE_TYPE %q", cfg.Type)
}

// openSessions returns the configured registry and its backend name. Redis
// is optional: if it cannot be reached the in-process registry is used.
func openSessions(cfg config.SessionConfig) (session.Registry, string) {
	if cfg.Backend == "redis" {
		reg, err := session.NewRedisRegistry(session.RedisConfig{
			Addr:      cfg.RedisAddress(),
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err == nil {
			log.Println("Redis session registry initialized")
			return reg, "redis"
		}
		log.Printf("Warning: Redis connection failed: %v", err)
	}
	log.Println("Memory session registry initialized")
	return session.NewMemoryRegistry(), "memory"
}
