// Package app wires configuration, storage, the link use case and the HTTP
// server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/adapter/shortener/isgd"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
	"github.com/vadimbarashkov/shortlink/migrations"
	"github.com/vadimbarashkov/shortlink/pkg/postgres"
	"github.com/vadimbarashkov/shortlink/pkg/sqlite"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shortlink/internal/adapter/delivery/http"
	pgrepo "github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	sqliterepo "github.com/vadimbarashkov/shortlink/internal/adapter/repository/sqlite"
)

type linkRepository interface {
	Save(ctx context.Context, link *entity.ShortLink) (*entity.ShortLink, error)
	RetrieveBySlug(ctx context.Context, slug string) (*entity.ShortLink, error)
	IncrementClicks(ctx context.Context, slug string) error
	ListByOwner(ctx context.Context, owner string) ([]entity.ShortLink, error)
}

type App struct {
	cfg    *config.Config
	logger *httplog.Logger
	db     *sqlx.DB
	links  *usecase.LinkUseCase
}

// NewLogger returns the structured logger shared by the request logger, the
// use case and the recoverer: JSON in prod, concise text elsewhere.
func NewLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelDebug,
		Concise:  true,
	}

	if env == config.EnvProd {
		opts.LogLevel = slog.LevelInfo
		opts.JSON = true
		opts.Concise = false
	}

	return httplog.NewLogger("shortlink", opts)
}

// New opens the configured storage, applies pending migrations and builds the
// link use case.
func New(ctx context.Context, cfg *config.Config, logger *httplog.Logger) (*App, error) {
	const op = "app.New"

	db, repo, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	opts := []usecase.Option{
		usecase.WithBaseURL(cfg.Shortener.BaseURL),
		usecase.WithSlugLength(cfg.Shortener.SlugLength),
		usecase.WithMaxRetries(cfg.Shortener.MaxRetries),
		usecase.WithLogger(logger.Logger),
	}

	if cfg.Shortener.Provider == config.ProviderISGD {
		opts = append(opts, usecase.WithExternalShortener(
			isgd.New(cfg.Shortener.ISGD.Endpoint, cfg.Shortener.ISGD.Timeout),
		))
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		db:     db,
		links:  usecase.NewLinkUseCase(repo, opts...),
	}, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (*sqlx.DB, linkRepository, error) {
	const op = "app.openStorage"

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		dsn := cfg.Storage.URL
		if dsn == "" {
			dsn = cfg.Postgres.DSN()
		}

		db, err := postgres.New(
			ctx,
			dsn,
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}

		if err := postgres.RunMigrations(migrations.Postgres, "postgres", dsn); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		return db, pgrepo.NewLinkRepository(db), nil

	case config.DriverSQLite, config.DriverLibSQL:
		dsn := cfg.Storage.URL
		if dsn == "" {
			dsn = sqlite.LocalDSN(cfg.SQLite.Path)
		}

		db, err := sqlite.New(ctx, dsn, sqlite.WithMaxOpenConns(cfg.SQLite.MaxOpenConns))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}

		if err := sqlite.RunMigrations(db, migrations.SQLite, "sqlite"); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		return db, sqliterepo.NewLinkRepository(db), nil

	default:
		return nil, nil, fmt.Errorf("%s: %w: %q", op, config.ErrUnknownDriver, cfg.Storage.Driver)
	}
}

func (a *App) Links() *usecase.LinkUseCase {
	return a.links
}

func (a *App) Handler() http.Handler {
	var secret []byte
	if a.cfg.Auth.JWTSecret != "" {
		secret = []byte(a.cfg.Auth.JWTSecret)
	}

	return delivery.NewRouter(a.logger, a.links, secret)
}

func (a *App) newServer(ctx context.Context) *http.Server {
	// Requests outlive ctx so that Shutdown can drain them.
	baseCtx := context.WithoutCancel(ctx)

	return &http.Server{
		Addr:           a.cfg.HTTPServer.Addr(),
		Handler:        a.Handler(),
		ReadTimeout:    a.cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   a.cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    a.cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: a.cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return baseCtx
		},
	}
}

// Run serves HTTP until ctx is cancelled, then shuts the server down within
// the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	const op = "app.Run"

	server := a.newServer(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		a.logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("env", a.cfg.Env),
			slog.String("storage", a.cfg.Storage.Driver),
			slog.String("provider", a.cfg.Shortener.Provider),
		)

		switch a.cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(a.cfg.HTTPServer.CertFile, a.cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		a.logger.Info("shutting down server")

		shutdownCtx := context.Background()
		if timeout := a.cfg.HTTPServer.ShutdownTimeout; timeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, timeout)
			defer cancel()
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

// Close waits for pending click increments and closes the storage.
func (a *App) Close() error {
	a.links.Wait()
	return a.db.Close()
}
