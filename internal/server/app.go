// Package server initializes and runs the listsync server: it opens the
// database, applies migrations, wires the services and serves the HTTP API
// until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/listsync/internal/logging"
	"github.com/dmitrijs2005/listsync/internal/server/config"
	"github.com/dmitrijs2005/listsync/internal/server/httpapi"
	"github.com/dmitrijs2005/listsync/internal/server/hub"
	"github.com/dmitrijs2005/listsync/internal/server/migrations"
	"github.com/dmitrijs2005/listsync/internal/server/repositories/lists"
	"github.com/dmitrijs2005/listsync/internal/server/repositories/users"
	"github.com/dmitrijs2005/listsync/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	hub    *hub.Hub
	lists  *services.ListService
	users  *services.UserService
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := migrations.Run(context.Background(), db, "postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}

	h := hub.New()
	listSvc := services.NewListService(lists.NewPostgresRepository(db), h, logger)
	userSvc := services.NewUserService(users.NewPostgresRepository(db), c.SecretKey, c.AccessTokenValidityDuration)

	return &App{config: c, logger: logger, db: db, hub: h, lists: listSvc, users: userSvc}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the HTTP API until ctx is cancelled or a termination signal
// arrives, then shuts the server down gracefully.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: httpapi.NewRouter(app.lists, app.users, app.config.SecretKey, app.logger),
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")
	app.hub.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return app.db.Close()
}
