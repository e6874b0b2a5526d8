// Package cli implements the interactive listsync client: a REPL over the
// sync engine, with a sqlite cache so the last known list survives restarts.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/listsync/internal/cache"
	"github.com/dmitrijs2005/listsync/internal/client/config"
	"github.com/dmitrijs2005/listsync/internal/client/remote"
	"github.com/dmitrijs2005/listsync/internal/logging"
	"github.com/dmitrijs2005/listsync/internal/subscription"

	_ "modernc.org/sqlite"
)

type App struct {
	config   *config.Config
	client   *remote.Client
	cache    *cache.SQLiteCache
	manager  *subscription.Manager
	logger   logging.Logger
	reader   *bufio.Reader
	loggedIn bool
	current  string // id of the open list, empty when none
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	db, err := cache.NewSQLiteCache(ctx, c.CachePath)
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(c.ServerEndpointAddr, logger)
	manager := subscription.NewManager(client, db, logger)

	return &App{
		config:  c,
		client:  client,
		cache:   db,
		manager: manager,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.loggedIn
}

func (a *App) hasOpenList() bool {
	return a.current != ""
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		a.manager.CloseAll()
		_ = a.cache.Close()
	}()

	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) status() string {
	if !a.loggedIn {
		return "logged out"
	}
	if a.current == "" {
		return "no open list"
	}
	return "list " + a.current
}
