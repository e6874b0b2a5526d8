// Package remote implements the document store contract over the server's
// HTTP API, with change subscriptions carried over a websocket.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/logging"
	"github.com/dmitrijs2005/listsync/internal/models"
	"github.com/dmitrijs2005/listsync/internal/store"
	"github.com/dmitrijs2005/listsync/internal/wire"
)

const (
	requestTimeout   = 10 * time.Second
	watchRedialDelay = 500 * time.Millisecond
)

// Client talks to the listsync server. It satisfies store.Store so the sync
// engine can run against it unchanged.
type Client struct {
	baseURL string
	http    *http.Client
	log     logging.Logger

	mu    sync.RWMutex
	token string
}

var _ store.Store = (*Client)(nil)

func NewClient(baseURL string, log logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		log:     log.With("module", "remote"),
	}
}

// SetToken installs the access token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return ""
	}
	return "Bearer " + c.token
}

// Register creates an account and installs the returned token.
func (c *Client) Register(ctx context.Context, login, password string) error {
	var resp wire.TokenResponse
	status, err := c.do(ctx, http.MethodPost, "/api/register", wire.RegisterRequest{Login: login, Password: password}, &resp)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		return common.ErrLoginAlreadyExists
	}
	if status == http.StatusUnauthorized || status == http.StatusBadRequest {
		return common.ErrInvalidLoginPassword
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", common.ErrUnavailable, status)
	}
	c.SetToken(resp.AccessToken)
	return nil
}

// Login authenticates and installs the returned token.
func (c *Client) Login(ctx context.Context, login, password string) error {
	var resp wire.TokenResponse
	status, err := c.do(ctx, http.MethodPost, "/api/login", wire.LoginRequest{Login: login, Password: password}, &resp)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized || status == http.StatusBadRequest {
		return common.ErrInvalidLoginPassword
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", common.ErrUnavailable, status)
	}
	c.SetToken(resp.AccessToken)
	return nil
}

// Ping checks server reachability.
func (c *Client) Ping(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodGet, "/api/ping", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", common.ErrUnavailable, status)
	}
	return nil
}

func (c *Client) CreateList(ctx context.Context, name, ownerID string) (string, error) {
	var l models.List
	status, err := c.do(ctx, http.MethodPost, "/api/lists", wire.CreateListRequest{Name: name}, &l)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", mapStatus(status)
	}
	return l.ID, nil
}

func (c *Client) GetSnapshot(ctx context.Context, listID string) (*models.List, error) {
	var l models.List
	status, err := c.do(ctx, http.MethodGet, "/api/lists/"+listID, nil, &l)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, mapStatus(status)
	}
	return &l, nil
}

// ListsByOwner returns the lists of the authenticated user; the server
// derives the owner from the access token, so ownerID is unused here.
func (c *Client) ListsByOwner(ctx context.Context, ownerID string) ([]*models.List, error) {
	var resp wire.ListsResponse
	status, err := c.do(ctx, http.MethodGet, "/api/lists", nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, mapStatus(status)
	}
	return resp.Lists, nil
}

func (c *Client) ReplaceItems(ctx context.Context, listID string, items []models.Item, expectedVersion int64) (int64, error) {
	var resp wire.ReplaceItemsResponse
	status, err := c.do(ctx, http.MethodPut, "/api/lists/"+listID+"/items", wire.ReplaceItemsRequest{Items: items, ExpectedVersion: expectedVersion}, &resp)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, mapStatus(status)
	}
	return resp.Version, nil
}

func (c *Client) RenameList(ctx context.Context, listID, name string) error {
	status, err := c.do(ctx, http.MethodPatch, "/api/lists/"+listID, wire.RenameListRequest{Name: name}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return mapStatus(status)
	}
	return nil
}

func (c *Client) DeleteList(ctx context.Context, listID string) error {
	status, err := c.do(ctx, http.MethodDelete, "/api/lists/"+listID, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return mapStatus(status)
	}
	return nil
}

// Subscribe opens the watch websocket for listID and forwards every pushed
// message to onSnapshot in arrival order. If the stream ends before a deleted
// notification the session redials; every opened watch starts with a fresh
// snapshot, so nothing is lost across the gap. The feed ends after a deleted
// notification or when the returned unsubscribe function is called.
func (c *Client) Subscribe(ctx context.Context, listID string, onSnapshot func(store.Snapshot)) (store.UnsubscribeFunc, error) {
	conn, err := c.dialWatch(ctx, listID)
	if err != nil {
		return nil, err
	}

	s := &watchSession{
		client:     c,
		listID:     listID,
		onSnapshot: onSnapshot,
		conn:       conn,
		done:       make(chan struct{}),
	}
	go s.run(ctx)
	return s.stop, nil
}

func (c *Client) dialWatch(ctx context.Context, listID string) (*websocket.Conn, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/lists/" + listID + "/watch"

	header := http.Header{}
	if b := c.bearer(); b != "" {
		header.Set(common.AccessTokenHeaderName, b)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, mapStatus(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return conn, nil
}

// watchSession is one subscription. It owns the current websocket connection
// and survives connection loss by redialing until the list is deleted or the
// subscriber unsubscribes.
type watchSession struct {
	client     *Client
	listID     string
	onSnapshot func(store.Snapshot)

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

// stop ends the session. Closing the connection unblocks a pending read.
func (s *watchSession) stop() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
	})
}

// swapConn installs a freshly dialed connection, unless the session was
// stopped while dialing.
func (s *watchSession) swapConn(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		_ = conn.Close()
		return false
	default:
	}
	s.conn = conn
	return true
}

func (s *watchSession) run(ctx context.Context) {
	for {
		if terminal := s.readLoop(ctx, s.conn); terminal {
			s.stop()
			return
		}

		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.stop()
			return
		case <-time.After(watchRedialDelay):
		}

		conn, err := s.client.dialWatch(ctx, s.listID)
		if errors.Is(err, common.ErrNotFound) {
			// the list vanished while the stream was down
			s.onSnapshot(store.Snapshot{Deleted: true})
			s.stop()
			return
		}
		if err != nil {
			s.client.log.Warn(ctx, "watch redial failed", "list_id", s.listID, "error", err)
			continue
		}
		if !s.swapConn(conn) {
			return
		}
		s.client.log.Info(ctx, "watch reconnected", "list_id", s.listID)
	}
}

// readLoop forwards messages until the connection ends. It reports whether
// the stream ended for good (deleted notification) rather than abnormally.
func (s *watchSession) readLoop(ctx context.Context, conn *websocket.Conn) bool {
	for {
		var msg wire.WatchMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return false
		}
		switch msg.Type {
		case wire.WatchSnapshot:
			s.onSnapshot(store.Snapshot{List: msg.List})
		case wire.WatchDeleted:
			s.onSnapshot(store.Snapshot{Deleted: true})
			return true
		default:
			s.client.log.Warn(ctx, "unknown watch message", "type", msg.Type)
		}
	}
}

// do sends one JSON request and decodes a JSON response body into out when
// out is non-nil and the response carries one. Transport failures come back
// as common.ErrUnavailable; HTTP statuses are returned for the caller to map.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b := c.bearer(); b != "" {
		req.Header.Set(common.AccessTokenHeaderName, b)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: bad response body: %v", common.ErrUnavailable, err)
		}
	}
	return resp.StatusCode, nil
}

// mapStatus converts an unexpected HTTP status into a sentinel error.
func mapStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusConflict:
		return common.ErrVersionConflict
	case http.StatusBadRequest:
		return common.ErrInvalidName
	case http.StatusUnauthorized:
		return common.ErrUnauthorized
	default:
		return fmt.Errorf("%w: unexpected status %d", common.ErrUnavailable, status)
	}
}
