// Package client talks to the Taskflow API for the command line tool. Reads
// are cached locally and served stale when the server is unreachable;
// mutations made while offline are queued and replayed later.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bryan-kier/productivity/internal/localstore"
	"github.com/bryan-kier/productivity/internal/offline"

	"go.uber.org/zap"
)

const (
	// CacheKeyPrefix prefixes every cached GET response.
	CacheKeyPrefix = "taskflow-query-cache-v1:"
	// CacheTTL is how long a cached response may be served.
	CacheTTL = 24 * time.Hour
)

// ErrOffline means the server could not be reached at all.
var ErrOffline = errors.New("server unreachable")

// APIError is a response with status >= 400.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	text := strings.TrimSpace(e.Body)
	if text == "" {
		text = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%d: %s", e.Status, text)
}

// Response is a raw API response.
type Response struct {
	Status int
	Body   []byte
	// Queued is set on the synthetic 202 returned for an offline mutation.
	Queued bool
	// Stale is set when a GET was answered from the local cache.
	Stale bool
}

var queuedBody = []byte(`{"message":"Queued for offline sync","offline":true}`)

type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Store      *localstore.Store
	Log        *zap.Logger
	Now        func() time.Time
}

type Client struct {
	base  string
	token string
	http  *http.Client
	store *localstore.Store
	queue *offline.Queue
	log   *zap.Logger
	now   func() time.Time
}

func New(opts Options) *Client {
	c := &Client{
		base:  strings.TrimRight(opts.BaseURL, "/"),
		token: opts.Token,
		http:  opts.HTTPClient,
		store: opts.Store,
		log:   opts.Log,
		now:   opts.Now,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.queue = offline.New(opts.Store, offline.SenderFunc(c.replay), offline.Options{
		Online: c.Online,
		Log:    c.log,
		Now:    c.now,
	})
	return c
}

// Queue exposes the offline mutation queue.
func (c *Client) Queue() *offline.Queue { return c.queue }

// do performs one HTTP round trip. Transport failures and cancellation wrap
// ErrOffline; the status is returned as is.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", ErrOffline, err)
	}
	return resp.StatusCode, data, nil
}

// replay sends a queued operation; any status >= 400 is a failure.
func (c *Client) replay(ctx context.Context, op offline.Operation) error {
	status, data, err := c.do(ctx, op.Method, op.URL, op.Body)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return &APIError{Status: status, Body: string(data)}
	}
	return nil
}

// Ping checks GET /health; nil means the server and its database are up.
func (c *Client) Ping(ctx context.Context) error {
	status, data, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Status: status, Body: string(data)}
	}
	return nil
}

func (c *Client) Online(ctx context.Context) bool { return c.Ping(ctx) == nil }

// Flush replays the offline queue and drops cached reads when anything was
// delivered.
func (c *Client) Flush(ctx context.Context) (offline.FlushResult, error) {
	res, err := c.queue.Flush(ctx)
	if res.Processed > 0 {
		c.invalidate(ctx)
	}
	return res, err
}

// Request sends method to path with body encoded as JSON (nil for none).
// A mutation that cannot reach the server is queued and answered with a
// synthetic 202. A GET that cannot reach the server is answered from the
// cache when a fresh enough copy exists. Status >= 400 yields *APIError.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}
	if method == http.MethodGet {
		return c.get(ctx, path)
	}
	return c.mutate(ctx, method, path, payload)
}

func (c *Client) mutate(ctx context.Context, method, path string, payload []byte) (*Response, error) {
	status, data, err := c.do(ctx, method, path, payload)
	if errors.Is(err, ErrOffline) {
		// The caller's context may be what failed; the queue write must not.
		if qerr := c.queue.Enqueue(context.WithoutCancel(ctx), method, path, payload); qerr != nil {
			return nil, errors.Join(err, qerr)
		}
		return &Response{Status: http.StatusAccepted, Body: queuedBody, Queued: true}, nil
	}
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, &APIError{Status: status, Body: string(data)}
	}
	c.invalidate(ctx)
	return &Response{Status: status, Body: data}, nil
}

func (c *Client) get(ctx context.Context, path string) (*Response, error) {
	status, data, err := c.do(ctx, http.MethodGet, path, nil)
	if errors.Is(err, ErrOffline) {
		cached, at, cerr := c.store.Get(context.WithoutCancel(ctx), CacheKeyPrefix+path)
		if cerr == nil && c.now().Sub(at) <= CacheTTL {
			return &Response{Status: http.StatusOK, Body: cached, Stale: true}, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, &APIError{Status: status, Body: string(data)}
	}
	if err := c.store.Set(ctx, CacheKeyPrefix+path, data); err != nil {
		c.log.Warn("cache response failed", zap.String("path", path), zap.Error(err))
	}
	return &Response{Status: status, Body: data}, nil
}

func (c *Client) invalidate(ctx context.Context) {
	if _, err := c.store.DeletePrefix(context.WithoutCancel(ctx), CacheKeyPrefix); err != nil {
		c.log.Warn("invalidate response cache failed", zap.Error(err))
	}
}
