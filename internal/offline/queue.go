// Package offline keeps mutations made while the server is unreachable and
// replays them in order once it is back.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryan-kier/productivity/internal/localstore"

	"go.uber.org/zap"
)

// QueueKey is the storage key holding the pending operations.
const QueueKey = "taskflow-offline-queue"

// Operation is one deferred mutation.
type Operation struct {
	Method    string          `json:"method"`
	URL       string          `json:"url"`
	Body      json.RawMessage `json:"body,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// FlushResult reports one flush.
type FlushResult struct {
	Processed int `json:"processed"`
	Remaining int `json:"remaining"`
}

// Storage is the durable key/value backend. *localstore.Store satisfies it.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, time.Time, error)
	Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error
}

// Sender replays one operation. Any error, including an HTTP error status,
// counts as a failed replay.
type Sender interface {
	Send(ctx context.Context, op Operation) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, op Operation) error

func (f SenderFunc) Send(ctx context.Context, op Operation) error { return f(ctx, op) }

// Options tune a Queue.
type Options struct {
	// Online reports connectivity before a flush; nil means always online.
	Online func(ctx context.Context) bool
	Log    *zap.Logger
	Now    func() time.Time
}

// Queue is the persisted FIFO of pending operations.
type Queue struct {
	store    Storage
	sender   Sender
	online   func(ctx context.Context) bool
	log      *zap.Logger
	now      func() time.Time
	flushing atomic.Bool

	mu        sync.Mutex
	listeners map[int]func(int)
	nextID    int
}

func New(store Storage, sender Sender, opts Options) *Queue {
	q := &Queue{
		store:     store,
		sender:    sender,
		online:    opts.Online,
		log:       opts.Log,
		now:       opts.Now,
		listeners: map[int]func(int){},
	}
	if q.log == nil {
		q.log = zap.NewNop()
	}
	if q.now == nil {
		q.now = time.Now
	}
	return q
}

func decode(raw []byte) ([]Operation, error) {
	if len(raw) == 0 {
		return []Operation{}, nil
	}
	var ops []Operation
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("decode offline queue: %w", err)
	}
	return ops, nil
}

// Pending returns a snapshot of the queued operations, oldest first.
func (q *Queue) Pending(ctx context.Context) ([]Operation, error) {
	raw, _, err := q.store.Get(ctx, QueueKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return []Operation{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

// Len returns the number of queued operations.
func (q *Queue) Len(ctx context.Context) (int, error) {
	ops, err := q.Pending(ctx)
	return len(ops), err
}

// Enqueue appends an operation stamped with the current time.
func (q *Queue) Enqueue(ctx context.Context, method, url string, body json.RawMessage) error {
	op := Operation{Method: method, URL: url, Body: body, Timestamp: q.now().UTC()}
	var n int
	err := q.store.Update(ctx, QueueKey, func(raw []byte) ([]byte, error) {
		ops, err := decode(raw)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		n = len(ops)
		return json.Marshal(ops)
	})
	if err != nil {
		return fmt.Errorf("enqueue %s %s: %w", method, url, err)
	}
	q.log.Info("operation queued for offline sync", zap.String("method", method), zap.String("url", url), zap.Int("queued", n))
	q.notify(n)
	return nil
}

// Subscribe registers a listener for queue length changes. The listener is
// called once right away with the current length.
func (q *Queue) Subscribe(listener func(int)) (unsubscribe func()) {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.listeners[id] = listener
	q.mu.Unlock()

	if n, err := q.Len(context.Background()); err == nil {
		q.mu.Lock()
		_, still := q.listeners[id]
		q.mu.Unlock()
		if still {
			listener(n)
		}
	}
	return func() {
		q.mu.Lock()
		delete(q.listeners, id)
		q.mu.Unlock()
	}
}

func (q *Queue) notify(n int) {
	q.mu.Lock()
	ls := make([]func(int), 0, len(q.listeners))
	for _, l := range q.listeners {
		ls = append(ls, l)
	}
	q.mu.Unlock()
	for _, l := range ls {
		l(n)
	}
}

// Flush replays queued operations oldest first and stops at the first
// failure. Delivered operations are removed; the failed one and everything
// after it stay in order. It does nothing while another flush is running or
// when the connectivity probe reports offline.
func (q *Queue) Flush(ctx context.Context) (FlushResult, error) {
	if q.online != nil && !q.online(ctx) {
		n, err := q.Len(ctx)
		return FlushResult{Remaining: n}, err
	}
	if !q.flushing.CompareAndSwap(false, true) {
		n, err := q.Len(ctx)
		return FlushResult{Remaining: n}, err
	}
	defer q.flushing.Store(false)

	ops, err := q.Pending(ctx)
	if err != nil {
		return FlushResult{}, err
	}
	if len(ops) == 0 {
		return FlushResult{}, nil
	}

	processed := 0
	for _, op := range ops {
		if err := q.sender.Send(ctx, op); err != nil {
			q.log.Warn("failed to replay offline operation",
				zap.String("method", op.Method), zap.String("url", op.URL), zap.Error(err))
			break
		}
		processed++
	}

	// Operations enqueued during the replay sit after the delivered prefix.
	var remaining int
	err = q.store.Update(ctx, QueueKey, func(raw []byte) ([]byte, error) {
		current, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if processed > len(current) {
			processed = len(current)
		}
		rest := current[processed:]
		remaining = len(rest)
		return json.Marshal(rest)
	})
	if err != nil {
		return FlushResult{Processed: processed}, fmt.Errorf("save offline queue: %w", err)
	}
	q.notify(remaining)
	if processed > 0 {
		q.log.Info("offline queue flushed", zap.Int("processed", processed), zap.Int("remaining", remaining))
	}
	return FlushResult{Processed: processed, Remaining: remaining}, nil
}
