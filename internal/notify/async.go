// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/auth"
)

// Default AsyncSink settings.
const (
	DefaultSendTimeout = 30 * time.Second
	DefaultQueueSize   = 256
	DefaultWorkers     = 4
)

type delivery struct {
	ctx     context.Context
	email   string
	token   string
	purpose auth.Purpose
}

// AsyncSink hands tokens to a bounded pool of workers that deliver them
// through another Notifier, so callers never wait on the mail server. Each
// delivery runs under its own timeout and outlives the caller's context.
type AsyncSink struct {
	next    auth.Notifier
	logger  *slog.Logger
	timeout time.Duration
	jobs    chan delivery
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// AsyncOption configures an AsyncSink.
type AsyncOption func(*asyncConfig)

type asyncConfig struct {
	timeout   time.Duration
	queueSize int
	workers   int
}

// WithSendTimeout bounds each delivery, retries included.
func WithSendTimeout(d time.Duration) AsyncOption {
	return func(c *asyncConfig) { c.timeout = d }
}

// WithQueueSize sets how many deliveries may wait for a worker.
func WithQueueSize(n int) AsyncOption {
	return func(c *asyncConfig) { c.queueSize = n }
}

// WithWorkers sets how many deliveries run at once.
func WithWorkers(n int) AsyncOption {
	return func(c *asyncConfig) { c.workers = n }
}

// NewAsyncSink starts the workers delivering through next. A nil logger uses
// slog.Default(). Call Close to drain the queue.
func NewAsyncSink(next auth.Notifier, logger *slog.Logger, opts ...AsyncOption) (*AsyncSink, error) {
	if next == nil {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("notifier is required")
	}
	cfg := asyncConfig{
		timeout:   DefaultSendTimeout,
		queueSize: DefaultQueueSize,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.timeout <= 0 || cfg.workers <= 0 || cfg.queueSize < 0 {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").
			With("timeout", cfg.timeout).
			With("workers", cfg.workers).
			With("queue_size", cfg.queueSize).
			Errorf("timeout and workers must be positive and queue size non-negative")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &AsyncSink{
		next:    next,
		logger:  logger,
		timeout: cfg.timeout,
		jobs:    make(chan delivery, cfg.queueSize),
	}
	s.wg.Add(cfg.workers)
	for range cfg.workers {
		go s.work()
	}
	return s, nil
}

// SendToken queues the delivery and returns without waiting for it. It fails
// only when the queue is full or the sink is closed.
func (s *AsyncSink) SendToken(ctx context.Context, email, token string, purpose auth.Purpose) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return oops.Code("NOTIFY_CLOSED").
			With("purpose", string(purpose)).
			Errorf("notifier is closed")
	}

	d := delivery{ctx: context.WithoutCancel(ctx), email: email, token: token, purpose: purpose}
	select {
	case s.jobs <- d:
		return nil
	default:
		return oops.Code("NOTIFY_QUEUE_FULL").
			With("purpose", string(purpose)).
			With("queue_size", cap(s.jobs)).
			Errorf("delivery queue is full")
	}
}

func (s *AsyncSink) work() {
	defer s.wg.Done()
	for d := range s.jobs {
		s.send(d)
	}
}

func (s *AsyncSink) send(d delivery) {
	ctx, cancel := context.WithTimeout(d.ctx, s.timeout)
	defer cancel()
	if err := s.next.SendToken(ctx, d.email, d.token, d.purpose); err != nil {
		s.logger.WarnContext(ctx, "token delivery failed",
			"operation", "send_token",
			"email", d.email,
			"purpose", string(d.purpose),
			"error", err)
	}
}

// Close stops accepting tokens and waits for queued deliveries until ctx is
// done. It is safe to call more than once.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return oops.Code("NOTIFY_CLOSE_TIMEOUT").
			With("pending", len(s.jobs)).
			Wrap(ctx.Err())
	}
}
