// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Sweeper deletes expired one-time tokens on a fixed interval.
type Sweeper struct {
	tokens   TokenRepository
	policy   Policy
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewSweeper creates a Sweeper for the TTLs in policy.
func NewSweeper(tokens TokenRepository, policy Policy, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if tokens == nil {
		return nil, oops.Errorf("token repository is required")
	}
	if interval <= 0 {
		return nil, oops.Code("SWEEPER_INVALID_INTERVAL").
			With("interval", interval.String()).
			Errorf("sweep interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		tokens:   tokens,
		policy:   policy,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// SweepOnce deletes tokens older than their purpose's TTL and returns the
// number removed. Purposes without a TTL are skipped.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	var total int64
	now := s.now()
	for _, purpose := range []Purpose{PurposeVerification, PurposePasswordReset} {
		ttl := s.policy.TTL(purpose)
		if ttl <= 0 {
			continue
		}
		n, err := s.tokens.DeleteExpired(ctx, purpose, now.Add(-ttl))
		if err != nil {
			return total, oops.Code("SWEEP_FAILED").
				With("purpose", string(purpose)).
				Wrap(err)
		}
		total += n
	}
	return total, nil
}

// Run sweeps every interval until ctx is cancelled. Failed sweeps are
// logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.WarnContext(ctx, "token sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "expired tokens removed", "count", n)
			}
		}
	}
}
