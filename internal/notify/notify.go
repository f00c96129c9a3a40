// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package notify delivers one-time tokens to account holders.
package notify

import (
	"context"
	"log/slog"

	"github.com/holomush/accountd/internal/auth"
)

// hashPrefixLen is how much of the stored token hash LogSink reports.
const hashPrefixLen = 12

// LogSink records token issuance in the log instead of delivering it. It
// reports a prefix of the stored token hash so an operator can find the row;
// the token value itself is never written.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// SendToken logs the issuance and always succeeds.
func (s *LogSink) SendToken(ctx context.Context, email, token string, purpose auth.Purpose) error {
	s.logger.InfoContext(ctx, "one-time token issued",
		"email", email,
		"purpose", string(purpose),
		"token_hash", auth.HashToken(token)[:hashPrefixLen])
	return nil
}
