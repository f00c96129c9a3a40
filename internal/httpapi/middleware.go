// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/holomush/accountd/internal/logging"
)

// Header and context keys.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderAuthToken = "auth-token"

	keyRequestID    = "requestID"
	keySessionToken = "sessionToken"
)

// maxRequestIDLen bounds caller-supplied request IDs.
const maxRequestIDLen = 128

// requestIDMiddleware tags the request with the caller's X-Request-ID or a
// fresh ULID, and carries it on the request context for logging.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = ulid.Make().String()
		}
		c.Set(keyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (a *API) accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if a.observer != nil {
			a.observer.ObserveRequest(c.Request.Method, route, status)
		}
		a.logger.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start))
	}
}

func (a *API) recoverPanic(c *gin.Context, recovered any) {
	a.logger.ErrorContext(c.Request.Context(), "panic serving request",
		"route", c.FullPath(),
		"panic", recovered)
	abortWithMessage(c, http.StatusInternalServerError, internalMessage)
}

func bodySizeLimiter(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// requireSession rejects requests without a session token. The token comes
// from the auth-token header or an Authorization bearer credential; it is
// verified by the service call that consumes it.
func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c.Request)
		if token == "" {
			abortWithMessage(c, http.StatusUnauthorized, "missing session token")
			return
		}
		c.Set(keySessionToken, token)
		c.Next()
	}
}

func sessionToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(HeaderAuthToken)); token != "" {
		return token
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
