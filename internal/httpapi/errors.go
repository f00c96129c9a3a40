// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/pkg/errutil"
)

const internalMessage = "internal server error"

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind auth.ErrorKind) int {
	switch kind {
	case auth.KindNone:
		return http.StatusOK
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindPolicyViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as a JSON error. Internal failures were already
// logged by the service and are reported with a generic message only.
func abortWithError(c *gin.Context, err error) {
	kind := auth.KindOf(err)
	resp := errorResponse{RequestID: c.GetString(keyRequestID)}
	if kind == auth.KindInternal {
		resp.Error = internalMessage
	} else {
		resp.Error = err.Error()
		resp.Code = errutil.Code(err)
	}
	c.AbortWithStatusJSON(StatusFor(kind), resp)
}

func abortWithMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Error:     msg,
		RequestID: c.GetString(keyRequestID),
	})
}
