package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusForError maps an error kind to its HTTP status. Errors that are not AppErrors are
// treated as service faults.
func statusForError(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindFrozen, apperrors.KindInsufficientFunds, apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	}
	if apperrors.IsTransient(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes err as an ErrorResponse. Service faults are logged and reported opaquely.
func respondError(c *gin.Context, err error) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	status := statusForError(err)
	kind := apperrors.KindOf(err)

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", slog.Int("status", status), slog.String("error", err.Error()))
		c.JSON(status, ErrorResponse{Error: "internal error", Kind: string(apperrors.KindService)})
		return
	}

	logger.Warn("Request rejected", slog.Int("status", status), slog.String("kind", string(kind)), slog.String("error", err.Error()))
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	c.JSON(status, ErrorResponse{Error: msg, Kind: string(kind)})
}

// respondBindError reports a request that failed JSON, query or tag validation.
func respondBindError(c *gin.Context, err error) {
	respondError(c, apperrors.NewValidationError("invalid request: %v", err))
}

// requireUserID returns the authenticated caller or writes a 401 and reports false.
func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, apperrors.NewUnauthorizedError("unauthorized"))
		return "", false
	}
	return userID, true
}
