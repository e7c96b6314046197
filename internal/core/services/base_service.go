package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	// OpTimeout bounds every operation including its storage calls. Zero disables the bound.
	OpTimeout time.Duration
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// withTimeout derives the per-operation context.
func (s *BaseService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.OpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.OpTimeout)
}

// handleError passes business errors through untouched. Anything else is an infrastructure
// fault: it is logged and surfaced as a ServiceError, transient when a deadline was hit.
func (s *BaseService) handleError(ctx context.Context, err error, msg string, keyvals ...any) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Kind != apperrors.KindService {
		return err
	}
	s.LogError(ctx, err, msg, keyvals...)
	if appErr != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTransientServiceError(msg, err)
	}
	return apperrors.NewServiceError(msg, err)
}
