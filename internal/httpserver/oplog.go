package httpserver

import (
	"context"

	"github.com/TellerWorksLab/teller/pkg/teller"
	"go.uber.org/zap"
)

// zapOperationLogger adapts a zap logger to the domain's OperationLogger.
// The token value itself is never logged.
type zapOperationLogger struct {
	logger *zap.Logger
}

// NewOperationLogger wraps a zap logger for domain operation logging.
func NewOperationLogger(logger *zap.Logger) teller.OperationLogger {
	return &zapOperationLogger{logger: logger}
}

func (operationLogger *zapOperationLogger) LogOperation(_ context.Context, entry teller.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.Int64("account_id", entry.AccountID.Int64()),
		zap.Int64("user_id", entry.UserID.Int64()),
		zap.String("result", entry.Result),
		zap.String("status", entry.Status),
	}
	if entry.Type != "" {
		fields = append(fields, zap.String("transaction_type", entry.Type.String()))
	}
	if entry.IdempotencyKey.String() != "" {
		fields = append(fields, zap.String("idempotency_key", entry.IdempotencyKey.String()))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Error("ledger operation", fields...)
		return
	}
	operationLogger.logger.Info("ledger operation", fields...)
}
