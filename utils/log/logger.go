package log

import (
	"context"
	"os"

	"go.uber.org/zap"
)

var logger *zap.Logger

func init() {
	if os.Getenv("DEBUG") == "true" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
}

// CtxKey is the type of context keys carrying logging metadata.
type CtxKey string

const (
	CtxSessionID CtxKey = "session_id"
	CtxProvider  CtxKey = "provider"
	CtxModel     CtxKey = "model"
)

func WithCtx(ctx context.Context) *zap.Logger {
	fields := []zap.Field{}

	if v := ctx.Value(CtxSessionID); v != nil {
		fields = append(fields, zap.Any("session_id", v))
	}
	if v := ctx.Value(CtxProvider); v != nil {
		fields = append(fields, zap.Any("provider", v))
	}
	if v := ctx.Value(CtxModel); v != nil {
		fields = append(fields, zap.Any("model", v))
	}

	return logger.With(fields...)
}

func With(fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}
