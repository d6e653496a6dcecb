// Package logging builds the process-wide zap.Logger, grounded on the
// teacher's cmd/payments/main.go (zap.NewProductionConfig with an
// ISO8601 timestamp and a "timestamp" time key).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap.Logger with an ISO8601 timestamp.
func New() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "timestamp"
	return cfg.Build()
}
