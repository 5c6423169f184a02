//go:build !zmq

package main

import (
	"context"

	"go.uber.org/zap"
)

// Without the zmq build tag the tracker relies on polling alone.
func startBlockSignal(_ context.Context, addr string, logger *zap.Logger) (<-chan struct{}, error) {
	if addr != "" {
		logger.Warn("zmq support not compiled in; ignoring zmq address", zap.String("addr", addr))
	}
	return nil, nil
}
