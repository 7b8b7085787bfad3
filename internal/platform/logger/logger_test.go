package logger

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/cardforge/cardforge-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupReturnsLogger(t *testing.T) {
	logger, err := Setup(config.ServerConfig{Port: 8080, LogLevel: "debug"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestSetupFallsBackOnInvalidLevel(t *testing.T) {
	logger, err := Setup(config.ServerConfig{Port: 8080, LogLevel: "noisy"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestFromContextRoundTrip(t *testing.T) {
	base := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := WithLogger(context.Background(), base)

	assert.Same(t, base, FromContext(ctx))
}

func TestFromContextDefaults(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestFromContextOrDefault(t *testing.T) {
	def := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Empty context falls back to provided default.
	assert.Same(t, def, FromContextOrDefault(context.Background(), def))

	// Context value wins over the default.
	inCtx := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := WithLogger(context.Background(), inCtx)
	assert.Same(t, inCtx, FromContextOrDefault(ctx, def))
}
