package storage

import (
	"context"
	"testing"

	"github.com/and161185/chirper/internal/config"
	"github.com/and161185/chirper/internal/limiter"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.StoreConfig{Driver: "redis"}, limiter.DefaultPolicy, zaptest.NewLogger(t))
	require.ErrorContains(t, err, `unknown driver "redis"`)
}
