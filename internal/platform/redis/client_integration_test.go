//go:build integration

package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"userdir/internal/platform/config"
	"userdir/pkg/testutil/containers"
)

func TestNew_AgainstContainer(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)

	client, err := New(context.Background(), config.RedisConfig{URL: rc.URL, PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Health(context.Background()))
}
