package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"userdir/internal/platform/config"
)

func TestNew_Configuration(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, config.RedisConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(ctx, config.RedisConfig{URL: "http://not-redis"})
	assert.ErrorContains(t, err, "parse redis URL")
}
