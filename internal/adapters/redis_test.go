package adapters

import (
	"context"
	"testing"

	"kifu_editor/internal/bootstrap"
)

func TestAdapterRedisOptions(t *testing.T) {
	a := NewAdapterRedis(&bootstrap.Config{RedisUrl: "cache:6380", RedisPassword: "secret", RedisDB: 4})
	opts := a.options()
	if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 4 {
		t.Errorf("options = %+v", opts)
	}
}

func TestAdapterRedisCloseWithoutInit(t *testing.T) {
	if err := NewAdapterRedis(&bootstrap.Config{}).Close(context.Background()); err != nil {
		t.Errorf("Close: %v", err)
	}
}
