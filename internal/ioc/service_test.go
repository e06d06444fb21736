package ioc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/service/stats"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func newViper(t *testing.T, content string) *viper.Viper {
	t.Helper()

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(content)))
	return v
}

func TestLoadRewardConfig(t *testing.T) {
	t.Parallel()

	v := newViper(t, `
reward:
  enabled: false
  provider: remote
  test_mode: true
  player: p-1
  policies:
    rewarded_video:
      daily_limit: 20
    interstitial:
      cooldown_seconds: 120
      session_limit: 5
    banner:
      daily_limit: "many"
    popup:
      daily_limit: 1
  rules:
    - category: rewarded_video
      context: revive
      kind: item
      quantity: 1
      item_id: revive_token
  default_reward:
    kind: gems
    quantity: 3
  service:
    queue_size: 8
    persist_timeout: 1s
  remote:
    endpoint: http://localhost:8080
    timeout: 2s
`)

	cfg := LoadRewardConfig(v, zap.NewNop())

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "remote", cfg.Provider)
	assert.True(t, cfg.TestMode)
	assert.Equal(t, "p-1", cfg.Player)

	assert.Equal(t, map[domain.Category]domain.Policy{
		domain.CategoryRewardedVideo: {DailyLimit: 20},
		domain.CategoryInterstitial:  {SessionLimit: 5, CooldownSeconds: 120},
	}, cfg.Policies)

	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, domain.RewardRule{
		Category:   domain.CategoryRewardedVideo,
		ContextKey: "revive",
		Reward: domain.RewardSpec{
			Kind:     domain.RewardKindItem,
			Quantity: 1,
			ItemId:   "revive_token",
		},
	}, cfg.Rules[0])

	require.NotNil(t, cfg.DefaultReward)
	assert.Equal(t, domain.RewardSpec{Kind: domain.RewardKindGems, Quantity: 3}, *cfg.DefaultReward)

	assert.Equal(t, 8, cfg.Service.QueueSize)
	assert.Equal(t, time.Second, cfg.Service.PersistTimeout)
	assert.Equal(t, "http://localhost:8080", cfg.Remote.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.Remote.Timeout)
}

func TestLoadRewardConfig_Defaults(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name    string
		content string
	}{
		{name: "missing section", content: "profile:\n  env: dev\n"},
		{name: "malformed section", content: "reward:\n  enabled: [1, 2]\n"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := LoadRewardConfig(newViper(t, tc.content), zap.NewNop())
			assert.True(t, cfg.Enabled)
			assert.Equal(t, "stub", cfg.Provider)
			assert.Equal(t, stats.DefaultKey, cfg.Player)
			assert.Empty(t, cfg.Policies)
			assert.Nil(t, cfg.DefaultReward)
		})
	}
}

func TestInterceptorOf(t *testing.T) {
	t.Parallel()

	var order []string
	record := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			order = append(order, name)
			return handler(ctx, req)
		}
	}

	interceptor := InterceptorOf(record("first"), record("second"))
	resp, err := interceptor(t.Context(), "req", &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		order = append(order, "handler")
		return "resp", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "resp", resp)
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}
