package remote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/pkg/retry"
	"github.com/JrMarcco/jreward/internal/service/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func collect() (provider.Sink, <-chan domain.Outcome) {
	ch := make(chan domain.Outcome, 16)
	return provider.SinkFunc(func(o domain.Outcome) { ch <- o }), ch
}

func next(t *testing.T, ch <-chan domain.Outcome) domain.Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(3 * time.Second):
		require.FailNow(t, "timeout waiting for outcome")
		return domain.Outcome{}
	}
}

func fixedRetry(times int32) retry.Config {
	return retry.Config{
		Type: retry.TypeFixedInterval,
		FixedInterval: &retry.FixedIntervalConfig{
			Interval: time.Millisecond,
			MaxTimes: times,
		},
	}
}

func TestProvider_Initialize(t *testing.T) {
	t.Parallel()

	var initCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case initPath:
			// 第一次初始化失败，之后成功
			if initCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			var req initReq
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.True(t, req.TestMode)
			assert.Equal(t, "app-1", req.AppId)
			_ = json.NewEncoder(w).Encode(initResp{
				Inventory: []domain.Category{domain.CategoryRewardedVideo, "popup"},
			})
		case fulfillPath:
			var req fulfillReq
			_ = json.NewDecoder(r.Body).Decode(&req)
			resp := fulfillResp{Result: "fulfilled"}
			switch req.ContextKey {
			case "skip":
				resp = fulfillResp{Result: "dismissed"}
			case "empty":
				resp = fulfillResp{Result: "rejected", Reason: "no fill"}
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p := NewProvider(Config{Endpoint: server.URL, AppId: "app-1", Retry: fixedRetry(3)}, zap.NewNop())
	sink, ch := collect()

	assert.False(t, p.IsReady(domain.CategoryRewardedVideo))
	p.Initialize(t.Context(), true, sink)
	assert.Equal(t, domain.Ready(), next(t, ch))
	assert.Equal(t, int32(2), initCalls.Load())

	assert.False(t, p.Degraded())
	assert.True(t, p.IsReady(domain.CategoryRewardedVideo))
	assert.False(t, p.IsReady(domain.CategoryBanner))

	p.RequestFulfillment(domain.CategoryRewardedVideo, "shop", "req-1")
	assert.Equal(t, domain.Fulfilled(domain.CategoryRewardedVideo).WithRequest("req-1"), next(t, ch))

	p.RequestFulfillment(domain.CategoryRewardedVideo, "skip", "req-2")
	assert.Equal(t, domain.Dismissed(domain.CategoryRewardedVideo).WithRequest("req-2"), next(t, ch))

	p.RequestFulfillment(domain.CategoryRewardedVideo, "empty", "req-3")
	assert.Equal(t, domain.Rejected(domain.CategoryRewardedVideo, "no fill").WithRequest("req-3"), next(t, ch))
}

func TestProvider_Degrade(t *testing.T) {
	t.Parallel()

	var initCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		initCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	tcs := []struct {
		name         string
		retry        retry.Config
		wantMinCalls int32
		wantMaxCalls int32
	}{
		{name: "retry exhausted", retry: fixedRetry(2), wantMinCalls: 2, wantMaxCalls: 3},
		{name: "invalid retry config", retry: retry.Config{Type: "unknown"}, wantMinCalls: 1, wantMaxCalls: 1},
		{name: "missing retry config", retry: retry.Config{}, wantMinCalls: 1, wantMaxCalls: 1},
		{
			name: "zero interval",
			retry: retry.Config{
				Type:          retry.TypeFixedInterval,
				FixedInterval: &retry.FixedIntervalConfig{Interval: 0, MaxTimes: 3},
			},
			wantMinCalls: 1,
			wantMaxCalls: 1,
		}, {
			name: "init interval above max interval",
			retry: retry.Config{
				Type: retry.TypeExponentialBackoff,
				ExponentialBackoff: &retry.ExponentialBackoffConfig{
					InitInterval: time.Second,
					MaxInterval:  time.Millisecond,
					MaxTimes:     3,
				},
			},
			wantMinCalls: 1,
			wantMaxCalls: 1,
		}, {
			// 不允许无限重试，否则永远不会发出 Ready
			name: "unlimited retry",
			retry: retry.Config{
				Type:          retry.TypeFixedInterval,
				FixedInterval: &retry.FixedIntervalConfig{Interval: time.Millisecond},
			},
			wantMinCalls: 1,
			wantMaxCalls: 1,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			initCalls.Store(0)

			p := NewProvider(Config{Endpoint: server.URL, Retry: tc.retry}, zap.NewNop())
			sink, ch := collect()

			p.Initialize(t.Context(), false, sink)
			assert.Equal(t, domain.Ready(), next(t, ch))
			assert.GreaterOrEqual(t, initCalls.Load(), tc.wantMinCalls)
			assert.LessOrEqual(t, initCalls.Load(), tc.wantMaxCalls)
			assert.True(t, p.Degraded())
			assert.True(t, p.IsReady(domain.CategoryBanner))

			// 降级后由 stub 同步履约
			p.RequestFulfillment(domain.CategoryBanner, "", "req-1")
			assert.Equal(t, domain.Fulfilled(domain.CategoryBanner).WithRequest("req-1"), next(t, ch))

			select {
			case o := <-ch:
				assert.Fail(t, "unexpected outcome", o)
			default:
			}
		})
	}
}

func TestProvider_FulfillNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == initPath {
			_ = json.NewEncoder(w).Encode(initResp{Inventory: []domain.Category{domain.CategoryInterstitial}})
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewProvider(Config{Endpoint: server.URL}, zap.NewNop())
	sink, ch := collect()

	p.Initialize(t.Context(), false, sink)
	require.Equal(t, domain.Ready(), next(t, ch))

	p.RequestFulfillment(domain.CategoryInterstitial, "level_end", "req-1")
	o := next(t, ch)
	assert.Equal(t, domain.OutcomeRejected, o.Kind)
	assert.Equal(t, domain.CategoryInterstitial, o.Category)
	assert.Equal(t, "req-1", o.RequestId)
	assert.Contains(t, o.Reason, "status code = 502")
}

func TestProvider_Breaker(t *testing.T) {
	t.Parallel()

	var failing atomic.Bool
	failing.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == initPath {
			_ = json.NewEncoder(w).Encode(initResp{Inventory: []domain.Category{domain.CategoryRewardedVideo}})
			return
		}
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(fulfillResp{Result: "fulfilled"})
	}))
	defer server.Close()

	p := NewProvider(Config{
		Endpoint: server.URL,
		Breaker: BreakerConfig{
			WindowSize:  8,
			Consecutive: 2,
			Rate:        1,
			OpenTimeout: 100 * time.Millisecond,
		},
	}, zap.NewNop())
	sink, ch := collect()

	p.Initialize(t.Context(), false, sink)
	require.Equal(t, domain.Ready(), next(t, ch))

	p.RequestFulfillment(domain.CategoryRewardedVideo, "", "req-1")
	assert.Equal(t, domain.OutcomeRejected, next(t, ch).Kind)
	assert.True(t, p.IsReady(domain.CategoryRewardedVideo))

	p.RequestFulfillment(domain.CategoryRewardedVideo, "", "req-2")
	assert.Equal(t, domain.OutcomeRejected, next(t, ch).Kind)
	assert.True(t, p.Open())
	assert.False(t, p.IsReady(domain.CategoryRewardedVideo))

	failing.Store(false)
	assert.Eventually(t, func() bool {
		return p.IsReady(domain.CategoryRewardedVideo)
	}, time.Second, 10*time.Millisecond)
	assert.False(t, p.Open())

	p.RequestFulfillment(domain.CategoryRewardedVideo, "", "req-3")
	assert.Equal(t, domain.Fulfilled(domain.CategoryRewardedVideo).WithRequest("req-3"), next(t, ch))
	assert.True(t, p.IsReady(domain.CategoryRewardedVideo))
}

func TestProvider_OutOfOrderOutcomes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == initPath {
			_ = json.NewEncoder(w).Encode(initResp{Inventory: []domain.Category{domain.CategoryRewardedVideo}})
			return
		}
		var req fulfillReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ContextKey == "double" {
			// 先发出的请求后返回
			time.Sleep(300 * time.Millisecond)
			_ = json.NewEncoder(w).Encode(fulfillResp{Result: "dismissed"})
			return
		}
		_ = json.NewEncoder(w).Encode(fulfillResp{Result: "fulfilled"})
	}))
	defer server.Close()

	p := NewProvider(Config{Endpoint: server.URL}, zap.NewNop())
	sink, ch := collect()
	p.Initialize(t.Context(), false, sink)
	require.Equal(t, domain.Ready(), next(t, ch))

	p.RequestFulfillment(domain.CategoryRewardedVideo, "double", "req-double")
	p.RequestFulfillment(domain.CategoryRewardedVideo, "revive", "req-revive")

	assert.Equal(t, domain.Fulfilled(domain.CategoryRewardedVideo).WithRequest("req-revive"), next(t, ch))
	assert.Equal(t, domain.Dismissed(domain.CategoryRewardedVideo).WithRequest("req-double"), next(t, ch))
}
