package retry

import (
	"testing"
	"time"

	"github.com/JrMarcco/jreward/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetryStrategy(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name         string
		cfg          Config
		wantErr      bool
		wantInterval time.Duration
	}{
		{
			name: "fixed interval",
			cfg: Config{
				Type:          TypeFixedInterval,
				FixedInterval: &FixedIntervalConfig{Interval: time.Second, MaxTimes: 3},
			},
			wantInterval: time.Second,
		}, {
			name: "exponential backoff",
			cfg: Config{
				Type: TypeExponentialBackoff,
				ExponentialBackoff: &ExponentialBackoffConfig{
					InitInterval: 100 * time.Millisecond,
					MaxInterval:  time.Second,
					MaxTimes:     3,
				},
			},
			wantInterval: 100 * time.Millisecond,
		}, {
			name:    "unknown type",
			cfg:     Config{Type: "linear"},
			wantErr: true,
		}, {
			name:    "missing fixed interval config",
			cfg:     Config{Type: TypeFixedInterval},
			wantErr: true,
		}, {
			name:    "missing exponential backoff config",
			cfg:     Config{Type: TypeExponentialBackoff},
			wantErr: true,
		}, {
			name: "zero interval",
			cfg: Config{
				Type:          TypeFixedInterval,
				FixedInterval: &FixedIntervalConfig{Interval: 0, MaxTimes: 3},
			},
			wantErr: true,
		}, {
			name: "zero init interval",
			cfg: Config{
				Type:               TypeExponentialBackoff,
				ExponentialBackoff: &ExponentialBackoffConfig{MaxInterval: time.Second, MaxTimes: 3},
			},
			wantErr: true,
		}, {
			name: "unlimited fixed interval",
			cfg: Config{
				Type:          TypeFixedInterval,
				FixedInterval: &FixedIntervalConfig{Interval: time.Second},
			},
			wantErr: true,
		}, {
			name: "unlimited exponential backoff",
			cfg: Config{
				Type: TypeExponentialBackoff,
				ExponentialBackoff: &ExponentialBackoffConfig{
					InitInterval: 100 * time.Millisecond,
					MaxInterval:  time.Second,
					MaxTimes:     -1,
				},
			},
			wantErr: true,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, err := NewRetryStrategy(tc.cfg)
			if tc.wantErr {
				assert.ErrorIs(t, err, errs.ErrInvalidParam)
				// 必须是 nil 接口，而不是包着 nil 指针的接口
				assert.True(t, s == nil)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, s)
			interval, ok := s.NextWithRetried(1)
			assert.True(t, ok)
			assert.Equal(t, tc.wantInterval, interval)

			_, ok = s.NextWithRetried(4)
			assert.False(t, ok)
		})
	}
}
