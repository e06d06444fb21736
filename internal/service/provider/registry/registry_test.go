package registry

import (
	"testing"

	"github.com/JrMarcco/jreward/internal/service/provider"
	"github.com/JrMarcco/jreward/internal/service/provider/remote"
	"github.com/JrMarcco/jreward/internal/service/provider/stub"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRegistry_Create(t *testing.T) {
	t.Parallel()

	r := NewRegistry(remote.Config{Endpoint: "http://127.0.0.1:1"}, zap.NewNop())

	tcs := []struct {
		name     string
		id       string
		wantName string
	}{
		{name: "noop", id: "noop", wantName: stub.Name},
		{name: "stub alias", id: "stub", wantName: stub.Name},
		{name: "case insensitive", id: " Remote ", wantName: remote.Name},
		{name: "empty id", id: "", wantName: stub.Name},
		{name: "unknown id", id: "admob", wantName: stub.Name},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := r.Create(tc.id)
			assert.NotNil(t, p)
			assert.Equal(t, tc.wantName, p.Name())
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	r := NewRegistry(remote.Config{}, zap.NewNop())
	custom := stub.NewProvider(zap.NewNop(), stub.WithName("custom"))
	r.Register("custom", func() provider.Provider { return custom })

	assert.Same(t, custom, r.Create("CUSTOM"))

	// 每次创建新的实例
	assert.NotSame(t, r.Create("noop"), r.Create("noop"))
}
