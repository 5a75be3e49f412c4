package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// memoryExporter keeps the body of every exported record
type memoryExporter struct {
	mu     sync.Mutex
	bodies []string
}

func (e *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.bodies = append(e.bodies, r.Body().AsString())
	}
	return nil
}

func (e *memoryExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryExporter) Bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...)
}

func TestWithOTEL(t *testing.T) {
	t.Run("nil provider leaves the logger alone", func(t *testing.T) {
		l := zap.NewNop()
		assert.Same(t, l, WithOTEL(l, "marv-gateway", nil, zapcore.InfoLevel))
	})

	t.Run("entries reach both cores", func(t *testing.T) {
		exp := &memoryExporter{}
		provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
		t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

		core, logs := observer.New(zapcore.DebugLevel)
		l := WithOTEL(zap.New(core), "marv-gateway", provider, zapcore.InfoLevel)

		l.Debug("debug only locally")
		l.Info("bulk run finished", zap.String("run_id", "r-1"))
		l.With(zap.String("session_id", "s-1")).Warn("upstream slow")

		assert.Equal(t, 3, logs.Len())
		require.NoError(t, provider.ForceFlush(context.Background()))
		assert.Equal(t, []string{"bulk run finished", "upstream slow"}, exp.Bodies())
	})
}
