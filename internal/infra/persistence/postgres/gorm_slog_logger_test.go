package postgres

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"citas/config"
	deliverycontext "citas/internal/delivery/context"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testConfig(debug bool, slow time.Duration) *config.Config {
	cfg := &config.Config{Storage: &config.StorageConfig{SlowQueryThreshold: slow}}
	cfg.Env.Debug = debug

	return cfg
}

func staticSQL() (string, int64) {
	return `SELECT * FROM "storage_slots"`, 1
}

func TestGormSlogLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		debug   bool
		slow    time.Duration
		elapsed time.Duration
		err     error
		want    string
	}{
		{name: "failed query", err: assert.AnError, want: "Slot query failed"},
		{name: "record not found is silent", err: gorm.ErrRecordNotFound},
		{name: "slow query", slow: time.Millisecond, elapsed: time.Second, want: "Slot query slow"},
		{name: "fast query hidden outside debug"},
		{name: "fast query shown in debug", debug: true, want: "Slot query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := newGormSlogLogger(newBufferLogger(&buf), testConfig(tt.debug, tt.slow))

			l.Trace(context.Background(), time.Now().Add(-tt.elapsed), staticSQL, tt.err)

			if tt.want == "" {
				assert.Empty(t, buf.String())

				return
			}
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "storage_slots")
		})
	}
}

func TestGormSlogLogger_UsesRequestLogger(t *testing.T) {
	var base, scoped bytes.Buffer
	l := newGormSlogLogger(newBufferLogger(&base), testConfig(false, 0))
	ctx := deliverycontext.WithLogger(context.Background(),
		newBufferLogger(&scoped).With(slog.String("request_id", "req-7")))

	l.Trace(ctx, time.Now(), staticSQL, assert.AnError)

	assert.Empty(t, base.String())
	assert.Contains(t, scoped.String(), "request_id=req-7")
}
