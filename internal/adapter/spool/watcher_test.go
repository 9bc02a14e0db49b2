package spool

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func collectOne(t *testing.T, events <-chan string) string {
	t.Helper()
	select {
	case p := <-events:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no watcher event")
		return ""
	}
}

func TestWatcher(t *testing.T) {
	t.Run("emits pre-existing descriptors", func(t *testing.T) {
		dir := t.TempDir()
		pre := filepath.Join(dir, "old"+DescriptorSuffix)
		require.NoError(t, os.WriteFile(pre, []byte("{}"), 0o644))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := NewWatcher(dir, discardLogger())
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		assert.Equal(t, pre, collectOne(t, w.Events()))

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	t.Run("emits newly created descriptors and ignores components", func(t *testing.T) {
		dir := t.TempDir()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := NewWatcher(dir, discardLogger())
		go w.Run(ctx)

		// The component file lands first, then the descriptor; only the
		// descriptor should surface.
		require.NoError(t, os.WriteFile(filepath.Join(dir, "reflectivity.f32"), make([]byte, 8), 0o644))
		desc := filepath.Join(dir, "new"+DescriptorSuffix)
		require.NoError(t, os.WriteFile(desc, []byte("{}"), 0o644))

		assert.Equal(t, desc, collectOne(t, w.Events()))
	})

	t.Run("missing spool directory", func(t *testing.T) {
		w := NewWatcher(filepath.Join(t.TempDir(), "nope"), discardLogger())

		err := w.Run(context.Background())
		assert.Error(t, err)
	})

	t.Run("events channel closes on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		w := NewWatcher(t.TempDir(), discardLogger())
		go w.Run(ctx)
		cancel()

		select {
		case _, ok := <-w.Events():
			assert.False(t, ok)
		case <-time.After(5 * time.Second):
			t.Fatal("events channel never closed")
		}
	})
}
