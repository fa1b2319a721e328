package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

type recordingController struct {
	mu     sync.Mutex
	params []models.MSubscriptionParams
}

func (r *recordingController) Connect() error { return nil }
func (r *recordingController) Disconnect()    {}
func (r *recordingController) Close()         {}

func (r *recordingController) State() models.MConnectionState {
	return models.MConnectionState{}
}

func (r *recordingController) Snapshot() models.MLatestData {
	return models.MLatestData{}
}

func (r *recordingController) History(int) []models.MSummaryPoint { return nil }

func (r *recordingController) SetParameters(params models.MSubscriptionParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = append(r.params, params)
	return nil
}

func (r *recordingController) last() (models.MSubscriptionParams, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.params) == 0 {
		return models.MSubscriptionParams{}, false
	}
	return r.params[len(r.params)-1], true
}

// -----------------------------------------------------------------------------

func configYAML(filter, sortKey string) string {
	return fmt.Sprintf(`
name: "idx-stream-client"
host: "127.0.0.1"
port: 8000
feed_host: "localhost"
feed_port: 50051
subscription:
  filter: %q
  sort_key: %q
storage:
  db_type: "sqlite"
  db_path: "stream_client.db"
`, filter, sortKey)
}

func TestWatcherReloadsParametersOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML("all", "code")), 0644))

	ctrl := &recordingController{}
	w := NewConfigWatcher(path, ctrl, logger.NewLogger("error", "Watcher"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// give the watcher a moment to attach before the rewrite
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(configYAML("idx30", "percent_change")), 0644))

	require.Eventually(t, func() bool {
		p, ok := ctrl.last()
		return ok && p.Filter == models.FilterIDX30 && p.SortKey == models.SortByPercentChange
	}, 3*time.Second, 20*time.Millisecond, "the rewritten parameters should reach the controller")
}

func TestWatcherIgnoresInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML("all", "code")), 0644))

	ctrl := &recordingController{}
	w := NewConfigWatcher(path, ctrl, logger.NewLogger("error", "Watcher"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(150 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("name: [broken"), 0644))

	time.Sleep(600 * time.Millisecond)
	_, ok := ctrl.last()
	assert.False(t, ok, "a config that fails validation must not touch the controller")
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML("all", "code")), 0644))

	ctrl := &recordingController{}
	w := NewConfigWatcher(path, ctrl, logger.NewLogger("error", "Watcher"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(150 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("scratch"), 0644))

	time.Sleep(600 * time.Millisecond)
	_, ok := ctrl.last()
	assert.False(t, ok)
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML("all", "code")), 0644))

	w := NewConfigWatcher(path, &recordingController{}, logger.NewLogger("error", "Watcher"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}
