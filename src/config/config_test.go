package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

const minimalYAML = `
name: "idx-stream-client"
host: "127.0.0.1"
port: 8000
feed_host: "localhost"
feed_port: 50051
storage:
  db_type: "sqlite"
  db_path: "stream_client.db"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfigAppliesDefaults(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, models.FilterAll, cfg.Subscription.Filter)
	assert.Equal(t, models.SortByCode, cfg.Subscription.SortKey)
	assert.Equal(t, DefaultDebounceMillis, cfg.Subscription.DebounceMillis)
	assert.Equal(t, 5, cfg.Subscription.DialTimeoutSeconds)
	assert.Equal(t, 30, cfg.Subscription.HistoryMinutes)
	assert.Equal(t, 24, cfg.Storage.RetentionHours)
	assert.Equal(t, "xidx", cfg.Market.MIC)
	assert.Equal(t, "Asia/Jakarta", cfg.Market.Timezone)
	assert.Equal(t, "stream:snapshot", cfg.Cache.Channel)
	assert.False(t, cfg.Cache.Enabled)
	assert.Zero(t, cfg.ControlPort, "control plane stays off unless configured")
	assert.Empty(t, cfg.FeedBackups)
	assert.False(t, cfg.Market.AutoSession)
}

func TestNewConfigReadsExplicitValues(t *testing.T) {
	content := minimalYAML + `
control_port: 50052
feed_backups:
  - "feed-b:50051"
  - "feed-c:50051"
subscription:
  filter: "idx30"
  sort_key: "percent_change"
  debounce_ms: 250
  history_minutes: 60
market:
  mic: "xnys"
  timezone: "America/New_York"
  auto_session: true
`
	cfg, err := NewConfig(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, models.FilterIDX30, cfg.Subscription.Filter)
	assert.Equal(t, models.SortByPercentChange, cfg.Subscription.SortKey)
	assert.Equal(t, 250, cfg.Subscription.DebounceMillis)
	assert.Equal(t, 60, cfg.Subscription.HistoryMinutes)
	assert.Equal(t, 50052, cfg.ControlPort)
	assert.Equal(t, []string{"feed-b:50051", "feed-c:50051"}, cfg.FeedBackups)
	assert.Equal(t, "xnys", cfg.Market.MIC)
	assert.True(t, cfg.Market.AutoSession)
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "missing name",
			content: "host: \"127.0.0.1\"\nport: 8000\nfeed_host: \"localhost\"\nfeed_port: 50051\nstorage:\n  db_type: \"sqlite\"\n  db_path: \"x.db\"\n",
			errMsg:  "application name cannot be empty",
		},
		{
			name:    "privileged port",
			content: "name: \"c\"\nhost: \"127.0.0.1\"\nport: 80\nfeed_host: \"localhost\"\nfeed_port: 50051\nstorage:\n  db_type: \"sqlite\"\n  db_path: \"x.db\"\n",
			errMsg:  "invalid server port",
		},
		{
			name:    "privileged control port",
			content: minimalYAML + "control_port: 443\n",
			errMsg:  "invalid control port",
		},
		{
			name:    "control port collides with server port",
			content: minimalYAML + "control_port: 8000\n",
			errMsg:  "control port must differ from server port",
		},
		{
			name:    "missing feed host",
			content: "name: \"c\"\nhost: \"127.0.0.1\"\nport: 8000\nfeed_port: 50051\nstorage:\n  db_type: \"sqlite\"\n  db_path: \"x.db\"\n",
			errMsg:  "feed host cannot be empty",
		},
		{
			name:    "blank feed backup",
			content: minimalYAML + "feed_backups:\n  - \"\"\n",
			errMsg:  "feed backup target cannot be empty",
		},
		{
			name:    "unknown filter",
			content: minimalYAML + "subscription:\n  filter: \"sp500\"\n",
			errMsg:  "unknown subscription filter",
		},
		{
			name:    "sqlite without path",
			content: "name: \"c\"\nhost: \"127.0.0.1\"\nport: 8000\nfeed_host: \"localhost\"\nfeed_port: 50051\nstorage:\n  db_type: \"sqlite\"\n",
			errMsg:  "database path cannot be empty",
		},
		{
			name:    "postgres without connection string",
			content: "name: \"c\"\nhost: \"127.0.0.1\"\nport: 8000\nfeed_host: \"localhost\"\nfeed_port: 50051\nstorage:\n  db_type: \"postgres\"\n",
			errMsg:  "connection string cannot be empty",
		},
		{
			name:    "cache enabled without address",
			content: minimalYAML + "cache:\n  enabled: true\n",
			errMsg:  "cache address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestNewConfigBadYAML(t *testing.T) {
	_, err := NewConfig(writeConfig(t, "name: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

// -----------------------------------------------------------------------------

func TestFeedTargetAndDefaultParams(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "localhost:50051", cfg.FeedTarget())
	assert.Equal(t, []string{"localhost:50051"}, cfg.FeedTargets())
	assert.Equal(t, models.DefaultSubscriptionParams(), cfg.DefaultParams())
}

func TestFeedTargetsIncludeBackups(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, minimalYAML+"feed_backups:\n  - \"feed-b:50051\"\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:50051", "feed-b:50051"}, cfg.FeedTargets())
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	cfg.Subscription.Filter = models.FilterLQ45
	cfg.Subscription.SortKey = models.SortByTotalVolume

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	reloaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, models.FilterLQ45, reloaded.Subscription.Filter)
	assert.Equal(t, models.SortByTotalVolume, reloaded.Subscription.SortKey)
	assert.Equal(t, cfg.FeedTarget(), reloaded.FeedTarget())
}
