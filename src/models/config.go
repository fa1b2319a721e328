package models

// MConfig Structure
type MConfig struct {
	Name         string              `yaml:"name"`
	Host         string              `yaml:"host"`
	Port         int                 `yaml:"port"`
	ControlPort  int                 `yaml:"control_port"` // 0 disables the gRPC control plane
	LogLevel     string              `yaml:"log_level"`
	FeedHost     string              `yaml:"feed_host"`
	FeedPort     int                 `yaml:"feed_port"`
	FeedBackups  []string            `yaml:"feed_backups"` // host:port fallbacks, tried in order
	Subscription MSubscriptionConfig `yaml:"subscription"`
	Storage      MStorageConfig      `yaml:"storage"`
	Cache        MCacheConfig        `yaml:"cache"`
	Market       MMarketConfig       `yaml:"market"`
}

type MSubscriptionConfig struct {
	Filter             string `yaml:"filter"`
	SortKey            string `yaml:"sort_key"`
	DebounceMillis     int    `yaml:"debounce_ms"`
	DialTimeoutSeconds int    `yaml:"dial_timeout_seconds"`
	HistoryMinutes     int    `yaml:"history_minutes"` // summary history retention
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionHours     int    `yaml:"retention_hours"` // batch history kept this long
}

type MCacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"` // Optional
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type MMarketConfig struct {
	MIC         string `yaml:"mic"`
	Timezone    string `yaml:"timezone"`
	AutoSession bool   `yaml:"auto_session"` // follow venue hours automatically
}
