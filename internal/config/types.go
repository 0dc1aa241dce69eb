package config

// Config is the root configuration structure for ctrlgrade.
// Serialised to ~/.ctrlgrade/config.json.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"  json:"database"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"  json:"analysis"`
	PageSpeed PageSpeedConfig `mapstructure:"pagespeed" json:"pagespeed"`
	Git       GitConfig       `mapstructure:"git"       json:"git"`
	Agent     AgentConfig     `mapstructure:"agent"     json:"agent"`
	Gateway   GatewayConfig   `mapstructure:"gateway"   json:"gateway"`
	Notify    NotifyConfig    `mapstructure:"notify"    json:"notify"`
}

// DatabaseConfig controls the storage backend.
type DatabaseConfig struct {
	// Driver is "sqlite" (default) or "mysql".
	Driver string `mapstructure:"driver" json:"driver"`
	// Path is the SQLite file path (expanded at runtime).
	Path string `mapstructure:"path"   json:"path"`
	// DSN is the MySQL data source name (used when Driver == "mysql").
	DSN string `mapstructure:"dsn"    json:"dsn"`
}

// AnalysisConfig controls collector timeouts and tool resolution.
// Timeouts are in seconds.
type AnalysisConfig struct {
	CloneTimeout     int `mapstructure:"clone_timeout"     json:"clone_timeout"`
	InstallTimeout   int `mapstructure:"install_timeout"   json:"install_timeout"`
	AuditTimeout     int `mapstructure:"audit_timeout"     json:"audit_timeout"`
	OutdatedTimeout  int `mapstructure:"outdated_timeout"  json:"outdated_timeout"`
	LintTimeout      int `mapstructure:"lint_timeout"      json:"lint_timeout"`
	TypeCheckTimeout int `mapstructure:"typecheck_timeout" json:"typecheck_timeout"`
	ProbeTimeout     int `mapstructure:"probe_timeout"     json:"probe_timeout"`
	// MaxListed bounds the findings / lint issues / outdated entries kept per report.
	MaxListed int `mapstructure:"max_listed" json:"max_listed"`
	// BinDir is checked before PATH when resolving node tooling.
	BinDir string `mapstructure:"bin_dir" json:"bin_dir"`
	// PreferDocker runs node tooling inside NodeImage even when local binaries exist.
	PreferDocker bool   `mapstructure:"prefer_docker" json:"prefer_docker"`
	NodeImage    string `mapstructure:"node_image"    json:"node_image"`
}

// PageSpeedConfig controls the optional page-speed probe for deployments.
type PageSpeedConfig struct {
	Enabled  bool   `mapstructure:"enabled"  json:"enabled"`
	APIKey   string `mapstructure:"api_key"  json:"api_key"`
	Strategy string `mapstructure:"strategy" json:"strategy"` // mobile | desktop
	// RequestsPerMinute throttles calls to stay inside the API quota.
	RequestsPerMinute int `mapstructure:"requests_per_minute" json:"requests_per_minute"`
	Timeout           int `mapstructure:"timeout"             json:"timeout"`
}

// GitConfig holds credentials for hosting-provider metadata and private clones.
type GitConfig struct {
	GitHub []GitHubConfig `mapstructure:"github" json:"github"`
	GitLab []GitLabConfig `mapstructure:"gitlab" json:"gitlab"`
}

// GitHubConfig holds credentials for a single GitHub instance.
type GitHubConfig struct {
	Token string `mapstructure:"token" json:"token"`
	// Host allows enterprise GitHub (e.g. github.mycompany.com).
	Host string `mapstructure:"host"  json:"host"`
}

// GitLabConfig holds credentials for a single GitLab instance.
type GitLabConfig struct {
	Token string `mapstructure:"token" json:"token"`
	Host  string `mapstructure:"host"  json:"host"`
}

// AgentConfig controls the background analysis workers.
type AgentConfig struct {
	// Workers is the maximum number of concurrent analyses.
	Workers int `mapstructure:"workers" json:"workers"`
	// PollInterval is how often (seconds) the job queue is polled.
	PollInterval int `mapstructure:"poll_interval" json:"poll_interval"`
}

// GatewayConfig controls the persistent gateway daemon.
type GatewayConfig struct {
	// Port is the localhost HTTP port the gateway listens on (default: 6090).
	Port int `mapstructure:"port" json:"port"`
}

// NotifyConfig controls completion notifications.
type NotifyConfig struct {
	Slack    SlackNotifyConfig    `mapstructure:"slack"    json:"slack"`
	Telegram TelegramNotifyConfig `mapstructure:"telegram" json:"telegram"`
	Webhook  WebhookNotifyConfig  `mapstructure:"webhook"  json:"webhook"`
	// Events restricts which event types are sent (empty = defaults).
	Events []string `mapstructure:"events" json:"events"`
	// BelowOverall only notifies on completed analyses scoring under this value (0 = all).
	BelowOverall int `mapstructure:"below_overall" json:"below_overall"`
}

// SlackNotifyConfig posts to an incoming-webhook URL.
type SlackNotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url"`
}

// TelegramNotifyConfig sends through the Telegram Bot API.
type TelegramNotifyConfig struct {
	BotToken string `mapstructure:"bot_token" json:"bot_token"`
	ChatID   string `mapstructure:"chat_id"   json:"chat_id"`
}

// WebhookNotifyConfig posts JSON to an arbitrary endpoint, optionally signed.
type WebhookNotifyConfig struct {
	URL    string `mapstructure:"url"    json:"url"`
	Secret string `mapstructure:"secret" json:"secret"`
}
