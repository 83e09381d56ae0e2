package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/etfnews/newswatch/internal/failure"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile   = "config.yaml"
	DefaultStorageDir   = "."
	DefaultStoragePath  = "newswatch.db"
	DefaultDriver       = DriverJSON
	DefaultMaxItems     = 20
	DefaultKeepItems    = 10
	DefaultFetchTimeout = 10 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultChannel      = ChannelTelegram
	DefaultTimezone     = "Local"
	DefaultSummaryHour  = 12
	DefaultTitleWidth   = 80
	DefaultSummaryWidth = 60
	DefaultMinTitle     = 5
	DefaultMaxTitle     = 150
	DefaultLinkSelector = "a[href]"
	DefaultRedisPrefix  = "newswatch:state:"
	DefaultTelegramAPI  = "https://api.telegram.org"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "auto"

	DefaultBotTokenEnv   = "TELEGRAM_BOT_TOKEN"
	DefaultChatIDEnv     = "TELEGRAM_CHAT_ID"
	DefaultWebhookURLEnv = "DISCORD_WEBHOOK_URL"
)

// Source kinds.
const (
	KindContainers = "containers"
	KindLinks      = "links"
	KindFeed       = "feed"
)

// Storage drivers.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Notification channels.
const (
	ChannelTelegram = "telegram"
	ChannelDiscord  = "discord"
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Sources []SourceConfig `yaml:"sources"`
	Fetch   FetchConfig    `yaml:"fetch"`
	Storage StorageConfig  `yaml:"storage"`
	Notify  NotifyConfig   `yaml:"notify"`
	Log     LogConfig      `yaml:"log"`
}

// SourceConfig describes one monitored page and how to pull items out of it.
type SourceConfig struct {
	Name         string   `yaml:"name"`
	Label        string   `yaml:"label"`
	Icon         string   `yaml:"icon"`
	Noun         string   `yaml:"noun"`
	Heading      string   `yaml:"heading"`
	Kind         string   `yaml:"kind"`
	URL          string   `yaml:"url"`
	BaseURL      string   `yaml:"base_url"`
	Selectors    []string `yaml:"selectors"`
	LinkSelector string   `yaml:"link_selector"`
	Limit        int      `yaml:"limit"`
	MinTitle     int      `yaml:"min_title"`
	MaxTitle     int      `yaml:"max_title"`
	State        string   `yaml:"state"`
}

type FetchConfig struct {
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
}

type StorageConfig struct {
	Driver    string      `yaml:"driver"`
	Dir       string      `yaml:"dir"`
	Path      string      `yaml:"path"`
	MaxItems  int         `yaml:"max_items"`
	KeepItems int         `yaml:"keep_items"`
	Redis     RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr        string `yaml:"addr"`
	DB          int    `yaml:"db"`
	PasswordEnv string `yaml:"password_env"`
	KeyPrefix   string `yaml:"key_prefix"`

	// Resolved from env var at load time.
	Password string `yaml:"-"`
}

type NotifyConfig struct {
	Channel       string         `yaml:"channel"`
	Telegram      TelegramConfig `yaml:"telegram"`
	Discord       DiscordConfig  `yaml:"discord"`
	Timezone      string         `yaml:"timezone"`
	SummaryHour   *int           `yaml:"summary_hour"`
	SnapshotDates []string       `yaml:"snapshot_dates"`
	TitleWidth    int            `yaml:"title_width"`
	SummaryWidth  int            `yaml:"summary_width"`
}

type TelegramConfig struct {
	BotTokenEnv    string `yaml:"bot_token_env"`
	ChatIDEnv      string `yaml:"chat_id_env"`
	APIBase        string `yaml:"api_base"`
	DisablePreview bool   `yaml:"disable_preview"`

	// Resolved from env vars at load time.
	BotToken string `yaml:"-"`
	ChatID   string `yaml:"-"`
}

type DiscordConfig struct {
	WebhookURLEnv string `yaml:"webhook_url_env"`

	// Resolved from env var at load time.
	WebhookURL string `yaml:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultSources returns the two faculty pages the tool was built for.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:    "etf",
			Label:   "ETF",
			Icon:    "🎓",
			Noun:    "announcements",
			Heading: "Announcements",
			Kind:    KindContainers,
			URL:     "https://www.etf.unsa.ba/obavjestenja",
			BaseURL: "https://www.etf.unsa.ba",
			// Tried strictest first: all three classes, any one class,
			// then substring. Pages with a bare div.mb-3 ahead of the
			// announcements pick up that div if the looser form goes first.
			Selectors: []string{
				"div.mb-3.bg-light.p-3",
				"div.mb-3, div.bg-light, div.p-3",
				"div[class*='mb-3'], div[class*='bg-light']",
			},
			LinkSelector: DefaultLinkSelector,
			Limit:        7,
			State:        "etf_posts.json",
		},
		{
			Name:      "dsai",
			Label:     "DSAI",
			Icon:      "🤖",
			Noun:      "news items",
			Heading:   "News",
			Kind:      KindLinks,
			URL:       "https://dsai.etf.unsa.ba/news/",
			BaseURL:   "https://dsai.etf.unsa.ba",
			Selectors: []string{"a.ee-post-title-link"},
			Limit:     3,
			State:     "dsai_posts.json",
		},
	}
}

// Load reads config.yaml from dir, applies defaults, resolves env vars, and
// validates. A missing config.yaml yields the built-in defaults. Every
// returned error is classified as failure.Config.
func Load(dir string) (*Config, error) {
	return load(dir, true)
}

// LoadLocal is Load without the notification credential checks, for
// commands that only read local state.
func LoadLocal(dir string) (*Config, error) {
	return load(dir, false)
}

func load(dir string, needCredentials bool) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, failure.New(failure.Config, "", errors.New("config dir is required"))
	}

	var cfg Config

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, failure.New(failure.Config, path, fmt.Errorf("read config: %w", err))
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, failure.New(failure.Config, path, fmt.Errorf("parse config: %w", err))
		}
	}

	applyDefaults(&cfg)
	resolveEnv(&cfg)

	if err := validate(&cfg, needCredentials); err != nil {
		return nil, failure.New(failure.Config, path, fmt.Errorf("validate config: %w", err))
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
	for i := range cfg.Sources {
		applySourceDefaults(&cfg.Sources[i])
	}

	if cfg.Fetch.Timeout.Duration == 0 {
		cfg.Fetch.Timeout.Duration = DefaultFetchTimeout
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = DefaultUserAgent
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultDriver
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = DefaultStorageDir
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.MaxItems == 0 {
		cfg.Storage.MaxItems = DefaultMaxItems
	}
	if cfg.Storage.KeepItems == 0 {
		cfg.Storage.KeepItems = DefaultKeepItems
	}
	if cfg.Storage.Redis.KeyPrefix == "" {
		cfg.Storage.Redis.KeyPrefix = DefaultRedisPrefix
	}

	if cfg.Notify.Channel == "" {
		cfg.Notify.Channel = DefaultChannel
	}
	if cfg.Notify.Telegram.BotTokenEnv == "" {
		cfg.Notify.Telegram.BotTokenEnv = DefaultBotTokenEnv
	}
	if cfg.Notify.Telegram.ChatIDEnv == "" {
		cfg.Notify.Telegram.ChatIDEnv = DefaultChatIDEnv
	}
	if cfg.Notify.Telegram.APIBase == "" {
		cfg.Notify.Telegram.APIBase = DefaultTelegramAPI
	}
	if cfg.Notify.Discord.WebhookURLEnv == "" {
		cfg.Notify.Discord.WebhookURLEnv = DefaultWebhookURLEnv
	}
	if cfg.Notify.Timezone == "" {
		cfg.Notify.Timezone = DefaultTimezone
	}
	if cfg.Notify.SummaryHour == nil {
		h := DefaultSummaryHour
		cfg.Notify.SummaryHour = &h
	}
	if cfg.Notify.TitleWidth == 0 {
		cfg.Notify.TitleWidth = DefaultTitleWidth
	}
	if cfg.Notify.SummaryWidth == 0 {
		cfg.Notify.SummaryWidth = DefaultSummaryWidth
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

func applySourceDefaults(sc *SourceConfig) {
	if sc.Kind == "" {
		sc.Kind = KindContainers
	}
	if sc.Label == "" {
		sc.Label = strings.ToUpper(sc.Name)
	}
	if sc.Icon == "" {
		sc.Icon = "📢"
	}
	if sc.Noun == "" {
		sc.Noun = "items"
	}
	if sc.Heading == "" {
		sc.Heading = "Items"
	}
	if sc.BaseURL == "" {
		sc.BaseURL = origin(sc.URL)
	}
	if sc.Kind == KindContainers && sc.LinkSelector == "" {
		sc.LinkSelector = DefaultLinkSelector
	}
	if sc.Limit == 0 {
		switch sc.Kind {
		case KindContainers:
			sc.Limit = 7
		case KindLinks:
			sc.Limit = 3
		default:
			sc.Limit = 10
		}
	}
	if sc.MinTitle == 0 {
		sc.MinTitle = DefaultMinTitle
	}
	if sc.MaxTitle == 0 {
		sc.MaxTitle = DefaultMaxTitle
	}
	if sc.State == "" && sc.Name != "" {
		sc.State = sc.Name + "_posts.json"
	}
}

func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func resolveEnv(cfg *Config) {
	tg := &cfg.Notify.Telegram
	tg.BotToken = strings.TrimSpace(os.Getenv(tg.BotTokenEnv))
	tg.ChatID = strings.TrimSpace(os.Getenv(tg.ChatIDEnv))

	dc := &cfg.Notify.Discord
	dc.WebhookURL = strings.TrimSpace(os.Getenv(dc.WebhookURLEnv))

	if cfg.Storage.Redis.PasswordEnv != "" {
		cfg.Storage.Redis.Password = os.Getenv(cfg.Storage.Redis.PasswordEnv)
	}
}

func validate(cfg *Config, needCredentials bool) error {
	if err := validateSources(cfg.Sources); err != nil {
		return err
	}

	if cfg.Fetch.Timeout.Duration < 0 {
		return fmt.Errorf("fetch.timeout: must be positive, got %v", cfg.Fetch.Timeout.Duration)
	}

	switch cfg.Storage.Driver {
	case DriverJSON, DriverSQLite:
	case DriverRedis:
		if strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
			return errors.New("storage.redis.addr: required for redis driver")
		}
	default:
		return fmt.Errorf("storage.driver: unknown driver %q (want json, sqlite, or redis)", cfg.Storage.Driver)
	}
	if cfg.Storage.MaxItems < 0 || cfg.Storage.KeepItems < 0 {
		return errors.New("storage: max_items and keep_items must not be negative")
	}
	if cfg.Storage.KeepItems > cfg.Storage.MaxItems {
		return fmt.Errorf("storage: keep_items (%d) must not exceed max_items (%d)",
			cfg.Storage.KeepItems, cfg.Storage.MaxItems)
	}

	switch cfg.Notify.Channel {
	case ChannelTelegram:
		if !needCredentials {
			break
		}
		if cfg.Notify.Telegram.BotToken == "" {
			return fmt.Errorf("notify.telegram: missing credentials: %s is not set", cfg.Notify.Telegram.BotTokenEnv)
		}
		if cfg.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram: missing credentials: %s is not set", cfg.Notify.Telegram.ChatIDEnv)
		}
	case ChannelDiscord:
		if needCredentials && cfg.Notify.Discord.WebhookURL == "" {
			return fmt.Errorf("notify.discord: missing credentials: %s is not set", cfg.Notify.Discord.WebhookURLEnv)
		}
	default:
		return fmt.Errorf("notify.channel: unknown channel %q (want telegram or discord)", cfg.Notify.Channel)
	}

	if _, err := time.LoadLocation(cfg.Notify.Timezone); err != nil {
		return fmt.Errorf("notify.timezone: %w", err)
	}
	if h := *cfg.Notify.SummaryHour; h < -1 || h > 23 {
		return fmt.Errorf("notify.summary_hour: %d out of range (-1 disables, 0-23)", h)
	}
	for _, d := range cfg.Notify.SnapshotDates {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return fmt.Errorf("notify.snapshot_dates: %q is not YYYY-MM-DD", d)
		}
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (want auto, text, or json)", cfg.Log.Format)
	}

	return nil
}

func validateSources(sources []SourceConfig) error {
	names := make(map[string]bool)
	states := make(map[string]bool)

	for i, sc := range sources {
		field := fmt.Sprintf("sources[%d]", i)
		if strings.TrimSpace(sc.Name) == "" {
			return fmt.Errorf("%s.name: required", field)
		}
		field = "sources." + sc.Name
		if names[sc.Name] {
			return fmt.Errorf("%s: duplicate source name", field)
		}
		names[sc.Name] = true

		if states[sc.State] {
			return fmt.Errorf("%s.state: %q already used by another source", field, sc.State)
		}
		states[sc.State] = true

		u, err := url.Parse(sc.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s.url: %q is not an absolute http(s) URL", field, sc.URL)
		}

		switch sc.Kind {
		case KindContainers:
			if err := compileAll(field+".selectors", sc.Selectors); err != nil {
				return err
			}
			if _, err := cascadia.Compile(sc.LinkSelector); err != nil {
				return fmt.Errorf("%s.link_selector: %w", field, err)
			}
		case KindLinks:
			if err := compileAll(field+".selectors", sc.Selectors); err != nil {
				return err
			}
		case KindFeed:
		default:
			return fmt.Errorf("%s.kind: unknown kind %q (want containers, links, or feed)", field, sc.Kind)
		}

		if sc.Limit < 0 || sc.MinTitle < 0 || sc.MaxTitle < 0 {
			return fmt.Errorf("%s: limit, min_title, and max_title must not be negative", field)
		}
	}
	return nil
}

func compileAll(field string, selectors []string) error {
	if len(selectors) == 0 {
		return fmt.Errorf("%s: at least one selector is required", field)
	}
	for _, sel := range selectors {
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return fmt.Errorf("%s: %q: %w", field, sel, err)
		}
	}
	return nil
}

// Location returns the time zone used for the summary hour and dates.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Notify.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
