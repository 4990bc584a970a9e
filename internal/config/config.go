// Package config loads and validates scanner configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/site-route-discovery/internal/route"
)

// EnvPrefix prefixes every environment override, e.g. ROUTESCAN_SCANNER_CRAWLER=false.
const EnvPrefix = "ROUTESCAN"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Site     string         `mapstructure:"site"`
	URLs     []string       `mapstructure:"urls"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Client   ClientConfig   `mapstructure:"client"`
	Routes   RoutesConfig   `mapstructure:"routes"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ScannerConfig holds the route discovery switches.
type ScannerConfig struct {
	Sitemap         bool `mapstructure:"sitemap"`
	Crawler         bool `mapstructure:"crawler"`
	SkipJavascript  bool `mapstructure:"skip_javascript"`
	DynamicSampling int  `mapstructure:"dynamic_sampling"`
	MaxRoutes       int  `mapstructure:"max_routes"`
	IncludeQuery    bool `mapstructure:"include_query"`
	SitemapMaxDepth int  `mapstructure:"sitemap_max_depth"`
}

// ClientConfig holds options that shape how routes are reported.
type ClientConfig struct {
	GroupRoutesKey string `mapstructure:"group_routes_key"`
}

// RoutesConfig lists explicit route templates such as "/blog/:slug".
type RoutesConfig struct {
	Definitions []string `mapstructure:"definitions"`
}

// CrawlerConfig governs the scan workers.
type CrawlerConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	UserAgent   string `mapstructure:"user_agent"`
}

// HTTPConfig configures the lightweight HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	MaxParallel   int     `mapstructure:"max_parallel"`
	NavTimeoutSec int     `mapstructure:"nav_timeout_seconds"`
	SettleMillis  int     `mapstructure:"settle_ms"`
	HostRPS       float64 `mapstructure:"host_rps"`
	HostBurst     int     `mapstructure:"host_burst"`
	ExecPath      string  `mapstructure:"exec_path"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// flagKeys maps CLI flag names to the config keys they override.
var flagKeys = map[string]string{
	"site":            "site",
	"url":             "urls",
	"sampling":        "scanner.dynamic_sampling",
	"max-routes":      "scanner.max_routes",
	"no-sitemap":      "scanner.sitemap",
	"no-crawler":      "scanner.crawler",
	"render":          "scanner.skip_javascript",
	"concurrency":     "crawler.concurrency",
	"metrics-addr":    "metrics.addr",
	"group-routes-by": "client.group_routes_key",
	"log-level":       "logging.level",
}

// invertedFlags are boolean flags whose value is the negation of the key.
var invertedFlags = map[string]struct{}{
	"no-sitemap": {},
	"no-crawler": {},
	"render":     {},
}

// Load builds a Config from defaults, an optional file, the environment and
// any changed flags, in increasing order of precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := applyFlags(v, flags); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	var err error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		if _, inverted := invertedFlags[f.Name]; inverted {
			set, perr := flags.GetBool(f.Name)
			if perr != nil {
				err = fmt.Errorf("flag --%s: %w", f.Name, perr)
				return
			}
			v.Set(key, !set)
			return
		}
		if berr := v.BindPFlag(key, f); berr != nil {
			err = fmt.Errorf("bind flag --%s: %w", f.Name, berr)
		}
	})
	return err
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site", "")
	v.SetDefault("urls", []string{})
	v.SetDefault("scanner.sitemap", true)
	v.SetDefault("scanner.crawler", true)
	v.SetDefault("scanner.skip_javascript", true)
	v.SetDefault("scanner.dynamic_sampling", 5)
	v.SetDefault("scanner.max_routes", 200)
	v.SetDefault("scanner.include_query", false)
	v.SetDefault("scanner.sitemap_max_depth", 3)
	v.SetDefault("client.group_routes_key", "route.definition.path")
	v.SetDefault("routes.definitions", []string{})
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.user_agent", "routescan/0.1 (+https://github.com/JakeFAU/site-route-discovery)")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.settle_ms", 500)
	v.SetDefault("headless.host_rps", 2)
	v.SetDefault("headless.host_burst", 1)
	v.SetDefault("headless.exec_path", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	site, err := url.Parse(c.Site)
	if err != nil || site.Host == "" || (site.Scheme != "http" && site.Scheme != "https") {
		return fmt.Errorf("site must be an absolute http(s) url, got %q", c.Site)
	}
	if c.Scanner.DynamicSampling < 0 {
		return fmt.Errorf("scanner.dynamic_sampling must be >= 0")
	}
	if c.Scanner.MaxRoutes < 0 {
		return fmt.Errorf("scanner.max_routes must be >= 0")
	}
	if _, err := c.GroupKey(); err != nil {
		return fmt.Errorf("client.group_routes_key: %w", err)
	}
	if _, err := route.NewMatcher(c.Routes.Definitions); err != nil {
		return fmt.Errorf("routes.definitions: %w", err)
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	return nil
}

// GroupKey parses client.group_routes_key.
func (c Config) GroupKey() (route.GroupKey, error) {
	key, err := route.ParseGroupKey(c.Client.GroupRoutesKey)
	if err != nil {
		return 0, fmt.Errorf("parse group key: %w", err)
	}
	return key, nil
}

// HTTPTimeout returns the lightweight fetch timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavTimeout returns the headless navigation timeout.
func (h HeadlessConfig) NavTimeout() time.Duration {
	return time.Duration(h.NavTimeoutSec) * time.Second
}

// SettleDelay returns how long rendered pages are given to run scripts.
func (h HeadlessConfig) SettleDelay() time.Duration {
	return time.Duration(h.SettleMillis) * time.Millisecond
}
