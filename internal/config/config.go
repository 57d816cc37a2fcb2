// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Environment variables holding the remote provider credentials.
const (
	EnvProviderUsername  = "BROWSERSTACK_USERNAME"
	EnvProviderAccessKey = "BROWSERSTACK_ACCESS_KEY"
)

// Provider kinds.
const (
	ProviderRemote = "remote"
	ProviderLocal  = "local"
)

// Verification policies applied when a verification element is missing.
const (
	VerifyFail          = "fail"
	VerifyAssumeSuccess = "assume-success"
)

// ErrMissingCredentials is returned by Validate when the remote provider is
// selected but the credentials are not set.
var ErrMissingCredentials = errors.New("remote provider credentials are not set (" + EnvProviderUsername + ", " + EnvProviderAccessKey + ")")

// Config holds the entire application configuration.
type Config struct {
	Logger       LoggerConfig       `mapstructure:"logger" yaml:"logger"`
	Provider     ProviderConfig     `mapstructure:"provider" yaml:"provider"`
	Target       TargetConfig       `mapstructure:"target" yaml:"target"`
	Interaction  InteractionConfig  `mapstructure:"interaction" yaml:"interaction"`
	Verification VerificationConfig `mapstructure:"verification" yaml:"verification"`
	Run          RunConfig          `mapstructure:"run" yaml:"run"`
	Local        LocalConfig        `mapstructure:"local" yaml:"local"`
	Humanoid     HumanoidConfig     `mapstructure:"humanoid" yaml:"humanoid"`
	// Platforms overrides the built-in platform list when non-empty.
	Platforms []PlatformSpec `mapstructure:"platforms" yaml:"platforms"`
	// Locators maps a step name to extra "kind=value" locators tried before
	// the built-in ones.
	Locators map[string][]string `mapstructure:"locators" yaml:"locators"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ProviderConfig selects and authenticates the browser provider.
type ProviderConfig struct {
	// Kind is "remote" (WebDriver hub) or "local" (Chrome via CDP).
	Kind      string `mapstructure:"kind" yaml:"kind"`
	HubURL    string `mapstructure:"hub_url" yaml:"hub_url"`
	Username  string `mapstructure:"username" yaml:"-"`
	AccessKey string `mapstructure:"access_key" yaml:"-"`
	// BuildName and ProjectName group sessions on the provider dashboard.
	BuildName   string `mapstructure:"build_name" yaml:"build_name"`
	ProjectName string `mapstructure:"project_name" yaml:"project_name"`
}

// TargetConfig describes the application under test and the workflow inputs.
type TargetConfig struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Account  string `mapstructure:"account" yaml:"account"`
	Password string `mapstructure:"password" yaml:"password"`
	Brand    string `mapstructure:"brand" yaml:"brand"`
	Product  string `mapstructure:"product" yaml:"product"`
}

// InteractionConfig tunes the retrying interactor and the pauses between steps.
type InteractionConfig struct {
	// Timeout bounds each locator attempt.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// MobileTimeout replaces Timeout on mobile platforms.
	MobileTimeout time.Duration `mapstructure:"mobile_timeout" yaml:"mobile_timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Settle        time.Duration `mapstructure:"settle" yaml:"settle"`
	MobileSettle  time.Duration `mapstructure:"mobile_settle" yaml:"mobile_settle"`
	// Strategies is the ordered click strategy chain.
	Strategies []string `mapstructure:"strategies" yaml:"strategies"`
}

// VerificationConfig decides how missing verification elements are treated.
type VerificationConfig struct {
	OnMissing string `mapstructure:"on_missing" yaml:"on_missing"`
}

// RunConfig holds session lifecycle settings.
type RunConfig struct {
	PageLoadTimeout       time.Duration `mapstructure:"page_load_timeout" yaml:"page_load_timeout"`
	MobilePageLoadTimeout time.Duration `mapstructure:"mobile_page_load_timeout" yaml:"mobile_page_load_timeout"`
	SessionRetryDelay     time.Duration `mapstructure:"session_retry_delay" yaml:"session_retry_delay"`
	ReasonLimit           int           `mapstructure:"reason_limit" yaml:"reason_limit"`
	ArtifactsDir          string        `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
	ReportStatus          bool          `mapstructure:"report_status" yaml:"report_status"`
	// MaxParallel caps concurrent sessions; zero runs every platform at once.
	MaxParallel int `mapstructure:"max_parallel" yaml:"max_parallel"`
}

// LocalConfig configures the local Chrome provider.
type LocalConfig struct {
	Headless bool     `mapstructure:"headless" yaml:"headless"`
	Width    int      `mapstructure:"width" yaml:"width"`
	Height   int      `mapstructure:"height" yaml:"height"`
	Args     []string `mapstructure:"args" yaml:"args"`
}

// PlatformSpec is a platform entry in the configuration file.
type PlatformSpec struct {
	Name           string         `mapstructure:"name" yaml:"name"`
	Family         string         `mapstructure:"family" yaml:"family"`
	Browser        string         `mapstructure:"browser" yaml:"browser"`
	BrowserVersion string         `mapstructure:"browser_version" yaml:"browser_version"`
	OS             string         `mapstructure:"os" yaml:"os"`
	OSVersion      string         `mapstructure:"os_version" yaml:"os_version"`
	Device         string         `mapstructure:"device" yaml:"device"`
	SessionRetries int            `mapstructure:"session_retries" yaml:"session_retries"`
	Options        map[string]any `mapstructure:"options" yaml:"options"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "crossbrowse")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Provider --
	v.SetDefault("provider.kind", ProviderRemote)
	v.SetDefault("provider.hub_url", "https://hub-cloud.browserstack.com/wd/hub")
	v.SetDefault("provider.build_name", "BStackDemo Complete Test Suite")
	v.SetDefault("provider.project_name", "E-commerce Full Flow Test")

	// -- Target --
	v.SetDefault("target.url", "https://bstackdemo.com/")
	v.SetDefault("target.account", "demouser")
	v.SetDefault("target.password", "testingisfun99")
	v.SetDefault("target.brand", "Samsung")
	v.SetDefault("target.product", "Galaxy S20+")

	// -- Interaction --
	v.SetDefault("interaction.timeout", "20s")
	v.SetDefault("interaction.mobile_timeout", "60s")
	v.SetDefault("interaction.poll_interval", "500ms")
	v.SetDefault("interaction.settle", "2s")
	v.SetDefault("interaction.mobile_settle", "3s")
	v.SetDefault("interaction.strategies", []string{"native", "script", "pointer"})

	// -- Verification --
	v.SetDefault("verification.on_missing", VerifyFail)

	// -- Run --
	v.SetDefault("run.page_load_timeout", "60s")
	v.SetDefault("run.mobile_page_load_timeout", "90s")
	v.SetDefault("run.session_retry_delay", "5s")
	v.SetDefault("run.reason_limit", 100)
	v.SetDefault("run.artifacts_dir", "artifacts")
	v.SetDefault("run.report_status", true)
	v.SetDefault("run.max_parallel", 0)

	// -- Local --
	v.SetDefault("local.headless", true)
	v.SetDefault("local.width", 1366)
	v.SetDefault("local.height", 900)

	setHumanoidDefaults(v)
}

// NewConfigFromViper creates a new, validated configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg, err := LoadFromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromViper unmarshals the configuration without validating it. Callers
// that apply further overrides validate afterwards.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Credentials come from the provider's conventional variables.
	if err := v.BindEnv("provider.username", EnvProviderUsername); err != nil {
		return nil, fmt.Errorf("binding %s: %w", EnvProviderUsername, err)
	}
	if err := v.BindEnv("provider.access_key", EnvProviderAccessKey); err != nil {
		return nil, fmt.Errorf("binding %s: %w", EnvProviderAccessKey, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv copies KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("setting %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) expandPaths() error {
	var err error
	if c.Run.ArtifactsDir, err = homedir.Expand(c.Run.ArtifactsDir); err != nil {
		return fmt.Errorf("expanding run.artifacts_dir: %w", err)
	}
	if c.Logger.LogFile, err = homedir.Expand(c.Logger.LogFile); err != nil {
		return fmt.Errorf("expanding logger.log_file: %w", err)
	}
	return nil
}

// Remote reports whether sessions are created on the remote hub.
func (c *Config) Remote() bool { return c.Provider.Kind != ProviderLocal }

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Provider.Kind {
	case ProviderRemote:
		if c.Provider.HubURL == "" {
			return fmt.Errorf("provider.hub_url is required for the remote provider")
		}
		if c.Provider.Username == "" || c.Provider.AccessKey == "" {
			return ErrMissingCredentials
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("provider.kind must be %q or %q, got %q", ProviderRemote, ProviderLocal, c.Provider.Kind)
	}
	if c.Target.URL == "" {
		return fmt.Errorf("target.url is required")
	}
	if c.Target.Product == "" || c.Target.Brand == "" {
		return fmt.Errorf("target.brand and target.product are required")
	}
	if c.Interaction.Timeout <= 0 {
		return fmt.Errorf("interaction.timeout must be a positive duration")
	}
	if c.Interaction.PollInterval <= 0 {
		return fmt.Errorf("interaction.poll_interval must be a positive duration")
	}
	if len(c.Interaction.Strategies) == 0 {
		return fmt.Errorf("interaction.strategies must name at least one strategy")
	}
	switch c.Verification.OnMissing {
	case VerifyFail, VerifyAssumeSuccess:
	default:
		return fmt.Errorf("verification.on_missing must be %q or %q", VerifyFail, VerifyAssumeSuccess)
	}
	if c.Run.ReasonLimit <= 0 {
		return fmt.Errorf("run.reason_limit must be a positive integer")
	}
	if c.Run.MaxParallel < 0 {
		return fmt.Errorf("run.max_parallel must not be negative")
	}
	for i, p := range c.Platforms {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("platforms[%d]: %w", i, err)
		}
	}
	if err := c.Humanoid.Validate(); err != nil {
		return fmt.Errorf("humanoid configuration invalid: %w", err)
	}
	return nil
}

// Validate checks a single platform entry.
func (p *PlatformSpec) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch p.Family {
	case "desktop":
		if p.Browser == "" || p.OS == "" {
			return fmt.Errorf("desktop platform %q needs browser and os", p.Name)
		}
	case "mobile":
		if p.Device == "" {
			return fmt.Errorf("mobile platform %q needs device", p.Name)
		}
	default:
		return fmt.Errorf("platform %q has unknown family %q", p.Name, p.Family)
	}
	return nil
}

// InteractionTimeout returns the per-attempt timeout for the given family.
func (c *Config) InteractionTimeout(mobile bool) time.Duration {
	if mobile && c.Interaction.MobileTimeout > 0 {
		return c.Interaction.MobileTimeout
	}
	return c.Interaction.Timeout
}

// SettleDelay returns the pause between workflow steps for the given family.
func (c *Config) SettleDelay(mobile bool) time.Duration {
	if mobile && c.Interaction.MobileSettle > 0 {
		return c.Interaction.MobileSettle
	}
	return c.Interaction.Settle
}

// PageLoadTimeout returns the page-load timeout for the given family.
func (c *Config) PageLoadTimeout(mobile bool) time.Duration {
	if mobile && c.Run.MobilePageLoadTimeout > 0 {
		return c.Run.MobilePageLoadTimeout
	}
	return c.Run.PageLoadTimeout
}
