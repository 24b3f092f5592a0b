package common

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the probe configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "ci" - informational, logged at startup
	Frontend    FrontendConfig  `toml:"frontend"`
	Backend     BackendConfig   `toml:"backend"`
	Account     AccountConfig   `toml:"account"`
	Browser     BrowserConfig   `toml:"browser"`
	Wait        WaitConfig      `toml:"wait"`
	Scenarios   ScenariosConfig `toml:"scenarios"`
	Output      OutputConfig    `toml:"output"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Schedule    ScheduleConfig  `toml:"schedule"`
}

// FrontendConfig describes the UI server under test
type FrontendConfig struct {
	BaseURL string `toml:"base_url" validate:"required,url"`
}

// BackendConfig describes the API server used for account provisioning
type BackendConfig struct {
	Scheme         string  `toml:"scheme" validate:"oneof=http https"`
	Host           string  `toml:"host" validate:"required"`
	Port           int     `toml:"port" validate:"min=1,max=65535"`
	SignupPath     string  `toml:"signup_path" validate:"required,startswith=/"`
	RequestTimeout string  `toml:"request_timeout"` // e.g. "10s"
	RateLimit      float64 `toml:"rate_limit" validate:"gte=0"` // signup requests per second, 0 disables throttling
}

// AccountConfig controls generated test accounts
type AccountConfig struct {
	UsernamePrefix string `toml:"username_prefix" validate:"required,alphanum"`
	EmailDomain    string `toml:"email_domain" validate:"required,fqdn"`
	Password       string `toml:"password" validate:"required"`
}

// BrowserConfig controls the headless Chrome session
type BrowserConfig struct {
	Headless        bool   `toml:"headless"`
	NoSandbox       bool   `toml:"no_sandbox"`
	DisableGPU      bool   `toml:"disable_gpu"`
	DisableDevShm   bool   `toml:"disable_dev_shm"`
	WindowWidth     int    `toml:"window_width" validate:"min=320"`
	WindowHeight    int    `toml:"window_height" validate:"min=240"`
	ExecPath        string `toml:"exec_path"`        // Chrome binary, empty = chromedp lookup
	ElementTimeout  string `toml:"element_timeout"`  // How long a form field lookup may take
	ScenarioTimeout string `toml:"scenario_timeout"` // Hard cap for one scenario
}

// WaitConfig controls post-action condition polling
type WaitConfig struct {
	Timeout      string `toml:"timeout"`
	PollInterval string `toml:"poll_interval"`
}

// ScenariosConfig selects and extends the scenario catalogue
type ScenariosConfig struct {
	Dir     string   `toml:"dir"`     // Directory of *.toml / *.yaml scenario files
	Enabled []string `toml:"enabled"` // Names to run, empty = all
}

type OutputConfig struct {
	ResultsBaseDir string `toml:"results_base_dir"`
	Screenshots    bool   `toml:"screenshots"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents the ledger database configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output"` // "stdout", "file"
	TimeFormat string   `toml:"time_format"`
}

// ScheduleConfig enables repeated probing
type ScheduleConfig struct {
	Cron string `toml:"cron"` // e.g. "@every 10m", empty = run once
}

// NewDefaultConfig returns a configuration matching the local dev setup
// (Vite front-end on 5173, API on 3000).
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Frontend: FrontendConfig{
			BaseURL: "http://localhost:5173",
		},
		Backend: BackendConfig{
			Scheme:         "http",
			Host:           "localhost",
			Port:           3000,
			SignupPath:     "/api/signup",
			RequestTimeout: "10s",
			RateLimit:      2,
		},
		Account: AccountConfig{
			UsernamePrefix: "seleniumuser",
			EmailDomain:    "example.com",
			Password:       "ValidPass123!",
		},
		Browser: BrowserConfig{
			Headless:        true,
			NoSandbox:       true,
			DisableGPU:      true,
			DisableDevShm:   true,
			WindowWidth:     1920,
			WindowHeight:    1080,
			ElementTimeout:  "5s",
			ScenarioTimeout: "90s",
		},
		Wait: WaitConfig{
			Timeout:      "10s",
			PollInterval: "250ms",
		},
		Output: OutputConfig{
			ResultsBaseDir: "./results",
			Screenshots:    true,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/ledger",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFile loads a single configuration file over the defaults
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// LoadFromFiles loads defaults, then each file in order (later files
// override earlier ones), then environment overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("WEBPROBE_ENV"); env != "" {
		config.Environment = env
	}

	if frontend := os.Getenv("WEBPROBE_FRONTEND_URL"); frontend != "" {
		config.Frontend.BaseURL = frontend
	}

	if host := os.Getenv("WEBPROBE_BACKEND_HOST"); host != "" {
		config.Backend.Host = host
	}
	// BACKEND_PORT is what the CI scripts export; the prefixed variable wins
	if port := os.Getenv("BACKEND_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Backend.Port = p
		}
	}
	if port := os.Getenv("WEBPROBE_BACKEND_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Backend.Port = p
		}
	}

	if password := os.Getenv("WEBPROBE_ACCOUNT_PASSWORD"); password != "" {
		config.Account.Password = password
	}

	if execPath := os.Getenv("WEBPROBE_BROWSER_EXEC_PATH"); execPath != "" {
		config.Browser.ExecPath = execPath
	}
	if headless := os.Getenv("WEBPROBE_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}

	if timeout := os.Getenv("WEBPROBE_WAIT_TIMEOUT"); timeout != "" {
		if _, err := time.ParseDuration(timeout); err == nil {
			config.Wait.Timeout = timeout
		}
	}

	if dir := os.Getenv("WEBPROBE_RESULTS_DIR"); dir != "" {
		config.Output.ResultsBaseDir = dir
	}
	if path := os.Getenv("WEBPROBE_LEDGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("WEBPROBE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("WEBPROBE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if schedule := os.Getenv("WEBPROBE_SCHEDULE"); schedule != "" {
		config.Schedule.Cron = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
// Flags have highest priority
func ApplyFlagOverrides(config *Config, frontendURL string, backendPort int, schedule string) {
	if frontendURL != "" {
		config.Frontend.BaseURL = frontendURL
	}
	if backendPort > 0 {
		config.Backend.Port = backendPort
	}
	if schedule != "" {
		config.Schedule.Cron = schedule
	}
}

// Validate checks struct constraints and duration strings
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"backend.request_timeout":  c.Backend.RequestTimeout,
		"browser.element_timeout":  c.Browser.ElementTimeout,
		"browser.scenario_timeout": c.Browser.ScenarioTimeout,
		"wait.timeout":             c.Wait.Timeout,
		"wait.poll_interval":       c.Wait.PollInterval,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s=%q is not a duration: %w", key, value, err)
		}
	}
	return nil
}

// BackendURL returns the API base URL, e.g. http://localhost:3000
func (c *Config) BackendURL() string {
	scheme := c.Backend.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Backend.Host, c.Backend.Port)
}

// SignupURL returns the absolute provisioning endpoint
func (c *Config) SignupURL() string {
	return c.BackendURL() + c.Backend.SignupPath
}

// RouteURL joins a front-end route onto the configured base URL.
// Absolute URLs are returned unchanged.
func (c *Config) RouteURL(route string) string {
	if u, err := url.Parse(route); err == nil && u.IsAbs() {
		return route
	}
	base := strings.TrimRight(c.Frontend.BaseURL, "/")
	if route == "" {
		return base
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return base + route
}

// RequestTimeout returns the provisioning HTTP timeout (default 10s)
func (c *Config) RequestTimeout() time.Duration {
	return parseDurationOr(c.Backend.RequestTimeout, 10*time.Second)
}

// ElementTimeout returns the form-field lookup timeout (default 5s)
func (c *Config) ElementTimeout() time.Duration {
	return parseDurationOr(c.Browser.ElementTimeout, 5*time.Second)
}

// ScenarioTimeout returns the per-scenario hard cap (default 90s)
func (c *Config) ScenarioTimeout() time.Duration {
	return parseDurationOr(c.Browser.ScenarioTimeout, 90*time.Second)
}

// WaitTimeout returns the default post-action wait bound (default 10s)
func (c *Config) WaitTimeout() time.Duration {
	return parseDurationOr(c.Wait.Timeout, 10*time.Second)
}

// PollInterval returns the condition polling interval (default 250ms)
func (c *Config) PollInterval() time.Duration {
	return parseDurationOr(c.Wait.PollInterval, 250*time.Millisecond)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
