package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHost     = "localhost"
	DefaultPort     = 9200
	DefaultUsername = "elastic"
	DefaultPassword = "changeme"
	DefaultTimeout  = 30 * time.Second
)

// Drivers select the client library used to talk to the cluster.
const (
	DriverESAPI    = "esapi"
	DriverLowLevel = "lowlevel"
	DriverResty    = "resty"
)

var Drivers = []string{DriverESAPI, DriverLowLevel, DriverResty}

// Refresh policies passed on document writes.
const (
	RefreshWaitFor = "wait_for"
	RefreshTrue    = "true"
	RefreshFalse   = "false"
)

type Config struct {
	Host     string
	Username string
	Password string

	Driver   string
	Timeout  time.Duration
	Refresh  string
	Insecure bool
	LogLevel string

	AWSRegion  string
	AWSProfile string
	AWSService string
}

// fileConfig mirrors ~/.esprobe/config.yaml.
type fileConfig struct {
	URL        string `yaml:"url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Driver     string `yaml:"driver"`
	Timeout    string `yaml:"timeout"`
	Refresh    string `yaml:"refresh"`
	Insecure   bool   `yaml:"insecure"`
	LogLevel   string `yaml:"log_level"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"`
	AWSService string `yaml:"aws_service"`
}

func ParseURL(rawURL string) (*Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid URL: missing scheme or host")
	}

	cfg := &Config{
		Host: fmt.Sprintf("%s://%s", u.Scheme, u.Host),
	}

	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}

	return cfg, nil
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".esprobe"), nil
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

func configPath() (string, error) {
	if p := os.Getenv("ESPROBE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &fc, nil
}

// Load resolves the cluster address from the flag, ES_URL, ES_HOST/ES_PORT,
// the config file and finally localhost:9200. Credentials embedded in the URL
// win over ES_USER/ES_PASSWORD, which win over the file and the defaults.
func Load(flagURL string) (*Config, error) {
	_ = godotenv.Load()

	path, err := configPath()
	if err != nil {
		return nil, err
	}
	fc, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	return load(flagURL, fc)
}

func load(flagURL string, fc *fileConfig) (*Config, error) {
	rawURL := flagURL
	if rawURL == "" {
		rawURL = os.Getenv("ES_URL")
	}
	if rawURL == "" {
		rawURL = hostPortURL()
	}
	if rawURL == "" {
		rawURL = fc.URL
	}
	if rawURL == "" {
		rawURL = fmt.Sprintf("http://%s:%d", DefaultHost, DefaultPort)
	}

	cfg, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	if cfg.Username == "" {
		cfg.Username = firstNonEmpty(os.Getenv("ES_USER"), fc.Username, DefaultUsername)
		cfg.Password = firstNonEmpty(os.Getenv("ES_PASSWORD"), fc.Password, DefaultPassword)
	}

	cfg.Driver = firstNonEmpty(os.Getenv("ES_DRIVER"), fc.Driver, DriverESAPI)
	cfg.Refresh = firstNonEmpty(os.Getenv("ES_REFRESH"), fc.Refresh, RefreshWaitFor)
	cfg.LogLevel = firstNonEmpty(os.Getenv("LOG_LEVEL"), fc.LogLevel, "info")
	cfg.AWSRegion = firstNonEmpty(os.Getenv("AWS_ES_REGION"), fc.AWSRegion)
	cfg.AWSProfile = firstNonEmpty(os.Getenv("AWS_PROFILE"), fc.AWSProfile)
	cfg.AWSService = firstNonEmpty(fc.AWSService, "es")
	cfg.Insecure = fc.Insecure

	if v := os.Getenv("ES_INSECURE"); v != "" {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ES_INSECURE %q: %w", v, err)
		}
		cfg.Insecure = insecure
	}

	cfg.Timeout = DefaultTimeout
	if raw := firstNonEmpty(os.Getenv("ES_TIMEOUT"), fc.Timeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", raw, err)
		}
		cfg.Timeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// hostPortURL builds a URL from ES_HOST and ES_PORT when either is set.
func hostPortURL() string {
	host := os.Getenv("ES_HOST")
	port := os.Getenv("ES_PORT")
	if host == "" && port == "" {
		return ""
	}
	if host == "" {
		host = DefaultHost
	}
	if port == "" {
		port = strconv.Itoa(DefaultPort)
	}
	return "http://" + net.JoinHostPort(host, port)
}

func (c *Config) Validate() error {
	if !IsDriver(c.Driver) {
		return fmt.Errorf("unknown driver %q (want one of %s)", c.Driver, strings.Join(Drivers, ", "))
	}
	switch c.Refresh {
	case RefreshWaitFor, RefreshTrue, RefreshFalse:
	default:
		return fmt.Errorf("unknown refresh policy %q", c.Refresh)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func IsDriver(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}

// WithDriver returns a copy of c that uses the given driver.
func (c *Config) WithDriver(driver string) *Config {
	cp := *c
	cp.Driver = driver
	return &cp
}

func (c *Config) MaskedURL() string {
	u, _ := url.Parse(c.Host)
	if c.Username != "" {
		return fmt.Sprintf("%s:***@%s", c.Username, u.Host)
	}
	return u.Host
}

func (c *Config) DisplayHost() string {
	u, _ := url.Parse(c.Host)
	return strings.TrimPrefix(u.Host, "www.")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
