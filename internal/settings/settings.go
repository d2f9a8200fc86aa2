// Package settings loads the connection preferences for the inventory server.
//
// The preferences file lives at ~/Library/Preferences/com.github.mvc2c.plist
// and, despite its extension, holds a JSON object:
//
//	{
//	    "jss_url":    "https://jss.example.com:8443",
//	    "jss_user":   "api-user",
//	    "jss_pass":   "secret",
//	    "jss_verify": 0,
//	    "jss_warn":   1
//	}
//
// YAML is accepted as well since it is decoded with yaml.v3. Any value can be
// overridden with an MVC2C_* environment variable.
package settings

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

// FileName is the base name of the preferences file.
const FileName = "com.github.mvc2c.plist"

// Settings mirrors the preferences file.
type Settings struct {
	URL      string `yaml:"jss_url"`
	User     string `yaml:"jss_user"`
	Password string `yaml:"jss_pass"`
	// Verify is false for servers with self-signed certificates.
	Verify Flag `yaml:"jss_verify"`
	// Warn suppresses the insecure-TLS warning when set.
	Warn Flag `yaml:"jss_warn"`

	LogLevel string        `yaml:"log_level"`
	LogFile  string        `yaml:"log_file"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ConnectionConfig is the subset of Settings the directory client needs.
type ConnectionConfig struct {
	ServerURL           string
	User                string
	Password            string
	VerifyTLS           bool
	SuppressTLSWarnings bool
	Timeout             time.Duration
}

// overrides holds MVC2C_* environment values. Empty means unset.
type overrides struct {
	URL      string `env:"MVC2C_JSS_URL"`
	User     string `env:"MVC2C_JSS_USER"`
	Password string `env:"MVC2C_JSS_PASS"`
	Verify   string `env:"MVC2C_JSS_VERIFY"`
	Warn     string `env:"MVC2C_JSS_WARN"`
	LogLevel string `env:"MVC2C_LOG_LEVEL"`
	LogFile  string `env:"MVC2C_LOG_FILE"`
}

// DefaultPath returns ~/Library/Preferences/com.github.mvc2c.plist.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, "Library", "Preferences", FileName), nil
}

// Load reads the preferences at path and applies environment overrides from
// the process environment.
func Load(path string) (*Settings, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment. A nil map means the
// process environment.
//
// A missing file is not an error when the environment supplies the
// connection values; Validate reports whatever is still absent.
func LoadWithEnv(path string, environ map[string]string) (*Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", path, err)
		}
	}

	var o overrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := s.apply(o); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) apply(o overrides) error {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&s.URL, o.URL)
	set(&s.User, o.User)
	set(&s.Password, o.Password)
	set(&s.LogLevel, o.LogLevel)
	set(&s.LogFile, o.LogFile)

	for _, f := range []struct {
		name string
		raw  string
		dst  *Flag
	}{
		{"MVC2C_JSS_VERIFY", o.Verify, &s.Verify},
		{"MVC2C_JSS_WARN", o.Warn, &s.Warn},
	} {
		if f.raw == "" {
			continue
		}
		if err := f.dst.UnmarshalText([]byte(f.raw)); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

// Validate checks that the connection values are usable.
func (s *Settings) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("jss_url is required (or set MVC2C_JSS_URL)")
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("jss_url %q must be a full http(s) url including the port", s.URL)
	}
	if s.User == "" {
		return fmt.Errorf("jss_user is required (or set MVC2C_JSS_USER)")
	}
	if s.Password == "" {
		return fmt.Errorf("jss_pass is required (or set MVC2C_JSS_PASS)")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// Connection returns the values consumed by the directory client.
func (s *Settings) Connection() ConnectionConfig {
	return ConnectionConfig{
		ServerURL:           strings.TrimRight(s.URL, "/"),
		User:                s.User,
		Password:            s.Password,
		VerifyTLS:           bool(s.Verify),
		SuppressTLSWarnings: bool(s.Warn),
		Timeout:             s.Timeout,
	}
}

// ---------------------------------------------------------------------------
// Flag
// ---------------------------------------------------------------------------

// Flag is a boolean that also accepts 0/1, the form the preferences files
// have always used.
type Flag bool

// UnmarshalYAML accepts booleans, integers and their string forms.
func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a boolean or 0/1", value.Line)
	}
	if err := f.UnmarshalText([]byte(value.Value)); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	return nil
}

// UnmarshalText parses the value with strconv.ParseBool semantics, plus
// yes/no and any integer (non-zero is true).
func (f *Flag) UnmarshalText(text []byte) error {
	raw := strings.ToLower(strings.TrimSpace(string(text)))
	switch raw {
	case "yes", "on":
		*f = true
		return nil
	case "no", "off", "":
		*f = false
		return nil
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		*f = Flag(b)
		return nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		*f = n != 0
		return nil
	}
	return fmt.Errorf("invalid boolean %q", string(text))
}
