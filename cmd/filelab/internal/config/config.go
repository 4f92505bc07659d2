package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"
)

// FileName is the optional project configuration file.
const FileName = "filelab.yaml"

// Config represents the optional filelab.yaml configuration.
type Config struct {
	App    AppConfig    `yaml:"app"`
	Device DeviceConfig `yaml:"device"`
	Log    LogConfig    `yaml:"log"`
}

// AppConfig contains application metadata.
type AppConfig struct {
	Name string `yaml:"name,omitempty"`
	ID   string `yaml:"id,omitempty"`
}

// DeviceConfig describes the emulated device.
type DeviceConfig struct {
	// Root is the host directory holding the device filesystem.
	Root string `yaml:"root,omitempty"`
	SDK  int    `yaml:"sdk,omitempty"`
	// ExternalStorage is the mount state: mounted, mounted_ro, unmounted, ...
	ExternalStorage string            `yaml:"external_storage,omitempty"`
	Permissions     map[string]string `yaml:"permissions,omitempty"`
	Rationale       map[string]bool   `yaml:"rationale,omitempty"`
	NoPicker        bool              `yaml:"no_picker,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// envOverrides are read from the environment after filelab.yaml.
type envOverrides struct {
	Root            string `env:"FILELAB_ROOT"`
	SDK             int    `env:"FILELAB_SDK"`
	ExternalStorage string `env:"FILELAB_EXTERNAL_STORAGE"`
	NoPicker        *bool  `env:"FILELAB_NO_PICKER"`
	LogLevel        string `env:"FILELAB_LOG_LEVEL"`
}

// Defaults for values neither the file nor the environment set.
const (
	DefaultSDK             = 30
	DefaultExternalStorage = "mounted"
	DefaultLogLevel        = "info"
	defaultDeviceDir       = ".filelab"
)

// Resolved contains resolved configuration values.
type Resolved struct {
	Root       string
	ModulePath string
	AppName    string
	AppID      string
	Device     DeviceConfig
	LogLevel   string
}

// LoadOptional reads filelab.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	return loadFile(filepath.Join(dir, FileName), true)
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	return loadFile(path, false)
}

func loadFile(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	return &cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Resolve loads the configuration for the project in dir and resolves
// defaults. An empty file means filelab.yaml in dir, if present. The
// environment overrides the file.
func Resolve(dir, file string) (*Resolved, error) {
	modulePath, err := modulePath(dir)
	if err != nil {
		return nil, err
	}

	var cfg *Config
	if file != "" {
		cfg, err = Load(file)
	} else {
		cfg, err = LoadOptional(dir)
	}
	if err != nil {
		return nil, err
	}

	var overrides envOverrides
	if err := ParseEnv(&overrides); err != nil {
		return nil, err
	}
	cfg.apply(overrides)

	appName := strings.TrimSpace(cfg.App.Name)
	if appName == "" {
		appName = defaultAppName(modulePath, dir)
	}

	appID := strings.TrimSpace(cfg.App.ID)
	if appID == "" {
		appID = defaultAppID(modulePath, appName)
	}
	if err := validateAppID(appID); err != nil {
		return nil, err
	}

	device := cfg.Device
	if device.Root == "" {
		device.Root = filepath.Join(dir, defaultDeviceDir, "device")
	}
	if device.SDK == 0 {
		device.SDK = DefaultSDK
	}
	if device.ExternalStorage == "" {
		device.ExternalStorage = DefaultExternalStorage
	}

	logLevel := strings.TrimSpace(cfg.Log.Level)
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	return &Resolved{
		Root:       dir,
		ModulePath: modulePath,
		AppName:    appName,
		AppID:      appID,
		Device:     device,
		LogLevel:   logLevel,
	}, nil
}

func (c *Config) apply(o envOverrides) {
	if o.Root != "" {
		c.Device.Root = o.Root
	}
	if o.SDK != 0 {
		c.Device.SDK = o.SDK
	}
	if o.ExternalStorage != "" {
		c.Device.ExternalStorage = o.ExternalStorage
	}
	if o.NoPicker != nil {
		c.Device.NoPicker = *o.NoPicker
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
}

// FindProjectRoot walks up from the current directory to find go.mod.
// Outside a Go module the current directory is used.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// modulePath returns the module path declared in dir/go.mod, or "" when
// there is no go.mod.
func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	modName, _, ok := module.SplitPathVersion(modulePath)
	if ok && modName != "" {
		parts := strings.Split(modName, "/")
		base = parts[len(parts)-1]
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "filelab"
	}
	return base
}

// defaultAppID reverses the module host and appends the path, so
// github.com/go-drift/filelab becomes com.github.godrift.filelab.
func defaultAppID(modulePath, appName string) string {
	parts := strings.Split(modulePath, "/")
	if len(parts) < 2 || !strings.Contains(parts[0], ".") {
		return fmt.Sprintf("com.example.%s", sanitizeSegment(appName, false))
	}

	host := strings.Split(parts[0], ".")
	for i, j := 0, len(host)-1; i < j; i, j = i+1, j-1 {
		host[i], host[j] = host[j], host[i]
	}

	var pathParts []string
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		pathParts = append(pathParts, p)
	}

	segments := append(host, pathParts...)
	for i, segment := range segments {
		segments[i] = sanitizeSegment(segment, false)
	}

	return strings.Join(segments, ".")
}

// sanitizeSegment lowercases segment and drops characters a package name
// segment cannot hold.
func sanitizeSegment(segment string, allowLeadingDigit bool) string {
	segment = strings.TrimSpace(segment)

	var out []rune
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		}
	}

	if len(out) == 0 {
		out = []rune("app")
	}

	if !allowLeadingDigit && out[0] >= '0' && out[0] <= '9' {
		out = append([]rune{'a'}, out...)
	}

	return string(out)
}

func validateAppID(appID string) error {
	if !strings.Contains(appID, ".") {
		return fmt.Errorf("app.id must contain at least one '.' (got %q)", appID)
	}
	for _, segment := range strings.Split(appID, ".") {
		if segment == "" {
			return fmt.Errorf("app.id contains an empty segment (%q)", appID)
		}
		if segment[0] >= '0' && segment[0] <= '9' {
			return fmt.Errorf("app.id segments cannot start with a digit (%q)", appID)
		}
		if segment[0] == '_' {
			return fmt.Errorf("app.id segments cannot start with '_' (%q)", appID)
		}
		for _, r := range segment {
			if !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
				return fmt.Errorf("app.id contains invalid character %q in %q", r, appID)
			}
		}
	}
	return nil
}
