package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"audtag/internal/shared"
)

const (
	RequestTimeout = 2 * time.Minute
	ConfigFileName = "audtag.yaml"
	LegacyFileName = "tasks.yaml"

	// ConfigHomeEnv overrides the home directory used for config lookup.
	ConfigHomeEnv = "AUDTAG_CONFIG_HOME"
)

// Settings holds the run-wide knobs read from the settings block.
type Settings struct {
	Workers          int    `koanf:"workers"`
	MaxRetryAttempts int    `koanf:"max_retry_attempts"`
	RatingFallback   string `koanf:"rating_fallback"`
	SearchURL        string `koanf:"search_url"`
}

// Task is one configured post-tagging operation.
type Task struct {
	Name          string `koanf:"name"`
	Type          string `koanf:"type"` // move, copy or rename
	Destination   string `koanf:"destination"`
	NamingPattern string `koanf:"naming_pattern"`
	Description   string `koanf:"description"`
}

// Config is the full parsed configuration file.
type Config struct {
	Settings Settings `koanf:"settings"`
	Tasks    []Task   `koanf:"tasks"`

	// Path is where the config was actually loaded from, empty when no
	// file was found and defaults are in effect.
	Path string `koanf:"-"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() Settings {
	return Settings{
		Workers:          runtime.NumCPU(),
		MaxRetryAttempts: shared.DefaultMaxRetries,
		RatingFallback:   "0.1",
	}
}

// ResolveConfigPath finds the config file to load. An explicit path wins;
// otherwise the current directory is tried before the user's home (or
// AUDTAG_CONFIG_HOME when set), then the legacy tasks.yaml name.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if !shared.FileExists(explicit) {
			return "", &shared.ConfigInvalidError{Path: explicit, Reason: "file does not exist"}
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	home := os.Getenv(ConfigHomeEnv)
	if home == "" {
		home, _ = os.UserHomeDir()
	}

	candidates := []string{
		filepath.Join(cwd, ConfigFileName),
		filepath.Join(home, ConfigFileName),
		filepath.Join(cwd, LegacyFileName),
	}
	for _, p := range candidates {
		if shared.FileExists(p) {
			return p, nil
		}
	}
	return "", nil
}

// Load reads and validates the configuration. A missing file is not an
// error; defaults apply and the task list is empty.
func Load(explicit string) (*Config, error) {
	path, err := ResolveConfigPath(explicit)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Settings: DefaultSettings()}
	if path == "" {
		return cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, &shared.ConfigInvalidError{Path: path, Reason: err.Error()}
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &shared.ConfigInvalidError{Path: path, Reason: err.Error()}
	}
	cfg.Path = path

	if cfg.Settings.Workers <= 0 {
		cfg.Settings.Workers = runtime.NumCPU()
	}
	if cfg.Settings.MaxRetryAttempts <= 0 {
		cfg.Settings.MaxRetryAttempts = shared.DefaultMaxRetries
	}
	if cfg.Settings.RatingFallback == "" {
		cfg.Settings.RatingFallback = "0.1"
	}

	if err := cfg.validateTasks(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validateTasks() error {
	seen := make(map[string]bool)
	for i, t := range c.Tasks {
		if t.Name == "" {
			return &shared.ConfigInvalidError{Path: c.Path, Reason: fmt.Sprintf("task %d has no name", i+1)}
		}
		if seen[t.Name] {
			return &shared.ConfigInvalidError{Path: c.Path, Reason: fmt.Sprintf("duplicate task name %q", t.Name)}
		}
		seen[t.Name] = true

		switch strings.ToLower(t.Type) {
		case "move", "copy", "rename":
		default:
			return &shared.ConfigInvalidError{Path: c.Path, Reason: fmt.Sprintf("task %q has unknown type %q", t.Name, t.Type)}
		}
		if strings.ToLower(t.Type) != "rename" && t.Destination == "" {
			return &shared.ConfigInvalidError{Path: c.Path, Reason: fmt.Sprintf("task %q has no destination", t.Name)}
		}
		if strings.ToLower(t.Type) == "rename" && t.NamingPattern == "" {
			return &shared.ConfigInvalidError{Path: c.Path, Reason: fmt.Sprintf("rename task %q has no naming_pattern", t.Name)}
		}
	}
	return nil
}

// FindTask looks up a configured task by name.
func (c *Config) FindTask(name string) (*Task, error) {
	for i := range c.Tasks {
		if c.Tasks[i].Name == name {
			return &c.Tasks[i], nil
		}
	}
	available := make([]string, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		available = append(available, t.Name)
	}
	if len(available) == 0 {
		return nil, &shared.ConfigInvalidError{Path: c.Path, Reason: fmt.Sprintf("task %q not found; no tasks are configured", name)}
	}
	return nil, &shared.ConfigInvalidError{Path: c.Path, Reason: fmt.Sprintf("task %q not found; available: %s", name, strings.Join(available, ", "))}
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
