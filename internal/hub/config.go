package hub

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"agents-chat/internal/conversation"
	"agents-chat/internal/kv"
	"agents-chat/internal/session"
)

type Config struct {
	DataDir     string `yaml:"data_dir"`
	CatalogPath string `yaml:"catalog_path"`
	Storage     struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"storage"`
	Session struct {
		ReplyDelay     time.Duration `yaml:"reply_delay"`
		MaxMessages    int           `yaml:"max_messages"`
		CancelOnSwitch bool          `yaml:"cancel_on_switch"`
	} `yaml:"session"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
		File   string `yaml:"file"`
	} `yaml:"logging"`
	// Ephemeral keeps history and settings in memory only.
	Ephemeral bool `yaml:"-"`
}

func DefaultConfig() Config {
	cfg := Config{}
	cfg.DataDir = defaultDataDir()
	cfg.Storage.Driver = kv.DriverBolt
	cfg.Session.ReplyDelay = session.DefaultReplyDelay
	cfg.Session.MaxMessages = conversation.MaxMessages
	cfg.Logging.Level = "info"
	return cfg
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".agents-chat")
}

// LoadConfig reads a YAML file over the defaults and applies environment overrides.
// An empty path or a missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parse config %s", path)
			}
		case os.IsNotExist(err):
		default:
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
	}
	cfg.applyEnvOverrides()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("AGENTS_CHAT_DATA_DIR")); v != "" {
		c.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENTS_CHAT_STORAGE")); v != "" {
		c.Storage.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENTS_CHAT_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "", kv.DriverBolt, kv.DriverSQLite, kv.DriverFile, kv.DriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Session.ReplyDelay < 0 {
		return errors.New("session.reply_delay must not be negative")
	}
	if c.Session.MaxMessages < 0 {
		return errors.New("session.max_messages must not be negative")
	}
	return nil
}

// StorageOptions resolves the kv backend, forcing memory when the config is ephemeral.
func (c Config) StorageOptions() kv.Options {
	if c.Ephemeral {
		return kv.Options{Driver: kv.DriverMemory}
	}
	return kv.Options{Driver: c.Storage.Driver, Path: c.Storage.Path, DataDir: c.DataDir}
}

// LogFile is where the TUI sends logs while it owns the terminal.
func (c Config) LogFile() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(c.DataDir, "agents-chat.log")
}
