package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "loadwatch.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/loadwatch"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. LOADWATCH_COLLECTION_INTERVAL.
	EnvPrefix = "LOADWATCH"
)

// Load reads config from the specified path. An empty path searches the
// default locations and falls back to defaults plus environment overrides
// when no file exists.
func Load(path string) (*Config, error) {
	found, err := Find(path)
	if err != nil {
		return nil, err
	}

	v := newViper()
	if found != "" {
		v.SetConfigFile(found)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check "+found+" exists and is valid YAML")
		}
	}

	cfg, err := parseConfig(v, found)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. loadwatch.yaml in current directory
// 3. ~/.config/loadwatch/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, ConfigFileName)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// newViper returns a viper instance with defaults and environment binding.
// Every key gets a default so AutomaticEnv can see it during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("collection.interval", d.Collection.Interval)
	v.SetDefault("collection.timeout", d.Collection.Timeout)
	v.SetDefault("collection.concurrency", d.Collection.Concurrency)
	v.SetDefault("collection.run_on_start", d.Collection.RunOnStart)
	v.SetDefault("retention.window", d.Retention.Window)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("ssh.strict_host_key_checking", d.SSH.StrictHostKeyChecking)
	v.SetDefault("ssh.known_hosts", d.SSH.KnownHosts)
	v.SetDefault("ssh.use_agent", d.SSH.UseAgent)
	v.SetDefault("ssh.load_command", d.SSH.LoadCommand)
	v.SetDefault("ssh.memory_command", d.SSH.MemoryCommand)
	v.SetDefault("api.enabled", d.API.Enabled)
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.default_limit", d.API.DefaultLimit)
	v.SetDefault("api.max_limit", d.API.MaxLimit)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "your environment overrides"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the values in "+where)
	}

	cfg.SSH.KnownHosts = ExpandPath(cfg.SSH.KnownHosts)
	cfg.Database.Path = ExpandPath(cfg.Database.Path)

	return cfg, nil
}
