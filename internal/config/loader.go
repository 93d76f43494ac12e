package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from defaults, an optional config file,
	// environment variables, and (if bound) CLI flags, highest wins.
	Load() (*Config, error)
}

type loader struct {
	configFile string
	flags      *pflag.FlagSet
}

// NewLoader creates a configuration loader. configFile may be empty, in
// which case Load looks for a "scout" config file (scout.yaml etc.) in
// the current directory and carries on without one if none is found.
// flags, if non-nil, is bound so
// that explicitly-set CLI flags take precedence over everything else.
func NewLoader(configFile string, flags *pflag.FlagSet) Loader {
	return &loader{configFile: configFile, flags: flags}
}

// Load loads configuration with the following priority (highest to
// lowest): CLI flags, environment variables (SCOUT_*), config file,
// built-in defaults.
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("scout")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCOUT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range boundEnvKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env var for %s: %w", key, err)
		}
	}

	setDefaults(v)

	if l.flags != nil {
		if err := bindFlags(v, l.flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var boundEnvKeys = []string{
	"host", "port", "debug", "authentication", "paginate_by", "page_var",
	"stem", "search_extension", "star_all", "url_prefix", "c_extensions",
	"database", "logfile",
	"sqlite_pragmas.journal_mode", "sqlite_pragmas.synchronous", "sqlite_pragmas.cache_size_mb",
}

// flagToKey maps a CLI flag name to its viper config key, following
// the long flag names in the CLI flags table.
// fsync is intentionally absent here: it is a bool flag overlaying an
// int config key (synchronous), so internal/cli applies it by hand
// after Load returns rather than through viper's flag binding.
var flagToKey = map[string]string{
	"host":             "host",
	"port":             "port",
	"url-prefix":       "url_prefix",
	"stem":             "stem",
	"debug":            "debug",
	"paginate-by":      "paginate_by",
	"api-key":          "authentication",
	"cache-size":       "sqlite_pragmas.cache_size_mb",
	"journal-mode":     "sqlite_pragmas.journal_mode",
	"logfile":          "logfile",
	"search-extension": "search_extension",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for flagName, key := range flagToKey {
		f := flags.Lookup(flagName)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// setDefaults configures viper with Scout's default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("authentication", d.Authentication)
	v.SetDefault("paginate_by", d.PaginateBy)
	v.SetDefault("page_var", d.PageVar)
	v.SetDefault("stem", d.Stem)
	v.SetDefault("search_extension", d.SearchExtension)
	v.SetDefault("star_all", d.StarAll)
	v.SetDefault("url_prefix", d.URLPrefix)
	v.SetDefault("c_extensions", d.CExtensions)
	v.SetDefault("database", d.Database)
	v.SetDefault("logfile", d.Logfile)

	v.SetDefault("sqlite_pragmas.journal_mode", d.Pragmas.JournalMode)
	v.SetDefault("sqlite_pragmas.synchronous", d.Pragmas.Synchronous)
	v.SetDefault("sqlite_pragmas.cache_size_mb", d.Pragmas.CacheSizeMB)
}
