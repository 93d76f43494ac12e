// Package config holds Scout's runtime configuration: listen address,
// authentication, pagination, and the FTS engine knobs, loaded with
// defaults < config file < environment < CLI flag precedence.
package config

// Config represents the complete Scout configuration. It can be loaded
// from a YAML config file with environment variable and flag overrides.
type Config struct {
	Host            string `yaml:"host" mapstructure:"host"`
	Port            int    `yaml:"port" mapstructure:"port"`
	Debug           bool   `yaml:"debug" mapstructure:"debug"`
	Authentication  string `yaml:"authentication" mapstructure:"authentication"`
	PaginateBy      int    `yaml:"paginate_by" mapstructure:"paginate_by"`
	PageVar         string `yaml:"page_var" mapstructure:"page_var"`
	Stem            string `yaml:"stem" mapstructure:"stem"`
	// SearchExtension is "FTS5", "FTS4", "FTS3", or "" to auto-detect the
	// best tier the compiled-in driver supports at database-open time.
	SearchExtension string `yaml:"search_extension" mapstructure:"search_extension"`
	StarAll         bool   `yaml:"star_all" mapstructure:"star_all"`
	URLPrefix       string `yaml:"url_prefix" mapstructure:"url_prefix"`
	CExtensions     bool   `yaml:"c_extensions" mapstructure:"c_extensions"`
	Database        string `yaml:"database" mapstructure:"database"`
	Logfile         string `yaml:"logfile" mapstructure:"logfile"`

	Pragmas PragmaConfig `yaml:"sqlite_pragmas" mapstructure:"sqlite_pragmas"`
}

// PragmaConfig captures the startup pragmas applied to every connection.
type PragmaConfig struct {
	JournalMode string  `yaml:"journal_mode" mapstructure:"journal_mode"`
	Synchronous int     `yaml:"synchronous" mapstructure:"synchronous"`
	CacheSizeMB float64 `yaml:"cache_size_mb" mapstructure:"cache_size_mb"`
}

// Default returns a configuration with sensible defaults, matching the
// defaults table in Scout's external interfaces documentation.
func Default() *Config {
	return &Config{
		Host:            "127.0.0.1",
		Port:            8000,
		Debug:           false,
		Authentication:  "",
		PaginateBy:      50,
		PageVar:         "page",
		Stem:            "porter",
		SearchExtension: "",
		StarAll:         false,
		URLPrefix:       "",
		CExtensions:     true,
		Database:        "",
		Logfile:         "",
		Pragmas: PragmaConfig{
			JournalMode: "WAL",
			Synchronous: 0,
			CacheSizeMB: 64,
		},
	}
}
