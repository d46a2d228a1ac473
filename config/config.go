package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"banks-etl/storage"
)

// DefaultSourceURL is the archived snapshot of the "List of largest banks" page.
const DefaultSourceURL = "https://web.archive.org/web/20230908091635/https://en.wikipedia.org/wiki/List_of_largest_banks"

// Config holds all pipeline configuration. Sources, in increasing priority:
// defaults, config.yaml, .env / environment (BANKS_ prefix), CLI flags.
type Config struct {
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Rates     RatesConfig     `yaml:"rates" mapstructure:"rates"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Transform TransformConfig `yaml:"transform" mapstructure:"transform"`
}

// SourceConfig locates the page holding the banks table.
type SourceConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// RatesConfig locates the exchange-rate table (CSV or XLSX).
type RatesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig controls the flat-file sink.
type OutputConfig struct {
	CSVPath string `yaml:"csv_path" mapstructure:"csv_path"`
}

// StoreConfig configures the relational sink.
type StoreConfig struct {
	Driver       string         `yaml:"driver" mapstructure:"driver"`
	DSN          string         `yaml:"dsn" mapstructure:"dsn"`
	Table        string         `yaml:"table" mapstructure:"table"`
	LoadEnriched bool           `yaml:"load_enriched" mapstructure:"load_enriched"`
	Postgres     PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig is used to build a DSN when store.dsn is empty and the
// driver is postgres or pgx.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       string `yaml:"db" mapstructure:"db"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode"`
}

// LogConfig configures the progress log and operational logging.
type LogConfig struct {
	ProgressPath string `yaml:"progress_path" mapstructure:"progress_path"`
	Level        string `yaml:"level" mapstructure:"level"`
	Format       string `yaml:"format" mapstructure:"format"`
}

// FetchConfig selects how the source page is downloaded.
type FetchConfig struct {
	Mode        string `yaml:"mode" mapstructure:"mode"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ChromeBin   string `yaml:"chrome_bin" mapstructure:"chrome_bin"`
}

// TransformConfig selects the rounding rule.
type TransformConfig struct {
	Rounding string `yaml:"rounding" mapstructure:"rounding"`
}

// Load reads the .env file, config.yaml and the environment and returns a
// populated Config.
func Load() (*Config, error) {
	// .env is optional; real environment variables always win.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BANKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url", DefaultSourceURL)
	v.SetDefault("rates.path", "./exchange_rate.csv")
	v.SetDefault("output.csv_path", "./current_exchange_rate.csv")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "Largest_banks")
	v.SetDefault("store.load_enriched", false)
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", "5432")
	v.SetDefault("store.postgres.user", "banks")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.db", "banks")
	v.SetDefault("store.postgres.sslmode", "disable")
	v.SetDefault("log.progress_path", "./code_log.txt")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("fetch.mode", "http")
	v.SetDefault("fetch.user_agent", "banks-etl/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.chrome_bin", "")
	v.SetDefault("transform.rounding", "half_even")
}

// Validate rejects unknown enum values and unsafe identifiers.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres", "pgx":
	default:
		return eris.Errorf("config: unknown store.driver %q (want sqlite, postgres or pgx)", c.Store.Driver)
	}
	switch c.Fetch.Mode {
	case "http", "browser":
	default:
		return eris.Errorf("config: unknown fetch.mode %q (want http or browser)", c.Fetch.Mode)
	}
	switch c.Transform.Rounding {
	case "half_even", "decimal":
	default:
		return eris.Errorf("config: unknown transform.rounding %q (want half_even or decimal)", c.Transform.Rounding)
	}
	if !storage.ValidIdentifier(c.Store.Table) {
		return eris.Errorf("config: store.table %q is not a valid identifier", c.Store.Table)
	}
	if c.Source.URL == "" {
		return eris.New("config: source.url is required")
	}
	if c.Rates.Path == "" || c.Output.CSVPath == "" || c.Log.ProgressPath == "" {
		return eris.New("config: rates.path, output.csv_path and log.progress_path are required")
	}
	if c.Fetch.TimeoutSecs < 0 {
		return eris.Errorf("config: fetch.timeout_secs must be >= 0, got %d", c.Fetch.TimeoutSecs)
	}
	return nil
}

// StoreDSN returns the data source name for the configured driver.
func (c *Config) StoreDSN() string {
	if c.Store.DSN != "" {
		return c.Store.DSN
	}
	if c.Store.Driver == "sqlite" {
		return "Banks.db"
	}
	return c.Store.Postgres.DSN()
}

// DSN returns the PostgreSQL connection string.
func (p PostgresConfig) DSN() string {
	return "host=" + p.Host +
		" port=" + p.Port +
		" user=" + p.User +
		" password=" + p.Password +
		" dbname=" + p.DB +
		" sslmode=" + p.SSLMode
}
