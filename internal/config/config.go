package config

import (
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for a geocoding run.
// Every field has a default, so an empty environment reproduces the fixed
// behaviour: read address.xlsx, write Address_Results.csv, search Bing Maps.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - MonitoringPort: Port of the metrics server, 0 disables it.
// - InputFile, SheetIndex, AddressColumn: Where the addresses are read from.
// - OutputFile: The CSV file results are appended to.
// - Browser: Session driver settings.
// - Resolver: Timings of a single address lookup.
// - DelayMin, DelayMax: Bounds of the random pause between two addresses.
// - Fallback: Optional API geocoder used when the browser finds nothing.
// - Database: Optional PostgreSQL mirror of the results.
type Config struct {
	Env            string         `yaml:"env"`
	MonitoringPort int            `yaml:"monitoring.port"`
	InputFile      string         `yaml:"input.file"`
	SheetIndex     int            `yaml:"input.sheet"`
	AddressColumn  string         `yaml:"input.column"`
	OutputFile     string         `yaml:"output.file"`
	Browser        BrowserConfig  `yaml:"browser"`
	Resolver       ResolverConfig `yaml:"resolver"`
	DelayMin       time.Duration  `yaml:"delay.min"`
	DelayMax       time.Duration  `yaml:"delay.max"`
	Fallback       FallbackConfig `yaml:"fallback"`
	Database       PostgresConfig `yaml:"postgres"`
}

// BrowserConfig configures the browser session.
type BrowserConfig struct {
	MapURL         string        `yaml:"map_url"`         // MapURL is opened once at startup.
	Headless       bool          `yaml:"headless"`        // Headless hides the browser window.
	RemoteURL      string        `yaml:"remote_url"`      // RemoteURL connects to a running Chrome instead of launching one.
	BinPath        string        `yaml:"bin"`             // BinPath overrides the Chrome binary lookup.
	SettleTime     time.Duration `yaml:"settle"`          // SettleTime is waited after the first navigation.
	LocatorTimeout time.Duration `yaml:"locator_timeout"` // LocatorTimeout bounds each locator attempt.
}

// ResolverConfig configures how long a single search may take.
type ResolverConfig struct {
	SearchTimeout time.Duration `yaml:"timeout"`       // SearchTimeout bounds the wait for a new URL.
	PollInterval  time.Duration `yaml:"poll_interval"` // PollInterval is the URL polling period.
	ResultSettle  time.Duration `yaml:"settle"`        // ResultSettle is waited after the URL changed.
}

// FallbackConfig selects an optional API geocoder.
type FallbackConfig struct {
	Type      string `yaml:"type"`       // Type is google, nominatim or empty for none.
	APIKey    string `yaml:"api_key"`    // APIKey is required by the google provider.
	RateLimit int    `yaml:"rate_limit"` // RateLimit in requests per second.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`                        // Host is the database server address, empty disables the store.
	Port     string `yaml:"port"     env-default:"5432"` // Port is the database server port.
	User     string `yaml:"user"`                        // User is the database user.
	Password string `yaml:"password"`                    // Password is the database user's password.
	Name     string `yaml:"db_name"`                     // Name is the name of the database.
}

// Enabled reports whether a database host was configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

var defaults = map[string]string{
	"CARTOGRAPH_ENV":                   "production",
	"CARTOGRAPH_MONITORING_PORT":       "0",
	"CARTOGRAPH_INPUT_FILE":            "address.xlsx",
	"CARTOGRAPH_INPUT_SHEET":           "0",
	"CARTOGRAPH_ADDRESS_COLUMN":        "Address",
	"CARTOGRAPH_OUTPUT_FILE":           "Address_Results.csv",
	"CARTOGRAPH_MAP_URL":               "https://www.bing.com/maps",
	"CARTOGRAPH_BROWSER_HEADLESS":      "false",
	"CARTOGRAPH_BROWSER_REMOTE_URL":    "",
	"CARTOGRAPH_BROWSER_BIN":           "",
	"CARTOGRAPH_BROWSER_SETTLE":        "2s",
	"CARTOGRAPH_LOCATOR_TIMEOUT":       "3s",
	"CARTOGRAPH_SEARCH_TIMEOUT":        "10s",
	"CARTOGRAPH_SEARCH_POLL_INTERVAL":  "250ms",
	"CARTOGRAPH_SEARCH_SETTLE":         "1500ms",
	"CARTOGRAPH_DELAY_MIN":             "1500ms",
	"CARTOGRAPH_DELAY_MAX":             "3s",
	"CARTOGRAPH_FALLBACK_PROVIDER":     "",
	"CARTOGRAPH_FALLBACK_PROVIDER_KEY": "",
	"CARTOGRAPH_FALLBACK_RATE_LIMIT":   "1",
	"DB_HOST":                          "",
	"DB_PORT":                          "5432",
	"DB_USERNAME":                      "",
	"DB_PASSWORD":                      "",
	"DB_NAME":                          "",
}

// MustLoad reads the configuration from the environment (and a .env file, if present)
// and returns a Config struct. It panics on values that cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	monitoringPort, err := strconv.Atoi(v.GetString("CARTOGRAPH_MONITORING_PORT"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	sheet, err := strconv.Atoi(v.GetString("CARTOGRAPH_INPUT_SHEET"))
	if err != nil || sheet < 0 {
		panic("failed to parse sheet index from configuration, must be a non-negative integer")
	}

	headless, err := strconv.ParseBool(v.GetString("CARTOGRAPH_BROWSER_HEADLESS"))
	if err != nil {
		panic("failed to parse browser headless flag from configuration")
	}

	rateLimit, err := strconv.Atoi(v.GetString("CARTOGRAPH_FALLBACK_RATE_LIMIT"))
	if err != nil {
		panic("failed to parse fallback rate limit from configuration, must be an integer types")
	}

	delayMin := mustDuration(v, "CARTOGRAPH_DELAY_MIN")
	delayMax := mustDuration(v, "CARTOGRAPH_DELAY_MAX")
	if delayMax < delayMin {
		panic("delay max must not be lower than delay min")
	}

	return &Config{
		Env:            v.GetString("CARTOGRAPH_ENV"),
		MonitoringPort: monitoringPort,
		InputFile:      v.GetString("CARTOGRAPH_INPUT_FILE"),
		SheetIndex:     sheet,
		AddressColumn:  v.GetString("CARTOGRAPH_ADDRESS_COLUMN"),
		OutputFile:     v.GetString("CARTOGRAPH_OUTPUT_FILE"),
		Browser: BrowserConfig{
			MapURL:         v.GetString("CARTOGRAPH_MAP_URL"),
			Headless:       headless,
			RemoteURL:      v.GetString("CARTOGRAPH_BROWSER_REMOTE_URL"),
			BinPath:        v.GetString("CARTOGRAPH_BROWSER_BIN"),
			SettleTime:     mustDuration(v, "CARTOGRAPH_BROWSER_SETTLE"),
			LocatorTimeout: mustDuration(v, "CARTOGRAPH_LOCATOR_TIMEOUT"),
		},
		Resolver: ResolverConfig{
			SearchTimeout: mustDuration(v, "CARTOGRAPH_SEARCH_TIMEOUT"),
			PollInterval:  mustDuration(v, "CARTOGRAPH_SEARCH_POLL_INTERVAL"),
			ResultSettle:  mustDuration(v, "CARTOGRAPH_SEARCH_SETTLE"),
		},
		DelayMin: delayMin,
		DelayMax: delayMax,
		Fallback: FallbackConfig{
			Type:      v.GetString("CARTOGRAPH_FALLBACK_PROVIDER"),
			APIKey:    v.GetString("CARTOGRAPH_FALLBACK_PROVIDER_KEY"),
			RateLimit: rateLimit,
		},
		Database: PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USERNAME"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
	}
}

func mustDuration(v *viper.Viper, key string) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		panic("failed to parse " + key + " from configuration")
	}

	return d
}
