package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "kres.cfg.json"

// MapConfig holds the raster generation settings.
type MapConfig struct {
	Width            int    `json:"width" mapstructure:"width"`
	Height           int    `json:"height" mapstructure:"height"`
	MaxLinesPerFrame int    `json:"maxLinesPerFrame" mapstructure:"maxLinesPerFrame"`
	Noise            string `json:"noise" mapstructure:"noise"`
	HeightmapDir     string `json:"heightmapDir" mapstructure:"heightmapDir"`
}

// FileConfig holds TOML save file settings
type FileConfig struct {
	Name string `json:"name" mapstructure:"name"`
}

// SQLiteConfig holds SQLite storage settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	File   FileConfig   `json:"file" mapstructure:"file"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds the metrics writer settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// ScannerConfig holds the simulation step settings.
type ScannerConfig struct {
	FixedDeltaTime time.Duration `json:"fixedDeltaTime" mapstructure:"fixedDeltaTime"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./kreslogs")
	viper.SetDefault("saveDir", "./saves/default")
	viper.SetDefault("defaultsDir", "./defaults")
	viper.SetDefault("defaultPack", "Default")
	viper.SetDefault("hostFile", "host.json")

	viper.SetDefault("map.width", 1440)
	viper.SetDefault("map.height", 720)
	viper.SetDefault("map.maxLinesPerFrame", 90)
	viper.SetDefault("map.noise", "simplex")
	viper.SetDefault("map.heightmapDir", "")

	viper.SetDefault("scanner.fixedDeltaTime", "20ms")

	viper.SetDefault("storage.type", "file")
	viper.SetDefault("storage.file.name", "kres_data.toml")
	viper.SetDefault("storage.sqlite.path", "kres.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "kres")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "kres-metrics")
	viper.SetDefault("influx.bucket", "kres")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "kres")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetMapConfig returns the map settings. Non-positive sizes fall back to the defaults.
func GetMapConfig() MapConfig {
	cfg := MapConfig{
		Width:            viper.GetInt("map.width"),
		Height:           viper.GetInt("map.height"),
		MaxLinesPerFrame: viper.GetInt("map.maxLinesPerFrame"),
		Noise:            viper.GetString("map.noise"),
		HeightmapDir:     viper.GetString("map.heightmapDir"),
	}
	if cfg.Width <= 0 {
		cfg.Width = 1440
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.MaxLinesPerFrame <= 0 {
		cfg.MaxLinesPerFrame = 90
	}
	if cfg.Noise == "" {
		cfg.Noise = "simplex"
	}
	return cfg
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		File: FileConfig{
			Name: viper.GetString("storage.file.name"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetScannerConfig returns the simulation step. A non-positive step falls back to 20ms.
func GetScannerConfig() ScannerConfig {
	dt := viper.GetDuration("scanner.fixedDeltaTime")
	if dt <= 0 {
		dt = 20 * time.Millisecond
	}
	return ScannerConfig{FixedDeltaTime: dt}
}
