// Package config loads process configuration for the CutFrame binaries.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/piwi3910/CutFrame/internal/model"
)

// EnvPrefix is prepended to every environment override, e.g. CUTFRAME_CUTTING_KERF.
const EnvPrefix = "CUTFRAME"

type Config struct {
	Cutting   CuttingConfig   `mapstructure:"cutting"`
	Materials MaterialsConfig `mapstructure:"materials"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
}

type CuttingConfig struct {
	Kerf        float64 `mapstructure:"kerf"`
	EndTrim     float64 `mapstructure:"end_trim"`
	MinOffcut   float64 `mapstructure:"min_offcut"`
	MaxPoolSize int     `mapstructure:"max_pool_size"`
	NoFitPolicy string  `mapstructure:"no_fit_policy"`
}

type MaterialsConfig struct {
	SettingsPath  string  `mapstructure:"settings_path"` // JSON material table, empty = ~/.cutframe/materials.json
	DefaultLength float64 `mapstructure:"default_length"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	d := model.DefaultSettings()
	v.SetDefault("cutting.kerf", d.KerfWidth)
	v.SetDefault("cutting.end_trim", d.EndTrim)
	v.SetDefault("cutting.min_offcut", d.MinOffcut)
	v.SetDefault("cutting.max_pool_size", d.MaxPoolSize)
	v.SetDefault("cutting.no_fit_policy", string(d.NoFitPolicy))

	v.SetDefault("materials.settings_path", "")
	v.SetDefault("materials.default_length", model.DefaultStockLength)

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_mb", 32)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "cutframe")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "cutframe")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads configuration from configFile, or from cutframe.yaml in
// ./configs or the working directory when configFile is empty. A missing
// file is not an error. Environment variables override both.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("cutframe")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the allocator cannot run with.
func (c *Config) Validate() error {
	if c.Cutting.Kerf < 0 || c.Cutting.EndTrim < 0 || c.Cutting.MinOffcut < 0 {
		return fmt.Errorf("cutting lengths must not be negative")
	}
	if c.Cutting.MaxPoolSize < 0 {
		return fmt.Errorf("cutting.max_pool_size must not be negative")
	}
	if _, err := model.ParseNoFitPolicy(c.Cutting.NoFitPolicy); err != nil {
		return fmt.Errorf("cutting.no_fit_policy: %w", err)
	}
	if c.Materials.DefaultLength <= 0 {
		return fmt.Errorf("materials.default_length must be positive")
	}
	return nil
}

// Settings converts the cutting section into allocator settings.
func (c CuttingConfig) Settings() model.CutSettings {
	policy, err := model.ParseNoFitPolicy(c.NoFitPolicy)
	if err != nil {
		policy = model.NoFitForceSingle
	}
	return model.CutSettings{
		KerfWidth:   c.Kerf,
		EndTrim:     c.EndTrim,
		MinOffcut:   c.MinOffcut,
		MaxPoolSize: c.MaxPoolSize,
		NoFitPolicy: policy,
	}
}

// NewLogger builds a zap logger: json output for format "json", console
// output otherwise.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}
