package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

const (
	SourceKindCSV      = "csv"
	SourceKindPostgres = "postgres"
)

type Config struct {
	App    AppConfig
	Source SourceConfig
	DB     DBConfig
	Redis  RedisConfig
	JWT    JWTConfig
	Export ExportConfig
}

type AppConfig struct {
	Port     string
	Env      string
	LogLevel string
	Locale   string
}

type SourceConfig struct {
	Kind  string
	Path  string
	Watch bool
	// DayFirst reads ambiguous dates like 03/04/2024 as DD/MM/YYYY.
	DayFirst bool
}

type DBConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	AutoMigrate bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// JWTConfig enables bearer authentication on the API when Secret is set.
type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

type ExportConfig struct {
	Filename string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_LOG_LEVEL", "info")
	v.SetDefault("APP_LOCALE", "pt-BR")
	v.SetDefault("SOURCE_KIND", SourceKindCSV)
	v.SetDefault("SOURCE_PATH", "dados/consultas_medico_especialidade.csv")
	v.SetDefault("SOURCE_WATCH", true)
	v.SetDefault("SOURCE_DAY_FIRST", true)
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_TTL", "5m")
	v.SetDefault("JWT_ACCESS_EXPIRY", "15m")
	v.SetDefault("EXPORT_FILENAME", "consultas_filtradas")
}

// LoadConfig reads .env (when present) and the environment.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom reads the given env file (when present) and the environment.
func LoadConfigFrom(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	redisTTL, err := time.ParseDuration(v.GetString("REDIS_TTL"))
	if err != nil {
		redisTTL = 5 * time.Minute
	}

	accessExpiry, err := time.ParseDuration(v.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	config := &Config{
		App: AppConfig{
			Port:     v.GetString("APP_PORT"),
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("APP_LOG_LEVEL"),
			Locale:   v.GetString("APP_LOCALE"),
		},
		Source: SourceConfig{
			Kind:     v.GetString("SOURCE_KIND"),
			Path:     v.GetString("SOURCE_PATH"),
			Watch:    v.GetBool("SOURCE_WATCH"),
			DayFirst: v.GetBool("SOURCE_DAY_FIRST"),
		},
		DB: DBConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      redisTTL,
		},
		JWT: JWTConfig{
			Secret:       v.GetString("JWT_SECRET"),
			AccessExpiry: accessExpiry,
		},
		Export: ExportConfig{
			Filename: v.GetString("EXPORT_FILENAME"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.Source.Kind {
	case SourceKindCSV:
		if c.Source.Path == "" {
			return errors.New("SOURCE_PATH is required for the csv source")
		}
	case SourceKindPostgres:
		if c.DB.Host == "" || c.DB.Name == "" {
			return errors.New("DB_HOST and DB_NAME are required for the postgres source")
		}
	default:
		return fmt.Errorf("unknown SOURCE_KIND %q", c.Source.Kind)
	}
	return nil
}
