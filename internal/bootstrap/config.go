package bootstrap

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageRedis  = "redis"
	StorageBadger = "badger"
	StorageMemory = "memory"
)

type Config struct {
	ServerPort        string `mapstructure:"SERVER_PORT"`
	GrpcPort          string `mapstructure:"GRPC_PORT"`
	StorageBackend    string `mapstructure:"STORAGE_BACKEND"`
	RedisUrl          string `mapstructure:"REDIS_URL"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
	RedisDB           int    `mapstructure:"REDIS_DB"`
	MongoUri          string `mapstructure:"MONGO_URI"`
	MongoDatabase     string `mapstructure:"MONGO_DATABASE"`
	BadgerDir         string `mapstructure:"BADGER_DIR"`
	SessionTTLHours   int    `mapstructure:"SESSION_TTL_HOURS"`
	LegalityGrpcAddr  string `mapstructure:"LEGALITY_GRPC_ADDR"`
	LegalityTimeoutMs int    `mapstructure:"LEGALITY_TIMEOUT_MS"`
	IsLocalCors       bool   `mapstructure:"LOCAL_CORS"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	IsDevelopment     bool   `mapstructure:"DEVELOPMENT"`
	PdfFontPath       string `mapstructure:"PDF_FONT_PATH"`
	PageLimitRecords  int    `mapstructure:"PAGE_LIMIT_RECORDS"`
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) LegalityTimeout() time.Duration {
	return time.Duration(c.LegalityTimeoutMs) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GRPC_PORT", "8082")
	v.SetDefault("STORAGE_BACKEND", StorageRedis)
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "kifu_editor")
	v.SetDefault("BADGER_DIR", "./data/badger")
	v.SetDefault("SESSION_TTL_HOURS", 11)
	v.SetDefault("LEGALITY_GRPC_ADDR", "")
	v.SetDefault("LEGALITY_TIMEOUT_MS", 300)
	v.SetDefault("LOCAL_CORS", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEVELOPMENT", false)
	v.SetDefault("PDF_FONT_PATH", "")
	v.SetDefault("PAGE_LIMIT_RECORDS", 20)
}

// Setup reads cfgPath and lets environment variables override it. A missing
// file leaves the defaults in place.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		v.SetConfigType("env")
		err := v.ReadInConfig()
		var notFound viper.ConfigFileNotFoundError
		if err != nil && !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
