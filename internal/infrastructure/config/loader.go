package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment constants
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// ConfigPaths defines the paths to look for config files
var ConfigPaths = []string{
	"./configs",
	"../configs",
	"../../configs",
}

// DotEnvPaths defines the paths to look for .env files
var DotEnvPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"./configs/.env",
	"../configs/.env",
}

// LoadConfig loads configuration for the environment named by BP_ENV
func LoadConfig() (*Config, error) {
	if err := loadDotEnvFile(); err != nil {
		fmt.Println("Warning: Could not load .env file:", err)
	}
	return LoadConfigFrom(getEnvironment(), ConfigPaths...)
}

// LoadConfigFrom reads <env>.yaml from the first matching path, then applies SE_ overrides
func LoadConfigFrom(env string, paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(env)
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.SetEnvPrefix("SE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	processEnvOverrides(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.Environment = env

	processDurations(&config)

	return &config, nil
}

// loadDotEnvFile loads the first readable .env file in DotEnvPaths
func loadDotEnvFile() error {
	var lastError error
	for _, path := range DotEnvPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			lastError = err
			continue
		}
		return nil
	}

	if lastError != nil {
		return fmt.Errorf("could not load any .env file: %w", lastError)
	}
	return fmt.Errorf("no .env file found in search paths")
}

// setDefaults sets default values for non-critical configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15)       // seconds
	v.SetDefault("server.writeTimeout", 15)      // seconds
	v.SetDefault("server.idleTimeout", 60)       // seconds
	v.SetDefault("server.readHeaderTimeout", 10) // seconds
	v.SetDefault("server.shutdownTimeout", 15)   // seconds

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.path", "settlement.db")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 25)
	v.SetDefault("database.connMaxLifetime", 30) // minutes
	v.SetDefault("database.connMaxIdleTime", 15) // minutes
	v.SetDefault("database.queryTimeout", 5)     // seconds
	v.SetDefault("database.retryAttempts", 3)
	v.SetDefault("database.retryDelay", 1) // seconds
	v.SetDefault("database.logLevel", "warn")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.callerInfo", true)

	v.SetDefault("settlement.queueCapacity", 1000)
	v.SetDefault("settlement.processingTimeoutMs", 5000)
	v.SetDefault("settlement.persistTimeoutMs", 5000)
	v.SetDefault("settlement.maxRetries", 3)
	v.SetDefault("settlement.retryIntervalMs", 100)
	v.SetDefault("settlement.confirmationHorizonSec", 600)
	v.SetDefault("settlement.sweepIntervalSec", 30)
	v.SetDefault("settlement.sweepBatch", 100)
	v.SetDefault("settlement.confirmationBuffer", 256)

	v.SetDefault("chain.source", ChainSourceHTTP)
	v.SetDefault("chain.topic", "ledger.events")
	v.SetDefault("chain.groupId", "settlement-engine")
	v.SetDefault("chain.buffer", 64)
	v.SetDefault("chain.rpcTimeoutMs", 3000)

	v.SetDefault("notification.sink", NotificationSinkLog)
	v.SetDefault("notification.topic", "user.notifications")
	v.SetDefault("notification.buffer", 256)

	v.SetDefault("deferred.path", "data/deferred")
	v.SetDefault("deferred.inMemory", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// getEnvironment determines the environment to use based on BP_ENV environment variable
func getEnvironment() string {
	env := os.Getenv("BP_ENV")
	if env == "" {
		env = Development
	}
	return strings.ToLower(env)
}

// processEnvOverrides gives SE_ environment variables priority over file values
func processEnvOverrides(v *viper.Viper) {
	overrideString(v, "SE_DB_DRIVER", "database.driver")
	overrideString(v, "SE_DB_HOST", "database.host")
	overrideInt(v, "SE_DB_PORT", "database.port")
	overrideString(v, "SE_DB_USERNAME", "database.username")
	overrideString(v, "SE_DB_PASSWORD", "database.password")
	overrideString(v, "SE_DB_NAME", "database.database")
	overrideString(v, "SE_DB_SSL_MODE", "database.sslMode")
	overrideString(v, "SE_DB_PATH", "database.path")
	overrideInt(v, "SE_DB_MAX_OPEN_CONNS", "database.maxOpenConns")
	overrideInt(v, "SE_DB_MAX_IDLE_CONNS", "database.maxIdleConns")
	overrideInt(v, "SE_DB_QUERY_TIMEOUT_SECONDS", "database.queryTimeout")

	overrideString(v, "SE_SERVER_HOST", "server.host")
	overrideInt(v, "SE_SERVER_PORT", "server.port")

	overrideString(v, "SE_LOGGER_LEVEL", "logger.level")

	overrideInt(v, "SE_SETTLEMENT_QUEUE_CAPACITY", "settlement.queueCapacity")
	overrideInt(v, "SE_SETTLEMENT_PROCESSING_TIMEOUT_MS", "settlement.processingTimeoutMs")
	overrideInt(v, "SE_SETTLEMENT_PERSIST_TIMEOUT_MS", "settlement.persistTimeoutMs")
	overrideInt(v, "SE_SETTLEMENT_MAX_RETRIES", "settlement.maxRetries")
	overrideInt(v, "SE_SETTLEMENT_CONFIRMATION_HORIZON_SEC", "settlement.confirmationHorizonSec")

	overrideString(v, "SE_CHAIN_SOURCE", "chain.source")
	overrideList(v, "SE_CHAIN_BROKERS", "chain.brokers")
	overrideString(v, "SE_CHAIN_TOPIC", "chain.topic")
	overrideString(v, "SE_CHAIN_RPC_URL", "chain.rpcUrl")

	overrideString(v, "SE_NOTIFICATION_SINK", "notification.sink")
	overrideList(v, "SE_NOTIFICATION_BROKERS", "notification.brokers")
	overrideString(v, "SE_NOTIFICATION_TOPIC", "notification.topic")

	overrideString(v, "SE_DEFERRED_PATH", "deferred.path")
}

func overrideString(v *viper.Viper, name, key string) {
	if val := os.Getenv(name); val != "" {
		v.Set(key, val)
	}
}

// overrideInt ignores values that do not parse
func overrideInt(v *viper.Viper, name, key string) {
	valStr := os.Getenv(name)
	if valStr == "" {
		return
	}
	if val, err := strconv.Atoi(valStr); err == nil {
		v.Set(key, val)
	}
}

// overrideList splits a comma separated variable
func overrideList(v *viper.Viper, name, key string) {
	valStr := os.Getenv(name)
	if valStr == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(valStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	v.Set(key, items)
}

// processDurations converts time.Duration fields from their raw units to actual durations
func processDurations(config *Config) {
	config.Server.ReadTimeout = time.Duration(config.Server.ReadTimeout) * time.Second
	config.Server.WriteTimeout = time.Duration(config.Server.WriteTimeout) * time.Second
	config.Server.IdleTimeout = time.Duration(config.Server.IdleTimeout) * time.Second
	config.Server.ReadHeaderTimeout = time.Duration(config.Server.ReadHeaderTimeout) * time.Second
	config.Server.ShutdownTimeout = time.Duration(config.Server.ShutdownTimeout) * time.Second

	config.Database.ConnMaxLifetime = time.Duration(config.Database.ConnMaxLifetime) * time.Minute
	config.Database.ConnMaxIdleTime = time.Duration(config.Database.ConnMaxIdleTime) * time.Minute
	config.Database.QueryTimeout = time.Duration(config.Database.QueryTimeout) * time.Second
	config.Database.RetryDelay = time.Duration(config.Database.RetryDelay) * time.Second
}
