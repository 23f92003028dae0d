package database

import (
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/config"
)

// CreateConfigFromAppConfig adapts the application configuration to database configuration.
// Credentials already present in the environment win over the config file.
func CreateConfigFromAppConfig(conf *config.Config) *Config {
	dbConf := DefaultConfig()
	src := conf.Database

	if src.Driver != "" {
		dbConf.Driver = src.Driver
	}
	if dbConf.Host == "" {
		dbConf.Host = src.Host
	}
	if src.Port > 0 {
		dbConf.Port = src.Port
	}
	if dbConf.Username == "" {
		dbConf.Username = src.Username
	}
	if dbConf.Password == "" {
		dbConf.Password = src.Password
	}
	if dbConf.Database == "" {
		dbConf.Database = src.Database
	}
	if src.SSLMode != "" {
		dbConf.SSLMode = src.SSLMode
	}
	if src.Path != "" {
		dbConf.Path = src.Path
	}
	if src.MaxOpenConns > 0 {
		dbConf.MaxOpenConns = src.MaxOpenConns
	}
	if src.MaxIdleConns > 0 {
		dbConf.MaxIdleConns = src.MaxIdleConns
	}
	if src.ConnMaxLifetime > 0 {
		dbConf.ConnMaxLifetime = src.ConnMaxLifetime
	}
	if src.ConnMaxIdleTime > 0 {
		dbConf.ConnMaxIdleTime = src.ConnMaxIdleTime
	}
	if src.QueryTimeout > 0 {
		dbConf.QueryTimeout = src.QueryTimeout
	}
	if src.RetryAttempts > 0 {
		dbConf.RetryAttempts = src.RetryAttempts
	}
	if src.RetryDelay > 0 {
		dbConf.RetryDelay = src.RetryDelay
	}
	if src.LogLevel != "" {
		dbConf.LogLevel = src.LogLevel
	}

	return dbConf
}
