package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/database"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/config"
)

// validateConfig ensures all required configuration values are present
func validateConfig(cfg *config.Config) error {
	var missingConfigs []string

	if cfg.Server.Port == 0 {
		missingConfigs = append(missingConfigs, "server.port")
	}
	if cfg.Server.ReadTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.readTimeout")
	}
	if cfg.Server.WriteTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.writeTimeout")
	}
	if cfg.Server.ShutdownTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.shutdownTimeout")
	}

	switch cfg.Database.Driver {
	case database.DriverPostgres:
		missingConfigs = append(missingConfigs, missingPostgres(cfg)...)
	case database.DriverSQLite:
		if cfg.Database.Path == "" {
			missingConfigs = append(missingConfigs, "database.path")
		}
	case database.DriverMemory:
		if cfg.Environment == config.Production {
			return fmt.Errorf("database.driver %q is not allowed in production", database.DriverMemory)
		}
	default:
		return fmt.Errorf("invalid database.driver: %q, must be one of: %s, %s, or %s",
			cfg.Database.Driver, database.DriverPostgres, database.DriverSQLite, database.DriverMemory)
	}

	if cfg.Settlement.QueueCapacity <= 0 {
		missingConfigs = append(missingConfigs, "settlement.queueCapacity")
	}
	if cfg.Settlement.ProcessingTimeoutMs <= 0 {
		missingConfigs = append(missingConfigs, "settlement.processingTimeoutMs")
	}
	if cfg.Settlement.ConfirmationHorizonSec <= 0 {
		missingConfigs = append(missingConfigs, "settlement.confirmationHorizonSec")
	}
	if cfg.Settlement.SweepIntervalSec <= 0 {
		missingConfigs = append(missingConfigs, "settlement.sweepIntervalSec")
	}

	switch cfg.Chain.Source {
	case config.ChainSourceKafka:
		if len(cfg.Chain.Brokers) == 0 {
			missingConfigs = append(missingConfigs, "chain.brokers")
		}
		if cfg.Chain.Topic == "" {
			missingConfigs = append(missingConfigs, "chain.topic")
		}
		if cfg.Chain.GroupID == "" {
			missingConfigs = append(missingConfigs, "chain.groupId")
		}
	case config.ChainSourceHTTP:
	default:
		return fmt.Errorf("invalid chain.source: %q, must be %s or %s",
			cfg.Chain.Source, config.ChainSourceKafka, config.ChainSourceHTTP)
	}

	switch cfg.Notification.Sink {
	case config.NotificationSinkKafka:
		if len(cfg.Notification.Brokers) == 0 {
			missingConfigs = append(missingConfigs, "notification.brokers")
		}
		if cfg.Notification.Topic == "" {
			missingConfigs = append(missingConfigs, "notification.topic")
		}
	case config.NotificationSinkLog:
	default:
		return fmt.Errorf("invalid notification.sink: %q, must be %s or %s",
			cfg.Notification.Sink, config.NotificationSinkKafka, config.NotificationSinkLog)
	}

	if !cfg.Deferred.InMemory && cfg.Deferred.Path == "" {
		missingConfigs = append(missingConfigs, "deferred.path")
	}

	if cfg.Environment == "" {
		missingConfigs = append(missingConfigs, "environment")
	} else if cfg.Environment != config.Development &&
		cfg.Environment != config.Production &&
		cfg.Environment != config.Test {
		return fmt.Errorf("invalid environment value: %s, must be one of: %s, %s, or %s",
			cfg.Environment, config.Development, config.Production, config.Test)
	}

	if cfg.Logger.Level == "" {
		missingConfigs = append(missingConfigs, "logger.level")
	}

	if len(missingConfigs) > 0 {
		return fmt.Errorf("missing required configurations: %v", missingConfigs)
	}

	if cfg.Environment == config.Production {
		var warnings []string

		sslMode := strings.ToLower(cfg.Database.SSLMode)
		if cfg.Database.Driver == database.DriverPostgres && sslMode != "require" && sslMode != "verify-ca" && sslMode != "verify-full" {
			warnings = append(warnings, "database.sslMode should be set to 'require', 'verify-ca', or 'verify-full' in production")
		}
		if cfg.Server.ReadTimeout < 5*time.Second {
			warnings = append(warnings, "server.readTimeout is too low for production")
		}
		if cfg.Deferred.InMemory {
			warnings = append(warnings, "deferred.inMemory loses parked chain events on restart")
		}

		if len(warnings) > 0 {
			log.Printf("Warning: potential issues in production configuration: %v", warnings)
		}
	}

	return nil
}

// missingPostgres lists connection settings absent from both the file and the environment
func missingPostgres(cfg *config.Config) []string {
	var missing []string
	required := []struct {
		value, key, env string
	}{
		{cfg.Database.Host, "database.host", "SE_DB_HOST"},
		{cfg.Database.Username, "database.username", "SE_DB_USERNAME"},
		{cfg.Database.Password, "database.password", "SE_DB_PASSWORD"},
		{cfg.Database.Database, "database.database", "SE_DB_NAME"},
	}
	for _, r := range required {
		if r.value == "" && os.Getenv(r.env) == "" {
			missing = append(missing, fmt.Sprintf("%s (or %s environment variable)", r.key, r.env))
		}
	}
	if cfg.Database.QueryTimeout == 0 {
		missing = append(missing, "database.queryTimeout")
	}
	return missing
}
