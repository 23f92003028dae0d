package config

import "time"

// Config holds all configuration for the application
type Config struct {
	Environment  string             `mapstructure:"environment"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Settlement   SettlementConfig   `mapstructure:"settlement"`
	Chain        ChainConfig        `mapstructure:"chain"`
	Notification NotificationConfig `mapstructure:"notification"`
	Deferred     DeferredConfig     `mapstructure:"deferred"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`       // seconds
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`      // seconds
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`       // seconds
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"` // seconds
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`   // seconds
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite or memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslMode"`
	Path            string        `mapstructure:"path"` // sqlite only
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"` // minutes
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"` // minutes
	QueryTimeout    time.Duration `mapstructure:"queryTimeout"`    // seconds
	RetryAttempts   int           `mapstructure:"retryAttempts"`
	RetryDelay      time.Duration `mapstructure:"retryDelay"` // seconds
	LogLevel        string        `mapstructure:"logLevel"`
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	CallerInfo bool   `mapstructure:"callerInfo"`
}

// SettlementConfig tunes the intent queue and the settlement worker
type SettlementConfig struct {
	QueueCapacity          int `mapstructure:"queueCapacity"`
	ProcessingTimeoutMs    int `mapstructure:"processingTimeoutMs"`
	PersistTimeoutMs       int `mapstructure:"persistTimeoutMs"`
	MaxRetries             int `mapstructure:"maxRetries"`
	RetryIntervalMs        int `mapstructure:"retryIntervalMs"`
	ConfirmationHorizonSec int `mapstructure:"confirmationHorizonSec"`
	SweepIntervalSec       int `mapstructure:"sweepIntervalSec"`
	SweepBatch             int `mapstructure:"sweepBatch"`
	ConfirmationBuffer     int `mapstructure:"confirmationBuffer"`
}

func (c SettlementConfig) ProcessingTimeout() time.Duration {
	return time.Duration(c.ProcessingTimeoutMs) * time.Millisecond
}

// PersistTimeout bounds a single status write by the worker
func (c SettlementConfig) PersistTimeout() time.Duration {
	return time.Duration(c.PersistTimeoutMs) * time.Millisecond
}

func (c SettlementConfig) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalMs) * time.Millisecond
}

func (c SettlementConfig) ConfirmationHorizon() time.Duration {
	return time.Duration(c.ConfirmationHorizonSec) * time.Second
}

func (c SettlementConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// Chain event sources
const (
	ChainSourceKafka = "kafka"
	ChainSourceHTTP  = "http"
)

// ChainConfig selects where external ledger events come from and where live reads go
type ChainConfig struct {
	Source       string   `mapstructure:"source"`
	Brokers      []string `mapstructure:"brokers"`
	Topic        string   `mapstructure:"topic"`
	GroupID      string   `mapstructure:"groupId"`
	Buffer       int      `mapstructure:"buffer"`
	RPCURL       string   `mapstructure:"rpcUrl"`
	RPCTimeoutMs int      `mapstructure:"rpcTimeoutMs"`
}

func (c ChainConfig) RPCTimeout() time.Duration {
	return time.Duration(c.RPCTimeoutMs) * time.Millisecond
}

// Notification sinks
const (
	NotificationSinkKafka = "kafka"
	NotificationSinkLog   = "log"
)

// NotificationConfig selects where user notifications are delivered
type NotificationConfig struct {
	Sink    string   `mapstructure:"sink"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Buffer  int      `mapstructure:"buffer"`
}

// DeferredConfig locates the store for chain events awaiting an address link
type DeferredConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"inMemory"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
