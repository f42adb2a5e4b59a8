package models

// Config represents application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	JWT      JWTConfig
	Routing  RoutingConfig
	Tracking TrackingConfig
	NewRelic NewRelicConfig
	Logger   LoggerConfig
}

// AppConfig contains application-specific configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	Username  string
	Password  string
	Database  string
	SSLMode   string
	MaxConns  int
	IdleConns int
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// NATSConfig contains NATS connection configuration
type NATSConfig struct {
	URL string
}

// JWTConfig contains JWT authentication configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in minutes
	Issuer     string
}

// RoutingConfig contains driving-route service configuration
type RoutingConfig struct {
	BaseURL        string // OSRM-compatible endpoint, e.g. https://router.project-osrm.org
	TimeoutSeconds int    // per-request timeout for route computation
}

// TrackingConfig contains tracking subsystem tunables
type TrackingConfig struct {
	SampleIntervalSeconds   int     // minimum seconds between emitted fixes
	SampleDisplacementM     float64 // minimum meters moved between emitted fixes
	RouteDebounceMillis     int     // minimum millis between route recomputations
	ReconnectAttempts       int     // consecutive connect retries before giving up
	ReconnectBackoffSeconds int     // fixed delay between connect retries
}

// NewRelicConfig contains New Relic monitoring configuration
type NewRelicConfig struct {
	LicenseKey string
	AppName    string
	Enabled    bool
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level      string
	FilePath   string
	MaxSize    int64 // Max size in MB before rotation
	MaxAge     int   // Max age in days
	MaxBackups int   // Max number of backup files
	Compress   bool  // Compress rotated files
}
