package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Realtime struct {
		Path           string        `yaml:"path"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		PongTimeout    time.Duration `yaml:"pong_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		SendBuffer     int           `yaml:"send_buffer"`
		MaxMessageSize int64         `yaml:"max_message_size"`
		EventTimeout   time.Duration `yaml:"event_timeout"`
		AuthTimeout    time.Duration `yaml:"auth_timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"realtime"`

	Database struct {
		Driver          string        `yaml:"driver"` // postgres | memory
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		AutoMigrate     bool          `yaml:"auto_migrate"`
		SeedFile        string        `yaml:"seed_file"` // memory driver only
	} `yaml:"database"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Backplane struct {
		Enabled    bool   `yaml:"enabled"`
		Channel    string `yaml:"channel"`
		InstanceID string `yaml:"instance_id"`

		PublishRetry struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			InitialDelay time.Duration `yaml:"initial_delay"`
			MaxDelay     time.Duration `yaml:"max_delay"`
		} `yaml:"publish_retry"`

		CircuitBreaker struct {
			FailureThreshold int           `yaml:"failure_threshold"`
			SuccessThreshold int           `yaml:"success_threshold"`
			OpenTimeout      time.Duration `yaml:"open_timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"backplane"`

	Presence struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"presence"`

	Cache struct {
		PortfolioOwnerTTL time.Duration `yaml:"portfolio_owner_ttl"`
	} `yaml:"cache"`

	Monitoring struct {
		PrometheusEnabled   bool          `yaml:"prometheus_enabled"`
		HealthCheckInterval time.Duration `yaml:"health_check_interval"`
		HealthCheckTimeout  time.Duration `yaml:"health_check_timeout"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		Issuer         string        `yaml:"issuer"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`

		WebSocket struct {
			ConnectionsPerMinute int     `yaml:"connections_per_minute"`
			EventsPerSecond      float64 `yaml:"events_per_second"`
			Burst                int     `yaml:"burst"`
			MaxConcurrent        int     `yaml:"max_concurrent_connections"`
		} `yaml:"websocket"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Realtime
	if c.Realtime.Path == "" {
		return fmt.Errorf("realtime.path must not be empty")
	}
	if c.Realtime.PingInterval <= 0 {
		return fmt.Errorf("realtime.ping_interval must be > 0")
	}
	if c.Realtime.PongTimeout <= c.Realtime.PingInterval {
		return fmt.Errorf("realtime.pong_timeout must be greater than realtime.ping_interval")
	}
	if c.Realtime.WriteTimeout <= 0 {
		return fmt.Errorf("realtime.write_timeout must be > 0")
	}
	if c.Realtime.SendBuffer <= 0 {
		return fmt.Errorf("realtime.send_buffer must be > 0")
	}
	if c.Realtime.MaxMessageSize <= 0 {
		return fmt.Errorf("realtime.max_message_size must be > 0")
	}
	if c.Realtime.EventTimeout <= 0 {
		return fmt.Errorf("realtime.event_timeout must be > 0")
	}
	if c.Realtime.AuthTimeout <= 0 {
		return fmt.Errorf("realtime.auth_timeout must be > 0")
	}

	// Database
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must not be empty when database.driver=postgres")
		}
		if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
			return fmt.Errorf("database pool sizes must be >= 0")
		}
	default:
		return fmt.Errorf("database.driver must be one of postgres, memory (got %q)", c.Database.Driver)
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Backplane and presence both live on Redis
	if c.Backplane.Enabled {
		if !c.Redis.Enabled {
			return fmt.Errorf("backplane.enabled requires redis.enabled=true")
		}
		if c.Backplane.Channel == "" {
			return fmt.Errorf("backplane.channel must not be empty when backplane.enabled=true")
		}
		if c.Backplane.PublishRetry.MaxAttempts < 1 {
			return fmt.Errorf("backplane.publish_retry.max_attempts must be >= 1")
		}
		if c.Backplane.CircuitBreaker.FailureThreshold < 1 || c.Backplane.CircuitBreaker.SuccessThreshold < 1 {
			return fmt.Errorf("backplane.circuit_breaker thresholds must be >= 1")
		}
		if c.Backplane.CircuitBreaker.OpenTimeout <= 0 {
			return fmt.Errorf("backplane.circuit_breaker.open_timeout must be > 0")
		}
	}
	if c.Presence.Enabled {
		if !c.Redis.Enabled {
			return fmt.Errorf("presence.enabled requires redis.enabled=true")
		}
		if c.Presence.TTL <= 0 {
			return fmt.Errorf("presence.ttl must be > 0 when presence.enabled=true")
		}
	}

	if c.Cache.PortfolioOwnerTTL < 0 {
		return fmt.Errorf("cache.portfolio_owner_ttl must be >= 0")
	}

	// Monitoring
	if c.Monitoring.HealthCheckInterval <= 0 {
		return fmt.Errorf("monitoring.health_check_interval must be > 0")
	}
	if c.Monitoring.HealthCheckTimeout <= 0 {
		return fmt.Errorf("monitoring.health_check_timeout must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.ConnectionsPerMinute <= 0 {
			return fmt.Errorf("rate_limiting.websocket.connections_per_minute must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.EventsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.websocket.events_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.Burst <= 0 {
			return fmt.Errorf("rate_limiting.websocket.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.websocket.max_concurrent_connections must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
// A .env file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFirst loads the first of paths that exists and returns it. Missing
// paths are skipped; a file that exists but fails to load is an error, never
// a fallback. With no file at all it returns defaults plus env overrides and
// an empty path.
func LoadFirst(paths ...string) (*Config, string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, path, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
		cfg, err := Load(path)
		if err != nil {
			return nil, path, fmt.Errorf("config file %s: %w", path, err)
		}
		return cfg, path, nil
	}

	_ = godotenv.Load()
	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, "", nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Realtime.Path = "/ws"
	cfg.Realtime.PingInterval = 25 * time.Second
	cfg.Realtime.PongTimeout = 60 * time.Second
	cfg.Realtime.WriteTimeout = 10 * time.Second
	cfg.Realtime.SendBuffer = 256
	cfg.Realtime.MaxMessageSize = 64 * 1024
	cfg.Realtime.EventTimeout = 10 * time.Second
	cfg.Realtime.AuthTimeout = 5 * time.Second
	cfg.Realtime.AllowedOrigins = []string{"*"}

	cfg.Database.Driver = "memory"
	cfg.Database.MaxOpenConns = 20
	cfg.Database.MaxIdleConns = 5
	cfg.Database.ConnMaxLifetime = 30 * time.Minute
	cfg.Database.AutoMigrate = true

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Backplane.Enabled = false
	cfg.Backplane.Channel = "experiencehub:broadcast"
	cfg.Backplane.PublishRetry.MaxAttempts = 3
	cfg.Backplane.PublishRetry.InitialDelay = 20 * time.Millisecond
	cfg.Backplane.PublishRetry.MaxDelay = 200 * time.Millisecond
	cfg.Backplane.CircuitBreaker.FailureThreshold = 5
	cfg.Backplane.CircuitBreaker.SuccessThreshold = 2
	cfg.Backplane.CircuitBreaker.OpenTimeout = 15 * time.Second

	cfg.Presence.Enabled = false
	cfg.Presence.TTL = 2 * time.Minute

	cfg.Cache.PortfolioOwnerTTL = 5 * time.Minute

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.HealthCheckInterval = 15 * time.Second
	cfg.Monitoring.HealthCheckTimeout = 2 * time.Second

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "experiencehub-realtime"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.Issuer = "experiencehub"
	cfg.Auth.AccessTokenTTL = 24 * time.Hour

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.RateLimiting.WebSocket.ConnectionsPerMinute = 60
	cfg.RateLimiting.WebSocket.EventsPerSecond = 20
	cfg.RateLimiting.WebSocket.Burst = 40
	cfg.RateLimiting.WebSocket.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("EXPHUB_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("EXPHUB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("EXPHUB_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if dsn := os.Getenv("EXPHUB_DATABASE_DSN"); dsn != "" {
		c.Database.DSN = dsn
		c.Database.Driver = "postgres"
	}
	if addr := os.Getenv("EXPHUB_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
	if v := os.Getenv("EXPHUB_BACKPLANE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Backplane.Enabled = enabled
		}
	}
	if id := os.Getenv("EXPHUB_INSTANCE_ID"); id != "" {
		c.Backplane.InstanceID = id
	}
}
