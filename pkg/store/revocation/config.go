package revocation

import (
	"fmt"
	"net/url"
	"time"

	"github.com/verityhq/authcore/pkg/config"
)

// Default connection settings for the denylist.
const (
	// DefaultHost is the default Redis hostname.
	DefaultHost = "localhost"

	// DefaultPort is the standard Redis port.
	DefaultPort = 6379

	// DefaultDB is the default Redis database index.
	DefaultDB = 0

	// DefaultKeyPrefix namespaces denylist keys so the list can share a
	// Redis database with other data.
	DefaultKeyPrefix = "authcore:revoked:"

	// DefaultPoolSize is the maximum number of connections in the pool.
	DefaultPoolSize = 10

	// DefaultDialTimeout is the maximum time to wait when establishing a
	// new connection.
	DefaultDialTimeout = 5 * time.Second

	// DefaultReadTimeout is the maximum time to wait for a command reply.
	DefaultReadTimeout = 3 * time.Second

	// DefaultWriteTimeout is the maximum time to wait when sending a
	// command.
	DefaultWriteTimeout = 3 * time.Second

	// DefaultHealthTimeout is the maximum time for a health check ping
	// when the caller's context has no deadline.
	DefaultHealthTimeout = 5 * time.Second
)

// Config holds the denylist's Redis connection configuration. When URI is
// set ("redis://..." or "rediss://..."), it takes precedence over the
// individual fields.
//
// All fields carry env and yaml tags for loading via [config.Loader]:
//
//	cfg := config.MustLoad[revocation.Config](
//	    config.New().WithEnvPrefix("REVOCATION"),
//	)
type Config struct {
	// URI is a Redis connection string (e.g., "redis://:pass@host:6379/1").
	// When set, Host, Port, Password, and DB are ignored.
	URI string `env:"URI" yaml:"uri"`

	// Host is the Redis server hostname or IP address.
	Host string `env:"HOST" envDefault:"localhost" yaml:"host"`

	// Port is the Redis server port.
	Port int `env:"PORT" envDefault:"6379" yaml:"port"`

	// Password is the Redis password. The [config.Secret] type redacts
	// the value in logs and serialized output.
	Password config.Secret `env:"PASSWORD" yaml:"password"`

	// DB is the Redis database index (0-15 by default).
	DB int `env:"DB" yaml:"db"`

	// KeyPrefix namespaces denylist keys.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"authcore:revoked:" yaml:"key_prefix"`

	// PoolSize is the maximum number of connections in the pool.
	PoolSize int `env:"POOL_SIZE" envDefault:"10" yaml:"pool_size"`

	// DialTimeout is the maximum time to wait when establishing a new
	// connection.
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s" yaml:"dial_timeout"`

	// ReadTimeout is the maximum time to wait for a command reply.
	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"3s" yaml:"read_timeout"`

	// WriteTimeout is the maximum time to wait when sending a command.
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s" yaml:"write_timeout"`

	// TLSEnabled enables TLS for the connection (minimum TLS 1.2).
	TLSEnabled bool `env:"TLS_ENABLED" yaml:"tls_enabled"`
}

// DefaultConfig returns a Config with default connection settings.
func DefaultConfig() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		DB:           DefaultDB,
		KeyPrefix:    DefaultKeyPrefix,
		PoolSize:     DefaultPoolSize,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Validate checks the configuration and applies defaults for zero-valued
// fields. Implements [config.Validator] so the loader validates
// automatically.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return fmt.Errorf("revocation: config uri is invalid: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("revocation: config uri scheme must be redis or rediss, got %q", u.Scheme)
		}
		return nil
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("revocation: config port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DB < 0 || c.DB > 15 {
		return fmt.Errorf("revocation: config db must be between 0 and 15, got %d", c.DB)
	}

	return nil
}

// applyDefaults sets default values for zero-valued fields.
func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}
