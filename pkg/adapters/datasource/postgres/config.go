package postgres

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/config"
)

// BootstrapDatabase is the database the lister connects to when enumerating
// its siblings.
const BootstrapDatabase = "postgres"

// Config contains PostgreSQL connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "prefer", "require", "verify-ca", "verify-full"
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "prefer"
}

// FromServerConfig builds a Config from the application's server settings.
// The returned Config has no database set.
func FromServerConfig(cfg config.PostgresConfig) Config {
	return Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		SSLMode:  cfg.SSLMode,
	}
}

// WithDatabase returns a copy of c scoped to database.
func (c Config) WithDatabase(database string) Config {
	c.Database = database
	return c
}

// Validate reports missing connection parameters.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.User == "" {
		return errors.New("user is required")
	}
	if c.Database == "" {
		return errors.New("database is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// ConnectionString builds a PostgreSQL URL with proper escaping.
// net/url escapes the user info and path, so passwords containing @, /, # or ?
// survive parsing. Inside Docker, localhost resolves to host.docker.internal.
func (c Config) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort()
	}

	host := config.ResolveHostForDocker(c.Host)

	q := url.Values{}
	q.Set("sslmode", sslMode)

	u := &url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}
