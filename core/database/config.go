package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Config holds database connection settings.
// DSN takes precedence; the discrete fields are used only when DSN is empty.
type Config struct {
	DSN            string `yaml:"dsn" envconfig:"DATABASE_URL"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// WaitSeconds bounds how long migrations wait for the server on startup.
	WaitSeconds int `yaml:"wait_seconds" envconfig:"DB_WAIT_SECONDS"`
}

// Enabled reports whether any connection settings were provided.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.DSN) != "" || strings.TrimSpace(c.Host) != ""
}

// URL returns the connection string in postgres:// form, accepted by both lib/pq and golang-migrate.
func (c Config) URL() string {
	if dsn := strings.TrimSpace(c.DSN); dsn != "" {
		return dsn
	}
	port := c.Port
	if port == "" {
		port = "5432"
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	return u.String()
}

// Target describes the server for logs without leaking credentials.
func (c Config) Target() (host, port, name string) {
	if dsn := strings.TrimSpace(c.DSN); dsn != "" {
		u, err := url.Parse(dsn)
		if err != nil {
			return "unparsed", "", ""
		}
		return u.Hostname(), u.Port(), strings.TrimPrefix(u.Path, "/")
	}
	return c.Host, c.Port, c.Name
}
