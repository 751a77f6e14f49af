package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// DatabaseSchemePostgres is the postgres database scheme identifier
	DatabaseSchemePostgres = "postgres"

	defaultOracleURL     = "https://mempool.space/api"
	defaultPollInterval  = 30 * time.Second
	defaultOracleTimeout = 10 * time.Second
)

type Config struct {
	HTTPAddr      string        // listen address of the game API
	OracleURL     string        // esplora-style block indexer base URL
	PollInterval  time.Duration // target-block poll interval
	OracleTimeout time.Duration // per-call oracle timeout
	DBDialect     string        // postgres only
	DBDsn         string        // DSN string passed to GORM driver
	AdminToken    string        // capability token for admin endpoints
	CORSOrigins   []string      // allowed origins for the webapp
	Debug         bool
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		fmt.Fprintf(os.Stderr, "warning: invalid %s=%q, using %s\n", key, v, def)
		return def
	}
	return d
}

// parseDatabaseURL interprets DATABASE_URL and returns (dialect, dsn).
// Supported schemes: postgres, postgresql.
func parseDatabaseURL(databaseURL string) (string, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", err
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case DatabaseSchemePostgres, "postgresql":
		// GORM postgres driver accepts URL DSN as-is
		return DatabaseSchemePostgres, databaseURL, nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %s", u.Scheme)
	}
}

func Load() Config {
	cfg := Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		OracleURL:     getenv("ORACLE_URL", defaultOracleURL),
		PollInterval:  getenvDuration("ORACLE_POLL_INTERVAL", defaultPollInterval),
		OracleTimeout: getenvDuration("ORACLE_TIMEOUT", defaultOracleTimeout),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		Debug:         getenvBool("DEBUG", false),
	}

	if origins := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	} else {
		cfg.CORSOrigins = []string{"*"}
	}

	if dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); dbURL != "" {
		if dialect, dsn, err := parseDatabaseURL(dbURL); err == nil {
			cfg.DBDialect = dialect
			cfg.DBDsn = dsn
		} else {
			fmt.Fprintf(os.Stderr, "warning: invalid DATABASE_URL, disabling persistence: %v\n", err)
		}
	}

	return cfg
}

func (c Config) String() string {
	return fmt.Sprintf("addr=%s oracle=%s poll=%s db=%s", c.HTTPAddr, c.OracleURL, c.PollInterval, c.DBDialect)
}

// DebugString returns a human-friendly configuration string with masked secrets.
func (c Config) DebugString() string {
	return fmt.Sprintf(
		"addr=%s oracle=%s poll=%s timeout=%s db=%s dsn=%s origins=%s",
		c.HTTPAddr,
		c.OracleURL,
		c.PollInterval,
		c.OracleTimeout,
		c.DBDialect,
		maskDSN(c.DBDialect, c.DBDsn),
		strings.Join(c.CORSOrigins, ","),
	)
}

func maskDSN(dialect, dsn string) string {
	switch strings.ToLower(dialect) {
	case DatabaseSchemePostgres:
		if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
			if u.User != nil {
				username := u.User.Username()
				u.User = url.User(username)
			}
			return u.String()
		}
		// Fallback for DSN as key-value list
		parts := strings.Fields(dsn)
		for i, p := range parts {
			lower := strings.ToLower(p)
			if strings.HasPrefix(lower, "password=") {
				parts[i] = "password=***"
			}
		}
		return strings.Join(parts, " ")
	default:
		return dsn
	}
}
