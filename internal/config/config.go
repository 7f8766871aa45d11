package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	AppPort string

	DBDriver   string
	MySQLHost  string
	MySQLPort  string
	MySQLDB    string
	MySQLUser  string
	MySQLPass  string
	SQLitePath string

	RedisAddr    string
	RedisDB      int
	IdempTTLSecs int

	JWTSecret string

	AMQPURL      string
	AMQPExchange string

	DocumentsDir  string
	PublicBaseURL string

	OutboxInterval   time.Duration
	OutboxMaxRetries int
	OutboxBatchSize  int
	DelaySweep       time.Duration

	LogLevel string
	LogFile  string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

// Load reads the environment. A .env file in the working directory, when
// present, fills in variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort: getenv("APP_PORT", "8080"),

		DBDriver:   getenv("DB_DRIVER", DriverMySQL),
		MySQLHost:  getenv("MYSQL_HOST", "mysql"),
		MySQLPort:  getenv("MYSQL_PORT", "3306"),
		MySQLDB:    getenv("MYSQL_DB", "samanvay"),
		MySQLUser:  getenv("MYSQL_USER", "samanvay"),
		MySQLPass:  getenv("MYSQL_PASS", "samanvay"),
		SQLitePath: getenv("SQLITE_PATH", "samanvay.db"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:      getint("REDIS_DB", 0),
		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getenv("AMQP_EXCHANGE", "samanvay.events"),

		DocumentsDir:  getenv("DOCUMENTS_DIR", "documents"),
		PublicBaseURL: getenv("PUBLIC_BASE_URL", "http://localhost:8080"),

		OutboxInterval:   time.Duration(getint("OUTBOX_INTERVAL_SECONDS", 5)) * time.Second,
		OutboxMaxRetries: getint("OUTBOX_MAX_RETRIES", 8),
		OutboxBatchSize:  getint("OUTBOX_BATCH_SIZE", 50),
		DelaySweep:       time.Duration(getint("DELAY_SWEEP_MINUTES", 60)) * time.Minute,

		LogLevel: getenv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.DBDriver {
	case DriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want mysql or sqlite)", c.DBDriver)
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.OutboxInterval <= 0 || c.OutboxBatchSize <= 0 || c.OutboxMaxRetries <= 0 {
		return errors.New("outbox interval, batch size and max retries must be positive")
	}
	if c.DelaySweep <= 0 {
		return errors.New("DELAY_SWEEP_MINUTES must be positive")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}
