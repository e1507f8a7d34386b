package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	// NATSURL empty means external event publishing is off; the in-process
	// bus still runs.
	NATSURL string

	ReservationTTLSecs int
	IdempTTLSecs       int

	// PlatformCut is the platform's share of investor interest (0..1).
	PlatformCut float64
	// LateFeeFlat is the per-overdue-period flat charge.
	LateFeeFlat float64
	// LateFeeMode: "standalone" bills the fee with the next payment,
	// "capitalize" folds it into the balance.
	LateFeeMode string
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

func getfloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return d
}

func Load() *Config {
	// .env is a developer convenience; absence is not an error.
	_ = godotenv.Load()

	return &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "funding"),
		MySQLUser: getenv("MYSQL_USER", "funding"),
		MySQLPass: getenv("MYSQL_PASS", "funding"),

		RedisAddr: getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:   getint("REDIS_DB", 0),

		NATSURL: os.Getenv("NATS_URL"),

		ReservationTTLSecs: getint("RESERVATION_TTL_SECONDS", 300),
		IdempTTLSecs:       getint("IDEMPOTENCY_TTL_SECONDS", 300),

		PlatformCut: getfloat("PLATFORM_CUT", 0.30),
		LateFeeFlat: getfloat("LATE_FEE_FLAT", 0),
		LateFeeMode: getenv("LATE_FEE_MODE", "standalone"),
	}
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.PlatformCut < 0 || c.PlatformCut >= 1 {
		return fmt.Errorf("PLATFORM_CUT %v out of range [0,1)", c.PlatformCut)
	}
	if c.LateFeeFlat < 0 {
		return errors.New("LATE_FEE_FLAT must not be negative")
	}
	switch c.LateFeeMode {
	case "standalone", "capitalize":
	default:
		return fmt.Errorf("unknown LATE_FEE_MODE %q", c.LateFeeMode)
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
