package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	c := Load()
	if c.AppPort != "8080" {
		t.Errorf("AppPort = %q, want 8080", c.AppPort)
	}
	if c.ReservationTTLSecs != 300 || c.IdempTTLSecs != 300 {
		t.Errorf("TTL defaults = %d/%d, want 300/300", c.ReservationTTLSecs, c.IdempTTLSecs)
	}
	if c.PlatformCut != 0.30 {
		t.Errorf("PlatformCut = %v, want 0.30", c.PlatformCut)
	}
	if c.LateFeeMode != "standalone" {
		t.Errorf("LateFeeMode = %q, want standalone", c.LateFeeMode)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("MYSQL_DB", "funding_test")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("RESERVATION_TTL_SECONDS", "120")
	t.Setenv("PLATFORM_CUT", "0.25")
	t.Setenv("LATE_FEE_FLAT", "2000")
	t.Setenv("LATE_FEE_MODE", "capitalize")

	c := Load()
	if c.AppPort != "9090" || c.MySQLDB != "funding_test" || c.RedisDB != 3 {
		t.Fatalf("env overrides ignored: %+v", c)
	}
	if c.NATSURL != "nats://localhost:4222" {
		t.Fatalf("NATSURL = %q", c.NATSURL)
	}
	if c.ReservationTTLSecs != 120 || c.PlatformCut != 0.25 || c.LateFeeFlat != 2000 {
		t.Fatalf("numeric overrides ignored: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	base := func() *Config {
		c := Load()
		return c
	}

	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"empty mysql host", func(c *Config) { c.MySQLHost = "" }, "MySQL"},
		{"bad mysql port", func(c *Config) { c.MySQLPort = "no" }, "MYSQL_PORT"},
		{"empty app port", func(c *Config) { c.AppPort = "" }, "APP_PORT"},
		{"cut too big", func(c *Config) { c.PlatformCut = 1.0 }, "PLATFORM_CUT"},
		{"negative late fee", func(c *Config) { c.LateFeeFlat = -1 }, "LATE_FEE_FLAT"},
		{"bad late fee mode", func(c *Config) { c.LateFeeMode = "waive" }, "LATE_FEE_MODE"},
	}
	for _, tc := range cases {
		c := base()
		tc.mutate(c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err = %v, want mention of %s", tc.name, err, tc.want)
		}
	}
}

func TestMySQLDSN(t *testing.T) {
	c := &Config{
		MySQLHost: "db.internal", MySQLPort: "3307",
		MySQLDB: "funding", MySQLUser: "svc", MySQLPass: "secret",
	}
	dsn := c.MySQLDSN()
	for _, part := range []string{"svc:secret@tcp(db.internal:3307)/funding", "parseTime=true"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("dsn %q missing %q", dsn, part)
		}
	}
}
