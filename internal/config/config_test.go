package config

import "testing"

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()

	if cfg.Postback.PathPrefix != "/postback" {
		t.Fatalf("path prefix want /postback got %s", cfg.Postback.PathPrefix)
	}
	if cfg.Postback.Timeout().Milliseconds() != 3000 {
		t.Fatalf("timeout want 3s got %s", cfg.Postback.Timeout())
	}
	if cfg.Postback.MaxBodyBytes != 1<<20 {
		t.Fatalf("max body want 1MiB got %d", cfg.Postback.MaxBodyBytes)
	}
	if cfg.Postback.DefaultAckFormat != "json" {
		t.Fatalf("ack format want json got %s", cfg.Postback.DefaultAckFormat)
	}
	if cfg.Retention.BatchSize != 500 || cfg.Retention.IntervalMinutes != 60 {
		t.Fatalf("retention defaults mismatch: %+v", cfg.Retention)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Fatalf("metrics path want /metrics got %s", cfg.Metrics.Path)
	}
	if cfg.Redis.Prefix == "" {
		t.Fatalf("redis prefix should default")
	}
}

func TestNormalizePathPrefix(t *testing.T) {
	cases := map[string]string{
		"pb":          "/pb",
		"/cb/":        "/cb",
		"/":           "/postback",
		"/api/v1":     "/postback",
		"/api/v1/in":  "/postback",
		"/api/v2/cb":  "/api/v2/cb",
		"  /hooks  ":  "/hooks",
		"/partners//": "/partners",
	}
	for raw, want := range cases {
		cfg := &Config{}
		cfg.Postback.PathPrefix = raw
		cfg.Normalize()
		if cfg.Postback.PathPrefix != want {
			t.Fatalf("prefix %q want %q got %q", raw, want, cfg.Postback.PathPrefix)
		}
	}
}

func TestNormalizeAckFormat(t *testing.T) {
	cfg := &Config{}
	cfg.Postback.DefaultAckFormat = " TEXT "
	cfg.Normalize()
	if cfg.Postback.DefaultAckFormat != "text" {
		t.Fatalf("ack format want text got %s", cfg.Postback.DefaultAckFormat)
	}
	cfg.Postback.DefaultAckFormat = "xml"
	cfg.Normalize()
	if cfg.Postback.DefaultAckFormat != "json" {
		t.Fatalf("unknown ack format should fall back to json, got %s", cfg.Postback.DefaultAckFormat)
	}
}

func TestNormalizeFillsTimeoutDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()

	if cfg.Redis.Timeout().Milliseconds() != 200 {
		t.Fatalf("redis timeout want 200ms got %s", cfg.Redis.Timeout())
	}
	if cfg.Queue.Timeout().Milliseconds() != 1000 {
		t.Fatalf("queue timeout want 1s got %s", cfg.Queue.Timeout())
	}
	if cfg.Server.ReadHeaderTimeoutSeconds != 5 || cfg.Server.IdleTimeoutSeconds != 60 {
		t.Fatalf("server timeouts mismatch: %+v", cfg.Server)
	}
	if cfg.Server.ShutdownTimeout().Seconds() != 10 {
		t.Fatalf("shutdown timeout want 10s got %s", cfg.Server.ShutdownTimeout())
	}
	if cfg.Postback.EnqueueConcurrency != 64 {
		t.Fatalf("enqueue concurrency want 64 got %d", cfg.Postback.EnqueueConcurrency)
	}

	cfg = &Config{}
	cfg.Redis.TimeoutMS = 50
	cfg.Normalize()
	if cfg.Redis.Timeout().Milliseconds() != 50 {
		t.Fatalf("explicit redis timeout should be kept, got %s", cfg.Redis.Timeout())
	}
}
