package config

import (
	"slices"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.SubmitArea != 2 {
		t.Fatalf("SubmitArea=%v want 2", cfg.SubmitArea)
	}
	if cfg.HandoffStore != HandoffMemory {
		t.Fatalf("HandoffStore=%q want memory", cfg.HandoffStore)
	}
	if cfg.H3Res != 8 {
		t.Fatalf("H3Res=%d want 8", cfg.H3Res)
	}
	if cfg.Events.Enabled {
		t.Fatal("events must be disabled by default")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend:9000/")
	t.Setenv("SUBMIT_AREA", "3.5")
	t.Setenv("SUBMIT_TIMEOUT", "2s")
	t.Setenv("H3_RES", "42")
	t.Setenv("HANDOFF_STORE", "Redis")
	t.Setenv("SESSION_CAP", "-1")
	t.Setenv("EVENTS_ENABLED", "yes")
	t.Setenv("KAFKA_BROKERS", "a:9092, ,b:9092")

	cfg := FromEnv()
	if cfg.BackendURL != "http://backend:9000" {
		t.Fatalf("BackendURL=%q", cfg.BackendURL)
	}
	if cfg.SubmitArea != 3.5 || cfg.SubmitTimeout != 2*time.Second {
		t.Fatalf("submit cfg = %v %v", cfg.SubmitArea, cfg.SubmitTimeout)
	}
	if cfg.H3Res != 15 {
		t.Fatalf("H3Res=%d want clamp to 15", cfg.H3Res)
	}
	if cfg.HandoffStore != HandoffRedis {
		t.Fatalf("HandoffStore=%q", cfg.HandoffStore)
	}
	if cfg.SessionCap != 1024 {
		t.Fatalf("SessionCap=%d want fallback 1024", cfg.SessionCap)
	}
	if !cfg.Events.Enabled || !slices.Equal(cfg.Events.Brokers, []string{"a:9092", "b:9092"}) {
		t.Fatalf("events=%+v", cfg.Events)
	}
}

func TestFromEnv_Redis(t *testing.T) {
	cfg := FromEnv()
	if cfg.Redis.PoolSize != 16 || cfg.Redis.DialTimeout != 2*time.Second || cfg.Redis.IOTimeout != time.Second {
		t.Fatalf("redis defaults=%+v", cfg.Redis)
	}

	t.Setenv("REDIS_POOL_SIZE", "4")
	t.Setenv("REDIS_DIAL_TIMEOUT", "500ms")
	t.Setenv("REDIS_TIMEOUT", "250ms")
	cfg = FromEnv()
	if cfg.Redis.PoolSize != 4 || cfg.Redis.DialTimeout != 500*time.Millisecond || cfg.Redis.IOTimeout != 250*time.Millisecond {
		t.Fatalf("redis overrides=%+v", cfg.Redis)
	}
}
