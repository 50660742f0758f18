package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	HandoffMemory = "memory"
	HandoffRedis  = "redis"
)

type EventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

type RedisCfg struct {
	PoolSize    int
	DialTimeout time.Duration
	// IOTimeout bounds each read and write
	IOTimeout time.Duration
}

type Config struct {
	Addr          string
	LogLevel      string
	LogConsole    bool
	LogSampleN    int
	BackendURL    string
	SubmitArea    float64
	SubmitTimeout time.Duration
	H3Res         int
	SessionCap    int
	HandoffStore  string
	HandoffTTL    time.Duration
	RedisAddr     string
	Redis         RedisCfg
	CORSOrigin    string
	Events        EventsCfg
}

func FromEnv() Config {
	res := getint("H3_RES", 8)
	if res < 0 {
		res = 0
	}
	if res > 15 {
		res = 15
	}

	store := strings.ToLower(strings.TrimSpace(getenv("HANDOFF_STORE", HandoffMemory)))
	if store != HandoffRedis {
		store = HandoffMemory
	}

	sessionCap := getint("SESSION_CAP", 1024)
	if sessionCap <= 0 {
		sessionCap = 1024
	}

	return Config{
		Addr:          getenv("ADDR", ":8090"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogConsole:    getbool("LOG_CONSOLE", false),
		LogSampleN:    getint("LOG_SAMPLE_N", 0),
		BackendURL:    strings.TrimRight(getenv("BACKEND_URL", "http://localhost:8000"), "/"),
		SubmitArea:    getfloat("SUBMIT_AREA", 2),
		SubmitTimeout: getduration("SUBMIT_TIMEOUT", 30*time.Second),
		H3Res:         res,
		SessionCap:    sessionCap,
		HandoffStore:  store,
		HandoffTTL:    getduration("HANDOFF_TTL", 5*time.Minute),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		CORSOrigin:    getenv("CORS_ORIGIN", "http://localhost:3000"),
		Redis: RedisCfg{
			PoolSize:    getint("REDIS_POOL_SIZE", 16),
			DialTimeout: getduration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			IOTimeout:   getduration("REDIS_TIMEOUT", time.Second),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: splitList(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("KAFKA_TOPIC", "farm-selections"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "a:9092, b:9092" into a list, dropping empties
func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
