package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Env holds service settings read from the environment.
type Env struct {
	ListenAddr    string
	LogLevel      string
	LogFormat     string
	RedisURL      string
	MQTTBroker    string
	MQTTTopic     string
	PriceInterval time.Duration
}

// LoadEnv loads the optional .env files (missing files are ignored; existing
// environment variables win) and then reads the NAMAZ_* settings.
func LoadEnv(files ...string) (*Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return EnvFromOS()
}

// EnvFromOS reads the NAMAZ_* variables, applying defaults.
func EnvFromOS() (*Env, error) {
	env := &Env{
		ListenAddr:    getEnv("NAMAZ_LISTEN_ADDR", ":8080"),
		LogLevel:      getEnv("NAMAZ_LOG_LEVEL", "info"),
		LogFormat:     getEnv("NAMAZ_LOG_FORMAT", "console"),
		RedisURL:      os.Getenv("NAMAZ_REDIS_URL"),
		MQTTBroker:    os.Getenv("NAMAZ_MQTT_BROKER"),
		MQTTTopic:     getEnv("NAMAZ_MQTT_TOPIC", "default"),
		PriceInterval: 5 * time.Minute,
	}

	if raw := os.Getenv("NAMAZ_PRICE_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid NAMAZ_PRICE_INTERVAL %q: must be a positive duration like 5m", raw)
		}
		env.PriceInterval = d
	}
	return env, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
