package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host         string
	Port         int
	AllowOrigins []string
	LogLevel     string
	LogFile      string
	MaxUploadMB  int

	OpenAIKey     string
	OpenAIModel   string
	AgentMaxSteps int

	SessionTTL   time.Duration
	RegistryFile string // пусто: встроенный словарь синонимов
}

// Load читает .env (если есть) и переменные окружения.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Host:         getenv("HOST", "127.0.0.1"),
		Port:         getint("PORT", 8082),
		AllowOrigins: strings.Split(getenv("ALLOW_ORIGINS", "*"), ","),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFile:      getenv("LOG_FILE", "logs/sheet-agent.log"),
		MaxUploadMB:  getint("MAX_UPLOAD_MB", 64),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o"),
		AgentMaxSteps: getint("AGENT_MAX_STEPS", 6),

		SessionTTL:   getduration("SESSION_TTL", time.Hour),
		RegistryFile: os.Getenv("REGISTRY_FILE"),
	}
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	i, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return i
}

func getduration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
