package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HOST", "PORT", "ALLOW_ORIGINS", "MAX_UPLOAD_MB", "OPENAI_MODEL", "AGENT_MAX_STEPS", "SESSION_TTL", "REGISTRY_FILE", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Addr() != "127.0.0.1:8082" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if len(cfg.AllowOrigins) != 1 || cfg.AllowOrigins[0] != "*" {
		t.Errorf("origins = %v", cfg.AllowOrigins)
	}
	if cfg.OpenAIModel != "gpt-4o" || cfg.AgentMaxSteps != 6 || cfg.SessionTTL != time.Hour {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOW_ORIGINS", "http://a,http://b")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("AGENT_MAX_STEPS", "bad")
	t.Setenv("REGISTRY_FILE", "registry.yaml")

	cfg := Load()
	if cfg.Port != 9000 || len(cfg.AllowOrigins) != 2 || cfg.SessionTTL != 15*time.Minute {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.AgentMaxSteps != 6 {
		t.Errorf("bad int must fall back to default, got %d", cfg.AgentMaxSteps)
	}
	if cfg.RegistryFile != "registry.yaml" {
		t.Errorf("registry = %q", cfg.RegistryFile)
	}
}
