package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
environment: test
server:
  port: 8080
engine:
  fallback_allowed: true
  model_dir: /tmp/models
  seed: 42
  weights:
    ranking: 0.20
    head_to_head: 0.20
    recent_form: 0.25
    surface: 0.20
    experience: 0.15
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Environment != "test" || c.Server.Port != 8080 {
		t.Errorf("config = %+v", c)
	}
	if !c.Engine.FallbackAllowed || c.Engine.Seed != 42 {
		t.Errorf("engine = %+v", c.Engine)
	}
	if c.Engine.Weights.RecentForm != 0.25 {
		t.Errorf("weights = %+v", c.Engine.Weights)
	}
}

func TestLoadRejectsBadWeights(t *testing.T) {
	bad := `
environment: test
engine:
  model_dir: /tmp/models
  weights:
    ranking: 0.5
    head_to_head: 0.2
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Error("expected error for weights not summing to 1")
	}
}

func TestLoadRejectsMissingModelDir(t *testing.T) {
	bad := `
environment: test
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Error("expected error for missing model dir")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("TENNIS_API_KEY", "env-key")
	t.Setenv("MODEL_DIR", "/data/models")

	c, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if c.TennisAPI.APIKey != "env-key" {
		t.Errorf("api key = %q", c.TennisAPI.APIKey)
	}
	if c.Engine.ModelDir != "/data/models" {
		t.Errorf("model dir = %q", c.Engine.ModelDir)
	}
}

func TestValidateKafkaRequiresBrokers(t *testing.T) {
	bad := validYAML + `
kafka:
  enabled: true
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Error("expected error for enabled kafka without brokers")
	}
}
