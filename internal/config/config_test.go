package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLConfig(t *testing.T) {
	path := writeConfig(t, "gateway.yaml", `
server:
  name: lab-gateway
  id: gw_lab_7
  host: 127.0.0.1
  port: 9000
  cors_origins:
    - https://cloud.example.com
device:
  name: cryo_qpu
  num_qubits: 12
auth:
  enabled: true
  token: secret
`)

	cfg := Load(path)
	if cfg.Server.Name != "lab-gateway" || cfg.Server.ID != "gw_lab_7" {
		t.Fatalf("server identity not loaded: %+v", cfg.Server)
	}
	if cfg.Server.Port != 9000 || cfg.Server.Host != "127.0.0.1" {
		t.Fatalf("server address not loaded: %+v", cfg.Server)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://cloud.example.com" {
		t.Fatalf("cors origins not loaded: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Device.Name != "cryo_qpu" || cfg.Device.NumQubits != 12 {
		t.Fatalf("device section not loaded: %+v", cfg.Device)
	}
	if !cfg.Auth.Enabled || cfg.Auth.Token != "secret" {
		t.Fatalf("auth section not loaded: %+v", cfg.Auth)
	}
}

func TestLoadJSONConfig(t *testing.T) {
	path := writeConfig(t, "gateway.json", `{
  "server": {"name": "json-gateway", "port": 8091},
  "device": {"name": "sim", "num_qubits": 6}
}`)

	cfg := Load(path)
	if cfg.Server.Name != "json-gateway" || cfg.Server.Port != 8091 {
		t.Fatalf("json config not loaded: %+v", cfg.Server)
	}
	if cfg.Device.NumQubits != 6 {
		t.Fatalf("device not loaded: %+v", cfg.Device)
	}
	// Untouched sections keep defaults.
	if cfg.Server.ID != "gw_001" {
		t.Fatalf("expected default server id, got %q", cfg.Server.ID)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if cfg.Server.Name != "gateway_agent" || cfg.Server.Port != 8090 {
		t.Fatalf("expected defaults, got %+v", cfg.Server)
	}
	if cfg.Device.Name != "local_simulator" || cfg.Device.NumQubits != 20 {
		t.Fatalf("expected default device, got %+v", cfg.Device)
	}
}

func TestResolveEnvVarsRecursesAndLeavesUnresolvedLiteral(t *testing.T) {
	t.Setenv("GW_TEST_TOKEN", "tok-123")

	m := map[string]any{
		"auth": map[string]any{
			"token":  "${GW_TEST_TOKEN}",
			"secret": "${GW_TEST_UNSET_VAR}",
		},
		"name": "plain",
	}
	ResolveEnvVars(m)

	auth := m["auth"].(map[string]any)
	if auth["token"] != "tok-123" {
		t.Fatalf("nested env var not resolved: %v", auth["token"])
	}
	if auth["secret"] != "${GW_TEST_UNSET_VAR}" {
		t.Fatalf("unset var must stay literal, got %v", auth["secret"])
	}
	if m["name"] != "plain" {
		t.Fatalf("plain value mutated: %v", m["name"])
	}
}

func TestLoadResolvesEnvVarsFromFile(t *testing.T) {
	t.Setenv("GW_TEST_API_KEY", "key-789")
	path := writeConfig(t, "gateway.yaml", `
registration:
  auto_register: true
  swiftquantum_url: https://api.example.com
  api_key: ${GW_TEST_API_KEY}
`)

	cfg := Load(path)
	if cfg.Registration.APIKey != "key-789" {
		t.Fatalf("api key not resolved: %q", cfg.Registration.APIKey)
	}
	if !cfg.Registration.AutoRegister {
		t.Fatalf("auto_register not loaded")
	}
}
