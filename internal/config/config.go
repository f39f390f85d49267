// Package config loads gateway configuration from a YAML or JSON file and
// resolves ${VAR} placeholders against the process environment.
package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       Server       `json:"server" yaml:"server"`
	Device       Device       `json:"device" yaml:"device"`
	Auth         Auth         `json:"auth" yaml:"auth"`
	Registration Registration `json:"registration" yaml:"registration"`
	Bridge       Bridge       `json:"bridge" yaml:"bridge"`
}

type Server struct {
	Name        string   `json:"name" yaml:"name"`
	ID          string   `json:"id" yaml:"id"`
	Host        string   `json:"host" yaml:"host"`
	Port        int      `json:"port" yaml:"port"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

type Device struct {
	Name      string `json:"name" yaml:"name"`
	NumQubits int    `json:"num_qubits" yaml:"num_qubits"`
}

type Auth struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token" yaml:"token"`
}

type Registration struct {
	AutoRegister bool   `json:"auto_register" yaml:"auto_register"`
	URL          string `json:"swiftquantum_url" yaml:"swiftquantum_url"`
	APIKey       string `json:"api_key" yaml:"api_key"`
}

// Bridge configures the optional Redis envelope transport for gateways that
// cannot accept inbound HTTP.
type Bridge struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	Addr            string `json:"addr" yaml:"addr"`
	RequestChannel  string `json:"request_channel" yaml:"request_channel"`
	ResponseChannel string `json:"response_channel" yaml:"response_channel"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: Server{
			Name: getEnv("GATEWAY_SERVER_NAME", "gateway_agent"),
			ID:   getEnv("GATEWAY_SERVER_ID", "gw_001"),
			Host: getEnv("GATEWAY_HOST", "0.0.0.0"),
			Port: getEnvInt("GATEWAY_PORT", 8090),
		},
		Device: Device{
			Name:      "local_simulator",
			NumQubits: 20,
		},
		Bridge: Bridge{
			RequestChannel:  "gateway:requests",
			ResponseChannel: "gateway:responses",
		},
	}
}

// Load reads the config file at path on top of the defaults. A missing or
// malformed file logs a warning and leaves the defaults in place, matching
// the gateway's fail-soft startup contract.
func Load(path string) *Config {
	cfg := Default()
	if path == "" {
		return cfg
	}

	content, err := os.ReadFile(path)
	if err != nil {
		log.Printf("config file not found: %s", path)
		return cfg
	}

	raw := map[string]any{}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &raw); err != nil {
			log.Printf("config parse failed: %v", err)
			return cfg
		}
	case ".json":
		if err := json.Unmarshal(content, &raw); err != nil {
			log.Printf("config parse failed: %v", err)
			return cfg
		}
	default:
		log.Printf("unknown config format: %s", ext)
		return cfg
	}

	ResolveEnvVars(raw)

	// Re-encode through JSON to overlay the typed config.
	data, err := json.Marshal(raw)
	if err != nil {
		log.Printf("config re-encode failed: %v", err)
		return cfg
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("config decode failed: %v", err)
		return Default()
	}

	log.Printf("loaded config from %s", path)
	return cfg
}

// ResolveEnvVars replaces string values of the exact form ${VAR} with the
// environment variable's value, recursing through nested maps. Unset
// variables leave the placeholder untouched.
func ResolveEnvVars(m map[string]any) {
	for key, value := range m {
		switch v := value.(type) {
		case string:
			if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
				if resolved, ok := os.LookupEnv(v[2 : len(v)-1]); ok {
					m[key] = resolved
				}
			}
		case map[string]any:
			ResolveEnvVars(v)
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
