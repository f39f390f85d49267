// Command gateway is the self-hosted quantum gateway agent. It exposes the
// REST surface on /gateway, optionally runs the Redis envelope bridge, and
// provides helper subcommands for config generation, health checks, and
// cloud registration.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/qbridge/gateway-agent/internal/bridge"
	"github.com/qbridge/gateway-agent/internal/config"
	"github.com/qbridge/gateway-agent/internal/device"
	"github.com/qbridge/gateway-agent/internal/router"
	"github.com/qbridge/gateway-agent/internal/service"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		cmdStart(os.Args[2:])
	case "init":
		cmdInit(os.Args[2:])
	case "status":
		cmdStatus(os.Args[2:])
	case "register":
		cmdRegister(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `gateway — self-hosted quantum hardware gateway

Usage:
  gateway start    [--config config.json] [--host 0.0.0.0] [--port 8090]
  gateway init     [--config config.json] [--force]
  gateway status   [--url http://localhost:8090]
  gateway register --url https://api.swiftquantum.tech [--token TOKEN] [--config config.json]
`)
}

func cmdStart(args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to config file (JSON or YAML)")
	host := fs.String("host", "", "host to bind to (overrides config)")
	port := fs.Int("port", 0, "port to listen on (overrides config)")
	fs.Parse(args)

	cfg := config.Load(*configPath)
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	sim := device.NewLocalSimulator(cfg.Device.Name, cfg.Device.NumQubits)
	gateway := service.New(sim, cfg.Server.Name, cfg.Server.ID)
	handler := router.New(cfg, gateway)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Root context cancelled on shutdown — propagates to the bridge.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	var br *bridge.Bridge
	if cfg.Bridge.Enabled {
		br = bridge.New(cfg.Bridge, gateway)
		go func() {
			if err := br.Run(rootCtx); err != nil && err != context.Canceled {
				log.Printf("bridge stopped: %v", err)
			}
		}()
		log.Printf("redis bridge enabled on %s (%s -> %s)",
			cfg.Bridge.Addr, cfg.Bridge.RequestChannel, cfg.Bridge.ResponseChannel)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("gateway agent v%s (%s/%s) listening on %s",
			version, cfg.Server.Name, cfg.Server.ID, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-done
	log.Println("shutting down...")
	rootCancel()
	if br != nil {
		br.Close()
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("stopped")
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to write the config file")
	force := fs.Bool("force", false, "overwrite an existing config file")
	fs.Parse(args)

	if _, err := os.Stat(*configPath); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "file %q already exists, use --force to overwrite\n", *configPath)
		os.Exit(1)
	}

	template := map[string]any{
		"server": map[string]any{
			"name": "my-gateway",
			"id":   "gw_001",
			"host": "0.0.0.0",
			"port": 8090,
		},
		"device": map[string]any{
			"name":       "local_simulator",
			"num_qubits": 20,
		},
		"auth": map[string]any{
			"enabled": false,
			"token":   "",
		},
		"registration": map[string]any{
			"auto_register":    false,
			"swiftquantum_url": "https://api.swiftquantum.tech",
			"api_key":          "",
		},
		"bridge": map[string]any{
			"enabled":          false,
			"addr":             "localhost:6379",
			"request_channel":  "gateway:requests",
			"response_channel": "gateway:responses",
		},
	}

	data, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		log.Fatalf("encode template: %v", err)
	}
	if err := os.WriteFile(*configPath, append(data, '\n'), 0o644); err != nil {
		log.Fatalf("write %s: %v", *configPath, err)
	}

	fmt.Printf("config file created: %s\n", *configPath)
	fmt.Println()
	fmt.Println("next steps:")
	fmt.Printf("  1. edit %s to match your hardware\n", *configPath)
	fmt.Printf("  2. run: gateway start --config=%s\n", *configPath)
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8090", "gateway agent URL")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(*url, "/") + "/gateway/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error connecting to gateway agent at %s: %v\n", *url, err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var health map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		fmt.Fprintf(os.Stderr, "error decoding health response: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Gateway Agent Status")
	fmt.Println(strings.Repeat("=", 40))
	fmt.Printf("  Status:    %v\n", health["status"])
	fmt.Printf("  Server:    %v\n", health["server_name"])
	fmt.Printf("  Version:   %v\n", health["version"])
	if uptime, ok := health["uptime_seconds"].(float64); ok {
		fmt.Printf("  Uptime:    %.1fs\n", uptime)
	}
	if dev, ok := health["device"].(map[string]any); ok {
		fmt.Printf("  Device:    %v\n", dev["device"])
		fmt.Printf("  Qubits:    %v\n", dev["num_qubits"])
		fmt.Printf("  Jobs Done: %v\n", dev["jobs_completed"])
	}
	fmt.Println(strings.Repeat("=", 40))
}

func cmdRegister(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	url := fs.String("url", "", "cloud API URL for registration (required)")
	token := fs.String("token", "", "authentication token")
	configPath := fs.String("config", "config.json", "device config file path")
	fs.Parse(args)

	if *url == "" {
		fmt.Fprintln(os.Stderr, "register: --url is required")
		os.Exit(1)
	}

	cfg := config.Load(*configPath)
	info := device.NewLocalSimulator(cfg.Device.Name, cfg.Device.NumQubits).GetDeviceInfo()

	registration := map[string]any{
		"server_name": cfg.Server.Name,
		"server_id":   cfg.Server.ID,
		"device": map[string]any{
			"name":            info.Name,
			"num_qubits":      info.NumQubits,
			"technology":      info.Technology,
			"connectivity":    info.Connectivity,
			"supported_gates": info.SupportedGates,
		},
		"protocol_version": "1.0",
	}

	body, err := json.Marshal(registration)
	if err != nil {
		log.Fatalf("encode registration: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost,
		strings.TrimRight(*url, "/")+"/gateway/register", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "registration failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Fprintf(os.Stderr, "registration failed: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "registration failed: HTTP %d: %v\n", resp.StatusCode, result)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println("registration successful!")
	fmt.Println(string(out))
}
