// ABOUTME: Entry point for the answer-gateway server.
// ABOUTME: Wires config, coordination, hooks, channels, and the HTTP ingress.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/answer-gateway/internal/answer"
	"github.com/2389/answer-gateway/internal/auth"
	"github.com/2389/answer-gateway/internal/channels/webchat"
	"github.com/2389/answer-gateway/internal/config"
	"github.com/2389/answer-gateway/internal/coordination"
	"github.com/2389/answer-gateway/internal/gateway"
	"github.com/2389/answer-gateway/internal/hooks"
	"github.com/2389/answer-gateway/internal/policy"
	"github.com/2389/answer-gateway/internal/ratelimit"
	"github.com/2389/answer-gateway/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                                      _
  __ _ _ __  _____      _____ _ __ ___ __ _  __ _ ___| |_ _____      ____ _ _   _
 / _' | '_ \/ __\ \ /\ / / _ \ '__/ __/ _' |/ _' / __| __/ _ \ \ /\ / / _' | | | |
| (_| | | | \__ \\ V  V /  __/ | | (_| (_| | (_| \__ \ ||  __/\ V  V / (_| | |_| |
 \__,_|_| |_|___/ \_/\_/ \___|_|  \___\__, |\__,_|___/\__\___| \_/\_/ \__,_|\__, |
                                      |___/                                 |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: ANSWER_GATEWAY_CONFIG env var > XDG_CONFIG_HOME > ~/.config.
func getConfigPath() string {
	if envPath := os.Getenv("ANSWER_GATEWAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "answer-gateway", "gateway.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: answer-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the gateway server")
		fmt.Println("  health    Check gateway health")
		fmt.Println("  token     Generate a sender token for a user")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	case "token":
		err = runToken()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Engine:  %s\n", cfg.Answer.Endpoint)
	fmt.Println()

	logger.Info("starting answer-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	srv, err := buildServer(cfg, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// buildServer assembles the gateway from config: stores, engine client,
// builtin hooks, and channel adapters.
func buildServer(cfg *config.Config, logger *slog.Logger) (*gateway.Server, error) {
	audit, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening audit store: %w", err)
	}

	engine := answer.NewClient(cfg.Answer.Endpoint, nil, logger)

	gw, err := gateway.New(gateway.Options{
		Coordination: coordination.NewMemoryStore(),
		Answerer:     engine,
		Audit:        audit,
		TTLs: gateway.TTLs{
			Dedup:       cfg.Coordination.DedupTTL,
			Lock:        cfg.Coordination.LockTTL,
			ThreadState: cfg.Coordination.ThreadStateTTL,
		},
		Logger: logger,
	})
	if err != nil {
		_ = audit.Close()
		return nil, fmt.Errorf("creating gateway: %w", err)
	}

	if err := registerHooks(gw, cfg, audit, logger); err != nil {
		_ = audit.Close()
		return nil, err
	}

	if cfg.Webchat.WebhookURL != "" {
		gw.RegisterChannel("webchat", webchat.New(cfg.Webchat.WebhookURL, logger))
	} else {
		logger.Warn("no webchat webhook configured, responses will be held")
	}

	return gateway.NewServer(gw, cfg.Server.HTTPAddr, logger), nil
}

// registerHooks installs the builtin hook set based on config.
func registerHooks(gw *gateway.ChannelGateway, cfg *config.Config, audit *store.SQLiteStore, logger *slog.Logger) error {
	if cfg.Auth.JWTSecret != "" {
		verifier, err := auth.NewVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return fmt.Errorf("creating token verifier: %w", err)
		}
		gw.RegisterPreHook(hooks.NewAuthHook(verifier))
		logger.Info("sender authentication enabled")
	} else {
		logger.Warn("auth disabled - no jwt_secret configured")
	}

	limits := ratelimit.NewRegistry(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	gw.RegisterPreHook(hooks.NewRateLimitHook(limits, 1, time.Minute))
	gw.RegisterPreHook(hooks.NewPIIScanHook())

	policies := policy.NewService(
		staticProviderFromConfig(cfg.Policy),
		policy.Defaults{
			Generation: cfg.Policy.DefaultGeneration,
			AutoSend:   cfg.Policy.DefaultAutoSend,
		},
		logger,
	)
	gw.RegisterPreHook(hooks.NewGenerationPolicyHook(policies))
	gw.RegisterPostHook(hooks.NewAutoSendPolicyHook(policies))

	gw.RegisterPostHook(hooks.NewPIIFilterHook(hooks.PIIMode(cfg.PII.Mode)))
	gw.RegisterPostHook(hooks.NewEscalationRecordHook(audit))
	gw.RegisterPostHook(hooks.NewOutcomeMetricsHook(gw.Metrics()))
	return nil
}

func staticProviderFromConfig(cfg config.PolicyConfig) *policy.StaticProvider {
	p := &policy.StaticProvider{
		Generation: make(map[string]bool, len(cfg.Channels)),
		AutoSend:   make(map[string]bool, len(cfg.Channels)),
	}
	for channelID, entry := range cfg.Channels {
		p.Generation[channelID] = entry.Generation
		p.AutoSend[channelID] = entry.AutoSend
	}
	return p
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&colorHandler{level: level})
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu    sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{level: h.level, attrs: newAttrs}
}

func (h *colorHandler) WithGroup(string) slog.Handler {
	return h
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr := cfg.Server.HTTPAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	url := fmt.Sprintf("http://%s/health", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, body)
	}

	fmt.Println("healthy")
	return nil
}

// runToken generates a sender JWT for testing channel adapters.
// Usage: answer-gateway token <user-id> [channel...]
func runToken() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: answer-gateway token <user-id> [channel...]")
	}
	userID := os.Args[2]
	channels := os.Args[3:]

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt_secret not configured in %s", getConfigPath())
	}

	verifier, err := auth.NewVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating token verifier: %w", err)
	}

	token, err := verifier.Generate(userID, 30*24*time.Hour, channels...)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}
