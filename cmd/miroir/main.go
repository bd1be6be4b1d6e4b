// Command miroir is the page cloning service: it fetches pages into mutable
// HTML clones, applies tracked mutations (analytics pixel, scripts, link
// rewrites), and serves the resulting artifacts.
//
// Usage:
//
//	miroir                       # env-configured HTTP server
//	miroir -config miroir.yaml   # with a config file
//
// SESSION_SECRET (or AUTH_PASSWORD) is required; the JWT secret is derived
// from it. With MCP_TRANSPORT=stdio the process speaks MCP on stdin/stdout
// instead of serving HTTP.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/miroir/miroir"
)

func main() {
	configPath := flag.String("config", "", "path to miroir.yaml config file")
	flag.Parse()

	mcpTransport := env("MCP_TRANSPORT", "")

	var lvl slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logOut := os.Stdout
	if mcpTransport == "stdio" {
		// stdout belongs to the MCP protocol in stdio mode.
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	secretInput := os.Getenv("SESSION_SECRET")
	if secretInput == "" {
		secretInput = os.Getenv("AUTH_PASSWORD")
	}
	if secretInput == "" {
		logger.Error("SESSION_SECRET or AUTH_PASSWORD is required")
		os.Exit(1)
	}
	// Derive a 32-byte JWT secret via SHA-256 (satisfies horosafe.MinSecretLen).
	secretHash := sha256.Sum256([]byte(secretInput))
	jwtSecret := secretHash[:]

	cfg, err := resolveConfig(*configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := miroir.New(cfg, logger)
	if err != nil {
		logger.Error("miroir service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()
	if err := svc.EnableEvents(); err != nil {
		logger.Error("event log", "error", err)
		os.Exit(1)
	}

	users := newUserService(svc.Store().DB)
	if err := users.migrate(); err != nil {
		logger.Error("users migrate", "error", err)
		os.Exit(1)
	}
	if err := users.seedAdmin(ctx, env("ADMIN_EMAIL", "admin"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		logger.Error("seed admin", "error", err)
		os.Exit(1)
	}

	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "miroir",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		logger.Info("MCP stdio starting")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			logger.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	port := env("PORT", "8086")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newRouter(svc, users, jwtSecret),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
}

func resolveConfig(configPath string) (*miroir.Config, error) {
	if configPath != "" {
		return miroir.LoadConfigFile(configPath)
	}
	return &miroir.Config{
		DataDir: env("DATA_DIR", "data"),
		DBPath:  env("DB_PATH", "db/miroir.db"),
		BaseURL: env("BASE_URL", "http://localhost:8086"),
	}, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
