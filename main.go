// Command chip-tracker runs the poker chip-tracking server.
//
// It supports two modes:
//  1. default: the HTTP server with the WebSocket event channel, the REST admin
//     API and an /mcp endpoint
//  2. "mcp": an MCP stdio server that proxies a running server's API, or an
//     internal one when none is reachable
//
// Flags control the listen address, config file, presets, logging, history
// sinks and optional ngrok tunneling.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/chip-tracker/api"
	"github.com/wricardo/chip-tracker/game/config"
	"github.com/wricardo/chip-tracker/game/engine"
	"github.com/wricardo/chip-tracker/game/history"
	"github.com/wricardo/chip-tracker/game/room"
	"github.com/wricardo/chip-tracker/game/service"
	"github.com/wricardo/chip-tracker/transport/mcp"
	"github.com/wricardo/chip-tracker/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Chip Tracker Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
	}

	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		slog.Error("chip-tracker failed", "err", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "chip-tracker",
		Usage:   "track chips, blinds and pots for a live poker game",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("CHIPS_HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config", Usage: "YAML settings file", Sources: cli.EnvVars("CHIPS_CONFIG")},
			&cli.StringFlag{Name: "presets-dir", Usage: "directory of table preset YAML files", Sources: cli.EnvVars("CHIPS_PRESETS_DIR")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json", Sources: cli.EnvVars("LOG_FORMAT")},
			&cli.BoolFlag{Name: "debug", Usage: "shorthand for --log-level debug"},
			&cli.DurationFlag{Name: "idle-timeout", Value: 6 * time.Hour, Usage: "close rooms idle this long", Sources: cli.EnvVars("CHIPS_IDLE_TIMEOUT")},
			&cli.StringFlag{Name: "history-dir", Usage: "append resolved hands to JSON-lines files here", Sources: cli.EnvVars("CHIPS_HISTORY_DIR")},
			&cli.StringFlag{Name: "nats-url", Usage: "publish resolved hands to this NATS server", Sources: cli.EnvVars("NATS_URL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "expose the server through an ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger := setupLogger(settings.Log.Level, settings.Log.Format, os.Stderr)
			return runHTTPServer(ctx, settings, logger)
		},
		Commands: []*cli.Command{
			{
				Name:  "mcp",
				Usage: "run an MCP stdio server over the admin API",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					settings, err := loadSettings(cmd)
					if err != nil {
						return err
					}
					// stdout carries the protocol
					logger := setupLogger(settings.Log.Level, settings.Log.Format, os.Stderr)
					return runStdioMCP(ctx, settings, logger)
				},
			},
		},
	}
}

// loadSettings reads the settings file, then applies flags that were set
// explicitly, either on the command line or through their env var.
func loadSettings(cmd *cli.Command) (config.Settings, error) {
	s, err := config.Load(cmd.String("config"))
	if err != nil {
		return s, err
	}

	if cmd.IsSet("host") {
		s.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		s.Server.Port = strconv.Itoa(int(cmd.Int("port")))
	}
	if cmd.IsSet("presets-dir") {
		s.Presets.Dir = cmd.String("presets-dir")
	}
	if cmd.IsSet("log-level") {
		s.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		s.Log.Format = cmd.String("log-format")
	}
	if cmd.Bool("debug") {
		s.Log.Level = "debug"
	}
	if cmd.IsSet("idle-timeout") {
		s.Rooms.IdleTimeout = cmd.Duration("idle-timeout")
	}
	if cmd.IsSet("history-dir") {
		s.History.Dir = cmd.String("history-dir")
	}
	if cmd.IsSet("nats-url") {
		s.History.NATSURL = cmd.String("nats-url")
	}
	if cmd.Bool("ngrok") {
		s.Ngrok.Enabled = true
	}
	if cmd.IsSet("ngrok-auth") {
		s.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		s.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	return s, s.Validate()
}

// setupLogger installs and returns the process logger.
func setupLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl == slog.LevelDebug}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// services is everything a running server owns.
type services struct {
	rooms      *room.Registry
	dispatcher *service.Dispatcher
	hub        *websocket.Hub
	api        *api.Server
	closers    []func() error
}

func (s *services) close(logger *slog.Logger) {
	s.rooms.StopAll()
	for _, c := range s.closers {
		if err := c(); err != nil {
			logger.Warn("shutdown step failed", "err", err)
		}
	}
}

// initializeServices wires presets, rooms, history sinks, the dispatcher,
// the hub and the API.
func initializeServices(settings config.Settings, logger *slog.Logger) (*services, error) {
	presets, err := config.NewManager(settings.Presets.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create preset manager: %w", err)
	}
	if settings.Presets.Default != "" {
		if err := presets.SetDefault(settings.Presets.Default); err != nil {
			return nil, fmt.Errorf("default preset %q: %w", settings.Presets.Default, err)
		}
	}

	svc := &services{}

	svc.rooms = room.NewRegistry(room.Options{
		MaxPlayers: settings.Rooms.MaxPlayers,
		Defaults:   func() engine.Settings { return presets.GetDefault().Settings() },
		Logger:     logger,
	})

	memory := history.NewMemory(settings.History.Limit)
	recorders := []history.Recorder{memory}

	if settings.History.Dir != "" {
		archive, err := history.NewFileArchive(settings.History.Dir)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, archive)
		logger.Info("archiving hands", "dir", settings.History.Dir)
	}

	if settings.History.NATSURL != "" {
		publisher, err := history.NewNATSPublisher(settings.History.NATSURL, settings.History.Subject, logger)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, publisher)
		svc.closers = append(svc.closers, publisher.Close)
		logger.Info("publishing hands", "url", settings.History.NATSURL, "subject", settings.History.Subject)
	}

	svc.dispatcher = service.New(service.Options{
		Rooms:    svc.rooms,
		Presets:  presets,
		Recorder: history.Multi(recorders...),
		Hands:    memory,
		Logger:   logger,
	})
	svc.hub = websocket.NewHub(svc.dispatcher, logger)
	svc.dispatcher.SetNotifier(svc.hub)

	staticDir := settings.Server.StaticDir
	if _, err := os.Stat(staticDir); err != nil {
		staticDir = ""
	}
	svc.api = api.NewServer(svc.dispatcher, svc.hub, staticDir, logger)
	return svc, nil
}

// runHTTPServer serves the API, the WebSocket channel and /mcp until ctx is
// cancelled, then shuts everything down in order.
func runHTTPServer(ctx context.Context, settings config.Settings, logger *slog.Logger) error {
	svc, err := initializeServices(settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	addr := settings.Addr()
	mcpClient := mcp.NewClient("http://" + addr)
	svc.api.Mount("/mcp", mcpClient.HTTPHandler())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      svc.api,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		svc.hub.Run(bg)
	}()
	go func() {
		defer wg.Done()
		svc.dispatcher.RunSweeper(bg, settings.Rooms.SweepInterval, settings.Rooms.IdleTimeout)
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr, "version", Version)
		logger.Info("endpoints", "ws", "ws://"+addr+"/ws", "api", "http://"+addr+"/api", "mcp", "http://"+addr+"/mcp")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if settings.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			startNgrok(bg, settings.Ngrok, svc.api, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		cancel()
		wg.Wait()
		svc.close(logger)
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "err", err)
	}

	cancel()
	wg.Wait()
	svc.close(logger)
	logger.Info("server stopped")
	return nil
}

// startNgrok serves handler through an ngrok tunnel until ctx is done.
func startNgrok(ctx context.Context, settings config.NgrokSettings, handler http.Handler, logger *slog.Logger) {
	if settings.AuthToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if settings.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "err", err)
		return
	}

	logger.Info("ngrok tunnel established", "url", tun.URL())

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "err", err)
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn("ngrok server error", "err", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCP serves MCP over stdio. It proxies the server at the configured
// address when one answers; otherwise it starts an internal API on a
// loopback port.
func runStdioMCP(ctx context.Context, settings config.Settings, logger *slog.Logger) error {
	externalURL := "http://" + settings.Addr()
	baseURL := externalURL

	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(externalURL + "/health")
	if err == nil {
		resp.Body.Close()
	}
	if err != nil || resp.StatusCode >= 500 {
		logger.Info("no server found, starting internal API", "probed", externalURL)

		svc, err := initializeServices(settings, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svc.close(logger)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		bg, cancel := context.WithCancel(ctx)
		defer cancel()
		go svc.hub.Run(bg)
		go svc.dispatcher.RunSweeper(bg, settings.Rooms.SweepInterval, settings.Rooms.IdleTimeout)

		internal := &http.Server{Handler: svc.api}
		go func() {
			if err := internal.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "err", err)
			}
		}()
		defer internal.Close()

		baseURL = "http://" + listener.Addr().String()
	}

	logger.Info("MCP stdio server ready", "api", baseURL)
	mcpClient := mcp.NewClient(baseURL)
	return server.ServeStdio(mcpClient.GetMCPServer())
}
