// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/gopxl/beep/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/hifzbox/internal/api/connect"
	"github.com/osa030/hifzbox/internal/app/asset"
	"github.com/osa030/hifzbox/internal/app/filter"
	"github.com/osa030/hifzbox/internal/app/sequencer"
	"github.com/osa030/hifzbox/internal/app/studio"
	"github.com/osa030/hifzbox/internal/infra/audio"
	"github.com/osa030/hifzbox/internal/infra/config"
	"github.com/osa030/hifzbox/internal/infra/logger"
	"github.com/osa030/hifzbox/internal/infra/quranjson"
	"github.com/osa030/hifzbox/internal/infra/store"
)

var (
	app        = kingpin.New("hifzbox-server", "hifzbox verse memorization studio")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	chapter    = app.Flag("chapter", "Chapter to open at startup").Int()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-filters command
	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	// Validate filter config
	if err := validateFilterConfig(cfg); err != nil {
		return fmt.Errorf("invalid filter config: %w", err)
	}

	ctx := context.Background()

	// Open session store
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	// Create audio source chain
	sources, err := asset.NewChainFromConfig(cfg.Audio.Sources)
	if err != nil {
		return fmt.Errorf("failed to create audio sources: %w", err)
	}
	zlog.Info().Msgf("audio sources: %s", sources.Name())

	// Create audio provider
	output := audio.NewSpeakerOutput(
		beep.SampleRate(cfg.Audio.SampleRate),
		time.Duration(cfg.Audio.BufferMs)*time.Millisecond,
	)
	defer output.Close()
	provider := audio.New(sources, output, audio.Config{SampleRate: cfg.Audio.SampleRate})
	defer provider.Close()

	// Create sequencer
	player := sequencer.New(provider, sequencer.Config{
		RetryDelay:  cfg.Playback.RetryDelay(),
		DefaultSpan: cfg.Playback.DefaultSpan,
		EventBuffer: cfg.Playback.EventBuffer,
	})

	// Create catalog client
	catalog := quranjson.New(quranjson.Config{
		BaseURL:          cfg.Catalog.BaseURL,
		Timeout:          time.Duration(cfg.Catalog.TimeoutSec) * time.Second,
		FallbackLanguage: cfg.Catalog.FallbackLanguage,
	})

	// Create studio manager
	studioMgr, err := studio.NewManager(ctx, cfg, player, catalog, st)
	if err != nil {
		player.Close()
		return fmt.Errorf("failed to create studio: %w", err)
	}

	if *chapter > 0 {
		if err := studioMgr.SelectChapter(ctx, *chapter); err != nil {
			zlog.Warn().Msgf("Failed to open chapter: chapter=%d: %v", *chapter, err)
		}
	}

	// Create RPC service
	studioService := apiconnect.NewStudioService(studioMgr, cfg)

	// Create HTTP mux
	mux := http.NewServeMux()

	// Create control auth interceptor
	authInterceptor := apiconnect.NewControlAuthInterceptor(cfg)
	studioPath, studioHandler := apiconnect.NewStudioServiceHandler(
		studioService,
		connect.WithInterceptors(authInterceptor),
	)
	mux.Handle(studioPath, studioHandler)

	// Determine server address
	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close studio first to stop playback and end notification streams
	studioMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// printFilters prints available filters.
func printFilters() {
	registry := filter.GetRegistered()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available Filters:")
	for _, name := range names {
		f := registry[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// validateFilterConfig validates filter configurations.
func validateFilterConfig(cfg *config.Config) error {
	registry := filter.GetRegistered()

	for filterName, filterCfg := range cfg.Filters {
		if !filterCfg.Enabled {
			continue
		}

		factory, exists := registry[filterName]
		if !exists {
			return fmt.Errorf("unknown filter %s", filterName)
		}

		f := factory()
		if err := f.ValidateConfig(filterCfg.Settings); err != nil {
			return fmt.Errorf("filter %s: %w", filterName, err)
		}
	}

	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
