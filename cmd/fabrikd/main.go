package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/fabrikdev/fabrik/pkg/adapter/bazel"
	"github.com/fabrikdev/fabrik/pkg/cacheservice"
	"github.com/fabrikdev/fabrik/pkg/config"
	"github.com/fabrikdev/fabrik/pkg/eviction"
	"github.com/fabrikdev/fabrik/pkg/fabrikpb"
	"github.com/fabrikdev/fabrik/pkg/healthapi"
	"github.com/fabrikdev/fabrik/pkg/hotreload"
	"github.com/fabrikdev/fabrik/pkg/index"
	"github.com/fabrikdev/fabrik/pkg/log"
	"github.com/fabrikdev/fabrik/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fabrikd",
	Short: "fabrikd - Fabrik cache engine daemon",
	Long: `fabrikd serves the Fabrik build-cache protocol: content-addressed
blob storage, background eviction, and a streaming gRPC cache service,
backed by a single configuration file. The file is re-read and revalidated
on change or SIGHUP, but the running storage, eviction, and logging
components keep the settings they started with until the daemon restarts.`,
	Version: Version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"fabrikd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", true, "Output logs in JSON format")
	rootCmd.Flags().StringP("config", "c", "fabrik.yaml", "Path to configuration file")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	logger := log.WithComponent("fabrikd")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}

	facade, err := storage.Open(storage.Config{
		CacheDir:      cfg.Cache.Dir,
		IndexBackend:  index.Backend(cfg.Cache.IndexBackend),
		MemoryCacheMB: cfg.Cache.MemoryCacheMB,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage facade")
	}

	maxSize, err := config.ParseSize(cfg.Cache.MaxSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid cache.max_size")
	}
	ttl, err := config.ParseTTL(cfg.Cache.DefaultTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid cache.default_ttl")
	}

	evictionEngine := eviction.NewEngine(facade, eviction.Config{
		MaxSizeBytes: maxSize,
		Policy:       eviction.Policy(strings.ToLower(cfg.Cache.EvictionPolicy)),
		DefaultTTL:   ttl,
	})
	evictionEngine.Start()

	// Exercised by the Bazel reference adapter; a full ByteStream/ActionCache
	// gRPC surface is out of scope, but the key-shaping it would sit on top
	// of is wired here so the adapter package is reachable at startup.
	_ = bazel.NewCAS(facade)

	cacheSvc := cacheservice.New(facade)
	grpcServer := grpc.NewServer()
	fabrikpb.RegisterFabrikCacheServer(grpcServer, cacheSvc)

	var grpcLis net.Listener
	if cfg.Fabrik.Enabled {
		grpcLis, err = net.Listen("tcp", cfg.Fabrik.Bind)
		if err != nil {
			logger.Fatal().Err(err).Str("bind", cfg.Fabrik.Bind).Msg("failed to bind Fabrik protocol listener")
		}
		go func() {
			logger.Info().Str("bind", cfg.Fabrik.Bind).Msg("Fabrik cache protocol listening")
			if err := grpcServer.Serve(grpcLis); err != nil {
				logger.Error().Err(err).Msg("gRPC server stopped")
			}
		}()
	}

	var healthSrv *healthapi.Server
	if cfg.Observability.HealthEnabled {
		healthSrv = healthapi.NewServer(Version, map[string]healthapi.Checker{
			"blobstore": func() error {
				_, err := facade.Exists([]byte{0x00})
				return err
			},
			"index": func() error {
				_, _, err := facade.Size([]byte{0x00})
				return err
			},
			"cache-service": func() error { return nil },
		})
		go func() {
			logger.Info().Str("bind", cfg.Observability.HealthBind).Msg("health/metrics server listening")
			if err := healthSrv.Start(cfg.Observability.HealthBind); err != nil {
				logger.Error().Err(err).Msg("health server stopped")
			}
		}()
	}

	reloadSup, err := hotreload.NewSupervisor(configPath, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("hot-reload supervisor unavailable, config changes require a restart")
	} else {
		reloadSup.Start()
		defer reloadSup.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	shutdown(logger, grpcServer, evictionEngine, facade)
	return nil
}

// shutdown tears components down in the order the Cache Service depends on
// the Eviction Engine depends on the Metadata Index depends on the Blob
// Store, so nothing is asked to serve a request against an already-closed
// dependency.
func shutdown(logger zerolog.Logger, grpcServer *grpc.Server, evictionEngine *eviction.Engine, facade *storage.Facade) {
	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		grpcServer.Stop()
	}

	evictionEngine.Stop()

	if err := facade.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing storage facade")
	}
}
