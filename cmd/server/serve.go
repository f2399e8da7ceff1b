package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prasenjit/go-mockapi/internal/api"
	"github.com/prasenjit/go-mockapi/internal/config"
	"github.com/prasenjit/go-mockapi/internal/engine"
	"github.com/prasenjit/go-mockapi/internal/logging"
	"github.com/prasenjit/go-mockapi/internal/proxy"
	"github.com/prasenjit/go-mockapi/internal/random"
	"github.com/prasenjit/go-mockapi/internal/stats"
	"github.com/prasenjit/go-mockapi/internal/storage"
	"github.com/prasenjit/go-mockapi/internal/tlsutil"
	"github.com/prasenjit/go-mockapi/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock server",
	Long: `Starts the mock server.

The server will:
  - Load collections from the configured storage
  - Expose the Admin API at /_api/
  - Answer every other request from the matching mock endpoint

Configuration is loaded from config.yaml in the current directory,
or specify a custom config file with the --config flag. Every setting
can also be set with a MOCKAPI_ environment variable, for example
MOCKAPI_SERVER_PORT=9090.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.IntP("port", "p", 0, "Override server port")
	f.String("storage", "", "Storage type: memory, file or sqlite")
	f.String("data", "", "Storage directory")
	f.Int64("seed", 0, "Seed for generated data (0 seeds from the clock)")
	f.Bool("watch", false, "Reload collection files when they change")
	f.Bool("tls", false, "Serve HTTPS next to HTTP on the same port")

	viper.BindPFlag("server.port", f.Lookup("port"))
	viper.BindPFlag("storage.type", f.Lookup("storage"))
	viper.BindPFlag("storage.path", f.Lookup("data"))
	viper.BindPFlag("engine.seed", f.Lookup("seed"))
	viper.BindPFlag("storage.watch", f.Lookup("watch"))
	viper.BindPFlag("server.tls.enabled", f.Lookup("tls"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if used := viper.ConfigFileUsed(); used != "" {
		logger.Info("using config file", zap.String("file", used))
	}

	if cfg.Storage.Path != "" && !filepath.IsAbs(cfg.Storage.Path) {
		if abs, err := filepath.Abs(cfg.Storage.Path); err == nil {
			cfg.Storage.Path = abs
		}
	}

	store, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	seed := cfg.Engine.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	eng := engine.New(random.New(seed), engine.WithLogger(logger.Named("engine")))

	statsCollector := stats.NewCollector()
	tracingService := tracing.NewService(cfg.Tracing.MaxTraces)

	mockServer := proxy.NewServer(store, eng, statsCollector, tracingService,
		proxy.WithLogger(logger.Named("proxy")),
		proxy.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	router := api.NewRouter(store, eng, statsCollector, tracingService, mockServer, logger.Named("api"))

	server := &http.Server{
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	listener, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Server.TLS.Enabled {
		mux, err := newMux(cfg, listener, logger)
		if err != nil {
			listener.Close()
			return err
		}
		logger.Info("starting server (HTTP & HTTPS)", zap.String("addr", cfg.Server.Addr()), zap.Int64("seed", seed))
		g.Go(func() error {
			return mux.Serve(ctx, server)
		})
	} else {
		logger.Info("starting server", zap.String("addr", cfg.Server.Addr()), zap.Int64("seed", seed))
		g.Go(func() error {
			if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if fileStore, ok := store.(*storage.FileStorage); ok && cfg.Storage.Watch {
		fileStore.OnReload(func() {
			if err := mockServer.ReloadRoutes(); err != nil {
				logger.Error("failed to reload routes", zap.Error(err))
			}
		})
		g.Go(func() error {
			return fileStore.Watch(ctx, storage.DefaultDebounce)
		})
	} else if cfg.Storage.Watch {
		logger.Warn("watch is only supported by file storage", zap.String("storage", cfg.Storage.Type))
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// openStorage builds the configured store
func openStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case config.StorageMemory:
		logger.Info("using memory storage")
		return storage.NewMemoryStorage(), nil

	case config.StorageSQLite:
		path := cfg.Storage.SQLitePath()
		logger.Info("using sqlite storage", zap.String("path", path))
		store, err := storage.NewSQLiteStorage(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		return store, nil

	default:
		logger.Info("using file storage", zap.String("path", cfg.Storage.Path))
		store, err := storage.NewFileStorage(cfg.Storage.Path, logger.Named("storage"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		return store, nil
	}
}

// newMux serves HTTP and HTTPS on the same listener
func newMux(cfg *config.Config, listener net.Listener, logger *zap.Logger) (*tlsutil.Mux, error) {
	certs := tlsutil.NewManager(tlsutil.Options{
		CertFile:     cfg.Server.TLS.CertFile,
		KeyFile:      cfg.Server.TLS.KeyFile,
		StorePath:    cfg.CertStorePath(),
		AutoGenerate: cfg.Server.TLS.AutoGenerate,
		Hosts:        []string{cfg.Server.Host},
	}, logger.Named("tls"))

	tlsConfig, err := certs.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get TLS certificate: %w", err)
	}

	certPath, keyPath := certs.Paths()
	logger.Info("using TLS certificate", zap.String("cert", certPath), zap.String("key", keyPath))

	return tlsutil.NewMux(listener, tlsConfig, logger.Named("tls")), nil
}
